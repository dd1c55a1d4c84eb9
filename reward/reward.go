// Package reward loads per-block miner/uncle reward records from the
// newline-delimited JSON side-channel file the original chain-replay
// tooling ships alongside its block files, since block bodies alone
// carry no record of the reward amounts a full node's consensus engine
// would otherwise compute.
package reward

import (
	"bufio"
	"fmt"
	"io"
	"math/big"

	jsoniter "github.com/json-iterator/go"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// UncleReward is one uncle's position, miner address and awarded
// amount.
type UncleReward struct {
	Miner    common.Address `json:"-"`
	Position uint64         `json:"-"`
	Amount   *uint256.Int   `json:"-"`
}

// Reward is the full reward record for one block: the miner's own
// block reward plus zero or more uncle rewards.
type Reward struct {
	Number               uint64         `json:"-"`
	Miner                common.Address `json:"-"`
	Amount               *uint256.Int   `json:"-"`
	Uncles               []UncleReward  `json:"-"`
	UncleInclusionReward *uint256.Int   `json:"-"`
}

// wireReward mirrors the on-disk JSON shape, where amounts are encoded
// as either plain decimal or 0x-prefixed hex strings. Field names
// match the original chain-replay tooling's serialization exactly,
// including the uncle reward's lowercase "blockreward".
type wireUncle struct {
	Miner    common.Address        `json:"miner"`
	Position uint64                `json:"unclePosition"`
	Amount   *math.HexOrDecimal256 `json:"blockreward"`
}

type wireReward struct {
	Number               uint64                `json:"blockNumber"`
	Miner                common.Address        `json:"blockMiner"`
	Amount               *math.HexOrDecimal256 `json:"blockReward"`
	Uncles               []wireUncle           `json:"uncles"`
	UncleInclusionReward *math.HexOrDecimal256 `json:"uncleInclusionReward"`
}

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode parses one reward record from its JSON-lines encoding.
func Decode(line []byte) (*Reward, error) {
	var w wireReward
	if err := api.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("reward: decode: %w", err)
	}
	r := &Reward{
		Number:               w.Number,
		Miner:                w.Miner,
		Amount:               hexOrDecimalToUint256(w.Amount),
		UncleInclusionReward: hexOrDecimalToUint256(w.UncleInclusionReward),
	}
	for _, u := range w.Uncles {
		r.Uncles = append(r.Uncles, UncleReward{
			Miner:    u.Miner,
			Position: u.Position,
			Amount:   hexOrDecimalToUint256(u.Amount),
		})
	}
	return r, nil
}

func hexOrDecimalToUint256(h *math.HexOrDecimal256) *uint256.Int {
	if h == nil {
		return new(uint256.Int)
	}
	out, _ := uint256.FromBig((*big.Int)(h))
	return out
}

// Reader streams Reward records from a newline-delimited JSON file,
// one record per line, keyed implicitly by arrival order — the caller
// is expected to pair each record with the block of the same height in
// lockstep with a blocksource.Source.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r as a Reward stream.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: sc}
}

// Next returns the next reward record, or io.EOF once the stream is
// exhausted. Blank lines are skipped.
func (r *Reader) Next() (*Reward, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return Decode(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reward: read: %w", err)
	}
	return nil, io.EOF
}
