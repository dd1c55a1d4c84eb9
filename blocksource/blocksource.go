// Package blocksource supplies the coordinator with a ready-to-run
// stream of (block, reward) pairs read off disk, plus the signature
// recovery the routing loop needs statically. Block bodies are stored
// back-to-back RLP-encoded, matching the concatenated-block-file
// convention the original chain-replay tooling used instead of a
// proper chain database.
package blocksource

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/btwear/parallel-evm/core"
	"github.com/btwear/parallel-evm/reward"
)

// Source streams blocks (and their paired reward records, if any) in
// height order and recovers each transaction's sender address.
type Source interface {
	NextBlock() (*types.Block, *reward.Reward, error)
	Sender(tx *types.Transaction) (common.Address, error)
}

// fileSource reads blocks from a concatenated-RLP stream and pairs
// them, by arrival order, with records from an optional reward.Reader.
type fileSource struct {
	stream  *rlp.Stream
	rewards *reward.Reader
	signer  types.Signer
}

// NewFileSource builds a Source over blockData (concatenated
// rlp.EncodeToBytes(*types.Block) records) and an optional reward
// stream. rewards may be nil if no reward side-channel is available,
// in which case NextBlock always returns a nil *reward.Reward.
func NewFileSource(blockData io.Reader, rewards *reward.Reader, signer types.Signer) Source {
	return &fileSource{
		stream:  rlp.NewStream(blockData, 0),
		rewards: rewards,
		signer:  signer,
	}
}

// NextBlock decodes the next block from the stream and, if a reward
// reader was supplied, the next paired reward record. Returns io.EOF
// once the block stream is exhausted.
func (s *fileSource) NextBlock() (*types.Block, *reward.Reward, error) {
	var block types.Block
	if err := s.stream.Decode(&block); err != nil {
		if err == io.EOF {
			return nil, nil, io.EOF
		}
		return nil, nil, fmt.Errorf("blocksource: decode block: %w", err)
	}

	if s.rewards == nil {
		return &block, nil, nil
	}
	r, err := s.rewards.Next()
	if err != nil {
		if err == io.EOF {
			return &block, nil, nil
		}
		return nil, nil, fmt.Errorf("blocksource: decode reward: %w", err)
	}
	return &block, r, nil
}

// Sender recovers tx's sender under the source's configured Signer.
func (s *fileSource) Sender(tx *types.Transaction) (common.Address, error) {
	addr, err := types.Sender(s.signer, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("blocksource: recover sender: %w", err)
	}
	return addr, nil
}

// LoadLastHashes reads the 256 most recent parent hashes, newest
// first, one 0x-prefixed hex hash per line, into a LastHashes ring.
// Fewer than 256 lines is fine; the remainder stays the zero hash.
func LoadLastHashes(r io.Reader) (*core.LastHashes, error) {
	var hashes []common.Hash
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := scan.Text()
		if line == "" {
			continue
		}
		hashes = append(hashes, common.HexToHash(line))
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("blocksource: read last-hashes: %w", err)
	}
	return core.NewLastHashes(hashes), nil
}
