package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// lastHashesDepth is how many parent hashes EnvInfo keeps on hand, per
// the BLOCKHASH opcode's 256-block lookback window.
const lastHashesDepth = 256

// LastHashes is a fixed-size ring of the most recent parent block
// hashes, newest first. It is mutated only by the coordinator, between
// blocks; workers only ever read a snapshot of it via EnvInfo.
type LastHashes struct {
	hashes [lastHashesDepth]common.Hash
}

// NewLastHashes seeds a ring from a newest-first slice, padding the
// remainder with the zero hash if fewer than lastHashesDepth are given.
func NewLastHashes(newestFirst []common.Hash) *LastHashes {
	lh := &LastHashes{}
	n := len(newestFirst)
	if n > lastHashesDepth {
		n = lastHashesDepth
	}
	copy(lh.hashes[:n], newestFirst[:n])
	return lh
}

// Push records a newly committed block's hash as the new most-recent
// parent, shifting every older entry back one slot and dropping the
// oldest.
func (lh *LastHashes) Push(h common.Hash) {
	copy(lh.hashes[1:], lh.hashes[:lastHashesDepth-1])
	lh.hashes[0] = h
}

// At returns the hash `back` blocks behind the current parent (At(0) is
// the immediate parent), or the zero hash if back is out of range.
func (lh *LastHashes) At(back int) common.Hash {
	if back < 0 || back >= lastHashesDepth {
		return common.Hash{}
	}
	return lh.hashes[back]
}

// Clone returns an independent copy, so a worker's EnvInfo can diverge
// in nothing except what the coordinator explicitly updates at the
// start of the next block.
func (lh *LastHashes) Clone() *LastHashes {
	out := &LastHashes{}
	out.hashes = lh.hashes
	return out
}

// EnvInfo is the ambient execution context a block runs against. It is
// mutated only by the coordinator between blocks; every worker and the
// shadow see a consistent, independently-owned copy for the duration of
// a block.
type EnvInfo struct {
	Number      *big.Int
	Author      common.Address
	Timestamp   uint64
	Difficulty  *big.Int
	GasLimit    uint64
	GasUsed     uint64
	LastHashes  *LastHashes
}

// FromHeader derives an EnvInfo from a block header, carrying forward
// the given last-hashes ring (which the caller is expected to have
// already pushed the new parent hash into).
func FromHeader(h *types.Header, lastHashes *LastHashes) EnvInfo {
	return EnvInfo{
		Number:     new(big.Int).Set(h.Number),
		Author:     h.Coinbase,
		Timestamp:  h.Time,
		Difficulty: new(big.Int).Set(h.Difficulty),
		GasLimit:   h.GasLimit,
		GasUsed:    0,
		LastHashes: lastHashes,
	}
}

// Clone returns an independent copy suitable for handing to a worker
// that must not observe later mutations the coordinator makes to env.
func (e EnvInfo) Clone() EnvInfo {
	out := e
	if e.Number != nil {
		out.Number = new(big.Int).Set(e.Number)
	}
	if e.Difficulty != nil {
		out.Difficulty = new(big.Int).Set(e.Difficulty)
	}
	if e.LastHashes != nil {
		out.LastHashes = e.LastHashes.Clone()
	}
	return out
}
