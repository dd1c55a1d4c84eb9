// Package core defines the seams this executor consumes but does not
// implement: the state store, the transaction executor, and the ambient
// per-block context they operate against. Real account-trie and EVM
// implementations live on the other side of these interfaces.
package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State is an opaque handle to one mutable state replica. Its concrete
// shape (journaled trie, overlay, whatever) is a decision for whoever
// implements StateStore; the coordinator and engines only ever pass
// handles around and never inspect them.
type State interface{}

// BackingStore is an opaque handle to the durable store a State's
// writes are committed into.
type BackingStore interface{}

// AccountEntry is the unit of cache migration between engines: the
// cached view of one account as of the point it was dropped from a
// working state, plus whether it carries unflushed writes.
type AccountEntry struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash common.Hash
	Storage  map[common.Hash]common.Hash
	Dirty    bool
}

// Clone returns a deep copy of the entry so migrating it between
// engines never leaves two goroutines holding the same storage map.
func (a AccountEntry) Clone() AccountEntry {
	out := AccountEntry{
		Balance:  new(uint256.Int),
		Nonce:    a.Nonce,
		CodeHash: a.CodeHash,
		Dirty:    a.Dirty,
	}
	if a.Balance != nil {
		out.Balance.Set(a.Balance)
	}
	if a.Storage != nil {
		out.Storage = make(map[common.Hash]common.Hash, len(a.Storage))
		for k, v := range a.Storage {
			out.Storage[k] = v
		}
	}
	return out
}

// StateStore is the external collaborator that owns account-trie
// storage. It is consumed, never implemented, by this module.
type StateStore interface {
	// Snapshot returns a fresh handle onto the store's current root,
	// suitable for BackingStore-free reads.
	Snapshot() State

	// Clone returns an independent handle that can be mutated without
	// affecting s or any other clone of it.
	Clone(s State) State

	// AddBalance credits amount to addr's balance within s.
	AddBalance(s State, addr common.Address, amount *uint256.Int)

	// DropAccount removes addr from s's working cache and returns the
	// cached entry that was there, if any.
	DropAccount(s State, addr common.Address) (AccountEntry, bool)

	// InsertCache installs entry as addr's cached representation in s,
	// overwriting whatever s previously had cached for addr.
	InsertCache(s State, addr common.Address, entry AccountEntry)

	// CommitExternal flushes s's accumulated writes into backing and
	// returns the resulting state root.
	CommitExternal(s State, backing BackingStore) (common.Hash, error)
}
