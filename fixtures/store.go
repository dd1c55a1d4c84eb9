// Package fixtures provides an in-memory StateStore/Executor pair and
// deterministic transaction generators, for exercising the coordinator
// and engine packages without a real trie-backed EVM.
package fixtures

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/btwear/parallel-evm/core"
)

// MemState is a core.State backed by a plain map, one per snapshot.
// Access is single-goroutine per snapshot by the executor pool's
// design, so MemState itself holds no lock; Store wraps only the
// operations shared across snapshots (none, by construction).
type MemState struct {
	accounts map[common.Address]core.AccountEntry
}

func newMemState() *MemState {
	return &MemState{accounts: make(map[common.Address]core.AccountEntry)}
}

func (s *MemState) get(addr common.Address) core.AccountEntry {
	if e, ok := s.accounts[addr]; ok {
		return e
	}
	return core.AccountEntry{Balance: new(uint256.Int)}
}

func (s *MemState) set(addr common.Address, e core.AccountEntry) {
	s.accounts[addr] = e
}

// Store is a core.StateStore over MemState. It holds no state of its
// own; every operation acts on the State/BackingStore handles passed
// to it, same as a real trie-backed StateStore would.
type Store struct{}

// NewStore constructs an empty Store with balances seeded from
// initialBalances.
func NewStore(initialBalances map[common.Address]*uint256.Int) (*Store, core.State, core.BackingStore) {
	root := newMemState()
	for addr, bal := range initialBalances {
		root.set(addr, core.AccountEntry{Balance: new(uint256.Int).Set(bal)})
	}
	return &Store{}, root, NewMemBacking()
}

// Snapshot returns a new, empty MemState, since Store keeps no root of
// its own. The coordinator never calls it: it is handed its initial
// state and only ever passes Clone results to workers.
func (st *Store) Snapshot() core.State { return newMemState() }

// Clone deep-copies every account in s.
func (st *Store) Clone(s core.State) core.State {
	src := s.(*MemState)
	out := newMemState()
	for addr, e := range src.accounts {
		out.accounts[addr] = e.Clone()
	}
	return out
}

// AddBalance credits amount to addr's balance, creating the account if
// it did not already exist.
func (st *Store) AddBalance(s core.State, addr common.Address, amount *uint256.Int) {
	ms := s.(*MemState)
	e := ms.get(addr)
	e.Balance = new(uint256.Int).Add(e.Balance, amount)
	ms.set(addr, e)
}

// DropAccount removes and returns addr's entry from s, reporting
// whether it was present.
func (st *Store) DropAccount(s core.State, addr common.Address) (core.AccountEntry, bool) {
	ms := s.(*MemState)
	e, ok := ms.accounts[addr]
	if ok {
		delete(ms.accounts, addr)
	}
	return e, ok
}

// InsertCache installs entry for addr in s, overwriting any existing
// entry.
func (st *Store) InsertCache(s core.State, addr common.Address, entry core.AccountEntry) {
	s.(*MemState).set(addr, entry)
}

// CommitExternal computes a deterministic root hash over s's accounts
// and records the committed snapshot in backing.
func (st *Store) CommitExternal(s core.State, backing core.BackingStore) (common.Hash, error) {
	ms, ok := s.(*MemState)
	if !ok {
		return common.Hash{}, fmt.Errorf("fixtures: CommitExternal: state is not a *MemState")
	}
	mb, ok := backing.(*MemBacking)
	if !ok {
		return common.Hash{}, fmt.Errorf("fixtures: CommitExternal: backing is not a *MemBacking")
	}
	root := hashState(ms)
	mb.record(root, st.Clone(ms).(*MemState))
	return root, nil
}

func hashState(ms *MemState) common.Hash {
	addrs := make([]common.Address, 0, len(ms.accounts))
	for a := range ms.accounts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	h := crypto.NewKeccakState()
	for _, a := range addrs {
		e := ms.accounts[a]
		h.Write(a.Bytes())
		if e.Balance != nil {
			h.Write(e.Balance.Bytes())
		}
	}
	var out common.Hash
	h.Read(out[:])
	return out
}

// MemBacking records every root committed against it, in commit order.
type MemBacking struct {
	mu    sync.Mutex
	Roots []common.Hash
	snaps map[common.Hash]*MemState
}

// NewMemBacking returns an empty backing store.
func NewMemBacking() *MemBacking {
	return &MemBacking{snaps: make(map[common.Hash]*MemState)}
}

func (b *MemBacking) record(root common.Hash, s *MemState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Roots = append(b.Roots, root)
	b.snaps[root] = s
}

// Balance returns the balance addr held at the given committed root,
// for test assertions.
func (b *MemBacking) Balance(root common.Hash, addr common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.snaps[root]
	if !ok {
		return new(uint256.Int)
	}
	return s.get(addr).Balance
}
