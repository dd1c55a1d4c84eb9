package fixtures

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// NoDependencyBatch builds n transactions, each between a unique
// sender/receiver pair, none of which is ever reused — the routing
// loop should spread these evenly with no migrations at all.
func NoDependencyBatch(n int) ([]*types.Transaction, map[common.Address]*uint256.Int) {
	txs := make([]*types.Transaction, 0, n)
	balances := make(map[common.Address]*uint256.Int, n*2)
	for i := 0; i < n; i++ {
		from := NewAccount(byte(2*i + 1))
		to := NewAccount(byte(2*i + 2))
		balances[from.Addr] = uint256.NewInt(1_000_000)
		txs = append(txs, Transfer(from, 0, &to.Addr, big.NewInt(100)))
	}
	return txs, balances
}

// SplitMergeMigration builds the three-transaction scenario from the
// spec's split-merge seed: T1 touches {A,B}, T2 touches {C,D}, T3
// touches {A,D}, forcing A to migrate engines under a pool of size 2.
func SplitMergeMigration() (txs []*types.Transaction, balances map[common.Address]*uint256.Int, addrs struct{ A, B, C, D Account }) {
	a, b, c, d := NewAccount(1), NewAccount(2), NewAccount(3), NewAccount(4)
	balances = map[common.Address]*uint256.Int{
		a.Addr: uint256.NewInt(1_000_000),
		b.Addr: uint256.NewInt(1_000_000),
		c.Addr: uint256.NewInt(1_000_000),
		d.Addr: uint256.NewInt(1_000_000),
	}
	txs = []*types.Transaction{
		Transfer(a, 0, &b.Addr, big.NewInt(10)),
		Transfer(c, 0, &d.Addr, big.NewInt(10)),
		Transfer(a, 1, &d.Addr, big.NewInt(10)),
	}
	addrs.A, addrs.B, addrs.C, addrs.D = a, b, c, d
	return txs, balances, addrs
}

// InducedRace builds the two-transaction scenario from the spec's
// induced-data-race seed: T1 (sender S1) calls contract X, which
// internally calls contract Y; T2 (sender S2, bound statically to a
// different engine by virtue of having no prior relationship to X) is
// a direct transfer to Y. The executor used with this scenario must
// be an *Executor with ExtraCallee[T1.Hash()] = Y so the trace
// reports Y as a dynamic dependency of T1's engine.
func InducedRace() (txs []*types.Transaction, exec *Executor, balances map[common.Address]*uint256.Int, x, y common.Address) {
	s1, s2 := NewAccount(1), NewAccount(2)
	xAcct, yAcct := NewAccount(3), NewAccount(4)
	balances = map[common.Address]*uint256.Int{
		s1.Addr: uint256.NewInt(1_000_000),
		s2.Addr: uint256.NewInt(1_000_000),
	}
	t1 := Transfer(s1, 0, &xAcct.Addr, big.NewInt(10))
	t2 := Transfer(s2, 0, &yAcct.Addr, big.NewInt(10))
	exec = NewExecutor()
	exec.ExtraCallee[t1.Hash()] = yAcct.Addr
	return []*types.Transaction{t1, t2}, exec, balances, xAcct.Addr, yAcct.Addr
}
