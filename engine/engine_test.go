package engine_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/btwear/parallel-evm/core"
	"github.com/btwear/parallel-evm/engine"
	"github.com/btwear/parallel-evm/fixtures"
)

func TestEngineTransactAppliesSingleTransfer(t *testing.T) {
	defer goleak.VerifyNone(t)

	from := fixtures.NewAccount(1)
	to := fixtures.NewAccount(2)
	store, root, _ := fixtures.NewStore(map[common.Address]*uint256.Int{
		from.Addr: uint256.NewInt(1_000_000),
	})
	exec := fixtures.NewExecutor()

	e := engine.New(0, store, exec)
	defer e.Stop()

	snap := store.Clone(root)
	tx := fixtures.Transfer(from, 0, &to.Addr, big.NewInt(100))
	block := fixtures.Block(1, common.Hash{}, common.Address{}, []*types.Transaction{tx})

	e.BeginBlock(snap, core.EnvInfo{}, block)
	e.Transact(0)
	res := e.EndBlock()

	require.NoError(t, res.Err)
	require.Empty(t, res.DynamicCalls)
}

func TestEngineStopTerminatesGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	store, _, _ := fixtures.NewStore(nil)
	e := engine.New(0, store, fixtures.NewExecutor())
	e.Stop()
}

func TestEngineReportsDynamicCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	s1 := fixtures.NewAccount(1)
	xAcct := fixtures.NewAccount(2)
	yAcct := fixtures.NewAccount(3)

	store, root, _ := fixtures.NewStore(map[common.Address]*uint256.Int{
		s1.Addr: uint256.NewInt(1_000_000),
	})
	exec := fixtures.NewExecutor()
	tx := fixtures.Transfer(s1, 0, &xAcct.Addr, big.NewInt(10))
	exec.ExtraCallee[tx.Hash()] = yAcct.Addr

	e := engine.New(0, store, exec)
	defer e.Stop()

	snap := store.Clone(root)
	block := fixtures.Block(1, common.Hash{}, common.Address{}, []*types.Transaction{tx})

	e.BeginBlock(snap, core.EnvInfo{}, block)
	e.Transact(0)
	res := e.EndBlock()

	require.NoError(t, res.Err)
	require.ElementsMatch(t, []common.Address{yAcct.Addr}, res.DynamicCalls)
}
