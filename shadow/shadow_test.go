package shadow_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/btwear/parallel-evm/core"
	"github.com/btwear/parallel-evm/fixtures"
	"github.com/btwear/parallel-evm/shadow"
)

func TestShadowSequentiallyExecutesBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	from := fixtures.NewAccount(1)
	to := fixtures.NewAccount(2)
	store, root, _ := fixtures.NewStore(map[common.Address]*uint256.Int{
		from.Addr: uint256.NewInt(1_000_000),
	})
	exec := fixtures.NewExecutor()

	sh := shadow.New(store, exec)
	defer sh.Stop()

	tx := fixtures.Transfer(from, 0, &to.Addr, big.NewInt(100))
	block := fixtures.Block(1, common.Hash{}, common.Address{}, []*types.Transaction{tx})

	snap := store.Clone(root)
	sh.BeginBlock(snap, core.EnvInfo{}, block)
	res := sh.EndBlock()

	require.NoError(t, res.Err)
	require.NotNil(t, res.State)
}

func TestShadowCancelDiscardsResultAndAllowsReuse(t *testing.T) {
	defer goleak.VerifyNone(t)

	from := fixtures.NewAccount(1)
	to := fixtures.NewAccount(2)
	store, root, _ := fixtures.NewStore(map[common.Address]*uint256.Int{
		from.Addr: uint256.NewInt(1_000_000),
	})
	exec := fixtures.NewExecutor()

	sh := shadow.New(store, exec)
	defer sh.Stop()

	tx := fixtures.Transfer(from, 0, &to.Addr, big.NewInt(100))
	block := fixtures.Block(1, common.Hash{}, common.Address{}, []*types.Transaction{tx})

	snap := store.Clone(root)
	sh.BeginBlock(snap, core.EnvInfo{}, block)
	sh.Cancel()

	// The shadow must accept a fresh BeginBlock immediately; no stale
	// reply should be pending.
	snap2 := store.Clone(root)
	sh.BeginBlock(snap2, core.EnvInfo{}, block)
	res := sh.EndBlock()
	require.NoError(t, res.Err)
}
