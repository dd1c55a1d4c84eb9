package coordinator_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/btwear/parallel-evm/core"
	"github.com/btwear/parallel-evm/coordinator"
	"github.com/btwear/parallel-evm/fixtures"
	"github.com/btwear/parallel-evm/reward"
)

func runBlock(t require.TestingT, poolSize int, balances map[common.Address]*uint256.Int, txs []*types.Transaction) common.Hash {
	store, root, backing := fixtures.NewStore(cloneBalances(balances))
	c, err := coordinator.New(root, core.NewLastHashes(nil), store, fixtures.NewExecutor(), backing, fixtures.SenderRecovery{})
	require.NoError(t, err)
	require.NoError(t, c.AddEngines(poolSize))

	block := fixtures.Block(1, common.Hash{}, common.Address{}, txs)
	c.PushBlock(block, nil)
	res, err := c.StepOneBlock(context.Background())
	require.NoError(t, err)
	require.False(t, res.Raced)

	_, _, _ = c.Stop()
	return res.Root
}

// TestEquivalenceAcrossPoolSizes is the spec's primary testable
// property: for any block built from independent transfers, every
// pool size between 1 and 16 commits the same root as pool size 1.
func TestEquivalenceAcrossPoolSizes(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(tt, "numTransfers")
		poolSize := rapid.IntRange(1, 16).Draw(tt, "poolSize")

		txs, balances := fixtures.NoDependencyBatch(n)

		baseline := runBlock(tt, 1, balances, txs)
		underTest := runBlock(tt, poolSize, balances, txs)

		require.Equal(tt, baseline, underTest)
	})
}

func TestRewardOnlyNeverTouchesUnrelatedBalances(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		seed := byte(rapid.IntRange(1, 200).Draw(tt, "seed"))
		bystander := fixtures.NewAccount(seed)
		miner := fixtures.NewAccount(byte(int(seed)%250 + 1))

		store, root, backing := fixtures.NewStore(map[common.Address]*uint256.Int{
			bystander.Addr: uint256.NewInt(555),
		})
		c, err := coordinator.New(root, core.NewLastHashes(nil), store, fixtures.NewExecutor(), backing, fixtures.SenderRecovery{})
		require.NoError(tt, err)
		require.NoError(tt, c.AddEngines(2))

		block := fixtures.Block(1, common.Hash{}, common.Address{}, nil)
		amount, _ := uint256.FromBig(big.NewInt(1000))
		c.PushBlock(block, &reward.Reward{Miner: miner.Addr, Amount: amount})

		res, err := c.StepOneBlock(context.Background())
		require.NoError(tt, err)

		mb := backing.(*fixtures.MemBacking)
		require.Equal(tt, uint256.NewInt(555), mb.Balance(res.Root, bystander.Addr))

		_, _, _ = c.Stop()
	})
}
