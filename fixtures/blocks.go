package fixtures

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block assembles a block at the given height carrying txs, with a
// header that sets Number/ParentHash/Coinbase plus fixed Difficulty,
// GasLimit and Time values and leaves every root zero — this module
// never validates header roots, so fixtures skip computing them.
func Block(number uint64, parentHash common.Hash, coinbase common.Address, txs []*types.Transaction) *types.Block {
	header := &types.Header{
		ParentHash: parentHash,
		Number:     new(big.Int).SetUint64(number),
		Coinbase:   coinbase,
		Difficulty: big.NewInt(1),
		GasLimit:   8_000_000,
		Time:       1_700_000_000 + number,
	}
	return types.NewBlockWithHeader(header).WithBody(txs, nil)
}
