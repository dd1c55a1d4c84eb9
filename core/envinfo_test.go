package core_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/btwear/parallel-evm/core"
)

func TestLastHashesPushShiftsRing(t *testing.T) {
	lh := core.NewLastHashes(nil)
	h1 := common.HexToHash("0x01")
	h2 := common.HexToHash("0x02")

	lh.Push(h1)
	require.Equal(t, h1, lh.At(0))

	lh.Push(h2)
	require.Equal(t, h2, lh.At(0))
	require.Equal(t, h1, lh.At(1))
}

func TestLastHashesCloneIsIndependent(t *testing.T) {
	lh := core.NewLastHashes([]common.Hash{common.HexToHash("0xaa")})
	clone := lh.Clone()

	lh.Push(common.HexToHash("0xbb"))

	require.Equal(t, common.HexToHash("0xaa"), clone.At(0))
	require.Equal(t, common.HexToHash("0xbb"), lh.At(0))
}

func TestAccountEntryCloneIsDeep(t *testing.T) {
	original := core.AccountEntry{
		Storage: map[common.Hash]common.Hash{
			common.HexToHash("0x01"): common.HexToHash("0x02"),
		},
	}
	clone := original.Clone()
	clone.Storage[common.HexToHash("0x01")] = common.HexToHash("0x03")

	require.Equal(t, common.HexToHash("0x02"), original.Storage[common.HexToHash("0x01")])
	require.Equal(t, common.HexToHash("0x03"), clone.Storage[common.HexToHash("0x01")])
}
