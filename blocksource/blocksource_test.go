package blocksource_test

import (
	"bytes"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/btwear/parallel-evm/blocksource"
	"github.com/btwear/parallel-evm/fixtures"
)

func TestFileSourceStreamsConcatenatedBlocksWithoutRewards(t *testing.T) {
	from := fixtures.NewAccount(1)
	to := fixtures.NewAccount(2)
	tx := fixtures.Transfer(from, 0, &to.Addr, big.NewInt(100))
	b1 := fixtures.Block(1, common.Hash{}, common.Address{}, []*types.Transaction{tx})
	b2 := fixtures.Block(2, b1.Hash(), common.Address{}, nil)

	var buf bytes.Buffer
	require.NoError(t, rlp.Encode(&buf, b1))
	require.NoError(t, rlp.Encode(&buf, b2))

	src := blocksource.NewFileSource(&buf, nil, fixtures.Signer)

	got1, rwd1, err := src.NextBlock()
	require.NoError(t, err)
	require.Nil(t, rwd1)
	require.Equal(t, uint64(1), got1.NumberU64())

	got2, _, err := src.NextBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(2), got2.NumberU64())

	_, _, err = src.NextBlock()
	require.ErrorIs(t, err, io.EOF)

	sender, err := src.Sender(got1.Transactions()[0])
	require.NoError(t, err)
	require.Equal(t, from.Addr, sender)
}

func TestLoadLastHashesPadsShortInput(t *testing.T) {
	lh, err := blocksource.LoadLastHashes(strings.NewReader("0x01\n0x02\n"))
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x01"), lh.At(0))
	require.Equal(t, common.HexToHash("0x02"), lh.At(1))
	require.Equal(t, common.Hash{}, lh.At(2))
}
