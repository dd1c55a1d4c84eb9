package fixtures

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/btwear/parallel-evm/core"
)

// chainID is fixed for every fixture transaction; only relative nonce
// and signature validity matter for these tests.
var chainID = big.NewInt(1337)

// Signer is the EIP-155 signer every fixture transaction is signed
// under, shared between transaction construction and the Executor's
// sender recovery.
var Signer = types.NewEIP155Signer(chainID)

// Account is a generated test keypair.
type Account struct {
	Key  *ecdsa.PrivateKey
	Addr common.Address
}

// NewAccount derives a deterministic account from seed, so fixture
// scenarios are reproducible across runs without embedding raw keys.
func NewAccount(seed byte) Account {
	var seedBytes [32]byte
	for i := range seedBytes {
		seedBytes[i] = seed
	}
	key, err := ecdsa.GenerateKey(crypto.S256(), deterministicReader{seed: seedBytes})
	if err != nil {
		panic(fmt.Sprintf("fixtures: generating account key: %v", err))
	}
	return Account{Key: key, Addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// deterministicReader is an io.Reader producing a fixed byte forever,
// good enough entropy for reproducible test keys (never for anything
// that touches real funds).
type deterministicReader struct {
	seed [32]byte
}

func (r deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.seed[i%len(r.seed)]
	}
	return len(p), nil
}

// Transfer builds and signs a simple value-transfer transaction.
func Transfer(from Account, nonce uint64, to *common.Address, value *big.Int) *types.Transaction {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	signed, err := types.SignTx(tx, Signer, from.Key)
	if err != nil {
		panic(fmt.Sprintf("fixtures: signing transaction: %v", err))
	}
	return signed
}

// Executor is a core.Executor performing plain value transfers: debit
// the sender, credit the target (or a freshly derived contract address
// when To is nil), and emit a one-hop sender->target trace, plus a
// second hop for any transaction listed in ExtraCallee, so engines
// exercise the same dynamic-dependency path real execution traces would.
type Executor struct {
	// ExtraCallee maps a transaction hash to an address that is added
	// to that transaction's trace as an internal call target, letting
	// tests induce a dynamic-dependency race deliberately.
	ExtraCallee map[common.Hash]common.Address
}

// NewExecutor returns an Executor with no induced internal calls.
func NewExecutor() *Executor {
	return &Executor{ExtraCallee: make(map[common.Hash]common.Address)}
}

// Apply executes tx against s.
func (e *Executor) Apply(s core.State, env core.EnvInfo, tx *types.Transaction) (*core.Outcome, error) {
	ms, ok := s.(*MemState)
	if !ok {
		return nil, fmt.Errorf("fixtures: Apply: state is not a *MemState")
	}
	sender, err := types.Sender(Signer, tx)
	if err != nil {
		return nil, fmt.Errorf("fixtures: recover sender: %w", err)
	}

	from := ms.get(sender)
	value, overflow := uint256.FromBig(tx.Value())
	if overflow {
		return nil, fmt.Errorf("fixtures: tx %s: value overflows uint256", tx.Hash())
	}
	if from.Balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("fixtures: tx %s: insufficient balance", tx.Hash())
	}
	from.Balance = new(uint256.Int).Sub(from.Balance, value)
	from.Nonce++
	ms.set(sender, from)

	target := core.Target(tx)
	var to common.Address
	if target != nil {
		to = *target
	} else {
		to = crypto.CreateAddress(sender, tx.Nonce())
	}
	toEntry := ms.get(to)
	toEntry.Balance = new(uint256.Int).Add(toEntry.Balance, value)
	ms.set(to, toEntry)

	trace := []core.TraceEntry{{From: sender, To: to}}
	if extra, ok := e.ExtraCallee[tx.Hash()]; ok {
		trace = append(trace, core.TraceEntry{From: to, To: extra})
	}

	receipt := &types.Receipt{
		Status:  types.ReceiptStatusSuccessful,
		TxHash:  tx.Hash(),
		GasUsed: 21000,
	}
	return &core.Outcome{Receipt: receipt, Trace: trace}, nil
}

// SenderRecovery adapts Executor's fixed Signer to the coordinator's
// SenderRecovery seam.
type SenderRecovery struct{}

// Sender recovers tx's sender under the fixture Signer.
func (SenderRecovery) Sender(tx *types.Transaction) (common.Address, error) {
	return types.Sender(Signer, tx)
}
