package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TraceEntry is one participant of a transaction's execution: a call,
// create, or suicide, named by the addresses it moved value between.
// Unlike a transaction's optional Target, From/To are always concrete
// here — a trace entry that happened necessarily touched real accounts.
type TraceEntry struct {
	From common.Address
	To   common.Address
}

// Outcome is what an Executor hands back for one applied transaction.
type Outcome struct {
	Receipt *types.Receipt
	Trace   []TraceEntry
}

// Executor is the external collaborator that interprets a transaction
// against a mutable State. It is consumed, never implemented, by this
// module; a real implementation wraps an EVM interpreter and gas meter.
//
// A non-nil error is fatal to the block under whose engine it occurred
// (the coordinator then commits the shadow's result); it is not the same
// thing as a reverted transaction, which still produces a failed
// receipt inside a successful Outcome.
type Executor interface {
	Apply(s State, env EnvInfo, tx *types.Transaction) (*Outcome, error)
}

// Target returns tx's call destination as an explicit optional: nil
// means contract creation. This mirrors types.Transaction.To() rather
// than using the zero address as a "no target" sentinel, which would
// collide with any real transaction that targets the zero address.
func Target(tx *types.Transaction) *common.Address {
	return tx.To()
}
