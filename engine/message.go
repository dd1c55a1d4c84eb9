package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/btwear/parallel-evm/core"
)

// Message is the closed set of events a WorkerEngine accepts on its
// single inbound queue, processed strictly in FIFO order. Go has no
// native sum type, so this is the idiomatic substitute: an interface
// with an unexported marker method, implemented by one struct per
// message kind.
type Message interface {
	message()
}

// BeginBlock adopts snapshot as the engine's working state and updates
// its EnvInfo from the block header. The engine must be idle.
type BeginBlock struct {
	Snapshot core.State
	Env      core.EnvInfo
	Block    *types.Block
}

func (BeginBlock) message() {}

// Transact applies block.Transactions()[Index] to the working state.
type Transact struct {
	Index int
}

func (Transact) message() {}

// SendCache drops Addr from the engine's working-state cache and
// forwards the extracted entry on Sink. Used by the coordinator to
// migrate an address's cache out of this engine and into another.
type SendCache struct {
	Addr common.Address
	Sink chan<- CacheEntry
}

func (SendCache) message() {}

// WaitCache blocks (from the engine's point of view — subsequent
// queued messages simply wait behind it) until a CacheEntry for Addr
// arrives on the engine's cache-inbound channel, then installs it.
type WaitCache struct {
	Addr common.Address
}

func (WaitCache) message() {}

// EndBlock asks the engine to report its accumulated result — the
// final working state plus every dynamically discovered call address —
// on its reply channel, and return to idle.
type EndBlock struct{}

func (EndBlock) message() {}

// Stop terminates the engine's goroutine. The engine must be idle.
type Stop struct{}

func (Stop) message() {}

// CacheEntry is an AccountEntry in flight between two engines, tagged
// with the address it belongs to so the receiving engine's wait-cache
// buffer can match arrivals against a pending WaitCache regardless of
// arrival order.
type CacheEntry struct {
	Addr  common.Address
	Entry core.AccountEntry
}

// Result is what an engine reports in response to EndBlock.
type Result struct {
	State      core.State
	DynamicCalls []common.Address
	Err        error
}
