// Package engine implements WorkerEngine: a single long-running
// goroutine that owns one state replica and drives it through a block
// one transact/send-cache/wait-cache message at a time, as assigned by
// the coordinator.
package engine

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/btwear/parallel-evm/core"
)

// defaultChanCap is the bounded-channel capacity the spec calls out as
// sufficient to absorb routing bursts without unbounded buffering.
const defaultChanCap = 8

// Engine is one WorkerEngine: an owned state snapshot plus the
// goroutine driving it through the inbox's message stream.
type Engine struct {
	ID int

	inbox   chan Message
	cacheIn chan CacheEntry
	replies chan Result
	done    chan struct{}

	store core.StateStore
	exec  core.Executor
	log   log.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithChannelCapacity overrides the default inbox/cache-inbox buffer
// size.
func WithChannelCapacity(n int) Option {
	return func(e *Engine) {
		e.inbox = make(chan Message, n)
		e.cacheIn = make(chan CacheEntry, n)
	}
}

// New starts a WorkerEngine goroutine and returns a handle to it. The
// engine begins idle; Stop must be called exactly once to terminate it.
func New(id int, store core.StateStore, exec core.Executor, opts ...Option) *Engine {
	e := &Engine{
		ID:      id,
		inbox:   make(chan Message, defaultChanCap),
		cacheIn: make(chan CacheEntry, defaultChanCap),
		replies: make(chan Result, 1),
		done:    make(chan struct{}),
		store:   store,
		exec:    exec,
		log:     log.New("component", "engine", "id", id),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Inbox exposes the engine's inbound message queue, the same channel
// BeginBlock, Transact, SendCache, WaitCache, EndBlock and Stop send on.
func (e *Engine) Inbox() chan<- Message { return e.inbox }

// CacheInbound is the channel a SendCache issued to another engine
// should name as its Sink when migrating an address to this engine.
func (e *Engine) CacheInbound() chan<- CacheEntry { return e.cacheIn }

// BeginBlock enqueues adoption of a fresh working state for the given
// block.
func (e *Engine) BeginBlock(snapshot core.State, env core.EnvInfo, block *types.Block) {
	e.inbox <- BeginBlock{Snapshot: snapshot, Env: env, Block: block}
}

// Transact enqueues application of block.Transactions()[index].
func (e *Engine) Transact(index int) {
	e.inbox <- Transact{Index: index}
}

// SendCache enqueues extraction of addr's cached entry, to be pushed
// onto sink once prior queued transactions touching addr have settled.
func (e *Engine) SendCache(addr common.Address, sink chan<- CacheEntry) {
	e.inbox <- SendCache{Addr: addr, Sink: sink}
}

// WaitCache enqueues a wait for addr's entry to arrive on this engine's
// cache-inbound channel before any subsequently queued Transact runs.
func (e *Engine) WaitCache(addr common.Address) {
	e.inbox <- WaitCache{Addr: addr}
}

// EndBlock enqueues finalisation and blocks for the engine's reply.
func (e *Engine) EndBlock() Result {
	e.inbox <- EndBlock{}
	return <-e.replies
}

// Stop enqueues termination and waits for the goroutine to exit. The
// engine must be idle (no in-flight block) when Stop is called.
func (e *Engine) Stop() {
	e.inbox <- Stop{}
	<-e.done
}

// run is the engine's goroutine body: a single select-free loop over
// the inbox, since every cross-engine interaction funnels through this
// one FIFO queue by design (send-cache/wait-cache/transact sequencing
// depends on strict in-order processing).
func (e *Engine) run() {
	defer close(e.done)

	var (
		state      core.State
		env        core.EnvInfo
		block      *types.Block
		dynCalls   mapset.Set[common.Address]
		cacheSeen  mapset.Set[common.Address] // addresses already inserted, awaiting their WaitCache
		blockErr   error
	)

	for msg := range e.inbox {
		switch m := msg.(type) {
		case BeginBlock:
			state = m.Snapshot
			env = m.Env
			block = m.Block
			dynCalls = mapset.NewThreadUnsafeSet[common.Address]()
			cacheSeen = mapset.NewThreadUnsafeSet[common.Address]()
			blockErr = nil

		case Transact:
			if blockErr != nil {
				continue // a prior tx in this block already failed fatally
			}
			tx := block.Transactions()[m.Index]
			outcome, err := e.exec.Apply(state, env, tx)
			if err != nil {
				blockErr = fmt.Errorf("%w: tx %d: %v", core.ErrExecution, m.Index, err)
				e.log.Error("transaction apply failed", "tx", m.Index, "err", err)
				continue
			}
			// Trace[0] is the transaction's own top-level sender->target
			// interaction; only internal calls/creates/suicides beyond
			// that count as dynamically discovered dependencies. A
			// contract creation has no static target, so the account its
			// top-level hop creates counts as dynamically discovered too.
			if tx.To() == nil && len(outcome.Trace) > 0 {
				dynCalls.Add(outcome.Trace[0].To)
			}
			if len(outcome.Trace) > 1 {
				for _, t := range outcome.Trace[1:] {
					dynCalls.Add(t.To)
				}
			}

		case SendCache:
			entry, ok := e.store.DropAccount(state, m.Addr)
			if !ok {
				entry = core.AccountEntry{}
			}
			m.Sink <- CacheEntry{Addr: m.Addr, Entry: entry}

		case WaitCache:
			if cacheSeen.Contains(m.Addr) {
				cacheSeen.Remove(m.Addr)
				continue
			}
			for {
				ce := <-e.cacheIn
				e.store.InsertCache(state, ce.Addr, ce.Entry)
				if ce.Addr == m.Addr {
					break
				}
				cacheSeen.Add(ce.Addr)
			}

		case EndBlock:
			e.replies <- Result{
				State:        state,
				DynamicCalls: dynCalls.ToSlice(),
				Err:          blockErr,
			}
			state, block = nil, nil

		case Stop:
			return

		default:
			panic(fmt.Sprintf("engine %d: unrecognized message %T", e.ID, msg))
		}
	}
}
