// Package shadow implements ShadowEngine: a single long-running
// sequential executor that shadows the parallel pool as a correctness
// safety net, committed only when the coordinator detects a data race.
package shadow

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/btwear/parallel-evm/core"
)

type message interface{ message() }

type beginBlock struct {
	snapshot core.State
	env      core.EnvInfo
	block    *types.Block
}

func (beginBlock) message() {}

type endBlock struct{}

func (endBlock) message() {}

type cancel struct{}

func (cancel) message() {}

type stop struct{}

func (stop) message() {}

// Engine is the ShadowEngine: one goroutine, reused block after block.
type Engine struct {
	inbox   chan message
	replies chan Result
	done    chan struct{}
	running atomic.Bool

	store core.StateStore
	exec  core.Executor
	log   log.Logger
}

// Result is what EndBlock replies with.
type Result struct {
	State core.State
	Err   error
}

// New starts a ShadowEngine goroutine.
func New(store core.StateStore, exec core.Executor) *Engine {
	e := &Engine{
		inbox:   make(chan message, 4),
		replies: make(chan Result, 1),
		done:    make(chan struct{}),
		store:   store,
		exec:    exec,
		log:     log.New("component", "shadow"),
	}
	e.running.Store(true)
	go e.run()
	return e
}

// BeginBlock arms the shadow to start sequentially executing block
// against snapshot. The shadow must be idle.
func (e *Engine) BeginBlock(snapshot core.State, env core.EnvInfo, block *types.Block) {
	e.running.Store(true)
	e.inbox <- beginBlock{snapshot: snapshot, env: env, block: block}
}

// EndBlock consumes the shadow's result: the sequentially-executed
// state, guaranteed equal to what a single-threaded executor would
// produce from the same snapshot and block.
func (e *Engine) EndBlock() Result {
	e.inbox <- endBlock{}
	return <-e.replies
}

// Cancel discards the in-flight (or about-to-start) block's work. No
// result is produced; a subsequent BeginBlock is legal immediately.
func (e *Engine) Cancel() {
	e.running.Store(false)
	e.inbox <- cancel{}
}

// Stop terminates the goroutine. The shadow must be idle.
func (e *Engine) Stop() {
	e.inbox <- stop{}
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)

	for msg := range e.inbox {
		switch m := msg.(type) {
		case beginBlock:
			state := m.snapshot
			var err error
			for i, tx := range m.block.Transactions() {
				if !e.running.Load() {
					break
				}
				if _, applyErr := e.exec.Apply(state, m.env, tx); applyErr != nil {
					err = applyErr
					e.log.Error("shadow execution failed", "tx", i, "err", applyErr)
					break
				}
			}
			// Block until the coordinator tells us whether to report or
			// discard this result.
			switch (<-e.inbox).(type) {
			case endBlock:
				e.replies <- Result{State: state, Err: err}
			case cancel:
				// discarded, nothing to send
			default:
				panic("shadow: expected end-block or cancel after begin-block")
			}

		case cancel:
			// cancel with no pending begin-block is a no-op

		case endBlock:
			panic("shadow: end-block with no pending begin-block")

		case stop:
			return
		}
	}
}
