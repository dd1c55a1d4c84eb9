// Package coordinator implements the Coordinator: the component that
// partitions a block's transactions across a pool of WorkerEngines,
// migrates account caches between them as dependencies merge, runs a
// ShadowEngine as a safety net, validates the speculative result
// against trace-revealed dynamic dependencies, and commits either the
// parallel result or the shadow's.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/btwear/parallel-evm/core"
	"github.com/btwear/parallel-evm/engine"
	"github.com/btwear/parallel-evm/metrics"
	rewardpkg "github.com/btwear/parallel-evm/reward"
	"github.com/btwear/parallel-evm/shadow"
)

// ErrStopped is returned by any operation attempted after Stop.
var ErrStopped = errors.New("coordinator: stopped")

// ErrNoEngines is returned by StepOneBlock when AddEngines was never
// called.
var ErrNoEngines = errors.New("coordinator: no engines in pool")

// SenderRecovery recovers a transaction's sender address. It is the
// one piece of "signature recovery" the coordinator's routing loop
// needs statically; a real implementation wraps crypto/types.Sender
// with a chain-specific Signer (see the blocksource package).
type SenderRecovery interface {
	Sender(tx *types.Transaction) (common.Address, error)
}

// BlockResult is the per-block observability surface the spec calls
// for: whether the shadow's result had to be used, the committed root,
// and gas accounting.
type BlockResult struct {
	Raced   bool
	Root    common.Hash
	GasUsed uint64
}

type pendingBlock struct {
	block  *types.Block
	reward *rewardpkg.Reward
}

// Coordinator owns the authoritative state, the worker pool, the
// shadow worker, and the per-block commit protocol.
type Coordinator struct {
	store   core.StateStore
	exec    core.Executor
	backing core.BackingStore
	sender  SenderRecovery

	committed core.State
	env       core.EnvInfo

	pool       []*engine.Engine
	chanCap    int
	shadowEng  *shadow.Engine
	bestThread int

	queue   []pendingBlock
	stopped bool

	metrics *metrics.Metrics
	log     log.Logger
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithMetrics attaches a metrics sink. Nil-safe: omitting this option
// leaves metrics collection disabled.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithChannelCapacity overrides the per-engine inbox/cache buffer size
// new engines are created with.
func WithChannelCapacity(n int) Option {
	return func(c *Coordinator) { c.chanCap = n }
}

// New creates a Coordinator over the given initial authoritative state.
// No engines are started; call AddEngines before StepOneBlock.
func New(initial core.State, lastHashes *core.LastHashes, store core.StateStore, exec core.Executor, backing core.BackingStore, sender SenderRecovery, opts ...Option) (*Coordinator, error) {
	if store == nil || exec == nil || sender == nil {
		return nil, errors.New("coordinator: store, exec and sender are required")
	}
	c := &Coordinator{
		store:     store,
		exec:      exec,
		backing:   backing,
		sender:    sender,
		committed: initial,
		env:       core.EnvInfo{LastHashes: lastHashes},
		chanCap:   8,
		shadowEng: shadow.New(store, exec),
		log:       log.New("component", "coordinator"),
	}
	return c, nil
}

// AddEngines grows the worker pool by n engines, each starting idle.
func (c *Coordinator) AddEngines(n int) error {
	if c.stopped {
		return ErrStopped
	}
	if n <= 0 {
		return fmt.Errorf("coordinator: n must be positive, got %d", n)
	}
	for i := 0; i < n; i++ {
		id := len(c.pool)
		c.pool = append(c.pool, engine.New(id, c.store, c.exec, engine.WithChannelCapacity(c.chanCap)))
	}
	return nil
}

// PushBlock enqueues a block (with its optional reward record) for a
// later StepOneBlock call. The pipeline is strictly one-block-at-a-time;
// PushBlock never blocks on execution.
func (c *Coordinator) PushBlock(block *types.Block, reward *rewardpkg.Reward) {
	c.queue = append(c.queue, pendingBlock{block: block, reward: reward})
}

// StepOneBlock drives exactly one queued block through the full
// per-block protocol (snapshot fan-out, routing, validation, commit,
// rewards) and returns its result. It returns (nil, nil) if the queue
// is empty.
func (c *Coordinator) StepOneBlock(ctx context.Context) (*BlockResult, error) {
	if c.stopped {
		return nil, ErrStopped
	}
	if len(c.pool) == 0 {
		return nil, ErrNoEngines
	}
	if len(c.queue) == 0 {
		return nil, nil
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	return c.processBlock(ctx, next.block, next.reward)
}

// Stop terminates every engine and the shadow, then returns the final
// committed root and backing store. Further calls to Stop, AddEngines
// or StepOneBlock return ErrStopped; PushBlock still enqueues, but no
// queued block is processed after Stop.
func (c *Coordinator) Stop() (common.Hash, core.BackingStore, error) {
	if c.stopped {
		return common.Hash{}, nil, ErrStopped
	}
	c.stopped = true
	for _, e := range c.pool {
		e.Stop()
	}
	c.shadowEng.Stop()
	root, err := c.store.CommitExternal(c.committed, c.backing)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	return root, c.backing, nil
}

func (c *Coordinator) processBlock(ctx context.Context, block *types.Block, rwd *rewardpkg.Reward) (*BlockResult, error) {
	var stop func()
	if c.metrics != nil {
		stop = c.metrics.StartBlock()
		defer stop()
	}

	header := block.Header()
	c.env.LastHashes.Push(header.ParentHash)
	env := core.FromHeader(header, c.env.LastHashes)

	// Step 1: snapshot fan-out. Cloning N+1 independent snapshots is
	// embarrassingly parallel CPU work.
	snapshots := make([]core.State, len(c.pool))
	var shadowSnap core.State
	g, _ := errgroup.WithContext(ctx)
	for i := range c.pool {
		i := i
		g.Go(func() error {
			snapshots[i] = c.store.Clone(c.committed)
			return nil
		})
	}
	g.Go(func() error {
		shadowSnap = c.store.Clone(c.committed)
		return nil
	})
	_ = g.Wait() // the closures above never return an error

	busyStart := make([]time.Time, len(c.pool))
	for i, e := range c.pool {
		busyStart[i] = time.Now()
		e.BeginBlock(snapshots[i], env.Clone(), block)
	}
	c.shadowEng.BeginBlock(shadowSnap, env.Clone(), block)

	// Step 2: routing loop.
	d := newDependencyMap()
	c.bestThread = 0
	txs := block.Transactions()
	for i, tx := range txs {
		sender, err := c.sender.Sender(tx)
		if err != nil {
			c.abortBlock(txs, i)
			return nil, fmt.Errorf("coordinator: recovering sender for tx %d: %w", i, err)
		}
		target := tx.To()
		execTid := d.route(sender, target, &c.bestThread, len(c.pool), func(addr common.Address, from, to int) {
			sink := c.pool[to].CacheInbound()
			c.pool[from].SendCache(addr, sink)
			c.pool[to].WaitCache(addr)
		})
		c.pool[execTid].Transact(i)
	}

	// Step 3: closing.
	results := make([]engine.Result, len(c.pool))
	for i, e := range c.pool {
		results[i] = e.EndBlock()
		if c.metrics != nil {
			c.metrics.WorkerBusy(strconv.Itoa(e.ID), time.Since(busyStart[i]))
		}
	}

	// Step 4: validation.
	raced := false
	var fatalErr error
	for e, res := range results {
		if res.Err != nil {
			raced = true
			fatalErr = res.Err
			continue
		}
		for _, a := range res.DynamicCalls {
			if owner, ok := d[a]; ok {
				if owner != e {
					raced = true
				}
			} else {
				d[a] = e
			}
		}
	}

	if raced {
		if c.metrics != nil {
			c.metrics.RaceDetected()
		}
		if fatalErr != nil {
			c.log.Warn("block execution failed in a worker, falling back to shadow", "block", header.Number, "err", fatalErr)
		} else {
			c.log.Warn("dynamic dependency race detected, falling back to shadow", "block", header.Number)
		}
		shadowRes := c.shadowEng.EndBlock()
		if shadowRes.Err != nil {
			return nil, fmt.Errorf("%w: shadow execution: %v", core.ErrExecution, shadowRes.Err)
		}
		c.committed = shadowRes.State
	} else {
		c.shadowEng.Cancel()
		c.mergeTouchedAddresses(d, results)
	}

	// Step 6: rewards.
	if rwd != nil {
		c.store.AddBalance(c.committed, rwd.Miner, rwd.Amount)
		for _, u := range rwd.Uncles {
			c.store.AddBalance(c.committed, u.Miner, u.Amount)
		}
	}
	root, err := c.store.CommitExternal(c.committed, c.backing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}

	if c.metrics != nil {
		c.metrics.BlockCommitted()
	}

	return &BlockResult{Raced: raced, Root: root, GasUsed: header.GasUsed}, nil
}

// mergeTouchedAddresses copies every address d currently attributes to
// an engine out of that engine's final state and into c.committed. d's
// domain is exactly the set of addresses any transaction touched this
// block (every routed sender/target, plus every dynamic call address,
// including accounts created by contract-creation transactions, which
// validation binds to the engine that reported it), so this is a
// complete, disjoint merge: each address is moved from exactly one
// engine, in any order, which is why commit order never affects the
// result.
func (c *Coordinator) mergeTouchedAddresses(d dependencyMap, results []engine.Result) {
	for addr, owner := range d {
		entry, ok := c.store.DropAccount(results[owner].State, addr)
		if !ok {
			continue
		}
		c.store.InsertCache(c.committed, addr, entry)
	}
}

// abortBlock drains every in-flight worker and cancels the shadow when
// the routing loop itself cannot proceed (a malformed transaction's
// sender can't be recovered). Nothing is committed: since the routing
// loop never finished issuing engine assignments, no engine-id
// consistent commit is possible, and this is treated as fatal per the
// BlockSource error policy (signature recovery failure is fatal, not a
// race).
func (c *Coordinator) abortBlock(txs types.Transactions, failedAt int) {
	for _, e := range c.pool {
		e.EndBlock()
	}
	c.shadowEng.Cancel()
}
