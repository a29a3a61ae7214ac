package persistence

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 50 * time.Millisecond
	defaultQueueSize   = 4096
)

// Task is one unit of storage work.
type Task func(ctx context.Context) error

type job struct {
	key string
	fn  Task
}

// ExecutorOptions tunes an Executor. Zero values select defaults.
type ExecutorOptions struct {
	MaxAttempts int           // attempts per task, including the first
	BaseDelay   time.Duration // delay before retry n is BaseDelay·2^n
	QueueSize   int
}

// ExecutorStats counts task outcomes.
type ExecutorStats struct {
	Completed int64 `json:"completed"`
	Retried   int64 `json:"retried"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
	Coalesced int64 `json:"coalesced"`
}

// Executor runs storage tasks on a single worker in FIFO order. Tasks are
// keyed: submitting a key that is already queued is a no-op, so a burst of
// mutations to one item produces one write. A key is released as soon as
// the worker picks its task up, so a mutation that lands during the write
// schedules a fresh one.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration

	mu      sync.Mutex
	queue   chan job
	pending map[string]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	completed, retried, dropped, failed, coalesced atomic.Int64
}

// NewExecutor starts the worker.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		queue:       make(chan job, opts.QueueSize),
		pending:     make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go e.run()
	return e
}

// Submit enqueues fn under key without blocking. It returns false when the
// key is already queued, the queue is full, or the executor is closed.
func (e *Executor) Submit(key string, fn Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	if _, ok := e.pending[key]; ok {
		e.coalesced.Add(1)
		return false
	}

	select {
	case e.queue <- job{key: key, fn: fn}:
		e.pending[key] = struct{}{}
		return true
	default:
		e.dropped.Add(1)
		slog.Warn("persistence queue full, dropping task", "key", key)
		return false
	}
}

func (e *Executor) run() {
	defer close(e.done)
	for j := range e.queue {
		e.mu.Lock()
		delete(e.pending, j.key)
		e.mu.Unlock()

		e.execute(j)
	}
}

func (e *Executor) execute(j job) {
	for attempt := 0; ; attempt++ {
		err := j.fn(e.ctx)
		if err == nil {
			e.completed.Add(1)
			return
		}

		if !IsTransient(err) {
			e.failed.Add(1)
			slog.Error("persistence task failed", "key", j.key, "error", err)
			return
		}
		if attempt+1 >= e.maxAttempts {
			e.dropped.Add(1)
			slog.Warn("persistence task dropped after retries", "key", j.key, "attempts", attempt+1, "error", err)
			return
		}

		e.retried.Add(1)
		delay := e.baseDelay << attempt
		slog.Debug("storage busy, retrying", "key", j.key, "attempt", attempt+1, "delay", delay)

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-e.ctx.Done():
			t.Stop()
			e.dropped.Add(1)
			slog.Warn("persistence task abandoned on shutdown", "key", j.key, "error", err)
			return
		}
	}
}

// Pending returns the number of queued tasks.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Stats returns the outcome counters.
func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{
		Completed: e.completed.Load(),
		Retried:   e.retried.Load(),
		Dropped:   e.dropped.Load(),
		Failed:    e.failed.Load(),
		Coalesced: e.coalesced.Load(),
	}
}

// Close stops accepting work and drains the queue. If ctx expires first,
// in-flight retries are abandoned and ctx's error is returned.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-e.done
		return ctx.Err()
	}
}

// ItemFlusher schedules deduplicated item saves on an Executor.
type ItemFlusher struct {
	exec  *Executor
	store Store
}

// NewItemFlusher returns a flusher writing to store through exec.
func NewItemFlusher(exec *Executor, store Store) *ItemFlusher {
	return &ItemFlusher{exec: exec, store: store}
}

// Schedule queues a save of it. The snapshot is taken when the task runs,
// so coalesced saves write the latest state.
func (f *ItemFlusher) Schedule(marketID string, it *economy.Item) {
	f.exec.Submit("save-item-"+marketID+"/"+it.Identifier(), func(ctx context.Context) error {
		return f.store.SaveItem(ctx, marketID, it.Snapshot())
	})
}
