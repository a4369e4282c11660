// Package retriever tracks the availability of published transitions on the
// data availability network. Records become queryable some time after the
// node reports a publication height, so the retriever polls the node with
// bounded exponential backoff instead of treating a miss as an error.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/withObsrvr/ledger-da-client/client"
)

// Fetcher retrieves a transition record by availability-network height.
// *client.Client satisfies this.
type Fetcher interface {
	TransitionAtHeight(ctx context.Context, height uint64) (*client.TransitionRecord, error)
}

// State is the retrieval state for the currently selected height.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateBackoffWait
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBackoffWait:
		return "backoff_wait"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
)

var (
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_retriever_fetch_attempts_total",
		Help: "Total transition fetch attempts against the availability network",
	})
	fetchSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_retriever_fetch_successes_total",
		Help: "Transition fetches that returned a record",
	})
	fetchExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_da_client_retriever_fetch_exhausted_total",
		Help: "Retrievals that exhausted all retry attempts",
	})
)

// ErrNotFailed is returned by Retry when the current retrieval has not
// failed; a retrieval in flight keeps its own retry schedule.
var ErrNotFailed = errors.New("retry is only valid after a failed retrieval")

// Snapshot is a point-in-time view of the current retrieval.
type Snapshot struct {
	Height  uint64
	State   State
	Attempt int // attempts started so far, 1-based once fetching
	Record  *client.TransitionRecord
	Message string
}

// selection is one retrieval of one height. Selecting a new height
// supersedes the old selection; its goroutine may still be running, but
// every state mutation checks superseded first, so a stale completion
// can never overwrite the new selection's state.
type selection struct {
	id      uuid.UUID
	height  uint64
	state   State
	attempt int
	record  *client.TransitionRecord
	message string

	superseded bool
	done       chan struct{}
}

// Retriever drives bounded-retry retrieval of published transitions.
// All methods are safe for concurrent use.
type Retriever struct {
	fetcher     Fetcher
	logger      *zap.Logger
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	sel *selection
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) { r.logger = logger }
}

// WithMaxAttempts overrides the number of fetch attempts per retrieval.
func WithMaxAttempts(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides the first backoff delay. Subsequent delays
// double from it.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// withSleep replaces the backoff wait, so tests can observe the schedule
// without real time passing.
func withSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retriever) { r.sleep = f }
}

func New(fetcher Fetcher, opts ...Option) *Retriever {
	r := &Retriever{
		fetcher:     fetcher,
		logger:      zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Select starts retrieving the transition at the given height. Any
// in-flight retrieval is superseded; its eventual completion is
// discarded.
func (r *Retriever) Select(ctx context.Context, height uint64) {
	r.mu.Lock()
	if r.sel != nil && r.sel.state != StateSuccess && r.sel.state != StateFailed {
		r.sel.superseded = true
		close(r.sel.done)
	} else if r.sel != nil {
		r.sel.superseded = true
	}
	sel := &selection{
		id:     uuid.New(),
		height: height,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	r.sel = sel
	r.mu.Unlock()

	r.logger.Info("selected transition height",
		zap.Uint64("height", height),
		zap.String("retrieval_id", sel.id.String()),
	)
	go r.run(ctx, sel)
}

// Retry restarts retrieval of the current height after a failure, with a
// fresh attempt counter. Returns ErrNotFailed in any other state.
func (r *Retriever) Retry(ctx context.Context) error {
	r.mu.Lock()
	if r.sel == nil || r.sel.state != StateFailed {
		r.mu.Unlock()
		return ErrNotFailed
	}
	height := r.sel.height
	r.sel.superseded = true
	sel := &selection{
		id:     uuid.New(),
		height: height,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	r.sel = sel
	r.mu.Unlock()

	r.logger.Info("retrying transition retrieval",
		zap.Uint64("height", height),
		zap.String("retrieval_id", sel.id.String()),
	)
	go r.run(ctx, sel)
	return nil
}

// Snapshot returns the current retrieval state.
func (r *Retriever) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sel == nil {
		return Snapshot{State: StateIdle}
	}
	return Snapshot{
		Height:  r.sel.height,
		State:   r.sel.state,
		Attempt: r.sel.attempt,
		Record:  r.sel.record,
		Message: r.sel.message,
	}
}

// Wait blocks until the current retrieval reaches a terminal state, then
// returns its snapshot. It returns immediately if nothing was selected.
func (r *Retriever) Wait(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	sel := r.sel
	r.mu.Unlock()
	if sel == nil {
		return Snapshot{State: StateIdle}, nil
	}
	select {
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	case <-sel.done:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Height:  sel.height,
		State:   sel.state,
		Attempt: sel.attempt,
		Record:  sel.record,
		Message: sel.message,
	}, nil
}

func (r *Retriever) run(ctx context.Context, sel *selection) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if !r.advance(sel, StateFetching, attempt+1) {
			return
		}
		fetchAttempts.Inc()

		record, err := r.fetcher.TransitionAtHeight(ctx, sel.height)
		if err == nil {
			fetchSuccesses.Inc()
			r.logger.Info("transition retrieved",
				zap.Uint64("height", sel.height),
				zap.Uint64("sequence", record.Sequence),
				zap.Int("attempt", attempt+1),
			)
			r.finish(sel, StateSuccess, record, "")
			return
		}

		r.logger.Warn("transition fetch failed",
			zap.Uint64("height", sel.height),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(err),
		)

		if attempt == r.maxAttempts-1 {
			fetchExhausted.Inc()
			msg := fmt.Sprintf(
				"transition at height %d not retrieved after %d attempts; the record may still be propagating through the availability network (last error: %v)",
				sel.height, r.maxAttempts, err,
			)
			r.finish(sel, StateFailed, nil, msg)
			return
		}

		if !r.advance(sel, StateBackoffWait, attempt+1) {
			return
		}
		if err := r.sleep(ctx, r.baseDelay<<attempt); err != nil {
			r.finish(sel, StateFailed, nil, fmt.Sprintf("retrieval of height %d canceled: %v", sel.height, err))
			return
		}
	}
}

// advance moves the selection to a non-terminal state. It reports false
// if the selection was superseded, in which case the caller must stop.
func (r *Retriever) advance(sel *selection, state State, attempt int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sel.superseded {
		return false
	}
	sel.state = state
	sel.attempt = attempt
	return true
}

func (r *Retriever) finish(sel *selection, state State, record *client.TransitionRecord, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sel.superseded {
		return
	}
	sel.state = state
	sel.record = record
	sel.message = message
	close(sel.done)
}
