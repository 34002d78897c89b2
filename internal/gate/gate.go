// Package gate defers work until a readiness predicate holds.
//
// A Gate polls its predicate at a fixed interval on an injectable Clock. The
// first time the predicate is true the callback runs exactly once. With a
// positive attempt ceiling the gate gives up with ErrDependencyMissing and
// logs a diagnostic instead of polling forever.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDependencyMissing is returned when the predicate never became true
// within the attempt ceiling.
var ErrDependencyMissing = errors.New("dependency never became ready")

// DefaultInterval matches the short retry used for library and DOM checks.
const DefaultInterval = 100 * time.Millisecond

// DefaultMaxAttempts bounds polling to roughly five seconds at the default interval.
const DefaultMaxAttempts = 50

// State is the lifecycle of one wait.
type State int

const (
	Waiting State = iota
	Ready
	TimedOut
	Canceled
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Predicate reports whether the dependency is present.
type Predicate func() bool

// Clock schedules the next poll.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall-clock implementation.
var RealClock Clock = realClock{}

// Gate polls a predicate until it holds.
type Gate struct {
	name        string
	interval    time.Duration
	maxAttempts int
	clock       Clock
	logger      *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithMaxAttempts sets the attempt ceiling. Zero or negative polls forever.
func WithMaxAttempts(n int) Option {
	return func(g *Gate) { g.maxAttempts = n }
}

// WithClock replaces the wall clock, typically with a virtual one in tests.
func WithClock(c Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithLogger attaches a logger for timeout diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gate. The name only appears in log lines.
func New(name string, opts ...Option) *Gate {
	g := &Gate{
		name:        name,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		clock:       RealClock,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Interval returns the configured poll interval.
func (g *Gate) Interval() time.Duration { return g.interval }

// MaxAttempts returns the attempt ceiling; zero or less means unbounded.
func (g *Gate) MaxAttempts() int { return g.maxAttempts }

// Wait blocks until pred holds, the ceiling is hit, or ctx ends.
func (g *Gate) Wait(ctx context.Context, pred Predicate) (State, error) {
	return g.Do(ctx, pred, nil)
}

// Do evaluates pred immediately and then once per interval. When pred first
// returns true, fn (if non-nil) is invoked exactly once and Ready is returned.
func (g *Gate) Do(ctx context.Context, pred Predicate, fn func()) (State, error) {
	if pred == nil {
		return TimedOut, fmt.Errorf("gate %s: nil predicate", g.name)
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Canceled, err
		}
		if pred() {
			if fn != nil {
				fn()
			}
			return Ready, nil
		}
		if g.maxAttempts > 0 && attempt >= g.maxAttempts {
			g.logger.Warn("dependency not ready, giving up",
				zap.String("gate", g.name),
				zap.Int("attempts", attempt),
				zap.Duration("interval", g.interval))
			return TimedOut, fmt.Errorf("gate %s after %d attempts: %w", g.name, attempt, ErrDependencyMissing)
		}
		select {
		case <-ctx.Done():
			return Canceled, ctx.Err()
		case <-g.clock.After(g.interval):
		}
	}
}

// Pending is an in-flight asynchronous wait started by Go.
type Pending struct {
	done chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

// Go runs Do on its own goroutine and returns immediately.
func (g *Gate) Go(ctx context.Context, pred Predicate, fn func()) *Pending {
	p := &Pending{done: make(chan struct{}), state: Waiting}
	go func() {
		defer close(p.done)
		state, err := g.Do(ctx, pred, fn)
		p.mu.Lock()
		p.state, p.err = state, err
		p.mu.Unlock()
	}()
	return p
}

// Done is closed once the wait has finished in any state.
func (p *Pending) Done() <-chan struct{} { return p.done }

// State returns the current state; Waiting until Done is closed.
func (p *Pending) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the terminal error, if any.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
