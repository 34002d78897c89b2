package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// virtualClock fires every After immediately and counts how often it was asked.
type virtualClock struct {
	mu    sync.Mutex
	ticks int
}

func (c *virtualClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (c *virtualClock) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// readyAfter returns a predicate that is false for its first n evaluations.
func readyAfter(n int) (Predicate, *int) {
	calls := 0
	return func() bool {
		calls++
		return calls > n
	}, &calls
}

func TestDoInvokesOnceAfterNTicks(t *testing.T) {
	for _, n := range []int{0, 1, 5, 20} {
		clock := &virtualClock{}
		g := New("test", WithClock(clock), WithMaxAttempts(0))
		pred, calls := readyAfter(n)

		invoked := 0
		ticksAtInvoke := -1
		state, err := g.Do(context.Background(), pred, func() {
			invoked++
			ticksAtInvoke = clock.Ticks()
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if state != Ready {
			t.Errorf("n=%d: state = %v, want ready", n, state)
		}
		if invoked != 1 {
			t.Errorf("n=%d: callback invoked %d times, want 1", n, invoked)
		}
		if ticksAtInvoke < n {
			t.Errorf("n=%d: callback ran at tick %d, before tick %d", n, ticksAtInvoke, n)
		}
		if *calls != n+1 {
			t.Errorf("n=%d: predicate evaluated %d times, want %d", n, *calls, n+1)
		}
	}
}

func TestDoTimesOut(t *testing.T) {
	clock := &virtualClock{}
	g := New("charts", WithClock(clock), WithMaxAttempts(3))

	invoked := false
	state, err := g.Do(context.Background(), func() bool { return false }, func() { invoked = true })
	if state != TimedOut {
		t.Errorf("state = %v, want timed_out", state)
	}
	if !errors.Is(err, ErrDependencyMissing) {
		t.Errorf("err = %v, want ErrDependencyMissing", err)
	}
	if invoked {
		t.Error("callback must not run when the gate times out")
	}
	if clock.Ticks() != 2 {
		t.Errorf("ticks = %d, want 2 waits between 3 attempts", clock.Ticks())
	}
}

func TestDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New("dom", WithClock(&virtualClock{}))
	state, err := g.Do(ctx, func() bool { return true }, nil)
	if state != Canceled {
		t.Errorf("state = %v, want canceled", state)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDoNilPredicate(t *testing.T) {
	g := New("nil")
	if _, err := g.Do(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil predicate")
	}
}

func TestGoCompletes(t *testing.T) {
	g := New("async", WithClock(&virtualClock{}), WithMaxAttempts(10))
	pred, _ := readyAfter(3)

	var mu sync.Mutex
	invoked := 0
	p := g.Go(context.Background(), pred, func() {
		mu.Lock()
		invoked++
		mu.Unlock()
	})

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("pending wait did not finish")
	}
	if p.State() != Ready || p.Err() != nil {
		t.Errorf("state = %v err = %v", p.State(), p.Err())
	}
	mu.Lock()
	defer mu.Unlock()
	if invoked != 1 {
		t.Errorf("invoked = %d, want 1", invoked)
	}
}

func TestGoCancelStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New("forever", WithInterval(time.Millisecond), WithMaxAttempts(0))

	p := g.Go(ctx, func() bool { return false }, nil)
	if p.State() != Waiting && p.State() != Canceled {
		t.Errorf("unexpected early state %v", p.State())
	}
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not stop polling")
	}
	if p.State() != Canceled {
		t.Errorf("state = %v, want canceled", p.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Waiting:  "waiting",
		Ready:    "ready",
		TimedOut: "timed_out",
		Canceled: "canceled",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
