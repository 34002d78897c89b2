package diagram

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	DefaultStepMs     = 100
	DefaultDurationMs = 500
	// MaxDelayMs bounds what a stagger expression may yield.
	MaxDelayMs = 60_000
)

// Stagger configures the per-index entrance delay of one collection.
//
// The default delay of element i is BaseMs + i*StepMs. A positive MaxTotalMs
// caps the delay of the last element by shrinking the step. Expr, when set,
// is an expr-lang expression over i, n, step and base that yields
// milliseconds, e.g. "base + i * step + (i > 3 ? 200 : 0)". Results that fail
// or fall outside [0, MaxDelayMs] use the linear delay instead.
type Stagger struct {
	BaseMs     int    `json:"base_ms,omitempty"`
	StepMs     int    `json:"step_ms,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	MaxTotalMs int    `json:"max_total_ms,omitempty"`
	Expr       string `json:"expr,omitempty"`
}

// DelayFunc maps an element index within a collection of n to its delay.
type DelayFunc func(i, n int) time.Duration

// Linear returns base + i*step.
func Linear(base, step time.Duration) DelayFunc {
	return func(i, _ int) time.Duration {
		return base + time.Duration(i)*step
	}
}

// Capped is Linear with the step reduced so the last of n elements starts no
// later than base+maxTotal.
func Capped(base, step, maxTotal time.Duration) DelayFunc {
	return func(i, n int) time.Duration {
		s := step
		if maxTotal > 0 && n > 1 && time.Duration(n-1)*step > maxTotal {
			s = maxTotal / time.Duration(n-1)
		}
		return base + time.Duration(i)*s
	}
}

// merge fills zero fields of s from def.
func (s Stagger) merge(def Stagger) Stagger {
	if s.BaseMs == 0 {
		s.BaseMs = def.BaseMs
	}
	if s.StepMs == 0 {
		s.StepMs = def.StepMs
	}
	if s.DurationMs == 0 {
		s.DurationMs = def.DurationMs
	}
	if s.MaxTotalMs == 0 {
		s.MaxTotalMs = def.MaxTotalMs
	}
	if s.Expr == "" {
		s.Expr = def.Expr
	}
	return s
}

// Duration returns the per-element animation duration.
func (s Stagger) Duration() time.Duration {
	if s.DurationMs <= 0 {
		return DefaultDurationMs * time.Millisecond
	}
	return time.Duration(s.DurationMs) * time.Millisecond
}

// Func builds the delay function described by s.
func (s Stagger) Func() (DelayFunc, error) {
	base := time.Duration(s.BaseMs) * time.Millisecond
	step := time.Duration(s.StepMs) * time.Millisecond
	if s.Expr == "" {
		return Capped(base, step, time.Duration(s.MaxTotalMs)*time.Millisecond), nil
	}

	prg, err := compileStagger(s.Expr)
	if err != nil {
		return nil, err
	}
	linear := Linear(base, step)
	return func(i, n int) time.Duration {
		out, err := vm.Run(prg, map[string]any{
			"i":    float64(i),
			"n":    float64(n),
			"step": float64(s.StepMs),
			"base": float64(s.BaseMs),
		})
		if err != nil {
			return linear(i, n)
		}
		ms, ok := delayMs(out)
		if !ok {
			return linear(i, n)
		}
		return time.Duration(ms * float64(time.Millisecond))
	}, nil
}

// delayMs accepts a finite number of milliseconds in [0, MaxDelayMs].
func delayMs(v any) (float64, bool) {
	ms, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms > MaxDelayMs {
		return 0, false
	}
	return ms, true
}

// Delays evaluates f for a collection of n elements. The result is forced
// non-decreasing so entrance order always follows collection order.
func Delays(f DelayFunc, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		d := f(i, n)
		if d < 0 {
			d = 0
		}
		if i > 0 && d < out[i-1] {
			d = out[i-1]
		}
		out[i] = d
	}
	return out
}

var (
	staggerMu    sync.RWMutex
	staggerCache = map[string]*vm.Program{}
)

// ValidateExpr reports whether expression compiles as a stagger expression.
func ValidateExpr(expression string) error {
	_, err := compileStagger(expression)
	return err
}

func compileStagger(expression string) (*vm.Program, error) {
	staggerMu.RLock()
	if prg, ok := staggerCache[expression]; ok {
		staggerMu.RUnlock()
		return prg, nil
	}
	staggerMu.RUnlock()

	staggerMu.Lock()
	defer staggerMu.Unlock()
	if prg, ok := staggerCache[expression]; ok {
		return prg, nil
	}

	env := map[string]any{"i": 0.0, "n": 0.0, "step": 0.0, "base": 0.0}
	prg, err := expr.Compile(expression, expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("stagger expression %q: %w", expression, err)
	}
	staggerCache[expression] = prg
	return prg, nil
}
