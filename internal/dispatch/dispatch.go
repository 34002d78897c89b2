// Package dispatch routes slide lifecycle events to the diagrams and charts
// that belong to the slide being shown.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/chart"
	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dom"
	"github.com/ziadkadry99/deckviz/internal/gate"
)

// Kind is the lifecycle event type.
type Kind string

const (
	// KindReady fires once when the presentation has initialized.
	KindReady Kind = "ready"
	// KindSlideChanged fires on every navigation.
	KindSlideChanged Kind = "slidechanged"
)

// Event is one lifecycle notification. SlideID may be empty for KindReady,
// in which case the first slide is assumed.
type Event struct {
	Kind    Kind   `json:"type"`
	SlideID string `json:"slide"`
}

// Fragment is the rendered markup of one diagram container.
type Fragment struct {
	Container string         `json:"container"`
	ViewBox   string         `json:"view_box,omitempty"`
	HTML      string         `json:"html"`
	Result    diagram.Result `json:"result"`
}

// Binding is the chart configuration bound to one canvas.
type Binding struct {
	Canvas string          `json:"canvas"`
	Config json.RawMessage `json:"config"`
}

// Report is what one event produced.
type Report struct {
	SlideID   string     `json:"slide"`
	Fragments []Fragment `json:"fragments"`
	Charts    []Binding  `json:"charts"`
	Skipped   []string   `json:"skipped,omitempty"`
}

// Empty reports whether nothing was rendered.
func (r Report) Empty() bool {
	return len(r.Fragments) == 0 && len(r.Charts) == 0
}

// Dispatcher owns one page document and renders into it. Calls to Handle
// are serialized.
type Dispatcher struct {
	mu       sync.Mutex
	deck     *deck.Deck
	doc      *dom.Document
	renderer *diagram.Renderer
	charts   *chart.Adapter
	gate     *gate.Gate
	logger   *zap.Logger
	current  string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRenderer replaces the default diagram renderer.
func WithRenderer(r *diagram.Renderer) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.renderer = r
		}
	}
}

// WithRegistry uses reg to track chart instances.
func WithRegistry(reg *chart.Registry) Option {
	return func(d *Dispatcher) {
		if reg != nil {
			d.charts = chart.NewAdapter(reg)
		}
	}
}

// WithGate replaces the readiness gate used before each render.
func WithGate(g *gate.Gate) Option {
	return func(d *Dispatcher) {
		if g != nil {
			d.gate = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a Dispatcher rendering slides of dk into doc.
func New(dk *deck.Deck, doc *dom.Document, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		deck:   dk,
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.renderer == nil {
		d.renderer = diagram.NewRenderer(diagram.WithLogger(d.logger))
	}
	if d.charts == nil {
		d.charts = chart.NewAdapter(chart.NewRegistry(d.logger))
	}
	if d.gate == nil {
		d.gate = gate.New("dispatch", gate.WithLogger(d.logger))
	}
	return d
}

// Document returns the document the dispatcher renders into.
func (d *Dispatcher) Document() *dom.Document { return d.doc }

// Registry returns the chart registry.
func (d *Dispatcher) Registry() *chart.Registry { return d.charts.Registry() }

// Current returns the id of the last slide handled.
func (d *Dispatcher) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Handle renders every diagram and chart of the event's slide. Each item
// waits on the readiness gate for its element; items whose element never
// appears are skipped and listed in Report.Skipped. An unknown slide yields
// an empty report and no error.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Report, error) {
	switch ev.Kind {
	case KindReady:
		if ev.SlideID == "" {
			ev.SlideID = d.deck.First()
		}
	case KindSlideChanged:
	default:
		return Report{}, fmt.Errorf("unknown event type %q", ev.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rep := Report{SlideID: ev.SlideID, Fragments: []Fragment{}, Charts: []Binding{}}
	slide, ok := d.deck.Slide(ev.SlideID)
	if !ok {
		d.logger.Debug("no visualizations for slide", zap.String("slide", ev.SlideID))
		return rep, nil
	}
	d.current = slide.ID

	for _, spec := range slide.Diagrams {
		var frag *Fragment
		_, err := d.gate.Do(ctx, func() bool { return d.doc.Has(spec.Container) }, func() {
			frag = d.renderDiagram(spec)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			d.skip(&rep, spec.Container, err)
			continue
		}
		if frag != nil {
			rep.Fragments = append(rep.Fragments, *frag)
			rep.Skipped = append(rep.Skipped, prefixed(spec.Container, frag.Result.Skipped)...)
		}
	}

	for _, spec := range slide.Charts {
		var (
			binding  *Binding
			chartErr error
		)
		_, err := d.gate.Do(ctx, func() bool { return d.doc.Has(spec.Canvas) }, func() {
			binding, chartErr = d.renderChart(spec)
		})
		if err == nil {
			err = chartErr
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			d.skip(&rep, spec.Canvas, err)
			continue
		}
		rep.Charts = append(rep.Charts, *binding)
	}

	d.logger.Debug("slide rendered",
		zap.String("slide", rep.SlideID),
		zap.String("event", string(ev.Kind)),
		zap.Int("diagrams", len(rep.Fragments)),
		zap.Int("charts", len(rep.Charts)),
		zap.Int("skipped", len(rep.Skipped)))
	return rep, nil
}

// RenderAll handles every slide of the deck in order.
func (d *Dispatcher) RenderAll(ctx context.Context) ([]Report, error) {
	out := make([]Report, 0, len(d.deck.Slides))
	for _, s := range d.deck.Slides {
		rep, err := d.Handle(ctx, Event{Kind: KindSlideChanged, SlideID: s.ID})
		if err != nil {
			return out, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func (d *Dispatcher) renderDiagram(spec diagram.Spec) *Fragment {
	res := d.renderer.Render(d.doc, spec)
	if !res.Rendered {
		return nil
	}
	c := d.doc.ByID(spec.Container)
	inner, err := c.InnerHTML()
	if err != nil {
		d.logger.Warn("serializing diagram", zap.String("container", spec.Container), zap.Error(err))
		return nil
	}
	viewBox, _ := c.Attr("viewBox")
	return &Fragment{Container: spec.Container, ViewBox: viewBox, HTML: inner, Result: res}
}

func (d *Dispatcher) renderChart(spec chart.Spec) (*Binding, error) {
	inst, err := d.charts.Render(d.doc, spec)
	if inst == nil {
		return nil, err
	}
	if err != nil {
		// The new chart is live; only the previous one failed to tear down.
		d.logger.Warn("previous chart not destroyed", zap.String("canvas", spec.Canvas), zap.Error(err))
	}
	b := &Binding{Canvas: spec.Canvas}
	if c, ok := inst.(chart.Configured); ok {
		b.Config = c.Config()
	}
	return b, nil
}

func (d *Dispatcher) skip(rep *Report, target string, err error) {
	level := d.logger.Warn
	if errors.Is(err, gate.ErrDependencyMissing) || errors.Is(err, chart.ErrCanvasMissing) {
		level = d.logger.Info
	}
	level("visualization skipped",
		zap.String("slide", rep.SlideID),
		zap.String("target", target),
		zap.Error(err))
	rep.Skipped = append(rep.Skipped, target)
}

func prefixed(container string, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = container + "/" + k
	}
	return out
}
