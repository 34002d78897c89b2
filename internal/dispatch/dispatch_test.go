package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/deckviz/internal/chart"
	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dom"
	"github.com/ziadkadry99/deckviz/internal/gate"
)

// tickClock fires immediately and runs onTick with the 1-based tick count.
type tickClock struct {
	ticks  int
	onTick func(n int)
}

func (c *tickClock) After(time.Duration) <-chan time.Time {
	c.ticks++
	if c.onTick != nil {
		c.onTick(c.ticks)
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func testDeck() *deck.Deck {
	pipeline := diagram.Spec{
		Container: "rag-flow",
		Nodes:     []diagram.Node{{ID: "a", X: 10, Y: 10}, {ID: "b", X: 200, Y: 10}},
		Edges:     []diagram.Edge{{From: "a", To: "b"}},
	}
	sql := diagram.Spec{
		Container: "sql-flow",
		Nodes:     []diagram.Node{{ID: "q", X: 10, Y: 10}, {ID: "r", X: 200, Y: 10}},
		Edges:     []diagram.Edge{{From: "q", To: "r"}, {From: "q", To: "ghost"}},
	}
	bar := chart.Spec{
		Canvas: "parallel-chart",
		Config: chart.Config{
			Type:     chart.TypeBar,
			Labels:   []string{"Sequential", "Parallel"},
			Datasets: []chart.Dataset{{Label: "SQL", Data: []float64{45, 15}}},
		},
	}
	return &deck.Deck{Slides: []deck.Slide{
		{ID: "intro"},
		{ID: "rag-pipeline", Diagrams: []diagram.Spec{pipeline, sql}},
		{ID: "parallel-processing", Charts: []chart.Spec{bar}},
	}}
}

const page = `<html><body><div class="slides">
<section id="intro"></section>
<section id="rag-pipeline"><svg id="rag-flow"></svg><div id="sql-slot"><svg id="sql-flow"></svg></div></section>
<section id="parallel-processing"><div><canvas id="parallel-chart"></canvas></div></section>
</div></body></html>`

func newDispatcher(t *testing.T, html string, opts ...Option) *Dispatcher {
	t.Helper()
	doc, err := dom.ParseString(html)
	require.NoError(t, err)
	return New(testDeck(), doc, opts...)
}

func TestReadyResolvesFirstSlide(t *testing.T) {
	d := newDispatcher(t, page)
	rep, err := d.Handle(context.Background(), Event{Kind: KindReady})
	require.NoError(t, err)
	assert.Equal(t, "intro", rep.SlideID)
	assert.True(t, rep.Empty())
	assert.Equal(t, "intro", d.Current())
}

func TestSlideWithTwoDiagrams(t *testing.T) {
	d := newDispatcher(t, page)
	rep, err := d.Handle(context.Background(), Event{Kind: KindSlideChanged, SlideID: "rag-pipeline"})
	require.NoError(t, err)

	require.Len(t, rep.Fragments, 2)
	assert.Equal(t, "rag-flow", rep.Fragments[0].Container)
	assert.Equal(t, "sql-flow", rep.Fragments[1].Container)
	assert.Equal(t, 1, rep.Fragments[1].Result.Edges)
	assert.Equal(t, []string{"sql-flow/edge:1:q->ghost"}, rep.Skipped)
	assert.Contains(t, rep.Fragments[0].HTML, `data-node="a"`)
}

func TestUnknownSlide(t *testing.T) {
	d := newDispatcher(t, page)
	rep, err := d.Handle(context.Background(), Event{Kind: KindSlideChanged, SlideID: "nope"})
	require.NoError(t, err)
	assert.Equal(t, "nope", rep.SlideID)
	assert.True(t, rep.Empty())
}

func TestUnknownEventKind(t *testing.T) {
	d := newDispatcher(t, page)
	_, err := d.Handle(context.Background(), Event{Kind: "resize", SlideID: "intro"})
	assert.Error(t, err)
}

func TestRenderIsIdempotent(t *testing.T) {
	d := newDispatcher(t, page)
	ev := Event{Kind: KindSlideChanged, SlideID: "rag-pipeline"}
	first, err := d.Handle(context.Background(), ev)
	require.NoError(t, err)
	second, err := d.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, first.Fragments[0].HTML, second.Fragments[0].HTML)
}

func TestChartReplacedAcrossNavigation(t *testing.T) {
	d := newDispatcher(t, page)
	ctx := context.Background()
	for _, id := range []string{"parallel-processing", "rag-pipeline", "parallel-processing"} {
		_, err := d.Handle(ctx, Event{Kind: KindSlideChanged, SlideID: id})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, d.Registry().Len())
	bindings := dom.Wrap(d.Document().Root()).ByClass("deck-chart")
	assert.Len(t, bindings, 1, "exactly one chart bound to the canvas")
}

func TestChartBindingCarriesConfig(t *testing.T) {
	d := newDispatcher(t, page)
	rep, err := d.Handle(context.Background(), Event{Kind: KindSlideChanged, SlideID: "parallel-processing"})
	require.NoError(t, err)
	require.Len(t, rep.Charts, 1)
	assert.Equal(t, "parallel-chart", rep.Charts[0].Canvas)
	assert.Contains(t, string(rep.Charts[0].Config), `"type":"bar"`)
}

func TestMissingContainerIsSkipped(t *testing.T) {
	clock := &tickClock{}
	g := gate.New("test", gate.WithClock(clock), gate.WithMaxAttempts(3))
	// sql-flow never appears.
	d := newDispatcher(t, `<html><body><svg id="rag-flow"></svg></body></html>`, WithGate(g))

	rep, err := d.Handle(context.Background(), Event{Kind: KindSlideChanged, SlideID: "rag-pipeline"})
	require.NoError(t, err)
	require.Len(t, rep.Fragments, 1)
	assert.Equal(t, "rag-flow", rep.Fragments[0].Container)
	assert.Equal(t, []string{"sql-flow"}, rep.Skipped)
	assert.Equal(t, 2, clock.ticks)
}

func TestLateMountedContainerRenders(t *testing.T) {
	var d *Dispatcher
	clock := &tickClock{}
	clock.onTick = func(n int) {
		if n == 3 {
			d.Document().ByID("sql-slot").Append("svg").SetAttr("id", "sql-flow")
		}
	}
	g := gate.New("test", gate.WithClock(clock), gate.WithMaxAttempts(10))
	d = newDispatcher(t, `<html><body><svg id="rag-flow"></svg><div id="sql-slot"></div></body></html>`, WithGate(g))

	rep, err := d.Handle(context.Background(), Event{Kind: KindSlideChanged, SlideID: "rag-pipeline"})
	require.NoError(t, err)
	require.Len(t, rep.Fragments, 2)
	assert.Equal(t, 3, clock.ticks)
}

func TestCanceledContext(t *testing.T) {
	d := newDispatcher(t, page)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Handle(ctx, Event{Kind: KindSlideChanged, SlideID: "rag-pipeline"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderAll(t *testing.T) {
	d := newDispatcher(t, page)
	reports, err := d.RenderAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Len(t, reports[1].Fragments, 2)
	assert.Len(t, reports[2].Charts, 1)
	assert.Equal(t, "parallel-processing", d.Current())
}
