package diagram

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/dom"
)

const (
	defaultAutomaticColor = "#667eea"
	defaultDecisionColor  = "#ff6b35"
	defaultNodeColor      = "#667eea"

	// Node captions and edge labels trail their shape or path by these lags.
	captionLag = 100 * time.Millisecond
	labelLag   = 500 * time.Millisecond
)

// Renderer draws Specs into SVG containers. It keeps no per-container state:
// every call rebuilds the container from scratch.
type Renderer struct {
	defaults Stagger
	logger   *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDefaults sets the stagger used for fields a Spec leaves zero.
func WithDefaults(s Stagger) Option {
	return func(r *Renderer) { r.defaults = s.merge(r.defaults) }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRenderer returns a Renderer with the default stagger of 100ms steps.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		defaults: Stagger{StepMs: DefaultStepMs, DurationMs: DefaultDurationMs},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws spec into the element of doc whose id is spec.Container. A
// missing container is a no-op with Result.Rendered false.
func (r *Renderer) Render(doc *dom.Document, spec Spec) Result {
	c := doc.ByID(spec.Container)
	if c == nil {
		r.logger.Debug("diagram container missing", zap.String("container", spec.Container))
		return Result{Container: spec.Container}
	}
	return r.RenderInto(c, spec)
}

// RenderInto clears c and draws spec into it: defs, then every edge, then
// every node, so nodes paint over edge endpoints.
func (r *Renderer) RenderInto(c *dom.Element, spec Spec) Result {
	res := Result{Container: spec.Container}
	c.Clear()

	st := spec.Stagger.merge(r.defaults)
	delayOf, err := st.Func()
	if err != nil {
		r.logger.Warn("invalid stagger, using linear delays",
			zap.String("diagram", spec.Name()), zap.Error(err))
		delayOf = Capped(time.Duration(st.BaseMs)*time.Millisecond,
			time.Duration(st.StepMs)*time.Millisecond,
			time.Duration(st.MaxTotalMs)*time.Millisecond)
	}
	dur := st.Duration()

	c.AddClass("deck-diagram")
	if spec.Width > 0 && spec.Height > 0 {
		c.SetAttr("viewBox", "0 0 "+num(spec.Width)+" "+num(spec.Height))
		c.SetAttr("preserveAspectRatio", "xMidYMid meet")
	}

	defs := c.Append("defs")
	edgeLayer := c.Append("g").AddClass("deck-edges")
	nodeLayer := c.Append("g").AddClass("deck-nodes")

	placed := make(map[string]Node, len(spec.Nodes))
	nodes := make([]Node, 0, len(spec.Nodes))
	for _, n := range spec.Nodes {
		if n.ID == "" || !finite(n.X) || !finite(n.Y) {
			res.Skipped = append(res.Skipped, nodeKey(n))
			continue
		}
		if _, dup := placed[n.ID]; dup {
			res.Skipped = append(res.Skipped, nodeKey(n))
			continue
		}
		placed[n.ID] = n
		nodes = append(nodes, n)
	}

	type routed struct {
		key      string
		edge     Edge
		src, dst Node
	}
	var edges []routed
	for i, e := range spec.Edges {
		src, okSrc := placed[e.From]
		dst, okDst := placed[e.To]
		if !okSrc || !okDst {
			res.Skipped = append(res.Skipped, edgeKey(i, e))
			continue
		}
		edges = append(edges, routed{key: edgeKey(i, e), edge: e, src: src, dst: dst})
	}

	markers := newMarkerSet(defs, spec.Container)
	edgeDelays := Delays(delayOf, len(edges))
	for i, re := range edges {
		res.Steps = append(res.Steps, r.drawEdge(edgeLayer, markers, re.key, re.edge, re.src, re.dst, edgeDelays[i], dur)...)
		res.Edges++
	}

	nodeDelays := Delays(delayOf, len(nodes))
	for i, n := range nodes {
		res.Steps = append(res.Steps, r.drawNode(nodeLayer, n, spec.Hover, nodeDelays[i], dur)...)
		res.Nodes++
	}

	res.Rendered = true
	r.logger.Debug("diagram rendered",
		zap.String("diagram", spec.Name()),
		zap.Int("nodes", res.Nodes),
		zap.Int("edges", res.Edges),
		zap.Int("skipped", len(res.Skipped)))
	return res
}

func (r *Renderer) drawEdge(layer *dom.Element, markers *markerSet, key string, e Edge, src, dst Node, delay, dur time.Duration) []AnimationStep {
	color := e.Color
	if color == "" {
		color = defaultAutomaticColor
		if e.Decision {
			color = defaultDecisionColor
		}
	}

	d, mid := edgeGeometry(e, src, dst)
	path := layer.Append("path").
		AddClass("deck-edge").
		SetAttr("data-edge", key).
		SetAttr("d", d).
		SetAttr("fill", "none").
		SetAttr("stroke", color).
		SetAttr("stroke-width", "2").
		SetAttr("marker-end", "url(#"+markers.id(color)+")").
		SetAttr("opacity", "0")

	var steps []AnimationStep
	if e.Decision {
		path.AddClass("deck-decision").SetAttr("stroke-dasharray", "8,4")
		steps = append(steps, animate(path, key, EffectFade, delay, dur, 0.7))
	} else {
		path.AddClass("deck-automatic").
			SetAttr("pathLength", "1").
			SetAttr("stroke-dasharray", "1")
		steps = append(steps, animate(path, key, EffectDraw, delay, 2*dur, 0.6))
	}

	if e.Label != "" {
		y := mid.y - 5
		if e.Route == RouteCurved {
			y -= 20
		}
		text := layer.Append("text").
			AddClass("deck-edge-label").
			SetAttr("x", num(mid.x)).
			SetAttr("y", num(y)).
			SetAttr("text-anchor", "middle").
			SetAttr("opacity", "0").
			AppendText(e.Label)
		steps = append(steps, animate(text, "edge-label:"+strings.TrimPrefix(key, "edge:"), EffectFade, delay+labelLag, dur, 1))
	}
	return steps
}

func (r *Renderer) drawNode(layer *dom.Element, n Node, hover bool, delay, dur time.Duration) []AnimationStep {
	color := n.Color
	if color == "" {
		color = defaultNodeColor
	}
	w, h := size(n)
	key := nodeKey(n)

	g := layer.Append("g").
		AddClass("deck-node").
		SetAttr("data-node", n.ID).
		SetAttr("transform", "translate("+num(n.X)+","+num(n.Y)+")")
	if hover {
		g.AddClass("deck-hover")
	}

	var shape *dom.Element
	effect := EffectFade
	switch n.Shape {
	case ShapeEllipse:
		shape = g.Append("ellipse").
			SetAttr("cx", "0").SetAttr("cy", "0").
			SetAttr("rx", num(w/2)).SetAttr("ry", num(h/2))
		effect = EffectGrow
	case ShapeHexagon:
		shape = g.Append("polygon").SetAttr("points", hexagonPoints(w, h))
	case ShapeDiamond:
		shape = g.Append("polygon").SetAttr("points", diamondPoints(w, h))
	case ShapeBlob:
		shape = g.Append("path").SetAttr("d", blobPath(w, h))
	default:
		shape = g.Append("rect").
			SetAttr("x", num(-w/2)).SetAttr("y", num(-h/2)).
			SetAttr("width", num(w)).SetAttr("height", num(h)).
			SetAttr("rx", "10")
	}
	shape.AddClass("deck-shape").
		SetAttr("fill", color).
		SetAttr("fill-opacity", "0.12").
		SetAttr("stroke", color).
		SetAttr("stroke-width", "2")
	if effect == EffectFade {
		shape.SetAttr("opacity", "0")
	}

	steps := []AnimationStep{animate(shape, key, effect, delay, dur, 1)}

	lines := strings.Split(n.Label, "\n")
	labelY := 0.0
	if n.Icon != "" {
		icon := g.Append("text").
			AddClass("deck-icon").
			SetAttr("y", num(-h/10)).
			SetAttr("text-anchor", "middle").
			SetAttr("opacity", "0").
			AppendText(n.Icon)
		steps = append(steps, animate(icon, "node-icon:"+n.ID, EffectFade, delay+captionLag, dur, 1))
		labelY = h / 4
	} else if len(lines) > 1 {
		labelY = -float64(len(lines)-1) * 6
	}

	if n.Label != "" {
		text := g.Append("text").
			AddClass("deck-label").
			SetAttr("y", num(labelY)).
			SetAttr("text-anchor", "middle").
			SetAttr("opacity", "0")
		for i, line := range lines {
			span := text.Append("tspan").SetAttr("x", "0")
			if i > 0 {
				span.SetAttr("dy", "1.2em")
			}
			span.AppendText(line)
		}
		steps = append(steps, animate(text, "node-label:"+n.ID, EffectFade, delay+captionLag, dur, 1))
	}
	return steps
}

// animate attaches the CSS entrance animation for effect to el.
func animate(el *dom.Element, target string, effect Effect, delay, dur time.Duration, final float64) AnimationStep {
	var anim string
	switch effect {
	case EffectGrow:
		anim = fmt.Sprintf("deck-grow %dms ease-out %dms both", dur.Milliseconds(), delay.Milliseconds())
	case EffectDraw:
		anim = fmt.Sprintf("deck-draw %dms ease-out %dms both, deck-fade %dms ease-out %dms both",
			dur.Milliseconds(), delay.Milliseconds(), dur.Milliseconds(), delay.Milliseconds())
	default:
		anim = fmt.Sprintf("deck-fade %dms ease-out %dms both", dur.Milliseconds(), delay.Milliseconds())
	}
	el.SetAttr("style", fmt.Sprintf("--deck-final:%s;animation:%s", num(final), anim))
	el.SetAttr("data-delay", fmt.Sprintf("%d", delay.Milliseconds()))
	return AnimationStep{Target: target, Effect: effect, Delay: delay, Duration: dur, Final: final}
}

// markerSet creates one arrowhead marker per stroke color.
type markerSet struct {
	defs   *dom.Element
	prefix string
	ids    map[string]string
}

func newMarkerSet(defs *dom.Element, prefix string) *markerSet {
	return &markerSet{defs: defs, prefix: prefix, ids: map[string]string{}}
}

func (m *markerSet) id(color string) string {
	if id, ok := m.ids[color]; ok {
		return id
	}
	id := fmt.Sprintf("%s-arrow-%d", m.prefix, len(m.ids))
	m.ids[color] = id
	m.defs.Append("marker").
		SetAttr("id", id).
		SetAttr("viewBox", "0 -5 10 10").
		SetAttr("refX", "10").
		SetAttr("refY", "0").
		SetAttr("markerWidth", "8").
		SetAttr("markerHeight", "8").
		SetAttr("orient", "auto").
		Append("path").
		SetAttr("d", "M0,-5L10,0L0,5").
		SetAttr("fill", color)
	return id
}
