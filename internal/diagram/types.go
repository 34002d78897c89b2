// Package diagram renders declarative node/edge diagrams into SVG containers
// with a staged entrance animation. One Renderer serves every diagram in a
// deck; the diagrams themselves are plain data.
package diagram

import (
	"fmt"
	"time"
)

// Shape is the outline drawn for a node.
type Shape string

const (
	ShapeEllipse   Shape = "ellipse"
	ShapeRectangle Shape = "rectangle"
	ShapeHexagon   Shape = "hexagon"
	ShapeDiamond   Shape = "diamond"
	ShapeBlob      Shape = "blob"
)

// Shapes lists every supported shape.
var Shapes = []Shape{ShapeEllipse, ShapeRectangle, ShapeHexagon, ShapeDiamond, ShapeBlob}

// Valid reports whether s is a known shape. The empty shape is valid and
// renders as a rectangle.
func (s Shape) Valid() bool {
	if s == "" {
		return true
	}
	for _, known := range Shapes {
		if s == known {
			return true
		}
	}
	return false
}

// Route is how an edge travels between its endpoints.
type Route string

const (
	RouteStraight Route = "straight"
	RouteCurved   Route = "curved"
)

// Node is one vertex of a diagram.
type Node struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Label  string  `json:"label,omitempty"`
	Color  string  `json:"color,omitempty"`
	Shape  Shape   `json:"shape,omitempty"`
	Icon   string  `json:"icon,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Edge is a directed connector between two nodes. Decision edges depict
// agent-driven flow and are dashed; automatic edges are drawn on solid.
type Edge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Label     string  `json:"label,omitempty"`
	Route     Route   `json:"route,omitempty"`
	Curvature float64 `json:"curvature,omitempty"`
	Decision  bool    `json:"decision,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Spec is one static diagram bound to a container id.
type Spec struct {
	ID        string  `json:"id,omitempty"`
	Container string  `json:"container"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	Nodes     []Node  `json:"nodes,omitempty"`
	Edges     []Edge  `json:"edges,omitempty"`
	Stagger   Stagger `json:"stagger"`
	Hover     bool    `json:"hover,omitempty"`
}

// Name returns the spec id, falling back to the container id.
func (s Spec) Name() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Container
}

// Effect is the visual transition of one animation step.
type Effect string

const (
	EffectFade Effect = "fade"
	EffectGrow Effect = "grow"
	EffectDraw Effect = "draw"
)

// AnimationStep describes the entrance of one rendered element.
type AnimationStep struct {
	Target   string        `json:"target"`
	Effect   Effect        `json:"effect"`
	Delay    time.Duration `json:"delay"`
	Duration time.Duration `json:"duration"`
	Final    float64       `json:"final"`
}

// Result summarizes one Render call.
type Result struct {
	Container string          `json:"container"`
	Rendered  bool            `json:"rendered"`
	Nodes     int             `json:"nodes"`
	Edges     int             `json:"edges"`
	Skipped   []string        `json:"skipped,omitempty"`
	Steps     []AnimationStep `json:"steps,omitempty"`
}

// Dangling returns the edges of s whose endpoints are not declared nodes.
func (s Spec) Dangling() []Edge {
	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		ids[n.ID] = true
	}
	var out []Edge
	for _, e := range s.Edges {
		if !ids[e.From] || !ids[e.To] {
			out = append(out, e)
		}
	}
	return out
}

func edgeKey(i int, e Edge) string {
	return fmt.Sprintf("edge:%d:%s->%s", i, e.From, e.To)
}

func nodeKey(n Node) string {
	return "node:" + n.ID
}
