// Package deck models a slide deck: presentation options, slides, and the
// diagrams and charts bound to each slide.
package deck

import (
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ziadkadry99/deckviz/internal/chart"
	"github.com/ziadkadry99/deckviz/internal/diagram"
)

// ErrInvalidDeck wraps every validation failure.
var ErrInvalidDeck = errors.New("invalid deck")

// Element ids the page claims for itself. Slides, containers and canvases
// may not use them.
const (
	ConfigElementID    = "deck-config"
	FragmentsElementID = "deck-fragments"
)

// Options mirrors the reveal.js initialization options.
type Options struct {
	Hash                 bool     `json:"hash"`
	Controls             bool     `json:"controls"`
	Progress             bool     `json:"progress"`
	Center               bool     `json:"center"`
	Transition           string   `json:"transition,omitempty"`
	BackgroundTransition string   `json:"background_transition,omitempty"`
	Width                int      `json:"width,omitempty"`
	Height               int      `json:"height,omitempty"`
	Margin               float64  `json:"margin,omitempty"`
	MinScale             float64  `json:"min_scale,omitempty"`
	MaxScale             float64  `json:"max_scale,omitempty"`
	Plugins              []string `json:"plugins,omitempty"`
}

// DefaultOptions returns the 1920x1080 configuration the talk was built for.
func DefaultOptions() Options {
	return Options{
		Hash:                 true,
		Controls:             true,
		Progress:             true,
		Center:               true,
		Transition:           "slide",
		BackgroundTransition: "fade",
		Width:                1920,
		Height:               1080,
		Margin:               0.04,
		MinScale:             0.2,
		MaxScale:             2.0,
		Plugins:              []string{"highlight", "notes", "math"},
	}
}

// Slide is one section of the deck.
type Slide struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Class     string         `json:"class,omitempty"`
	Body      string         `json:"body,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Fragments int            `json:"fragments,omitempty"`
	Diagrams  []diagram.Spec `json:"diagrams,omitempty"`
	Charts    []chart.Spec   `json:"charts,omitempty"`
}

// Animated reports whether the slide has anything for the dispatcher to render.
func (s Slide) Animated() bool {
	return len(s.Diagrams) > 0 || len(s.Charts) > 0
}

// Steps returns how many fragments the slide reveals. Only list items in the
// body can step in, so Fragments is capped by their count.
func (s Slide) Steps() int {
	if s.Fragments <= 0 {
		return 0
	}
	return min(s.Fragments, listItems(s.Body))
}

func listItems(src string) int {
	if src == "" {
		return 0
	}
	doc := goldmark.DefaultParser().Parse(text.NewReader([]byte(src)))
	n := 0
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && node.Kind() == ast.KindListItem {
			n++
		}
		return ast.WalkContinue, nil
	})
	return n
}

// Deck is a whole presentation.
type Deck struct {
	Title   string  `json:"title"`
	Author  string  `json:"author,omitempty"`
	Options Options `json:"options"`
	Slides  []Slide `json:"slides"`
}

// Slide returns the slide with the given id.
func (d *Deck) Slide(id string) (*Slide, bool) {
	for i := range d.Slides {
		if d.Slides[i].ID == id {
			return &d.Slides[i], true
		}
	}
	return nil, false
}

// Index returns the zero-based position of a slide, or -1.
func (d *Deck) Index(id string) int {
	for i, s := range d.Slides {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// First returns the id of the first slide, or "".
func (d *Deck) First() string {
	if len(d.Slides) == 0 {
		return ""
	}
	return d.Slides[0].ID
}

// Validate checks structural rules a schema cannot express: unique slide ids
// and unique container and canvas ids across the whole page.
func (d *Deck) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("%w: no slides", ErrInvalidDeck)
	}
	slides := make(map[string]bool, len(d.Slides))
	targets := make(map[string]string)
	claim := func(id, owner string) error {
		if prev, ok := targets[id]; ok {
			return fmt.Errorf("%w: element id %q used by %s and %s", ErrInvalidDeck, id, prev, owner)
		}
		targets[id] = owner
		return nil
	}
	targets[ConfigElementID] = "the page config"
	targets[FragmentsElementID] = "the page fragment table"

	for _, s := range d.Slides {
		if s.ID == "" {
			return fmt.Errorf("%w: slide without id", ErrInvalidDeck)
		}
		if slides[s.ID] {
			return fmt.Errorf("%w: duplicate slide id %q", ErrInvalidDeck, s.ID)
		}
		slides[s.ID] = true
		if err := claim(s.ID, "slide "+s.ID); err != nil {
			return err
		}

		for _, sp := range s.Diagrams {
			if sp.Container == "" {
				return fmt.Errorf("%w: slide %q has a diagram without container", ErrInvalidDeck, s.ID)
			}
			if err := claim(sp.Container, "diagram on "+s.ID); err != nil {
				return err
			}
			for _, n := range sp.Nodes {
				if !n.Shape.Valid() {
					return fmt.Errorf("%w: node %q on %s has unknown shape %q", ErrInvalidDeck, n.ID, sp.Container, n.Shape)
				}
			}
			if sp.Stagger.Expr != "" {
				if err := diagram.ValidateExpr(sp.Stagger.Expr); err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
				}
			}
		}
		for _, c := range s.Charts {
			if c.Canvas == "" {
				return fmt.Errorf("%w: slide %q has a chart without canvas", ErrInvalidDeck, s.ID)
			}
			if !c.Config.Type.Valid() {
				return fmt.Errorf("%w: chart %q has unknown type %q", ErrInvalidDeck, c.Canvas, c.Config.Type)
			}
			if err := claim(c.Canvas, "chart on "+s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Warning is a non-fatal finding about the deck.
type Warning struct {
	Slide   string `json:"slide"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s/%s: %s", w.Slide, w.Target, w.Message)
}

// Lint reports references the renderer will skip at draw time and fragment
// counts the body cannot honor.
func (d *Deck) Lint() []Warning {
	var out []Warning
	for _, s := range d.Slides {
		if steps := s.Steps(); steps < s.Fragments {
			out = append(out, Warning{
				Slide:   s.ID,
				Target:  s.ID,
				Message: fmt.Sprintf("%d fragments declared but the body has %d list item(s)", s.Fragments, steps),
			})
		}
		for _, sp := range s.Diagrams {
			for _, e := range sp.Dangling() {
				out = append(out, Warning{
					Slide:   s.ID,
					Target:  sp.Name(),
					Message: fmt.Sprintf("edge %s -> %s references an undeclared node", e.From, e.To),
				})
			}
		}
		for _, c := range s.Charts {
			for _, ds := range c.Config.Datasets {
				if len(ds.Data) != len(c.Config.Labels) && c.Config.Type != chart.TypeRadar {
					out = append(out, Warning{
						Slide:   s.ID,
						Target:  c.Canvas,
						Message: fmt.Sprintf("dataset %q has %d points for %d labels", ds.Label, len(ds.Data), len(c.Config.Labels)),
					})
				}
			}
		}
	}
	return out
}
