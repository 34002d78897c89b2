// Package chart binds Chart.js configurations to canvas elements.
//
// A Registry maps each canvas id to at most one live Instance; replacing an
// occupant destroys it first so charts never stack on the same canvas.
package chart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCanvasMissing is returned when a chart's canvas is not in the document.
var ErrCanvasMissing = errors.New("chart canvas not found")

// Type is the Chart.js chart type.
type Type string

const (
	TypeBar      Type = "bar"
	TypeLine     Type = "line"
	TypeRadar    Type = "radar"
	TypeDoughnut Type = "doughnut"
	TypePie      Type = "pie"
)

// Valid reports whether t is a supported chart type.
func (t Type) Valid() bool {
	switch t {
	case TypeBar, TypeLine, TypeRadar, TypeDoughnut, TypePie:
		return true
	}
	return false
}

// Dataset is one data series.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"background_color,omitempty"`
	BorderColor     string    `json:"border_color,omitempty"`
	BorderWidth     int       `json:"border_width,omitempty"`
	Fill            bool      `json:"fill,omitempty"`
}

// Config is the deck-level description of a chart.
type Config struct {
	Type     Type           `json:"type"`
	Labels   []string       `json:"labels,omitempty"`
	Datasets []Dataset      `json:"datasets,omitempty"`
	Stacked  bool           `json:"stacked,omitempty"`
	YTitle   string         `json:"y_title,omitempty"`
	Unit     string         `json:"unit,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Spec binds a Config to a canvas id.
type Spec struct {
	Canvas string `json:"canvas"`
	Config Config `json:"config"`
}

const (
	tickColor   = "#b0b0b0"
	gridColor   = "rgba(255, 255, 255, 0.1)"
	legendColor = "#fff"
)

// ChartJS converts c into the object passed to the Chart.js constructor,
// applying the deck's dark theme. Keys in c.Options are merged into the
// generated options, overriding them.
func (c Config) ChartJS() map[string]any {
	datasets := make([]map[string]any, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		d := map[string]any{
			"label": ds.Label,
			"data":  ds.Data,
		}
		if ds.BackgroundColor != "" {
			d["backgroundColor"] = ds.BackgroundColor
		}
		if ds.BorderColor != "" {
			d["borderColor"] = ds.BorderColor
		}
		if ds.BorderWidth > 0 {
			d["borderWidth"] = ds.BorderWidth
		}
		if ds.Fill {
			d["fill"] = true
		}
		datasets = append(datasets, d)
	}

	options := map[string]any{
		"responsive":          true,
		"maintainAspectRatio": false,
		"plugins": map[string]any{
			"legend": map[string]any{"labels": map[string]any{"color": legendColor}},
		},
	}

	switch c.Type {
	case TypeRadar:
		options["scales"] = map[string]any{
			"r": map[string]any{
				"angleLines":  map[string]any{"color": gridColor},
				"grid":        map[string]any{"color": gridColor},
				"pointLabels": map[string]any{"color": tickColor},
				"ticks":       map[string]any{"color": tickColor, "backdropColor": "transparent"},
			},
		}
	case TypeDoughnut, TypePie:
	default:
		y := axis(c.Stacked)
		if c.YTitle != "" {
			y["title"] = map[string]any{"display": true, "text": c.YTitle, "color": tickColor}
		}
		options["scales"] = map[string]any{"x": axis(c.Stacked), "y": y}
	}
	if c.Unit != "" {
		options["deckUnit"] = c.Unit
	}

	for k, v := range c.Options {
		options[k] = v
	}

	return map[string]any{
		"type": string(c.Type),
		"data": map[string]any{
			"labels":   c.Labels,
			"datasets": datasets,
		},
		"options": options,
	}
}

// JSON serializes ChartJS.
func (c Config) JSON() ([]byte, error) {
	b, err := json.Marshal(c.ChartJS())
	if err != nil {
		return nil, fmt.Errorf("encoding chart config: %w", err)
	}
	return b, nil
}

func axis(stacked bool) map[string]any {
	a := map[string]any{
		"ticks": map[string]any{"color": tickColor},
		"grid":  map[string]any{"color": gridColor},
	}
	if stacked {
		a["stacked"] = true
	}
	return a
}
