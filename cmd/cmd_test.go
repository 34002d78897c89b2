package cmd

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
)

func TestDisplayHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "localhost"},
		{"0.0.0.0", "localhost"},
		{"::", "localhost"},
		{"127.0.0.1", "127.0.0.1"},
		{"deck.local", "deck.local"},
	}
	for _, tt := range tests {
		if got := displayHost(tt.host); got != tt.want {
			t.Errorf("displayHost(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestRenderSlides(t *testing.T) {
	d := &deck.Deck{
		Title:  "Demo",
		Author: "Platform team",
		Slides: []deck.Slide{
			{ID: "intro", Title: "Intro"},
			{
				ID:        "flow",
				Title:     "Flow",
				Fragments: 2,
				Diagrams: []diagram.Spec{{
					Container: "flow-viz",
					Nodes:     []diagram.Node{{ID: "a"}, {ID: "b"}},
					Edges:     []diagram.Edge{{From: "a", To: "ghost"}},
				}},
			},
		},
	}

	out := renderSlides(d)
	for _, want := range []string{
		"Demo",
		"by Platform team",
		"intro",
		"diagram flow-viz (2 nodes), 2 fragments",
		"warning: ",
		"ghost",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteVersion(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		want string
	}{
		{"no build info", nil, "deckviz dev\n"},
		{
			name: "module version and vcs",
			info: &debug.BuildInfo{
				GoVersion: "go1.24.0",
				Main:      debug.Module{Version: "v0.3.1"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: "deckviz v0.3.1\n  commit: 0123456789ab-dirty\n  go:     go1.24.0\n",
		},
		{
			name: "devel build",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: "deckviz dev\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeVersion(&buf, tt.info)
			if got := buf.String(); got != tt.want {
				t.Errorf("writeVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
