package site

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"

	"github.com/ziadkadry99/deckviz/internal/deck"
)

// headingIDs generates markdown heading ids for a whole page. Ids the deck
// declares are taken up front, so a heading never shadows a slide, a
// diagram container or a chart canvas.
type headingIDs struct {
	used map[string]bool
}

var _ parser.IDs = (*headingIDs)(nil)

func newHeadingIDs(d *deck.Deck) *headingIDs {
	ids := &headingIDs{used: map[string]bool{
		deck.ConfigElementID:    true,
		deck.FragmentsElementID: true,
	}}
	for _, s := range d.Slides {
		ids.used[s.ID] = true
		for _, spec := range s.Diagrams {
			ids.used[spec.Container] = true
		}
		for _, c := range s.Charts {
			ids.used[c.Canvas] = true
		}
	}
	return ids
}

// Generate slugs value the way goldmark does and suffixes -1, -2, ... until
// the id is free.
func (h *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	value = util.TrimRightSpace(util.TrimLeftSpace(value))
	var slug []byte
	for i := 0; i < len(value); {
		c := value[i]
		l := int(util.UTF8Len(c))
		if l < 1 {
			l = 1
		}
		i += l
		if l != 1 {
			continue
		}
		switch {
		case util.IsAlphaNumeric(c):
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			slug = append(slug, c)
		case util.IsSpace(c) || c == '-' || c == '_':
			slug = append(slug, '-')
		}
	}
	if len(slug) == 0 {
		if kind == ast.KindHeading {
			slug = []byte("heading")
		} else {
			slug = []byte("id")
		}
	}

	id := string(slug)
	for n := 1; h.used[id]; n++ {
		id = fmt.Sprintf("%s-%d", slug, n)
	}
	h.used[id] = true
	return []byte(id)
}

func (h *headingIDs) Put(value []byte) {
	h.used[string(value)] = true
}
