package diagram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultCurvature lifts the control point of curved edges above the higher endpoint.
const DefaultCurvature = 50.0

type point struct{ x, y float64 }

// size returns the node's width and height, filling shape defaults.
func size(n Node) (float64, float64) {
	w, h := n.Width, n.Height
	dw, dh := 120.0, 60.0
	switch n.Shape {
	case ShapeEllipse:
		dw, dh = 80, 80
	case ShapeHexagon:
		dw, dh = 110, 80
	case ShapeDiamond:
		dw, dh = 110, 90
	case ShapeBlob:
		dw, dh = 120, 90
	}
	if w <= 0 {
		w = dw
	}
	if h <= 0 {
		h = dh
	}
	return w, h
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// num formats a coordinate with at most two decimals.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func polygonPoints(pts []point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.x) + "," + num(p.y)
	}
	return strings.Join(parts, " ")
}

func hexagonPoints(w, h float64) string {
	return polygonPoints([]point{
		{-w / 2, 0}, {-w / 4, -h / 2}, {w / 4, -h / 2},
		{w / 2, 0}, {w / 4, h / 2}, {-w / 4, h / 2},
	})
}

func diamondPoints(w, h float64) string {
	return polygonPoints([]point{{0, -h / 2}, {w / 2, 0}, {0, h / 2}, {-w / 2, 0}})
}

// blobWobble perturbs the radius at eight evenly spaced angles.
var blobWobble = []float64{1, 0.88, 1.05, 0.92, 1, 0.9, 1.06, 0.93}

// blobPath traces a closed Catmull-Rom spline through a wobbly ellipse.
func blobPath(w, h float64) string {
	n := len(blobWobble)
	pts := make([]point, n)
	for i, k := range blobWobble {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = point{k * w / 2 * math.Cos(a), k * h / 2 * math.Sin(a)}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M%s,%s", num(pts[0].x), num(pts[0].y))
	for i := 0; i < n; i++ {
		p0 := pts[(i-1+n)%n]
		p1 := pts[i]
		p2 := pts[(i+1)%n]
		p3 := pts[(i+2)%n]
		c1 := point{p1.x + (p2.x-p0.x)/6, p1.y + (p2.y-p0.y)/6}
		c2 := point{p2.x - (p3.x-p1.x)/6, p2.y - (p3.y-p1.y)/6}
		fmt.Fprintf(&b, " C%s,%s %s,%s %s,%s",
			num(c1.x), num(c1.y), num(c2.x), num(c2.y), num(p2.x), num(p2.y))
	}
	b.WriteString("Z")
	return b.String()
}

// inset moves p toward q by d, stopping at q.
func inset(p, q point, d float64) point {
	dx, dy := q.x-p.x, q.y-p.y
	l := math.Hypot(dx, dy)
	if l == 0 || d <= 0 {
		return p
	}
	if d > l {
		d = l
	}
	return point{p.x + dx/l*d, p.y + dy/l*d}
}

// edgeGeometry returns the path data and label anchor for an edge. The end
// point is pulled back to the target's outline so the arrowhead stays visible.
func edgeGeometry(e Edge, src, dst Node) (string, point) {
	s := point{src.X, src.Y}
	t := point{dst.X, dst.Y}
	tw, th := size(dst)
	clearance := math.Min(tw, th) / 2

	if e.Route == RouteCurved {
		curv := e.Curvature
		if curv == 0 {
			curv = DefaultCurvature
		}
		c := point{(s.x + t.x) / 2, math.Min(s.y, t.y) - curv}
		end := inset(t, c, clearance)
		mid := point{0.25*s.x + 0.5*c.x + 0.25*end.x, 0.25*s.y + 0.5*c.y + 0.25*end.y}
		d := fmt.Sprintf("M%s,%s Q%s,%s %s,%s",
			num(s.x), num(s.y), num(c.x), num(c.y), num(end.x), num(end.y))
		return d, mid
	}

	end := inset(t, s, clearance)
	mid := point{(s.x + t.x) / 2, (s.y + t.y) / 2}
	d := fmt.Sprintf("M%s,%s L%s,%s", num(s.x), num(s.y), num(end.x), num(end.y))
	return d, mid
}
