package viz

import (
	"math"

	"github.com/san-kum/marblesim/internal/spheretree"
)

// Renderer draws a sphere tree whose coordinates are already in camera
// space.
type Renderer interface {
	Resize(cols, rows int)
	Render(nodes []spheretree.Node)
	View() string
}

// boundsMinRadius keeps tiny internal spheres out of the bounds overlay.
const boundsMinRadius = 6

type TermRenderer struct {
	Projection
	ShowBounds bool

	canvas    *Canvas
	depth     []float64 // per dot
	cellDepth []float64 // per cell, nearest dot that set its color

	visited int
	drawn   int
}

func NewTermRenderer(cols, rows int) *TermRenderer {
	r := &TermRenderer{Projection: DefaultProjection()}
	r.Resize(cols, rows)
	return r
}

func (r *TermRenderer) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if r.canvas != nil && r.canvas.Width == cols && r.canvas.Height == rows {
		return
	}
	r.canvas = NewCanvas(cols, rows)
	r.depth = make([]float64, r.canvas.PixelWidth()*r.canvas.PixelHeight())
	r.cellDepth = make([]float64, cols*rows)
}

func (r *TermRenderer) Canvas() *Canvas { return r.canvas }

// Visited is the number of nodes popped in the last Render; Drawn the
// number of leaves that reached the canvas.
func (r *TermRenderer) Visited() int { return r.visited }
func (r *TermRenderer) Drawn() int   { return r.drawn }

func (r *TermRenderer) Render(nodes []spheretree.Node) {
	r.canvas.Clear()
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
	for i := range r.cellDepth {
		r.cellDepth[i] = math.Inf(1)
	}
	r.visited, r.drawn = 0, 0

	w, h := r.canvas.PixelWidth(), r.canvas.PixelHeight()
	spheretree.Walk(nodes, func(_ int, n spheretree.Node) bool {
		r.visited++
		if r.Cull(n.Center, n.Radius, w, h) {
			return false
		}
		disc, ok := r.Project(n.Center, n.Radius, w, h)
		if !ok {
			return true
		}
		if n.IsLeaf() {
			if r.fillDisc(disc, n.Color) {
				r.drawn++
			}
			return false
		}
		if r.ShowBounds && disc.R >= boundsMinRadius {
			r.canvas.DrawCircle(int(disc.X), int(disc.Y), int(disc.R))
		}
		return true
	})
}

// fillDisc rasterizes a disc with a depth test and reports whether any dot
// was written.
func (r *TermRenderer) fillDisc(d Disc, color uint32) bool {
	w, h := r.canvas.PixelWidth(), r.canvas.PixelHeight()
	if d.R < 0.75 {
		return r.plot(int(d.X), int(d.Y), w, h, d.Depth, color)
	}

	wrote := false
	x0, x1 := clamp(int(math.Floor(d.X-d.R)), w), clamp(int(math.Ceil(d.X+d.R)), w)
	y0, y1 := clamp(int(math.Floor(d.Y-d.R)), h), clamp(int(math.Ceil(d.Y+d.R)), h)
	r2 := d.R * d.R
	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - d.Y
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - d.X
			if dx*dx+dy*dy > r2 {
				continue
			}
			if r.plot(x, y, w, h, d.Depth, color) {
				wrote = true
			}
		}
	}
	return wrote
}

func (r *TermRenderer) plot(x, y, w, h int, depth float64, color uint32) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	i := y*w + x
	if depth >= r.depth[i] {
		return false
	}
	r.depth[i] = depth
	r.canvas.Set(x, y)

	cell := (y/4)*r.canvas.Width + x/2
	if depth < r.cellDepth[cell] {
		r.cellDepth[cell] = depth
		r.canvas.SetColor(x, y, color)
	}
	return true
}

func (r *TermRenderer) View() string { return r.canvas.Render() }

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
