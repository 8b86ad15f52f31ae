package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/marblesim/internal/spheretree"
	"github.com/san-kum/marblesim/internal/viz"
)

const (
	background = "#0a0a0a"
	defaultInk = "#00ff00"
)

// CanvasToSVG converts a braille canvas to SVG, one circle per dot, using
// each cell's color.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.PixelWidth()) * scale
	height := float64(canvas.PixelHeight()) * scale

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(fmt.Sprintf("<g fill=\"%s\">\n", defaultInk))

	// Braille dot-to-bit mapping
	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}

	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			fill := ""
			if c := canvas.Colors[row][col]; c != 0 {
				fill = fmt.Sprintf(` fill="#%06x"`, c&0xffffff)
			}

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"%s/>\n", cx, cy, dotRadius, fill))
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type svgDisc struct {
	viz.Disc
	color uint32
}

// TreeToSVG draws a camera-space sphere tree as filled circles, far leaves
// first. With bounds set, internal spheres are outlined too. Culled subtrees
// are skipped the same way the terminal renderer skips them.
func TreeToSVG(nodes []spheretree.Node, proj viz.Projection, width, height int, bounds bool) string {
	var leaves, outlines []svgDisc
	spheretree.Walk(nodes, func(_ int, n spheretree.Node) bool {
		if proj.Cull(n.Center, n.Radius, width, height) {
			return false
		}
		d, ok := proj.Project(n.Center, n.Radius, width, height)
		if !ok {
			return true
		}
		if n.IsLeaf() {
			leaves = append(leaves, svgDisc{d, n.Color})
			return false
		}
		if bounds {
			outlines = append(outlines, svgDisc{Disc: d})
		}
		return true
	})
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].Depth > leaves[j].Depth })

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	sb.WriteString("<g>\n")
	for _, d := range leaves {
		fill := defaultInk
		if d.color != 0 {
			fill = fmt.Sprintf("#%06x", d.color&0xffffff)
		}
		sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.2f\" fill=\"%s\"/>\n", d.X, d.Y, d.R, fill))
	}
	sb.WriteString("</g>\n")
	if len(outlines) > 0 {
		sb.WriteString("<g fill=\"none\" stroke=\"#444466\" stroke-width=\"0.5\">\n")
		for _, d := range outlines {
			sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.2f\"/>\n", d.X, d.Y, d.R))
		}
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG plots a sampled series, such as total momentum over time, as a
// polyline.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	span *= 1.2

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))

	step := float64(width) / float64(len(values)-1)
	for i, v := range values {
		x := float64(i) * step
		y := float64(height) - (v-lo)/span*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString("\"/>\n</svg>")
	return sb.String()
}

func header(sb *strings.Builder, width, height float64) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))
}
