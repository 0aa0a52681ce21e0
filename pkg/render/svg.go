package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor"
)

// Default visual attributes. Node and flow colors can be overridden per
// element through property edits.
const (
	defaultNodeColor  = "#4682b4"
	defaultFlowColor  = "#b0c4de"
	defaultFontFamily = "sans-serif"
	defaultFontSize   = 13.0
	flowOpacity       = 0.45
)

// SVGOption configures the SVG renderer.
type SVGOption func(*svgRenderer)

// WithFontSize overrides the label font size.
func WithFontSize(size float64) SVGOption {
	return func(r *svgRenderer) { r.fontSize = size }
}

// WithoutLabels omits node labels, for thumbnail output.
func WithoutLabels() SVGOption {
	return func(r *svgRenderer) { r.labels = false }
}

type svgRenderer struct {
	fontSize float64
	labels   bool
}

// SVG renders the session's diagram with all overrides applied.
// Elements without a final position (not laid out) are skipped, matching
// the editor contract that a nil final position means "do not render".
func SVG(s *editor.Session, opts ...SVGOption) []byte {
	r := svgRenderer{fontSize: defaultFontSize, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	d := s.Diagram()
	frame := s.Frame()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		frame.Width, frame.Height, frame.Width, frame.Height)

	renderFlows(&buf, s, d)
	renderNodes(&buf, s, d)
	if r.labels {
		renderLabels(&buf, s, d, r.fontSize)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// renderFlows draws one ribbon per flow, stacked along each node edge in
// declaration order. Ribbon thickness is the flow's share of the source
// bar height.
func renderFlows(buf *bytes.Buffer, s *editor.Session, d *diagram.Diagram) {
	// Cumulative stacking offsets per node edge.
	outOffset := make(map[string]float64, len(d.Nodes))
	inOffset := make(map[string]float64, len(d.Nodes))

	for _, f := range d.Flows {
		src := s.FinalPosition(f.Source)
		dst := s.FinalPosition(f.Target)
		srcSize := s.NodeSize(f.Source)
		dstSize := s.NodeSize(f.Target)
		if src == nil || dst == nil || srcSize == nil || dstSize == nil {
			continue
		}

		srcThroughput := d.Throughput(f.Source)
		dstThroughput := d.Throughput(f.Target)
		if srcThroughput <= 0 || dstThroughput <= 0 {
			continue
		}
		srcThick := f.Value / srcThroughput * srcSize.Height
		dstThick := f.Value / dstThroughput * dstSize.Height

		x0 := src.X + srcSize.Width
		y0 := src.Y + outOffset[f.Source] + srcThick/2
		x1 := dst.X
		y1 := dst.Y + inOffset[f.Target] + dstThick/2
		outOffset[f.Source] += srcThick
		inOffset[f.Target] += dstThick

		color := f.Color
		if color == "" {
			color = defaultFlowColor
		}

		mid := (x0 + x1) / 2
		fmt.Fprintf(buf, `  <path d="M %.2f %.2f C %.2f %.2f %.2f %.2f %.2f %.2f" fill="none" stroke=%q stroke-opacity="%.2f" stroke-width="%.2f"/>`+"\n",
			x0, y0, mid, y0, mid, y1, x1, y1, color, flowOpacity, (srcThick+dstThick)/2)
	}
}

func renderNodes(buf *bytes.Buffer, s *editor.Session, d *diagram.Diagram) {
	for _, n := range d.Nodes {
		pos := s.FinalPosition(n.Name)
		size := s.NodeSize(n.Name)
		if pos == nil || size == nil {
			continue
		}

		color := n.Color
		if color == "" {
			color = defaultNodeColor
		}
		opacity := n.Opacity
		if opacity == 0 {
			opacity = 1
		}

		fmt.Fprintf(buf, `  <rect id="node-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill=%q fill-opacity="%.2f"/>`+"\n",
			html.EscapeString(n.Name), pos.X, pos.Y, size.Width, size.Height, color, opacity)
	}
}

func renderLabels(buf *bytes.Buffer, s *editor.Session, d *diagram.Diagram, fontSize float64) {
	for _, n := range d.Nodes {
		pos := s.FinalLabelPosition(n.Name)
		if pos == nil {
			continue
		}
		fmt.Fprintf(buf, `  <text id="label-%s" x="%.2f" y="%.2f" font-family=%q font-size="%.1f" dominant-baseline="middle">%s</text>`+"\n",
			html.EscapeString(n.Name), pos.X, pos.Y, defaultFontFamily, fontSize, html.EscapeString(n.Name))
	}
}
