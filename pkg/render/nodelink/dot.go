// Package nodelink renders the structural node-link view of a flow
// diagram via Graphviz DOT. Unlike the flow view it ignores positions and
// values-as-geometry entirely; edges are labeled with their values instead.
package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/flowscope/flowscope/pkg/diagram"
)

// Options configures node-link rendering.
type Options struct {
	// Detailed includes each node's throughput in its label.
	// When false, only the node name is shown.
	Detailed bool
}

// ToDOT converts a diagram to Graphviz DOT format. The resulting DOT
// string can be rendered with [RenderSVG].
func ToDOT(d *diagram.Diagram, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		label := n.Name
		if opts.Detailed {
			label = fmt.Sprintf("%s\n%s", n.Name, formatValue(d.Throughput(n.Name)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, nodeAttrs(n, label))
	}

	buf.WriteString("\n")
	for _, f := range d.Flows {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", f.Source, f.Target, formatValue(f.Value))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n diagram.Node, label string) string {
	attrs := fmt.Sprintf("label=%q", label)
	if n.Color != "" {
		attrs += fmt.Sprintf(", fillcolor=%q, style=\"rounded,filled\"", n.Color)
	}
	return attrs
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz svg element so the image scales
// with its container instead of carrying fixed point units.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
