package layout

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/flowscope/flowscope/pkg/diagram"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultWidth is the default frame width in diagram units.
	DefaultWidth = 800.0

	// DefaultHeight is the default frame height in diagram units.
	DefaultHeight = 600.0

	// DefaultNodeWidth is the horizontal thickness of a node bar.
	DefaultNodeWidth = 24.0

	// DefaultNodeGap is the vertical gap between node bars in one layer.
	DefaultNodeGap = 12.0

	// DefaultMargin is the frame margin on all sides.
	DefaultMargin = 48.0

	// minNodeHeight keeps tiny or isolated nodes clickable.
	minNodeHeight = 6.0

	// labelPad is the horizontal gap between a node bar and its label.
	labelPad = 8.0
)

// =============================================================================
// Sankey - Default Layout Engine
// =============================================================================

// Sankey is the default layered flow layout.
//
// Nodes are assigned to vertical layers by longest path from the sources,
// bars are sized proportionally to flow throughput, and each layer's column
// is centered vertically. Labels sit to the right of their node bar.
type Sankey struct {
	Width     float64
	Height    float64
	NodeWidth float64
	NodeGap   float64
	Margin    float64
}

// NewSankey returns a Sankey engine with default frame dimensions.
func NewSankey() *Sankey {
	return &Sankey{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		NodeWidth: DefaultNodeWidth,
		NodeGap:   DefaultNodeGap,
		Margin:    DefaultMargin,
	}
}

// Compute implements [Engine].
// Returns an error if the diagram contains a flow cycle, since layered
// placement is undefined for cyclic flow graphs.
func (s *Sankey) Compute(d *diagram.Diagram) (*Result, error) {
	res := &Result{
		NodePositions:  make(map[string]Point, len(d.Nodes)),
		NodeSizes:      make(map[string]Size, len(d.Nodes)),
		LabelPositions: make(map[string]Point, len(d.Nodes)),
		Width:          s.Width,
		Height:         s.Height,
	}
	if len(d.Nodes) == 0 {
		return res, nil
	}

	layers, maxLayer, err := s.assignLayers(d)
	if err != nil {
		return nil, err
	}

	// Group nodes per layer preserving diagram order for determinism.
	columns := make([][]string, maxLayer+1)
	for _, n := range d.Nodes {
		l := layers[n.Name]
		columns[l] = append(columns[l], n.Name)
	}

	scale := s.valueScale(d, columns)

	layerSpan := s.Width - 2*s.Margin - s.NodeWidth
	for l, column := range columns {
		x := s.Margin
		if maxLayer > 0 {
			x += float64(l) / float64(maxLayer) * layerSpan
		}

		// Total column height, then center it vertically.
		total := 0.0
		heights := make([]float64, len(column))
		for i, name := range column {
			h := d.Throughput(name) * scale
			if h < minNodeHeight {
				h = minNodeHeight
			}
			heights[i] = h
			total += h
		}
		total += float64(len(column)-1) * s.NodeGap

		y := (s.Height - total) / 2
		for i, name := range column {
			res.NodePositions[name] = Point{X: x, Y: y}
			res.NodeSizes[name] = Size{Width: s.NodeWidth, Height: heights[i]}
			res.LabelPositions[name] = Point{
				X: x + s.NodeWidth + labelPad,
				Y: y + heights[i]/2,
			}
			y += heights[i] + s.NodeGap
		}
	}

	return res, nil
}

// assignLayers computes the longest-path layer of every node.
// The flow graph is mirrored into a gonum directed graph so that
// topological ordering (and cycle detection) comes from gonum.
func (s *Sankey) assignLayers(d *diagram.Diagram) (map[string]int, int, error) {
	ids := make(map[string]int64, len(d.Nodes))
	names := make(map[int64]string, len(d.Nodes))

	g := simple.NewDirectedGraph()
	for i, n := range d.Nodes {
		id := int64(i)
		ids[n.Name] = id
		names[id] = n.Name
		g.AddNode(simple.Node(id))
	}
	for _, f := range d.Flows {
		g.SetEdge(g.NewEdge(simple.Node(ids[f.Source]), simple.Node(ids[f.Target])))
	}

	order, err := topo.Sort(g)
	if err != nil {
		return nil, 0, fmt.Errorf("diagram contains a flow cycle: %w", err)
	}

	layers := make(map[string]int, len(d.Nodes))
	maxLayer := 0
	for _, n := range order {
		layer := 0
		preds := g.To(n.ID())
		for preds.Next() {
			if pl := layers[names[preds.Node().ID()]] + 1; pl > layer {
				layer = pl
			}
		}
		layers[names[n.ID()]] = layer
		if layer > maxLayer {
			maxLayer = layer
		}
	}
	return layers, maxLayer, nil
}

// valueScale returns diagram units per flow unit, sized so the busiest
// layer fills the usable frame height.
func (s *Sankey) valueScale(d *diagram.Diagram, columns [][]string) float64 {
	usable := s.Height - 2*s.Margin
	scale := math.Inf(1)
	for _, column := range columns {
		total := 0.0
		for _, name := range column {
			total += d.Throughput(name)
		}
		if total == 0 {
			continue
		}
		avail := usable - float64(len(column)-1)*s.NodeGap
		if avail < minNodeHeight {
			avail = minNodeHeight
		}
		scale = min(scale, avail/total)
	}
	if math.IsInf(scale, 1) {
		return 1
	}
	return scale
}

var _ Engine = (*Sankey)(nil)
