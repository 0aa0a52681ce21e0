package layout

import "github.com/flowscope/flowscope/pkg/diagram"

// =============================================================================
// Engine - Layout Collaborator Contract
// =============================================================================

// Engine computes positions for every node and label of a diagram.
//
// Implementations must produce an entry in NodePositions, NodeSizes, and
// LabelPositions for every node in the diagram, and must be deterministic:
// the same diagram yields the same result. The editor re-invokes Compute
// after every structural change and replaces its base snapshot wholesale.
type Engine interface {
	Compute(d *diagram.Diagram) (*Result, error)
}

// Point is a 2D coordinate in diagram units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in diagram units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is the output of one layout pass.
//
// Positions are top-left anchored. Label positions are the text anchor
// point of the node's caption; the editor may replace them wholesale with
// user overrides.
type Result struct {
	NodePositions  map[string]Point
	NodeSizes      map[string]Size
	LabelPositions map[string]Point
	Width          float64
	Height         float64
}
