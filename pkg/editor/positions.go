package editor

import (
	"math"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/errors"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/observability"
)

// VerifyTolerance is the maximum coordinate deviation tolerated by
// VerifyPosition before a mismatch is reported.
const VerifyTolerance = 0.01

// Kind distinguishes the two positionable entity classes.
type Kind string

// Entity kinds.
const (
	KindNode  Kind = "node"
	KindLabel Kind = "label"
)

// =============================================================================
// Base / Override Synchronization
// =============================================================================

// Recompute re-runs the layout engine and replaces the base snapshot
// wholesale. Overrides are untouched: node offsets stay valid relative
// deltas, and label overrides for vanished ids simply go unused until the
// id reappears.
func (s *Session) Recompute() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompute()
}

// recompute is the lock-free inner recompute, shared with the apply
// routines that run under the session mutex.
func (s *Session) recompute() error {
	res, err := s.engine.Compute(s.diagram)
	if err != nil {
		return err
	}

	// The fresh pass is fully authoritative: no merging with prior bases.
	s.baseNodes = res.NodePositions
	s.baseLabels = res.LabelPositions
	s.nodeSizes = res.NodeSizes
	s.frame = layout.Size{Width: res.Width, Height: res.Height}

	observability.Editor().OnLayoutRecomputed(len(res.NodePositions))
	s.logger.Debug("layout recomputed", "nodes", len(res.NodePositions))
	return nil
}

// ReplaceDiagram swaps in a new diagram (for example after the source file
// changed on disk) and recomputes. The overlay store is kept: offsets
// remain valid deltas against the new bases, and stale entries are
// tolerated until their ids reappear. The action log is cleared because
// its payloads reference the old structure.
func (s *Session) ReplaceDiagram(d *diagram.Diagram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDiagram, err, "invalid diagram")
	}
	old := s.diagram
	s.diagram = d
	if err := s.recompute(); err != nil {
		s.diagram = old
		return err
	}
	s.cancelDrag()
	s.log.Clear()
	return nil
}

// BasePosition returns the automatically computed position from the
// current layout pass, or nil if the id is not laid out.
func (s *Session) BasePosition(id string, kind Kind) *layout.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basePosition(id, kind)
}

func (s *Session) basePosition(id string, kind Kind) *layout.Point {
	var m map[string]layout.Point
	if kind == KindLabel {
		m = s.baseLabels
	} else {
		m = s.baseNodes
	}
	if p, ok := m[id]; ok {
		return &p
	}
	return nil
}

// FinalPosition returns the rendered position of a node: base plus offset
// override when one exists, base alone otherwise. Returns nil when the
// node has no base position; callers must not render an override then.
func (s *Session) FinalPosition(id string) *layout.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalNodePosition(id)
}

func (s *Session) finalNodePosition(id string) *layout.Point {
	base := s.basePosition(id, KindNode)
	if base == nil {
		return nil
	}
	if off := s.overlay.NodeOffset(id); off != nil {
		return &layout.Point{X: base.X + off.DX, Y: base.Y + off.DY}
	}
	return base
}

// FinalLabelPosition returns the rendered position of a label: the
// absolute override when one exists, the base otherwise. Returns nil when
// the label has no base position and no override applies.
func (s *Session) FinalLabelPosition(id string) *layout.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalLabelPosition(id)
}

func (s *Session) finalLabelPosition(id string) *layout.Point {
	base := s.basePosition(id, KindLabel)
	if base == nil {
		return nil
	}
	if p := s.overlay.LabelPosition(id); p != nil {
		return &layout.Point{X: p.X, Y: p.Y}
	}
	return base
}

// NodeSize returns the node's computed bar size, or nil if not laid out.
func (s *Session) NodeSize(id string) *layout.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sz, ok := s.nodeSizes[id]; ok {
		return &sz
	}
	return nil
}

// Frame returns the layout frame dimensions of the current pass.
func (s *Session) Frame() layout.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// =============================================================================
// Verification
// =============================================================================

// Report is the outcome of one position verification.
type Report struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	OK       bool          `json:"ok"`
	Expected *layout.Point `json:"expected,omitempty"`
	Actual   *layout.Point `json:"actual,omitempty"`
	DeltaX   float64       `json:"delta_x,omitempty"`
	DeltaY   float64       `json:"delta_y,omitempty"`
	Missing  bool          `json:"missing,omitempty"` // no base position for this id
}

// VerifyPosition recomputes the expected final position from base and
// overlay and compares it with the position a renderer actually used,
// within [VerifyTolerance]. Diagnostic only; never mutates state.
func (s *Session) VerifyPosition(id string, kind Kind, actual layout.Point) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expected *layout.Point
	if kind == KindLabel {
		expected = s.finalLabelPosition(id)
	} else {
		expected = s.finalNodePosition(id)
	}
	if expected == nil {
		return Report{ID: id, Kind: kind, Missing: true}
	}

	dx := actual.X - expected.X
	dy := actual.Y - expected.Y
	return Report{
		ID:       id,
		Kind:     kind,
		OK:       math.Abs(dx) <= VerifyTolerance && math.Abs(dy) <= VerifyTolerance,
		Expected: expected,
		Actual:   &actual,
		DeltaX:   dx,
		DeltaY:   dy,
	}
}
