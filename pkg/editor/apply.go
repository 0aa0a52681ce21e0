package editor

import (
	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor/history"
	"github.com/flowscope/flowscope/pkg/errors"
)

// Apply implements history.Applier. The log calls it with an inverse
// payload on undo and a forward payload on redo; the perform routines
// below are the same ones the public operations use, so both directions
// of every edit share one code path.
//
// Payloads referencing ids that no longer exist are tolerated as silent
// no-ops: structural deletions racing with queued undo actions are normal
// in a live editor and must not corrupt the stacks.
func (s *Session) Apply(p history.Payload) {
	var err error
	switch p := p.(type) {
	case history.NodePosition:
		s.applyNodePosition(p)
	case history.LabelPosition:
		s.applyLabelPosition(p)
	case history.PropertyChange:
		err = s.performPropertyChange(p)
	case history.FlowAdd:
		err = s.performFlowAdd(p)
	case history.FlowDelete:
		err = s.performFlowDelete(p)
	case history.NodeAdd:
		err = s.performNodeAdd(p)
	case history.NodeDelete:
		err = s.performNodeDelete(p)
	case history.OverlayRestore:
		if !s.overlay.Deserialize(p.Snapshot) {
			s.logger.Warn("overlay snapshot could not be restored")
		}
	case nil:
		// Nothing to apply; recorded for actions whose one side is empty.
	default:
		s.logger.Warn("unknown payload type", "payload", p)
	}
	if err != nil {
		s.logger.Debug("payload skipped", "err", err)
	}
}

// applyNodePosition writes or clears a node offset override.
func (s *Session) applyNodePosition(p history.NodePosition) {
	if s.diagram.FindNode(p.ID) == nil {
		s.logger.Debug("node position skipped, id gone", "id", p.ID)
		return
	}
	if p.Clear {
		s.overlay.ClearNodeOffset(p.ID)
		return
	}
	s.overlay.SetNodeOffset(p.ID, p.DX, p.DY)
}

// applyLabelPosition writes or clears a label position override.
func (s *Session) applyLabelPosition(p history.LabelPosition) {
	if s.diagram.FindNode(p.ID) == nil {
		s.logger.Debug("label position skipped, id gone", "id", p.ID)
		return
	}
	if p.Clear {
		s.overlay.ClearLabelPosition(p.ID)
		return
	}
	s.overlay.SetLabelPosition(p.ID, p.X, p.Y)
}

// performFlowAdd inserts a flow and recomputes. The insertion is reverted
// if the new flow makes the layout uncomputable (a cycle).
func (s *Session) performFlowAdd(p history.FlowAdd) error {
	f := diagram.Flow{Source: p.Source, Target: p.Target, Value: p.Value, Color: p.Color}
	if err := s.diagram.AddFlow(f); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "add flow")
	}
	if err := s.recompute(); err != nil {
		s.diagram.RemoveFlow(p.Source, p.Target)
		if rerr := s.recompute(); rerr != nil {
			s.logger.Error("recompute after revert failed", "err", rerr)
		}
		return err
	}
	return nil
}

func (s *Session) performFlowDelete(p history.FlowDelete) error {
	if _, ok := s.diagram.RemoveFlow(p.Source, p.Target); !ok {
		return errors.New(errors.ErrCodeStaleReference, "flow %s%s%s does not exist", p.Source, flowIDSep, p.Target)
	}
	return s.recompute()
}

// performNodeAdd inserts a node and, when the payload is the inverse of a
// delete, restores the flows that were removed with it.
func (s *Session) performNodeAdd(p history.NodeAdd) error {
	n := diagram.Node{Name: p.Name, Color: p.Color, Opacity: p.Opacity}
	if err := s.diagram.AddNode(n); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "add node")
	}
	for _, fa := range p.Flows {
		f := diagram.Flow{Source: fa.Source, Target: fa.Target, Value: fa.Value, Color: fa.Color}
		if err := s.diagram.AddFlow(f); err != nil {
			s.logger.Debug("flow restore skipped", "flow", FlowID(fa.Source, fa.Target), "err", err)
		}
	}
	return s.recompute()
}

func (s *Session) performNodeDelete(p history.NodeDelete) error {
	if !s.diagram.RemoveNode(p.Name) {
		return errors.New(errors.ErrCodeStaleReference, "node %q does not exist", p.Name)
	}
	return s.recompute()
}

// performPropertyChange sets one property. Opacity is clamped, flow values
// must stay positive, and value changes trigger a recompute because they
// change node throughput.
func (s *Session) performPropertyChange(p history.PropertyChange) error {
	switch p.ElementType {
	case diagram.ElementNode:
		n := s.diagram.FindNode(p.ElementID)
		if n == nil {
			return errors.New(errors.ErrCodeStaleReference, "node %q does not exist", p.ElementID)
		}
		switch p.Property {
		case "color":
			v, ok := p.Value.(string)
			if !ok {
				return errors.New(errors.ErrCodeInvalidPayload, "color must be a string")
			}
			n.Color = v
		case "opacity":
			v, ok := toFloat(p.Value)
			if !ok {
				return errors.New(errors.ErrCodeInvalidPayload, "opacity must be numeric")
			}
			clamped, wasClamped := errors.ClampOpacity(v)
			if wasClamped {
				s.logger.Warn("opacity clamped", "node", p.ElementID, "from", v, "to", clamped)
			}
			n.Opacity = clamped
		default:
			return errors.New(errors.ErrCodeUnsupported, "node property %q is not editable", p.Property)
		}
		return nil

	case diagram.ElementFlow:
		source, target, ok := SplitFlowID(p.ElementID)
		if !ok {
			return errors.New(errors.ErrCodeInvalidPayload, "malformed flow id %q", p.ElementID)
		}
		f := s.diagram.FindFlow(source, target)
		if f == nil {
			return errors.New(errors.ErrCodeStaleReference, "flow %q does not exist", p.ElementID)
		}
		switch p.Property {
		case "color":
			v, ok := p.Value.(string)
			if !ok {
				return errors.New(errors.ErrCodeInvalidPayload, "color must be a string")
			}
			f.Color = v
			return nil
		case "value":
			v, ok := toFloat(p.Value)
			if !ok {
				return errors.New(errors.ErrCodeInvalidPayload, "value must be numeric")
			}
			if v <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "flow value must be positive, got %v", v)
			}
			f.Value = v
			// Throughput changed, bar sizes move.
			return s.recompute()
		default:
			return errors.New(errors.ErrCodeUnsupported, "flow property %q is not editable", p.Property)
		}

	default:
		return errors.New(errors.ErrCodeInvalidPayload, "unknown element type %q", p.ElementType)
	}
}

// toFloat accepts the numeric types JSON decoding and Go callers produce.
func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
