package editor

import (
	"fmt"

	"github.com/flowscope/flowscope/pkg/editor/history"
	"github.com/flowscope/flowscope/pkg/errors"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/observability"
)

// =============================================================================
// Drag Session State Machine
//
// Idle → Active → Idle. At most one drag exists per session; starting a
// new one cancels a stale Active drag first (last writer wins, no
// queueing). Update and End while Idle are no-ops, which matters because
// pointer events from the host UI can race with programmatic cancellation.
// =============================================================================

// dragState exists only while an interaction is in progress.
type dragState struct {
	kind     Kind
	targetID string

	startX, startY       float64
	currentX, currentY   float64
	baselineX, baselineY float64
}

// StartDrag begins an interactive move of a node or label. The baseline
// is the entity's current effective position (base plus overrides) at
// session start. Returns false if the target is unknown, not laid out,
// or the coordinates are invalid.
func (s *Session) StartDrag(kind Kind, targetID string, startX, startY float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := errors.ValidateCoordinate(startX); err != nil {
		s.logger.Debug("drag rejected", "err", err)
		return false
	}
	if err := errors.ValidateCoordinate(startY); err != nil {
		s.logger.Debug("drag rejected", "err", err)
		return false
	}

	if s.drag != nil {
		s.logger.Debug("stale drag cancelled", "target", s.drag.targetID)
		s.cancelDrag()
	}

	var baseline *layout.Point
	if kind == KindLabel {
		baseline = s.finalLabelPosition(targetID)
	} else {
		kind = KindNode
		baseline = s.finalNodePosition(targetID)
	}
	if baseline == nil {
		s.logger.Debug("drag rejected, target not laid out", "kind", kind, "id", targetID)
		return false
	}

	s.drag = &dragState{
		kind:      kind,
		targetID:  targetID,
		startX:    startX,
		startY:    startY,
		currentX:  startX,
		currentY:  startY,
		baselineX: baseline.X,
		baselineY: baseline.Y,
	}
	observability.Editor().OnDragStart(string(kind), targetID)
	return true
}

// UpdateDrag records a movement sample and returns the transient visual
// position (baseline plus delta). The transient position is feedback
// only; nothing is written to the overlay store until commit, which is
// what makes cancel a true no-op. Returns nil, false while Idle.
func (s *Session) UpdateDrag(currentX, currentY float64) (*layout.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag == nil {
		return nil, false
	}
	if errors.ValidateCoordinate(currentX) != nil || errors.ValidateCoordinate(currentY) != nil {
		s.logger.Debug("drag sample dropped, non-finite coordinates")
		return nil, false
	}

	s.drag.currentX = currentX
	s.drag.currentY = currentY
	p := s.transientPosition()
	return &p, true
}

// EndDrag commits the drag: writes the new override (offset for nodes,
// absolute position for labels) and records exactly one action whose
// inverse restores the pre-drag override, or clears it if none existed.
// Returns false while Idle.
func (s *Session) EndDrag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.drag
	if d == nil {
		return false
	}
	s.drag = nil

	finalX := s.snap(d.baselineX + (d.currentX - d.startX))
	finalY := s.snap(d.baselineY + (d.currentY - d.startY))

	switch d.kind {
	case KindLabel:
		if s.basePosition(d.targetID, KindLabel) == nil {
			// Target vanished mid-drag (concurrent structural edit).
			s.logger.Debug("drag commit skipped, target gone", "id", d.targetID)
			return false
		}
		var inverse history.Payload
		if old := s.overlay.LabelPosition(d.targetID); old != nil {
			inverse = history.LabelPosition{ID: d.targetID, X: old.X, Y: old.Y}
		} else {
			inverse = history.LabelPosition{ID: d.targetID, Clear: true}
		}
		forward := history.LabelPosition{ID: d.targetID, X: finalX, Y: finalY}
		s.applyLabelPosition(forward)
		s.log.Record(history.NewAction(history.TypeLabelPosition, forward, inverse,
			fmt.Sprintf("move label %s", d.targetID)))

	default: // KindNode
		base := s.basePosition(d.targetID, KindNode)
		if base == nil {
			// Target vanished mid-drag (concurrent structural edit).
			s.logger.Debug("drag commit skipped, target gone", "id", d.targetID)
			return false
		}
		var inverse history.Payload
		if old := s.overlay.NodeOffset(d.targetID); old != nil {
			inverse = history.NodePosition{ID: d.targetID, DX: old.DX, DY: old.DY}
		} else {
			inverse = history.NodePosition{ID: d.targetID, Clear: true}
		}
		forward := history.NodePosition{ID: d.targetID, DX: finalX - base.X, DY: finalY - base.Y}
		s.applyNodePosition(forward)
		s.log.Record(history.NewAction(history.TypeNodePosition, forward, inverse,
			fmt.Sprintf("move node %s", d.targetID)))
	}

	observability.Editor().OnDragCommit(string(d.kind), d.targetID)
	return true
}

// CancelDrag discards the in-flight drag without touching the overlay
// store or the action log. Returns false while Idle.
func (s *Session) CancelDrag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelDrag()
}

func (s *Session) cancelDrag() bool {
	if s.drag == nil {
		return false
	}
	observability.Editor().OnDragCancel(string(s.drag.kind), s.drag.targetID)
	s.drag = nil
	return true
}

// DragActive reports whether a drag is in progress.
func (s *Session) DragActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag != nil
}

// DragTarget returns the kind and id of the in-flight drag.
func (s *Session) DragTarget() (Kind, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return "", "", false
	}
	return s.drag.kind, s.drag.targetID, true
}

// TransientPosition returns the current visual position of the dragged
// entity, or nil while Idle. Renderers draw the dragged entity here
// instead of at its committed final position.
func (s *Session) TransientPosition() *layout.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return nil
	}
	p := s.transientPosition()
	return &p
}

func (s *Session) transientPosition() layout.Point {
	d := s.drag
	return layout.Point{
		X: d.baselineX + (d.currentX - d.startX),
		Y: d.baselineY + (d.currentY - d.startY),
	}
}
