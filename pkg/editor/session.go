package editor

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor/history"
	"github.com/flowscope/flowscope/pkg/editor/overlay"
	"github.com/flowscope/flowscope/pkg/errors"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/observability"
)

// flowIDSep joins a flow's endpoints into a single element id for
// property-change payloads.
const flowIDSep = "→"

// FlowID returns the element id used for a flow in property edits.
func FlowID(source, target string) string {
	return source + flowIDSep + target
}

// SplitFlowID is the reverse of [FlowID].
func SplitFlowID(id string) (source, target string, ok bool) {
	return strings.Cut(id, flowIDSep)
}

// =============================================================================
// Session
// =============================================================================

// Session is one independent editing context for one diagram. All shared
// state (overlay store, action log, base snapshot, drag state) lives here
// as explicit instances; nothing is ambient, so multiple sessions can run
// side by side.
type Session struct {
	mu sync.Mutex

	diagram *diagram.Diagram
	engine  layout.Engine
	overlay *overlay.Store
	log     *history.Log
	logger  *log.Logger

	// Base snapshot, fully replaced on every recompute.
	baseNodes  map[string]layout.Point
	baseLabels map[string]layout.Point
	nodeSizes  map[string]layout.Size
	frame      layout.Size

	// snapStep rounds committed drag positions to a grid when positive.
	snapStep float64

	drag *dragState
}

// NewSession creates a session and runs the initial layout pass.
// A nil logger falls back to log.Default().
func NewSession(d *diagram.Diagram, engine layout.Engine, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDiagram, err, "invalid diagram")
	}

	s := &Session{
		diagram: d,
		engine:  engine,
		overlay: overlay.NewStore(logger),
		logger:  logger,
	}
	s.log = history.NewLog(s, logger)

	if err := s.recompute(); err != nil {
		return nil, err
	}
	return s, nil
}

// Diagram returns the diagram being edited. Callers must not mutate it
// directly; all edits go through session operations so they are recorded.
func (s *Session) Diagram() *diagram.Diagram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagram
}

// Overlay exposes the overlay store for persistence round trips
// (Serialize/Deserialize). Mutations still belong to session operations.
func (s *Session) Overlay() *overlay.Store { return s.overlay }

// OnStackChange registers a listener for undo/redo availability changes.
func (s *Session) OnStackChange(fn func(history.StackState)) {
	s.log.Notify(fn)
}

// SetHistoryDepth bounds the undo stack below the built-in maximum.
func (s *Session) SetHistoryDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.SetMaxSize(n)
}

// SetSnapStep makes committed drag positions snap to a grid of the given
// step. Zero or negative disables snapping. Transient positions are never
// snapped; only the committed override is.
func (s *Session) SetSnapStep(step float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapStep = step
}

func (s *Session) snap(v float64) float64 {
	if s.snapStep <= 0 {
		return v
	}
	return math.Round(v/s.snapStep) * s.snapStep
}

// =============================================================================
// Undo / Redo
// =============================================================================

// Undo reverses the most recent action. Returns false when there is
// nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.log.Undo()
	if ok {
		observability.Editor().OnUndo()
	}
	return ok
}

// Redo re-applies the most recently undone action. Returns false when
// there is nothing to redo.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.log.Redo()
	if ok {
		observability.Editor().OnRedo()
	}
	return ok
}

// CanUndo reports whether an undo is available.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.CanUndo()
}

// CanRedo reports whether a redo is available.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.CanRedo()
}

// History returns the undo stack, oldest first.
func (s *Session) History() []history.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Actions()
}

// StackState returns current undo/redo availability.
func (s *Session) StackState() history.StackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.State()
}

// =============================================================================
// Recorded Edits
// =============================================================================

// AddFlow inserts a flow and recomputes the layout so the new element has
// a base position before any override can reference it. One action is
// recorded; undo removes the flow again.
func (s *Session) AddFlow(source, target string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fwd := history.FlowAdd{Source: source, Target: target, Value: value}
	if err := s.performFlowAdd(fwd); err != nil {
		return err
	}
	s.log.Record(history.NewAction(history.TypeFlowAdd,
		fwd,
		history.FlowDelete{Source: source, Target: target},
		fmt.Sprintf("add flow %s%s%s", source, flowIDSep, target)))
	return nil
}

// DeleteFlow removes a flow. Undo restores it with its original value and color.
func (s *Session) DeleteFlow(source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.diagram.FindFlow(source, target)
	if f == nil {
		return errors.New(errors.ErrCodeNotFound, "flow %s%s%s does not exist", source, flowIDSep, target)
	}
	inverse := history.FlowAdd{Source: f.Source, Target: f.Target, Value: f.Value, Color: f.Color}

	fwd := history.FlowDelete{Source: source, Target: target}
	if err := s.performFlowDelete(fwd); err != nil {
		return err
	}
	s.log.Record(history.NewAction(history.TypeFlowDelete, fwd, inverse,
		fmt.Sprintf("delete flow %s%s%s", source, flowIDSep, target)))
	return nil
}

// NodeOptions carries optional attributes for AddNode.
type NodeOptions struct {
	Color   string
	Opacity float64
}

// AddNode inserts a node through the full recompute path. Undo removes it.
func (s *Session) AddNode(name string, opts NodeOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := errors.ValidateElementName(name); err != nil {
		return err
	}
	fwd := history.NodeAdd{Name: name, Color: opts.Color, Opacity: opts.Opacity}
	if err := s.performNodeAdd(fwd); err != nil {
		return err
	}
	s.log.Record(history.NewAction(history.TypeNodeAdd,
		fwd,
		history.NodeDelete{Name: name},
		fmt.Sprintf("add node %s", name)))
	return nil
}

// DeleteNode removes a node and every flow touching it. Undo restores the
// node and all removed flows.
func (s *Session) DeleteNode(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.diagram.FindNode(name)
	if n == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q does not exist", name)
	}

	inverse := history.NodeAdd{Name: n.Name, Color: n.Color, Opacity: n.Opacity}
	for _, f := range s.diagram.Flows {
		if f.Source == name || f.Target == name {
			inverse.Flows = append(inverse.Flows, history.FlowAdd{
				Source: f.Source, Target: f.Target, Value: f.Value, Color: f.Color,
			})
		}
	}

	fwd := history.NodeDelete{Name: name}
	if err := s.performNodeDelete(fwd); err != nil {
		return err
	}
	s.log.Record(history.NewAction(history.TypeNodeDelete, fwd, inverse,
		fmt.Sprintf("delete node %s", name)))
	return nil
}

// SetProperty changes one named property of a node or flow and records the
// edit. Supported properties: node "color" (string) and "opacity"
// (float64, clamped to [0,1]); flow "color" (string) and "value"
// (float64, must be positive).
func (s *Session) SetProperty(elementType, elementID, property string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.propertyValue(elementType, elementID, property)
	if err != nil {
		return err
	}

	fwd := history.PropertyChange{
		ElementType: elementType, ElementID: elementID,
		Property: property, Value: value,
	}
	if err := s.performPropertyChange(fwd); err != nil {
		return err
	}
	s.log.Record(history.NewAction(history.TypePropertyChange,
		fwd,
		history.PropertyChange{
			ElementType: elementType, ElementID: elementID,
			Property: property, Value: old,
		},
		fmt.Sprintf("set %s %s.%s", elementType, elementID, property)))
	return nil
}

// ResetPositions clears all node offset overrides. With record=true the
// reset is undoable; otherwise the cleared entries are unrecoverable.
func (s *Session) ResetPositions(record bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetOverlay(record, "reset node positions", func() { s.overlay.ClearNodes() })
}

// ResetLabels clears all label position and dimension overrides. With
// record=true the reset is undoable.
func (s *Session) ResetLabels(record bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetOverlay(record, "reset labels", func() { s.overlay.ClearLabels() })
}

// SetLabelDimensions records a label box size override. The id must name
// an existing node.
func (s *Session) SetLabelDimensions(id string, width, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.diagram.FindNode(id) == nil {
		return errors.New(errors.ErrCodeStaleReference, "label %q does not exist", id)
	}
	if !s.overlay.SetLabelDimensions(id, width, height) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid label dimensions %vx%v", width, height)
	}
	return nil
}

// resetOverlay runs a clear function, optionally bracketing it with
// before/after overlay snapshots so the clear is reversible.
func (s *Session) resetOverlay(record bool, description string, clearFn func()) {
	if !record {
		clearFn()
		return
	}

	before, err := s.overlay.Serialize()
	if err != nil {
		s.logger.Warn("reset not recorded", "err", err)
		clearFn()
		return
	}
	clearFn()
	after, err := s.overlay.Serialize()
	if err != nil {
		s.logger.Warn("reset not recorded", "err", err)
		return
	}
	s.log.Record(history.NewAction(history.TypeReset,
		history.OverlayRestore{Snapshot: after},
		history.OverlayRestore{Snapshot: before},
		description))
}

// propertyValue reads the current value of a property, for inverse payloads.
func (s *Session) propertyValue(elementType, elementID, property string) (any, error) {
	switch elementType {
	case diagram.ElementNode:
		n := s.diagram.FindNode(elementID)
		if n == nil {
			return nil, errors.New(errors.ErrCodeStaleReference, "node %q does not exist", elementID)
		}
		switch property {
		case "color":
			return n.Color, nil
		case "opacity":
			return n.Opacity, nil
		}
	case diagram.ElementFlow:
		source, target, ok := SplitFlowID(elementID)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "malformed flow id %q", elementID)
		}
		f := s.diagram.FindFlow(source, target)
		if f == nil {
			return nil, errors.New(errors.ErrCodeStaleReference, "flow %q does not exist", elementID)
		}
		switch property {
		case "color":
			return f.Color, nil
		case "value":
			return f.Value, nil
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown element type %q", elementType)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "property %q is not editable", property)
}
