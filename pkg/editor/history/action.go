package history

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Action Types
// =============================================================================

// Type tags the kind of edit an action represents.
type Type string

// Action types for every undoable edit.
const (
	TypeNodePosition   Type = "NODE_POSITION"
	TypeLabelPosition  Type = "LABEL_POSITION"
	TypePropertyChange Type = "PROPERTY_CHANGE"
	TypeFlowAdd        Type = "FLOW_ADD"
	TypeFlowDelete     Type = "FLOW_DELETE"
	TypeNodeAdd        Type = "NODE_ADD"
	TypeNodeDelete     Type = "NODE_DELETE"
	TypeReset          Type = "RESET"
)

// =============================================================================
// Payloads - Tagged Union
// =============================================================================

// Payload is one side of a reversible edit. The applier switches
// exhaustively over the concrete types below; the same Apply call performs
// forward payloads on redo and inverse payloads on undo, so there is no
// undo-specific code path anywhere.
type Payload interface {
	isPayload()
}

// NodePosition sets (or, with Clear, removes) a node's offset override.
type NodePosition struct {
	ID    string  `json:"id"`
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Clear bool    `json:"clear,omitempty"`
}

// LabelPosition sets (or, with Clear, removes) a label's absolute position override.
type LabelPosition struct {
	ID    string  `json:"id"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Clear bool    `json:"clear,omitempty"`
}

// PropertyChange sets one named property of a node or flow.
type PropertyChange struct {
	ElementType string `json:"element_type"` // diagram.ElementNode or diagram.ElementFlow
	ElementID   string `json:"element_id"`   // node name, or "source→target" for flows
	Property    string `json:"property"`
	Value       any    `json:"value"`
}

// FlowAdd inserts a flow. Used forward by FLOW_ADD and as the inverse of
// FLOW_DELETE, carrying enough state to restore the flow exactly.
type FlowAdd struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
	Color  string  `json:"color,omitempty"`
}

// FlowDelete removes a flow.
type FlowDelete struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeAdd inserts a node. As the inverse of NODE_DELETE it also carries
// the flows that were removed with the node so undo restores them.
type NodeAdd struct {
	Name    string    `json:"name"`
	Color   string    `json:"color,omitempty"`
	Opacity float64   `json:"opacity,omitempty"`
	Flows   []FlowAdd `json:"flows,omitempty"`
}

// NodeDelete removes a node and every flow touching it.
type NodeDelete struct {
	Name string `json:"name"`
}

// OverlayRestore replaces the full overlay store contents with a serialized
// snapshot. Used by recorded reset operations, whose inverse cannot be
// expressed as a single-entry edit.
type OverlayRestore struct {
	Snapshot []byte `json:"snapshot"`
}

func (NodePosition) isPayload()   {}
func (LabelPosition) isPayload()  {}
func (PropertyChange) isPayload() {}
func (FlowAdd) isPayload()        {}
func (FlowDelete) isPayload()     {}
func (NodeAdd) isPayload()        {}
func (NodeDelete) isPayload()     {}
func (OverlayRestore) isPayload() {}

// =============================================================================
// Action
// =============================================================================

// Action is one reversible edit: a forward payload that performs it and an
// inverse payload that reverses it. Immutable once recorded, except for
// its position in the undo/redo stacks.
type Action struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Forward     Payload   `json:"-"`
	Inverse     Payload   `json:"-"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewAction builds an action with a fresh id and the current time.
func NewAction(t Type, forward, inverse Payload, description string) Action {
	return Action{
		ID:          uuid.NewString(),
		Type:        t,
		Forward:     forward,
		Inverse:     inverse,
		Description: description,
		Timestamp:   time.Now(),
	}
}
