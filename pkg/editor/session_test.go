package editor

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor/history"
)

func TestUndoRedoSymmetryRestoresOverlay(t *testing.T) {
	s := newTestSession(t)

	// A mixed sequence of N recorded actions.
	drags := []struct {
		id     string
		dx, dy float64
	}{
		{"Wages", 10, 5},
		{"Budget", -3, 7},
		{"Wages", 2, 2},
	}
	for i, d := range drags {
		s.StartDrag(KindNode, d.id, 0, 0)
		s.UpdateDrag(d.dx, d.dy)
		if !s.EndDrag() {
			t.Fatalf("EndDrag #%d = false", i+1)
		}
	}
	if err := s.SetProperty(diagram.ElementNode, "Rent", "opacity", 0.4); err != nil {
		t.Fatalf("SetProperty = %v", err)
	}
	n := len(s.History())

	want, err := s.Overlay().Serialize()
	if err != nil {
		t.Fatalf("Serialize = %v", err)
	}
	wantOpacity := s.Diagram().FindNode("Rent").Opacity

	for i := 0; i < n; i++ {
		if !s.Undo() {
			t.Fatalf("Undo #%d = false", i+1)
		}
	}
	for i := 0; i < n; i++ {
		if !s.Redo() {
			t.Fatalf("Redo #%d = false", i+1)
		}
	}

	got, err := s.Overlay().Serialize()
	if err != nil {
		t.Fatalf("Serialize = %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Error("overlay differs after N undos + N redos")
	}
	if gotOp := s.Diagram().FindNode("Rent").Opacity; gotOp != wantOpacity {
		t.Errorf("opacity = %v, want %v", gotOp, wantOpacity)
	}
}

func TestPropertyChangeUndo(t *testing.T) {
	s := newTestSession(t)

	if err := s.SetProperty(diagram.ElementNode, "Wages", "color", "#336699"); err != nil {
		t.Fatalf("SetProperty = %v", err)
	}
	if got := s.Diagram().FindNode("Wages").Color; got != "#336699" {
		t.Errorf("color = %q, want #336699", got)
	}

	s.Undo()
	if got := s.Diagram().FindNode("Wages").Color; got != "" {
		t.Errorf("color after undo = %q, want empty", got)
	}

	s.Redo()
	if got := s.Diagram().FindNode("Wages").Color; got != "#336699" {
		t.Errorf("color after redo = %q, want #336699", got)
	}
}

func TestOpacityClamped(t *testing.T) {
	s := newTestSession(t)

	if err := s.SetProperty(diagram.ElementNode, "Wages", "opacity", 1.8); err != nil {
		t.Fatalf("SetProperty = %v", err)
	}
	if got := s.Diagram().FindNode("Wages").Opacity; got != 1.0 {
		t.Errorf("opacity = %v, want clamped 1.0", got)
	}
}

func TestFlowValueChangeRecomputesAndUndoes(t *testing.T) {
	s := newTestSession(t)
	id := FlowID("Budget", "Rent")

	heightBefore := s.NodeSize("Rent").Height
	if err := s.SetProperty(diagram.ElementFlow, id, "value", 2400.0); err != nil {
		t.Fatalf("SetProperty = %v", err)
	}
	if got := s.NodeSize("Rent").Height; got <= heightBefore {
		t.Errorf("Rent bar height = %v after doubling value, want > %v", got, heightBefore)
	}

	s.Undo()
	if got := s.Diagram().FindFlow("Budget", "Rent").Value; got != 1200 {
		t.Errorf("flow value after undo = %v, want 1200", got)
	}
	if got := s.NodeSize("Rent").Height; got != heightBefore {
		t.Errorf("Rent bar height after undo = %v, want %v", got, heightBefore)
	}
}

func TestSetPropertyInvalid(t *testing.T) {
	s := newTestSession(t)

	if err := s.SetProperty(diagram.ElementNode, "Ghost", "color", "#fff"); err == nil {
		t.Error("SetProperty on missing node = nil, want error")
	}
	if err := s.SetProperty(diagram.ElementNode, "Wages", "shape", "round"); err == nil {
		t.Error("SetProperty of unknown property = nil, want error")
	}
	if err := s.SetProperty(diagram.ElementFlow, FlowID("Budget", "Rent"), "value", -4.0); err == nil {
		t.Error("SetProperty of negative flow value = nil, want error")
	}
	if len(s.History()) != 0 {
		t.Error("rejected property edits recorded actions")
	}
}

func TestDeleteNodeUndoRestoresFlows(t *testing.T) {
	s := newTestSession(t)

	if err := s.DeleteNode("Budget"); err != nil {
		t.Fatalf("DeleteNode = %v", err)
	}
	if len(s.Diagram().Flows) != 0 {
		t.Fatalf("flows after deleting hub = %d, want 0", len(s.Diagram().Flows))
	}

	s.Undo()
	if s.Diagram().FindNode("Budget") == nil {
		t.Fatal("node not restored by undo")
	}
	if got := len(s.Diagram().Flows); got != 3 {
		t.Errorf("flows after undo = %d, want 3", got)
	}
	if s.FinalPosition("Budget") == nil {
		t.Error("restored node has no final position")
	}
}

func TestResetPositionsRecorded(t *testing.T) {
	s := newTestSession(t)
	s.Overlay().SetNodeOffset("Wages", 10, 10)
	s.Overlay().SetNodeOffset("Rent", -5, 0)

	s.ResetPositions(true)
	if s.Overlay().NodeOffset("Wages") != nil {
		t.Fatal("reset left node offsets behind")
	}

	if !s.Undo() {
		t.Fatal("Undo of recorded reset = false, want true")
	}
	if off := s.Overlay().NodeOffset("Wages"); off == nil || off.DX != 10 {
		t.Errorf("NodeOffset(Wages) after undo = %+v, want {10 10}", off)
	}
	if off := s.Overlay().NodeOffset("Rent"); off == nil || off.DX != -5 {
		t.Errorf("NodeOffset(Rent) after undo = %+v, want {-5 0}", off)
	}
}

func TestResetPositionsUnrecordedIsNotUndoable(t *testing.T) {
	s := newTestSession(t)
	s.Overlay().SetNodeOffset("Wages", 10, 10)

	s.ResetPositions(false)
	if s.Overlay().NodeOffset("Wages") != nil {
		t.Fatal("reset left node offsets behind")
	}
	if s.CanUndo() {
		t.Error("unrecorded reset is undoable")
	}
}

func TestResetLabelsClearsDimensionsToo(t *testing.T) {
	s := newTestSession(t)
	s.Overlay().SetLabelPosition("Wages", 5, 5)
	if err := s.SetLabelDimensions("Wages", 80, 20); err != nil {
		t.Fatalf("SetLabelDimensions = %v", err)
	}

	s.ResetLabels(false)
	if s.Overlay().LabelPosition("Wages") != nil || s.Overlay().LabelDimensions("Wages") != nil {
		t.Error("ResetLabels left label overrides behind")
	}
}

func TestStalePayloadsAreSilentNoops(t *testing.T) {
	s := newTestSession(t)

	// Payloads referencing ids that no longer exist must neither panic
	// nor corrupt state. This is the path queued undo actions take when
	// they race structural deletions.
	s.Apply(history.NodePosition{ID: "Ghost", DX: 1, DY: 1})
	s.Apply(history.LabelPosition{ID: "Ghost", X: 1, Y: 1})
	s.Apply(history.FlowDelete{Source: "Ghost", Target: "Nowhere"})
	s.Apply(history.NodeDelete{Name: "Ghost"})
	s.Apply(history.PropertyChange{
		ElementType: diagram.ElementNode, ElementID: "Ghost",
		Property: "color", Value: "#fff",
	})

	if s.Overlay().Len() != 0 {
		t.Error("stale payload wrote an overlay entry")
	}
	if len(s.Diagram().Nodes) != 4 || len(s.Diagram().Flows) != 3 {
		t.Error("stale payload mutated the diagram")
	}
}

func TestStackChangeNotifications(t *testing.T) {
	s := newTestSession(t)

	var states []history.StackState
	s.OnStackChange(func(st history.StackState) { states = append(states, st) })

	s.StartDrag(KindNode, "Wages", 0, 0)
	s.UpdateDrag(1, 1)
	s.EndDrag()
	s.Undo()

	if len(states) != 2 {
		t.Fatalf("got %d notifications, want 2", len(states))
	}
	if !states[0].CanUndo || states[0].CanRedo {
		t.Errorf("after commit: %+v, want {true false}", states[0])
	}
	if states[1].CanUndo || !states[1].CanRedo {
		t.Errorf("after undo: %+v, want {false true}", states[1])
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a := newTestSession(t)
	b := newTestSession(t)

	a.StartDrag(KindNode, "Wages", 0, 0)
	a.UpdateDrag(10, 10)
	a.EndDrag()

	if b.Overlay().NodeOffset("Wages") != nil {
		t.Error("edit in one session leaked into another")
	}
	if b.CanUndo() {
		t.Error("history in one session leaked into another")
	}
}

func TestAddNodeThroughRecompute(t *testing.T) {
	s := newTestSession(t)

	if err := s.AddNode("Taxes", NodeOptions{Color: "#aa3333"}); err != nil {
		t.Fatalf("AddNode = %v", err)
	}
	if s.FinalPosition("Taxes") == nil {
		t.Error("new node has no final position")
	}
	if err := s.AddNode("Taxes", NodeOptions{}); err == nil {
		t.Error("duplicate AddNode = nil, want error")
	}

	s.Undo()
	if s.Diagram().FindNode("Taxes") != nil {
		t.Error("node survived undo")
	}
}

func TestHistoryDescriptions(t *testing.T) {
	s := newTestSession(t)
	if err := s.AddFlow("Budget", "Travel", 100); err != nil {
		t.Fatalf("AddFlow = %v", err)
	}
	actions := s.History()
	if len(actions) != 1 {
		t.Fatalf("history depth = %d, want 1", len(actions))
	}
	want := fmt.Sprintf("add flow %s", FlowID("Budget", "Travel"))
	if actions[0].Description != want {
		t.Errorf("description = %q, want %q", actions[0].Description, want)
	}
	if actions[0].Type != history.TypeFlowAdd {
		t.Errorf("type = %v, want %v", actions[0].Type, history.TypeFlowAdd)
	}
}
