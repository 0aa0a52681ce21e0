package editor

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/layout"
)

func budget() *diagram.Diagram {
	return &diagram.Diagram{
		Nodes: []diagram.Node{
			{Name: "Wages"},
			{Name: "Budget"},
			{Name: "Rent"},
			{Name: "Savings"},
		},
		Flows: []diagram.Flow{
			{Source: "Wages", Target: "Budget", Value: 2000},
			{Source: "Budget", Target: "Rent", Value: 1200},
			{Source: "Budget", Target: "Savings", Value: 800},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(budget(), layout.NewSankey(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewSession() = %v", err)
	}
	return s
}

func TestDragCommitWritesOneOffsetAndOneAction(t *testing.T) {
	s := newTestSession(t)

	if !s.StartDrag(KindNode, "Wages", 0, 0) {
		t.Fatal("StartDrag = false, want true")
	}
	if _, ok := s.UpdateDrag(10, 5); !ok {
		t.Fatal("UpdateDrag = false, want true")
	}
	if !s.EndDrag() {
		t.Fatal("EndDrag = false, want true")
	}

	off := s.Overlay().NodeOffset("Wages")
	if off == nil || off.DX != 10 || off.DY != 5 {
		t.Errorf("NodeOffset(Wages) = %+v, want {10 5}", off)
	}
	if got := len(s.History()); got != 1 {
		t.Errorf("history depth = %d, want 1", got)
	}
	if s.DragActive() {
		t.Error("DragActive = true after commit, want false")
	}
}

func TestDragUndoRedoExample(t *testing.T) {
	s := newTestSession(t)

	s.StartDrag(KindNode, "Wages", 0, 0)
	s.UpdateDrag(10, 5)
	s.EndDrag()

	if !s.Undo() {
		t.Fatal("Undo = false, want true")
	}
	if off := s.Overlay().NodeOffset("Wages"); off != nil {
		t.Errorf("NodeOffset(Wages) after undo = %+v, want nil (no prior overlay)", off)
	}
	if !s.CanRedo() {
		t.Error("CanRedo = false after undo, want true")
	}

	if !s.Redo() {
		t.Fatal("Redo = false, want true")
	}
	off := s.Overlay().NodeOffset("Wages")
	if off == nil || off.DX != 10 || off.DY != 5 {
		t.Errorf("NodeOffset(Wages) after redo = %+v, want {10 5}", off)
	}
}

func TestSequentialDragsAccumulate(t *testing.T) {
	s := newTestSession(t)

	// First drag: +10,+5 relative to base.
	s.StartDrag(KindNode, "Wages", 0, 0)
	s.UpdateDrag(10, 5)
	s.EndDrag()

	// Second drag: +3,-2 relative to the then-current baseline.
	s.StartDrag(KindNode, "Wages", 100, 100)
	s.UpdateDrag(103, 98)
	s.EndDrag()

	off := s.Overlay().NodeOffset("Wages")
	if off == nil || off.DX != 13 || off.DY != 3 {
		t.Errorf("cumulative NodeOffset(Wages) = %+v, want {13 3}", off)
	}
	if got := len(s.History()); got != 2 {
		t.Fatalf("history depth = %d, want 2", got)
	}

	// Each drag is individually reversible.
	s.Undo()
	off = s.Overlay().NodeOffset("Wages")
	if off == nil || off.DX != 10 || off.DY != 5 {
		t.Errorf("NodeOffset(Wages) after one undo = %+v, want {10 5}", off)
	}
	s.Undo()
	if off := s.Overlay().NodeOffset("Wages"); off != nil {
		t.Errorf("NodeOffset(Wages) after two undos = %+v, want nil", off)
	}
}

func TestCancelIsTrueNoop(t *testing.T) {
	s := newTestSession(t)

	// Pre-existing override so cancel has something to preserve.
	s.StartDrag(KindNode, "Budget", 0, 0)
	s.UpdateDrag(7, 7)
	s.EndDrag()

	before, err := s.Overlay().Serialize()
	if err != nil {
		t.Fatalf("Serialize() = %v", err)
	}
	depthBefore := len(s.History())

	s.StartDrag(KindNode, "Budget", 50, 50)
	s.UpdateDrag(80, 90)
	if !s.CancelDrag() {
		t.Fatal("CancelDrag = false, want true")
	}

	after, err := s.Overlay().Serialize()
	if err != nil {
		t.Fatalf("Serialize() = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("overlay store changed across a cancelled drag")
	}
	if got := len(s.History()); got != depthBefore {
		t.Errorf("history depth changed across cancelled drag: %d → %d", depthBefore, got)
	}
}

func TestUpdateAndEndWhileIdleAreNoops(t *testing.T) {
	s := newTestSession(t)

	if _, ok := s.UpdateDrag(5, 5); ok {
		t.Error("UpdateDrag while Idle = true, want false")
	}
	if s.EndDrag() {
		t.Error("EndDrag while Idle = true, want false")
	}
	if s.CancelDrag() {
		t.Error("CancelDrag while Idle = true, want false")
	}
	if len(s.History()) != 0 {
		t.Error("idle no-ops recorded actions")
	}
}

func TestStartDragCancelsStaleSession(t *testing.T) {
	s := newTestSession(t)

	s.StartDrag(KindNode, "Wages", 0, 0)
	s.UpdateDrag(10, 10)

	// New drag on a different target takes over; the first leaves no trace.
	if !s.StartDrag(KindNode, "Rent", 0, 0) {
		t.Fatal("second StartDrag = false, want true")
	}
	kind, id, ok := s.DragTarget()
	if !ok || kind != KindNode || id != "Rent" {
		t.Errorf("DragTarget = (%v, %v, %v), want (node, Rent, true)", kind, id, ok)
	}

	s.UpdateDrag(4, 0)
	s.EndDrag()

	if s.Overlay().NodeOffset("Wages") != nil {
		t.Error("cancelled drag wrote an offset for Wages")
	}
	if got := len(s.History()); got != 1 {
		t.Errorf("history depth = %d, want 1 (only the committed drag)", got)
	}
}

func TestStartDragUnknownTarget(t *testing.T) {
	s := newTestSession(t)
	if s.StartDrag(KindNode, "Ghost", 0, 0) {
		t.Error("StartDrag on unknown node = true, want false")
	}
}

func TestLabelDragUsesAbsolutePositions(t *testing.T) {
	s := newTestSession(t)

	base := s.FinalLabelPosition("Rent")
	if base == nil {
		t.Fatal("FinalLabelPosition(Rent) = nil, want base position")
	}

	s.StartDrag(KindLabel, "Rent", 0, 0)
	s.UpdateDrag(-20, 12)
	s.EndDrag()

	got := s.Overlay().LabelPosition("Rent")
	if got == nil {
		t.Fatal("LabelPosition(Rent) = nil after label drag")
	}
	if got.X != base.X-20 || got.Y != base.Y+12 {
		t.Errorf("LabelPosition(Rent) = %+v, want {%v %v}", got, base.X-20, base.Y+12)
	}

	// Undo restores "no override": final falls back to base.
	s.Undo()
	if s.Overlay().LabelPosition("Rent") != nil {
		t.Error("label override survived undo")
	}
	final := s.FinalLabelPosition("Rent")
	if final == nil || *final != *base {
		t.Errorf("FinalLabelPosition(Rent) after undo = %+v, want %+v", final, base)
	}
}

func TestTransientPositionDoesNotTouchStore(t *testing.T) {
	s := newTestSession(t)

	base := s.FinalPosition("Savings")
	s.StartDrag(KindNode, "Savings", 0, 0)
	p, ok := s.UpdateDrag(30, -10)
	if !ok || p == nil {
		t.Fatal("UpdateDrag = nil, want transient position")
	}
	if p.X != base.X+30 || p.Y != base.Y-10 {
		t.Errorf("transient = %+v, want {%v %v}", p, base.X+30, base.Y-10)
	}

	// Final position unchanged until commit.
	if got := s.FinalPosition("Savings"); *got != *base {
		t.Errorf("FinalPosition moved before commit: %+v, want %+v", got, base)
	}
	if s.Overlay().NodeOffset("Savings") != nil {
		t.Error("UpdateDrag wrote to the overlay store")
	}
	s.CancelDrag()
}

func TestCommitSkippedWhenTargetVanishes(t *testing.T) {
	s := newTestSession(t)

	// Node drag: delete the target mid-drag, commit must be a no-op.
	s.StartDrag(KindNode, "Rent", 0, 0)
	s.UpdateDrag(10, 5)
	if err := s.DeleteNode("Rent"); err != nil {
		t.Fatalf("DeleteNode() = %v", err)
	}
	depth := len(s.History())
	if s.EndDrag() {
		t.Error("EndDrag = true for a vanished node, want false")
	}
	if s.Overlay().NodeOffset("Rent") != nil {
		t.Error("commit on a vanished node wrote an offset")
	}
	if got := len(s.History()); got != depth {
		t.Errorf("history depth = %d after skipped commit, want %d", got, depth)
	}

	// Label drag: same deal.
	s.StartDrag(KindLabel, "Savings", 0, 0)
	s.UpdateDrag(-5, 5)
	if err := s.DeleteNode("Savings"); err != nil {
		t.Fatalf("DeleteNode() = %v", err)
	}
	depth = len(s.History())
	if s.EndDrag() {
		t.Error("EndDrag = true for a vanished label, want false")
	}
	if s.Overlay().LabelPosition("Savings") != nil {
		t.Error("commit on a vanished label wrote a position")
	}
	if got := len(s.History()); got != depth {
		t.Errorf("history depth = %d after skipped commit, want %d", got, depth)
	}
}

func TestSnapAppliesOnCommitOnly(t *testing.T) {
	s := newTestSession(t)
	s.SetSnapStep(10)

	base := *s.FinalPosition("Wages")

	s.StartDrag(KindNode, "Wages", 0, 0)
	p, _ := s.UpdateDrag(13, 7)
	// Transient feedback is unsnapped.
	if p.X != base.X+13 || p.Y != base.Y+7 {
		t.Errorf("transient = %+v, want unsnapped {%v %v}", p, base.X+13, base.Y+7)
	}
	s.EndDrag()

	got := *s.FinalPosition("Wages")
	if math.Mod(got.X, 10) != 0 || math.Mod(got.Y, 10) != 0 {
		t.Errorf("committed position %+v is not on the 10-unit grid", got)
	}
}
