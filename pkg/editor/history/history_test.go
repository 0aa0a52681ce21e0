package history

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// recordingApplier tracks every payload it is handed, in order.
type recordingApplier struct {
	applied []Payload
}

func (r *recordingApplier) Apply(p Payload) {
	r.applied = append(r.applied, p)
}

func newTestLog() (*Log, *recordingApplier) {
	a := &recordingApplier{}
	return NewLog(a, log.New(io.Discard)), a
}

func moveAction(id string, dx, dy float64) Action {
	return NewAction(TypeNodePosition,
		NodePosition{ID: id, DX: dx, DY: dy},
		NodePosition{ID: id, Clear: true},
		fmt.Sprintf("move %s", id))
}

func TestUndoRedoAppliesCorrectPayloads(t *testing.T) {
	l, a := newTestLog()
	l.Record(moveAction("N1", 10, 5))

	if !l.Undo() {
		t.Fatal("Undo() = false, want true")
	}
	if len(a.applied) != 1 {
		t.Fatalf("applied %d payloads, want 1", len(a.applied))
	}
	inv, ok := a.applied[0].(NodePosition)
	if !ok || !inv.Clear || inv.ID != "N1" {
		t.Errorf("undo applied %+v, want clear marker for N1", a.applied[0])
	}

	if !l.Redo() {
		t.Fatal("Redo() = false, want true")
	}
	fwd, ok := a.applied[1].(NodePosition)
	if !ok || fwd.Clear || fwd.DX != 10 || fwd.DY != 5 {
		t.Errorf("redo applied %+v, want forward move", a.applied[1])
	}
}

func TestUndoRedoOnEmptyStacks(t *testing.T) {
	l, a := newTestLog()

	if l.Undo() {
		t.Error("Undo() on empty log = true, want false")
	}
	if l.Redo() {
		t.Error("Redo() on empty log = true, want false")
	}
	if len(a.applied) != 0 {
		t.Errorf("applied %d payloads, want 0", len(a.applied))
	}
}

func TestRecordClearsRedoStack(t *testing.T) {
	l, _ := newTestLog()
	l.Record(moveAction("A", 1, 1))
	l.Record(moveAction("B", 2, 2))
	l.Undo()

	if !l.CanRedo() {
		t.Fatal("CanRedo() = false after undo, want true")
	}

	l.Record(moveAction("C", 3, 3))
	if l.CanRedo() {
		t.Error("CanRedo() = true after record, want false")
	}
	if l.RedoDepth() != 0 {
		t.Errorf("RedoDepth() = %d, want 0", l.RedoDepth())
	}
}

func TestStackBound(t *testing.T) {
	l, _ := newTestLog()
	const extra = 7

	for i := 0; i < MaxStackSize+extra; i++ {
		l.Record(moveAction(fmt.Sprintf("N%d", i), float64(i), 0))
	}

	if l.Depth() != MaxStackSize {
		t.Fatalf("Depth() = %d, want %d", l.Depth(), MaxStackSize)
	}

	// The oldest `extra` actions must be gone: the bottom of the stack is
	// now the (extra+1)th recorded action.
	actions := l.Actions()
	if got, want := actions[0].Description, fmt.Sprintf("move N%d", extra); got != want {
		t.Errorf("oldest surviving action = %q, want %q", got, want)
	}
	if got, want := actions[len(actions)-1].Description, fmt.Sprintf("move N%d", MaxStackSize+extra-1); got != want {
		t.Errorf("newest action = %q, want %q", got, want)
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	l, a := newTestLog()
	const n = 5

	for i := 0; i < n; i++ {
		l.Record(moveAction(fmt.Sprintf("N%d", i), float64(i), float64(i)))
	}

	for i := 0; i < n; i++ {
		if !l.Undo() {
			t.Fatalf("Undo() #%d = false, want true", i+1)
		}
	}
	if l.CanUndo() {
		t.Error("CanUndo() = true after undoing everything, want false")
	}

	for i := 0; i < n; i++ {
		if !l.Redo() {
			t.Fatalf("Redo() #%d = false, want true", i+1)
		}
	}
	if l.CanRedo() {
		t.Error("CanRedo() = true after redoing everything, want false")
	}
	if l.Depth() != n {
		t.Errorf("Depth() = %d, want %d", l.Depth(), n)
	}

	// Inverses must have been applied newest-first, forwards oldest-first.
	if len(a.applied) != 2*n {
		t.Fatalf("applied %d payloads, want %d", len(a.applied), 2*n)
	}
	firstInverse := a.applied[0].(NodePosition)
	if firstInverse.ID != fmt.Sprintf("N%d", n-1) {
		t.Errorf("first undo hit %s, want N%d", firstInverse.ID, n-1)
	}
	firstForward := a.applied[n].(NodePosition)
	if firstForward.ID != "N0" {
		t.Errorf("first redo hit %s, want N0", firstForward.ID)
	}
}

func TestNotifications(t *testing.T) {
	l, _ := newTestLog()

	var states []StackState
	l.Notify(func(s StackState) { states = append(states, s) })

	l.Record(moveAction("A", 1, 1)) // {true, false}
	l.Undo()                        // {false, true}
	l.Redo()                        // {true, false}
	l.Clear()                       // {false, false}

	want := []StackState{
		{CanUndo: true, CanRedo: false},
		{CanUndo: false, CanRedo: true},
		{CanUndo: true, CanRedo: false},
		{CanUndo: false, CanRedo: false},
	}
	if len(states) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(states), len(want))
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, states[i], want[i])
		}
	}
}

func TestClear(t *testing.T) {
	l, _ := newTestLog()
	l.Record(moveAction("A", 1, 1))
	l.Record(moveAction("B", 2, 2))
	l.Undo()

	l.Clear()
	if l.CanUndo() || l.CanRedo() {
		t.Error("Clear() left stacks non-empty")
	}
}

func TestNewActionPopulatesIdentity(t *testing.T) {
	a := NewAction(TypeFlowAdd, FlowAdd{Source: "A", Target: "B", Value: 1},
		FlowDelete{Source: "A", Target: "B"}, "add flow")
	if a.ID == "" {
		t.Error("NewAction left ID empty")
	}
	if a.Timestamp.IsZero() {
		t.Error("NewAction left Timestamp zero")
	}
	b := NewAction(TypeFlowAdd, nil, nil, "other")
	if a.ID == b.ID {
		t.Error("NewAction produced duplicate IDs")
	}
}

func TestSetMaxSizeEvictsImmediately(t *testing.T) {
	l, _ := newTestLog()
	for i := 0; i < 10; i++ {
		l.Record(moveAction("N", float64(i), 0))
	}

	l.SetMaxSize(3)
	if got := l.Depth(); got != 3 {
		t.Fatalf("Depth() = %d after SetMaxSize(3), want 3", got)
	}

	// The bound is clamped to the built-in range.
	l.SetMaxSize(0)
	if got := l.Depth(); got != 1 {
		t.Errorf("Depth() = %d after SetMaxSize(0), want 1", got)
	}
	l.SetMaxSize(MaxStackSize + 100)
	l.Record(moveAction("N", 99, 0))
	if got := l.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}
}
