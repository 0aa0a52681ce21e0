// Package history implements the bounded, reversible action log behind
// undo and redo.
//
// The log is generic: it never interprets payloads itself. Every recorded
// action carries a forward payload and an inverse payload, and an injected
// [Applier] applies whichever side undo or redo selects. Because the same
// apply routine serves both directions, an edit and its reversal can never
// diverge.
//
// History is strictly linear. Recording a new action discards the redo
// stack, and the undo stack is bounded: once it holds [MaxStackSize]
// entries, the oldest action is evicted and becomes unrecoverable.
package history

import (
	"slices"

	"github.com/charmbracelet/log"
)

// MaxStackSize bounds the undo stack. Oldest actions are evicted first.
const MaxStackSize = 50

// Applier applies one payload to the editor state. Implementations must
// treat references to ids that no longer exist as silent no-ops: structural
// deletions racing with queued undo actions are expected in a live editor.
type Applier interface {
	Apply(p Payload)
}

// StackState describes undo/redo availability, emitted to listeners after
// every record, undo, redo, and clear.
type StackState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// =============================================================================
// Log
// =============================================================================

// Log is the undo/redo stack pair for one editor session.
// It is not safe for concurrent use; the owning session serializes access.
type Log struct {
	applier   Applier
	undo      []Action
	redo      []Action
	maxSize   int
	listeners []func(StackState)
	logger    *log.Logger
}

// NewLog creates an empty action log bound to an applier.
// A nil logger falls back to log.Default().
func NewLog(applier Applier, logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{
		applier: applier,
		maxSize: MaxStackSize,
		logger:  logger,
	}
}

// SetMaxSize adjusts the undo stack bound. The bound is clamped to
// [1, MaxStackSize]; excess oldest actions are evicted immediately.
func (l *Log) SetMaxSize(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxStackSize {
		n = MaxStackSize
	}
	l.maxSize = n
	if len(l.undo) > l.maxSize {
		l.undo = slices.Delete(l.undo, 0, len(l.undo)-l.maxSize)
		l.notify()
	}
}

// Notify registers a listener for stack-state changes. Listeners are
// invoked synchronously, in registration order.
func (l *Log) Notify(fn func(StackState)) {
	l.listeners = append(l.listeners, fn)
}

// Record pushes an action onto the undo stack, discards the redo stack,
// and enforces the stack bound. It does not apply the action: callers
// record after performing the edit through the same mutation entry points
// that Apply uses.
func (l *Log) Record(a Action) {
	l.undo = append(l.undo, a)
	if len(l.undo) > l.maxSize {
		evicted := len(l.undo) - l.maxSize
		l.undo = slices.Delete(l.undo, 0, evicted)
		l.logger.Debug("undo stack bound reached", "evicted", evicted)
	}
	l.redo = l.redo[:0]
	l.logger.Debug("action recorded", "type", a.Type, "description", a.Description)
	l.notify()
}

// Undo pops the most recent action, applies its inverse payload, and moves
// it to the redo stack. Returns false if there is nothing to undo.
func (l *Log) Undo() bool {
	if len(l.undo) == 0 {
		return false
	}
	a := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	l.applier.Apply(a.Inverse)
	l.redo = append(l.redo, a)
	l.logger.Debug("undo", "type", a.Type, "description", a.Description)
	l.notify()
	return true
}

// Redo pops the most recently undone action, applies its forward payload,
// and moves it back to the undo stack. Returns false if there is nothing
// to redo.
func (l *Log) Redo() bool {
	if len(l.redo) == 0 {
		return false
	}
	a := l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	l.applier.Apply(a.Forward)
	l.undo = append(l.undo, a)
	l.logger.Debug("redo", "type", a.Type, "description", a.Description)
	l.notify()
	return true
}

// Clear empties both stacks. Used on session reset.
func (l *Log) Clear() {
	l.undo = l.undo[:0]
	l.redo = l.redo[:0]
	l.notify()
}

// CanUndo reports whether the undo stack is non-empty.
func (l *Log) CanUndo() bool { return len(l.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (l *Log) CanRedo() bool { return len(l.redo) > 0 }

// Depth returns the undo stack depth.
func (l *Log) Depth() int { return len(l.undo) }

// RedoDepth returns the redo stack depth.
func (l *Log) RedoDepth() int { return len(l.redo) }

// State returns the current stack state.
func (l *Log) State() StackState {
	return StackState{CanUndo: l.CanUndo(), CanRedo: l.CanRedo()}
}

// Actions returns a copy of the undo stack, oldest first. Used by history
// listings in the API and TUI.
func (l *Log) Actions() []Action {
	return slices.Clone(l.undo)
}

func (l *Log) notify() {
	state := l.State()
	for _, fn := range l.listeners {
		fn(state)
	}
}
