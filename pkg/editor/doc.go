// Package editor implements the interactive editing core: one session
// object that owns the overlay store, the undo/redo log, the base-position
// snapshot, and the single in-flight drag interaction.
//
// # Architecture
//
// A [Session] wires four collaborators together:
//
//   - pkg/editor/overlay holds user-applied position overrides
//   - pkg/editor/history holds the bounded reversible action log
//   - pkg/layout recomputes automatic base positions on demand
//   - the caller (TUI, HTTP server, renderer) reads final positions
//
// Base positions are ephemeral: every recompute replaces the snapshot
// wholesale. Final positions are derived on read: a node's final position
// is its base plus its offset override; a label's final position is its
// absolute override, or its base when none exists. The session never
// computes geometry itself, so the layout engine remains the single
// geometry authority.
//
// # Editing and undo
//
// Every edit — drag commit, property change, structural add or delete —
// goes through one type-specific apply routine and records one action
// carrying a forward and an inverse payload. Undo applies the inverse,
// redo the forward, through the very same routine, so an edit and its
// reversal cannot diverge.
//
// # Concurrency
//
// The original interaction model is a single-threaded UI event loop. A
// session serializes all entry points with an internal mutex so the HTTP
// front end can share one session across handlers; the exactly-one-drag
// and one-action-per-commit invariants hold either way.
package editor
