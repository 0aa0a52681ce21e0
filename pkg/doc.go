// Package pkg provides the core libraries for Flowscope diagram editing.
//
// # Overview
//
// Flowscope edits and renders Sankey-style flow diagrams: nodes are stages,
// flows are weighted connections, and manual positioning survives relayout.
// The pkg directory is organized into four main areas:
//
//  1. [diagram] - The canonical diagram model and its JSON serialization
//  2. [layout] + [editor] - Automatic layout and the editing session
//     (overlay store, drag lifecycle, reversible action log)
//  3. [render] - Output generation (flow-view SVG, Graphviz node-link)
//  4. [store], [cache], [config] - Infrastructure (document persistence,
//     artifact caching, TOML configuration)
//
// # Architecture
//
// The typical data flow through Flowscope:
//
//	Diagram JSON (+ overlay sidecar)
//	         ↓
//	    [layout] package (Sankey base positions)
//	         ↓
//	    [editor] package (overrides, drags, undo/redo)
//	         ↓
//	    [render] / [pipeline] packages (SVG, DOT, node-link)
//	         ↓
//	    SVG/DOT output, HTTP API, document store
//
// # Quick Start
//
// Load a diagram, move a node, and render it:
//
//	import (
//	    "github.com/flowscope/flowscope/pkg/diagram"
//	    "github.com/flowscope/flowscope/pkg/editor"
//	    "github.com/flowscope/flowscope/pkg/layout"
//	    "github.com/flowscope/flowscope/pkg/render"
//	)
//
//	d, err := diagram.ReadFile("budget.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess, err := editor.NewSession(d, layout.NewSankey(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess.StartDrag(editor.KindNode, "Budget", 0, 0)
//	sess.UpdateDrag(40, -10)
//	sess.EndDrag()
//	svg := render.SVG(sess)
//
// Every committed edit lands in the session's action log, so a follow-up
// sess.Undo() puts the node back where layout left it.
package pkg
