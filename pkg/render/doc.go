// Package render turns an editor session into visual output.
//
// # Overview
//
// Renderers are read-only collaborators of the editor: they consume final
// positions through [editor.Session.FinalPosition] and
// [editor.Session.FinalLabelPosition] and never look at base positions or
// overlay entries directly, so manual repositioning and undo/redo are
// reflected automatically.
//
//   - [SVG] renders the flow diagram itself: node bars, flow ribbons,
//     and labels at their final positions.
//   - The [nodelink] subpackage exports a structural node-link view of
//     the same diagram via Graphviz DOT.
//
// [nodelink]: github.com/flowscope/flowscope/pkg/render/nodelink
package render
