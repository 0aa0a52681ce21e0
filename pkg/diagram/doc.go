// Package diagram defines the canonical flow-diagram model for Flowscope.
//
// A diagram is a set of named nodes connected by weighted flows. The types
// in this package are the serialization format used for files, API
// responses, and document storage: import → edit → export → re-import
// produces identical results.
//
// Geometry does not live here. Positions are computed by pkg/layout and
// adjusted by user overrides in pkg/editor/overlay; this package only
// carries structure and styling attributes.
package diagram
