// Package layout computes automatic positions for flow diagrams.
//
// The editor treats layout as an external collaborator: it only ever calls
// [Engine.Compute] and reads the resulting id→position mapping. Everything
// downstream (override merging, rendering) works exclusively with that
// mapping, so the algorithm can be swapped without touching the editor.
//
// The default [Sankey] engine assigns nodes to vertical layers by longest
// path from the sources, sizes each node bar by its flow throughput, and
// places labels beside their nodes. Output is deterministic for a given
// diagram.
package layout
