package diagram

import (
	"fmt"
	"slices"
)

// =============================================================================
// Constants
// =============================================================================

// Element types used in property-change edits and API payloads.
const (
	ElementNode = "node"
	ElementFlow = "flow"
)

// Styling bounds enforced by the clamp helpers.
const (
	MinOpacity = 0.0
	MaxOpacity = 1.0
	MinMargin  = 0.0
	MaxMargin  = 500.0
)

// =============================================================================
// Diagram - Canonical Serialization Format
// =============================================================================

// Diagram is the canonical serialization format for flow diagrams.
// Used for files, API responses, and document storage.
type Diagram struct {
	Title string `json:"title,omitempty" bson:"title,omitempty"`
	Nodes []Node `json:"nodes" bson:"nodes"`
	Flows []Flow `json:"flows" bson:"flows"`
}

// Node is a named stage in the flow diagram. The name doubles as the
// node's identifier and must be unique within a diagram.
type Node struct {
	Name    string  `json:"name" bson:"name"`
	Color   string  `json:"color,omitempty" bson:"color,omitempty"`
	Opacity float64 `json:"opacity,omitempty" bson:"opacity,omitempty"`
}

// Flow is a directed, weighted connection between two nodes.
type Flow struct {
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Value  float64 `json:"value" bson:"value"`
	Color  string  `json:"color,omitempty" bson:"color,omitempty"`
}

// =============================================================================
// Lookups
// =============================================================================

// NodeIndex returns the index of the named node, or -1 if absent.
func (d *Diagram) NodeIndex(name string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.Name == name })
}

// FindNode returns the named node, or nil if absent.
func (d *Diagram) FindNode(name string) *Node {
	if i := d.NodeIndex(name); i >= 0 {
		return &d.Nodes[i]
	}
	return nil
}

// FlowIndex returns the index of the source→target flow, or -1 if absent.
func (d *Diagram) FlowIndex(source, target string) int {
	return slices.IndexFunc(d.Flows, func(f Flow) bool {
		return f.Source == source && f.Target == target
	})
}

// FindFlow returns the source→target flow, or nil if absent.
func (d *Diagram) FindFlow(source, target string) *Flow {
	if i := d.FlowIndex(source, target); i >= 0 {
		return &d.Flows[i]
	}
	return nil
}

// Throughput returns the larger of the total inbound and total outbound
// flow value for the named node. Layout uses this to size node bars.
func (d *Diagram) Throughput(name string) float64 {
	var in, out float64
	for _, f := range d.Flows {
		if f.Target == name {
			in += f.Value
		}
		if f.Source == name {
			out += f.Value
		}
	}
	return max(in, out)
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode appends a node. Returns an error for an empty or duplicate name.
func (d *Diagram) AddNode(n Node) error {
	if n.Name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if d.FindNode(n.Name) != nil {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	d.Nodes = append(d.Nodes, n)
	return nil
}

// RemoveNode deletes the named node and every flow touching it.
// Returns false if the node does not exist.
func (d *Diagram) RemoveNode(name string) bool {
	i := d.NodeIndex(name)
	if i < 0 {
		return false
	}
	d.Nodes = slices.Delete(d.Nodes, i, i+1)
	d.Flows = slices.DeleteFunc(d.Flows, func(f Flow) bool {
		return f.Source == name || f.Target == name
	})
	return true
}

// AddFlow appends a flow between two existing nodes. Missing endpoints are
// created implicitly so that hand-written files can list flows alone.
// Returns an error for a non-positive value, a self-loop, or a duplicate.
func (d *Diagram) AddFlow(f Flow) error {
	if f.Source == "" || f.Target == "" {
		return fmt.Errorf("flow endpoints must not be empty")
	}
	if f.Source == f.Target {
		return fmt.Errorf("flow %q→%q is a self-loop", f.Source, f.Target)
	}
	if f.Value <= 0 {
		return fmt.Errorf("flow %q→%q value must be positive, got %v", f.Source, f.Target, f.Value)
	}
	if d.FindFlow(f.Source, f.Target) != nil {
		return fmt.Errorf("flow %q→%q already exists", f.Source, f.Target)
	}
	if d.FindNode(f.Source) == nil {
		d.Nodes = append(d.Nodes, Node{Name: f.Source})
	}
	if d.FindNode(f.Target) == nil {
		d.Nodes = append(d.Nodes, Node{Name: f.Target})
	}
	d.Flows = append(d.Flows, f)
	return nil
}

// RemoveFlow deletes the source→target flow. Returns the removed flow and
// true, or a zero flow and false if it does not exist.
func (d *Diagram) RemoveFlow(source, target string) (Flow, bool) {
	i := d.FlowIndex(source, target)
	if i < 0 {
		return Flow{}, false
	}
	f := d.Flows[i]
	d.Flows = slices.Delete(d.Flows, i, i+1)
	return f, true
}

// Validate checks structural integrity: unique non-empty node names,
// flow endpoints that exist, and positive flow values.
func (d *Diagram) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node name must not be empty")
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node %q", n.Name)
		}
		seen[n.Name] = true
	}
	for _, f := range d.Flows {
		if !seen[f.Source] {
			return fmt.Errorf("flow source %q is not a node", f.Source)
		}
		if !seen[f.Target] {
			return fmt.Errorf("flow target %q is not a node", f.Target)
		}
		if f.Value <= 0 {
			return fmt.Errorf("flow %q→%q value must be positive, got %v", f.Source, f.Target, f.Value)
		}
	}
	return nil
}

// Clone returns a deep copy. Useful for snapshotting editor state in tests.
func (d *Diagram) Clone() *Diagram {
	return &Diagram{
		Title: d.Title,
		Nodes: slices.Clone(d.Nodes),
		Flows: slices.Clone(d.Flows),
	}
}
