package diagram

import (
	"path/filepath"
	"reflect"
	"testing"
)

func sample() *Diagram {
	return &Diagram{
		Title: "Budget",
		Nodes: []Node{
			{Name: "Wages"},
			{Name: "Budget"},
			{Name: "Rent"},
			{Name: "Savings"},
		},
		Flows: []Flow{
			{Source: "Wages", Target: "Budget", Value: 2000},
			{Source: "Budget", Target: "Rent", Value: 1200},
			{Source: "Budget", Target: "Savings", Value: 800},
		},
	}
}

func TestValidate(t *testing.T) {
	d := sample()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Diagram)
	}{
		{"empty node name", func(d *Diagram) { d.Nodes[0].Name = "" }},
		{"duplicate node", func(d *Diagram) { d.Nodes[1].Name = "Wages" }},
		{"missing source", func(d *Diagram) { d.Flows[0].Source = "Ghost" }},
		{"missing target", func(d *Diagram) { d.Flows[0].Target = "Ghost" }},
		{"zero value", func(d *Diagram) { d.Flows[0].Value = 0 }},
		{"negative value", func(d *Diagram) { d.Flows[0].Value = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sample()
			tt.mutate(d)
			if err := d.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestAddFlowCreatesMissingNodes(t *testing.T) {
	d := &Diagram{}
	if err := d.AddFlow(Flow{Source: "A", Target: "B", Value: 10}); err != nil {
		t.Fatalf("AddFlow() = %v, want nil", err)
	}
	if d.FindNode("A") == nil || d.FindNode("B") == nil {
		t.Error("AddFlow should create missing endpoint nodes")
	}
	if err := d.AddFlow(Flow{Source: "A", Target: "B", Value: 5}); err == nil {
		t.Error("duplicate AddFlow = nil, want error")
	}
	if err := d.AddFlow(Flow{Source: "A", Target: "A", Value: 5}); err == nil {
		t.Error("self-loop AddFlow = nil, want error")
	}
}

func TestRemoveNodeDropsTouchingFlows(t *testing.T) {
	d := sample()
	if !d.RemoveNode("Budget") {
		t.Fatal("RemoveNode(Budget) = false, want true")
	}
	if len(d.Flows) != 0 {
		t.Errorf("flows after removing hub = %d, want 0", len(d.Flows))
	}
	if d.RemoveNode("Budget") {
		t.Error("second RemoveNode(Budget) = true, want false")
	}
}

func TestThroughput(t *testing.T) {
	d := sample()
	// Budget: 2000 in, 2000 out.
	if got := d.Throughput("Budget"); got != 2000 {
		t.Errorf("Throughput(Budget) = %v, want 2000", got)
	}
	if got := d.Throughput("Rent"); got != 1200 {
		t.Errorf("Throughput(Rent) = %v, want 1200", got)
	}
	if got := d.Throughput("Ghost"); got != 0 {
		t.Errorf("Throughput(Ghost) = %v, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	d := sample()
	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if !reflect.DeepEqual(d, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, d)
	}
}

func TestReadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := WriteFile(&Diagram{
		Nodes: []Node{{Name: "A"}},
		Flows: []Flow{{Source: "A", Target: "Ghost", Value: 1}},
	}, path); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile of invalid diagram = nil, want error")
	}
}

func TestRemoveFlow(t *testing.T) {
	d := sample()
	f, ok := d.RemoveFlow("Budget", "Rent")
	if !ok {
		t.Fatal("RemoveFlow = false, want true")
	}
	if f.Value != 1200 {
		t.Errorf("removed flow value = %v, want 1200", f.Value)
	}
	if _, ok := d.RemoveFlow("Budget", "Rent"); ok {
		t.Error("second RemoveFlow = true, want false")
	}
}
