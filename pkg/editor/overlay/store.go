// Package overlay stores user-applied position and dimension overrides
// independently of the automatically computed layout.
//
// The store is the single source of truth for manual corrections. Node
// entries are offsets relative to the node's last computed base position,
// so re-running the layout with different data keeps them meaningful.
// Label entries are absolute positions: labels may be placed anywhere
// regardless of their node. Label dimensions have their own lifecycle.
//
// All setters are best-effort: invalid input is rejected with a debug log
// and a false return, never a panic, and never corrupts existing entries.
package overlay

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/flowscope/flowscope/pkg/errors"
)

// =============================================================================
// Entry Types
// =============================================================================

// Offset is a node override, relative to the node's base position.
type Offset struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Point is an absolute label position override.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is a label box size override.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// =============================================================================
// Store
// =============================================================================

// Store holds all position and dimension overrides for one diagram.
// It is not safe for concurrent use; the owning editor session serializes
// access.
type Store struct {
	nodeOffsets     map[string]Offset
	labelPositions  map[string]Point
	labelDimensions map[string]Dimensions
	logger          *log.Logger
}

// NewStore creates an empty overlay store.
// A nil logger falls back to log.Default().
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		nodeOffsets:     make(map[string]Offset),
		labelPositions:  make(map[string]Point),
		labelDimensions: make(map[string]Dimensions),
		logger:          logger,
	}
}

// validate rejects empty ids and non-finite values. Rejections are logged
// at debug level: this is a best-effort UI data path, not an API boundary.
func (s *Store) validate(op, id string, vals ...float64) bool {
	if err := errors.ValidateElementName(id); err != nil {
		s.logger.Debug("overlay rejected", "op", op, "err", err)
		return false
	}
	for _, v := range vals {
		if err := errors.ValidateCoordinate(v); err != nil {
			s.logger.Debug("overlay rejected", "op", op, "id", id, "err", err)
			return false
		}
	}
	return true
}

// SetNodeOffset inserts or replaces the offset override for a node.
// Returns false (and leaves the store unchanged) for invalid input.
func (s *Store) SetNodeOffset(id string, dx, dy float64) bool {
	if !s.validate("SetNodeOffset", id, dx, dy) {
		return false
	}
	s.nodeOffsets[id] = Offset{DX: dx, DY: dy}
	return true
}

// SetLabelPosition inserts or replaces the absolute position override for a label.
func (s *Store) SetLabelPosition(id string, x, y float64) bool {
	if !s.validate("SetLabelPosition", id, x, y) {
		return false
	}
	s.labelPositions[id] = Point{X: x, Y: y}
	return true
}

// SetLabelDimensions inserts or replaces the box size override for a label.
func (s *Store) SetLabelDimensions(id string, width, height float64) bool {
	if !s.validate("SetLabelDimensions", id, width, height) {
		return false
	}
	if width <= 0 || height <= 0 {
		s.logger.Debug("overlay rejected", "op", "SetLabelDimensions", "id", id,
			"width", width, "height", height)
		return false
	}
	s.labelDimensions[id] = Dimensions{Width: width, Height: height}
	return true
}

// NodeOffset returns the offset override for a node, or nil if absent.
func (s *Store) NodeOffset(id string) *Offset {
	if o, ok := s.nodeOffsets[id]; ok {
		return &o
	}
	return nil
}

// LabelPosition returns the absolute position override for a label, or nil if absent.
func (s *Store) LabelPosition(id string) *Point {
	if p, ok := s.labelPositions[id]; ok {
		return &p
	}
	return nil
}

// LabelDimensions returns the size override for a label, or nil if absent.
func (s *Store) LabelDimensions(id string) *Dimensions {
	if d, ok := s.labelDimensions[id]; ok {
		return &d
	}
	return nil
}

// ClearNodeOffset removes one node override. Unknown ids are a no-op.
func (s *Store) ClearNodeOffset(id string) { delete(s.nodeOffsets, id) }

// ClearLabelPosition removes one label position override.
func (s *Store) ClearLabelPosition(id string) { delete(s.labelPositions, id) }

// ClearLabelDimensions removes one label size override.
func (s *Store) ClearLabelDimensions(id string) { delete(s.labelDimensions, id) }

// ClearNodes removes all node offset overrides ("reset positions").
func (s *Store) ClearNodes() { clear(s.nodeOffsets) }

// ClearLabels removes all label position and dimension overrides ("reset labels").
func (s *Store) ClearLabels() {
	clear(s.labelPositions)
	clear(s.labelDimensions)
}

// ClearAll removes every override.
func (s *Store) ClearAll() {
	s.ClearNodes()
	s.ClearLabels()
}

// Len returns the total number of overrides across all categories.
func (s *Store) Len() int {
	return len(s.nodeOffsets) + len(s.labelPositions) + len(s.labelDimensions)
}

// NodeIDs returns the ids with node offset overrides, sorted.
func (s *Store) NodeIDs() []string { return sortedKeys(s.nodeOffsets) }

// LabelIDs returns the ids with label position overrides, sorted.
func (s *Store) LabelIDs() []string { return sortedKeys(s.labelPositions) }

// =============================================================================
// Snapshots
// =============================================================================

// Snapshot is a deep copy of the store contents, used for session reset
// and for asserting that cancelled interactions left no trace.
type Snapshot struct {
	nodeOffsets     map[string]Offset
	labelPositions  map[string]Point
	labelDimensions map[string]Dimensions
}

// Snapshot captures the current contents.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		nodeOffsets:     copyMap(s.nodeOffsets),
		labelPositions:  copyMap(s.labelPositions),
		labelDimensions: copyMap(s.labelDimensions),
	}
}

// Restore replaces the store contents with a snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.nodeOffsets = copyMap(snap.nodeOffsets)
	s.labelPositions = copyMap(snap.labelPositions)
	s.labelDimensions = copyMap(snap.labelDimensions)
}

// =============================================================================
// Serialization
//
// The wire format is three arrays of [id, value] pairs. Pairs keep the
// format diffable and let Deserialize skip individually malformed entries
// without losing the rest.
// =============================================================================

type payload struct {
	NodeOffsets     []json.RawMessage `json:"node_offsets"`
	LabelPositions  []json.RawMessage `json:"label_positions"`
	LabelDimensions []json.RawMessage `json:"label_dimensions"`
}

// Serialize encodes the store as JSON. Pair arrays are sorted by id so
// identical stores always serialize to identical bytes.
func (s *Store) Serialize() ([]byte, error) {
	p := payload{
		NodeOffsets:     encodePairs(s.nodeOffsets),
		LabelPositions:  encodePairs(s.labelPositions),
		LabelDimensions: encodePairs(s.labelDimensions),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serialize overlay: %w", err)
	}
	return data, nil
}

// Deserialize replaces the store contents with the decoded payload.
// Returns false and leaves the store untouched if the envelope is
// malformed. Individually malformed pairs are skipped with a warning.
func (s *Store) Deserialize(data []byte) bool {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("overlay deserialize failed", "err", err)
		return false
	}

	nodeOffsets := decodePairs[Offset](p.NodeOffsets, "node_offsets", []string{"dx", "dy"}, s.logger)
	labelPositions := decodePairs[Point](p.LabelPositions, "label_positions", []string{"x", "y"}, s.logger)
	labelDimensions := decodePairs[Dimensions](p.LabelDimensions, "label_dimensions", []string{"width", "height"}, s.logger)

	s.nodeOffsets = nodeOffsets
	s.labelPositions = labelPositions
	s.labelDimensions = labelDimensions
	return true
}

func encodePairs[V any](m map[string]V) []json.RawMessage {
	ids := sortedKeys(m)
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		pair, err := json.Marshal([2]any{id, m[id]})
		if err != nil {
			continue // unreachable for the concrete value types
		}
		out = append(out, pair)
	}
	return out
}

// decodePairs decodes one pair array, enforcing that every entry is a
// [id, value] pair whose value carries exactly the required numeric fields.
// Malformed entries are skipped, not fatal.
func decodePairs[V any](pairs []json.RawMessage, kind string, required []string, logger *log.Logger) map[string]V {
	out := make(map[string]V, len(pairs))
	for _, raw := range pairs {
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			logger.Warn("overlay entry skipped", "kind", kind, "reason", "not a pair")
			continue
		}
		var id string
		if err := json.Unmarshal(parts[0], &id); err != nil || id == "" {
			logger.Warn("overlay entry skipped", "kind", kind, "reason", "bad id")
			continue
		}
		// Decode into a float map first: catches non-numeric values and
		// missing fields that a direct struct decode would zero-fill.
		var fields map[string]float64
		if err := json.Unmarshal(parts[1], &fields); err != nil {
			logger.Warn("overlay entry skipped", "kind", kind, "id", id, "err", err)
			continue
		}
		if !hasFields(fields, required) {
			logger.Warn("overlay entry skipped", "kind", kind, "id", id, "reason", "missing fields")
			continue
		}
		var v V
		if err := json.Unmarshal(parts[1], &v); err != nil {
			logger.Warn("overlay entry skipped", "kind", kind, "id", id, "err", err)
			continue
		}
		out[id] = v
	}
	return out
}

func hasFields(fields map[string]float64, required []string) bool {
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
