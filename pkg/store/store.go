// Package store persists diagram documents.
//
// A document bundles a diagram with its layout overlay so that manual
// repositioning survives across sessions. Three backends implement the
// [Store] interface:
//   - file: JSON files in a config directory, for CLI use
//   - redis: Redis-backed storage for multi-instance deployments
//   - mongo: MongoDB-backed storage with listing support
//
// All backends report load and save events through
// [observability.SetStoreHooks].
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flowscope/flowscope/pkg/diagram"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is the persisted unit: a diagram plus its layout overlay.
// Overlay holds the overlay store's serialized form and is applied with
// [overlay.Store.Deserialize] after loading.
type Document struct {
	ID        string           `json:"id" bson:"_id"`
	Title     string           `json:"title" bson:"title"`
	Diagram   *diagram.Diagram `json:"diagram" bson:"diagram"`
	Overlay   []byte           `json:"overlay,omitempty" bson:"overlay,omitempty"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
}

// NewDocument wraps a diagram in a fresh document with a generated ID.
func NewDocument(title string, d *diagram.Diagram) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.NewString(),
		Title:     title,
		Diagram:   d,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store is the interface for document storage backends.
type Store interface {
	// Get retrieves a document by ID. Returns ErrNotFound if it does not
	// exist.
	Get(ctx context.Context, id string) (*Document, error)

	// Put stores a document, overwriting any existing one with the same
	// ID. UpdatedAt is refreshed by the backend.
	Put(ctx context.Context, doc *Document) error

	// Delete removes a document. Deleting a missing document is not an
	// error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored documents.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
