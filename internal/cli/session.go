package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/flowscope/flowscope/pkg/config"
	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/store"
)

// overlaySidecar is the path of the overlay file kept next to a diagram
// file. It preserves manual repositioning for file-based workflows that
// bypass the document store.
func overlaySidecar(diagramPath string) string {
	return diagramPath + ".overlay.json"
}

// newEngine builds the layout engine from configuration.
func newEngine(cfg config.Config) *layout.Sankey {
	eng := layout.NewSankey()
	eng.Width = cfg.Layout.Width
	eng.Height = cfg.Layout.Height
	eng.Margin = cfg.Layout.Margin
	return eng
}

// openSession loads a diagram file and builds a configured session,
// applying the overlay sidecar when one exists.
func openSession(path string, cfg config.Config, logger *log.Logger) (*editor.Session, error) {
	d, err := diagram.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load diagram: %w", err)
	}

	s, err := editor.NewSession(d, newEngine(cfg), logger)
	if err != nil {
		return nil, err
	}
	s.SetHistoryDepth(cfg.Editor.HistoryDepth)
	s.SetSnapStep(cfg.Editor.SnapStep)

	if data, err := os.ReadFile(overlaySidecar(path)); err == nil {
		if !s.Overlay().Deserialize(data) {
			logger.Warn("overlay sidecar rejected, using automatic layout", "path", overlaySidecar(path))
		} else {
			logger.Debug("overlay sidecar applied", "entries", s.Overlay().Len())
		}
	}
	return s, nil
}

// saveOverlay writes the session's overlay next to the diagram file.
// An empty overlay removes the sidecar instead of writing an empty one.
func saveOverlay(s *editor.Session, diagramPath string) error {
	path := overlaySidecar(diagramPath)
	if s.Overlay().Len() == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove overlay sidecar: %w", err)
		}
		return nil
	}
	data, err := s.Overlay().Serialize()
	if err != nil {
		return fmt.Errorf("serialize overlay: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write overlay sidecar: %w", err)
	}
	return nil
}

// writeOverlaySidecar writes raw overlay bytes next to a diagram file.
func writeOverlaySidecar(diagramPath string, data []byte) error {
	if err := os.WriteFile(overlaySidecar(diagramPath), data, 0600); err != nil {
		return fmt.Errorf("write overlay sidecar: %w", err)
	}
	return nil
}

// newStore builds the configured document store backend.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.Store.Mongo.URI,
			Database:   cfg.Store.Mongo.Database,
			Collection: cfg.Store.Mongo.Collection,
		})
	default:
		return store.NewFileStore(cfg.Store.File.Dir)
	}
}
