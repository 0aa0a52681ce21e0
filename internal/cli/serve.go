package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/flowscope/flowscope/internal/server"
	"github.com/flowscope/flowscope/pkg/diagram"
)

func newServeCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve <diagram.json>",
		Short: "Serve the editor API over HTTP",
		Long: `Serve exposes one editing session over HTTP, with a WebSocket channel
pushing position and history updates to connected clients.

With --watch, the diagram file is watched for changes and reloaded into
the running session. Manual overrides survive the reload; the undo history
does not, because its entries reference the replaced structure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())
			path := args[0]

			sess, err := openSession(path, cfg, logger)
			if err != nil {
				return err
			}

			st, err := newStore(cmd.Context(), cfg)
			if err != nil {
				logger.Warn("document store unavailable, save disabled", "err", err)
				st = nil
			} else {
				defer st.Close(cmd.Context())
			}

			if addr == "" {
				addr = cfg.Server.Addr
			}

			if watch {
				stop, err := watchDiagram(path, sess, logger)
				if err != nil {
					return err
				}
				defer stop()
			}

			printInfo("serving %s", path)
			printDetail("http://%s", addr)
			return server.New(sess, st, logger).ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the diagram when the file changes")
	return cmd
}

// watchDiagram reloads the diagram into the session whenever the file
// changes on disk. Editors often replace files via rename, so the watch is
// on the directory and filtered to the target name.
func watchDiagram(path string, sess sessionReplacer, logger logWarner) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				d, err := diagram.ReadFile(abs)
				if err != nil {
					logger.Warn("reload skipped, diagram unreadable", "err", err)
					continue
				}
				if err := sess.ReplaceDiagram(d); err != nil {
					logger.Warn("reload rejected", "err", err)
					continue
				}
				logger.Info("diagram reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "err", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// Narrow interfaces so watchDiagram is testable without a live session.
type sessionReplacer interface {
	ReplaceDiagram(d *diagram.Diagram) error
}

type logWarner interface {
	Warn(msg any, kv ...any)
	Info(msg any, kv ...any)
}
