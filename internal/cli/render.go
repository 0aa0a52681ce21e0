package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowscope/flowscope/pkg/cache"
	"github.com/flowscope/flowscope/pkg/pipeline"
)

func newRenderCmd() *cobra.Command {
	var (
		format  string
		output  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "render <diagram.json>",
		Short: "Render a flow diagram to SVG or Graphviz",
		Long: `Render produces visual output for a diagram. The overlay sidecar next to
the file (written by the edit command) is applied, so manual positioning
carries into the output.

Formats:
  svg       flow view: node bars, proportional ribbons, labels (default)
  dot       structural node-link view as Graphviz DOT text
  nodelink  structural node-link view rendered to SVG via Graphviz

Graphviz output is cached under the user cache directory; pass --refresh
to force a re-render.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())
			path := args[0]

			sess, err := openSession(path, cfg, logger)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(newRenderCache(logger), logger)
			defer runner.Close()

			prog := newProgress(logger)
			var sp *Spinner
			if format == pipeline.FormatNodeLink {
				sp = newSpinner("rendering with graphviz")
				sp.Start()
			}
			res, err := runner.Execute(cmd.Context(), sess, pipeline.Options{
				Formats:  []string{format},
				Detailed: format == pipeline.FormatDOT,
				Refresh:  refresh,
			})
			if sp != nil {
				sp.Stop()
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = outputPath(path, format)
			}
			if err := os.WriteFile(output, res.Artifacts[format], 0644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			prog.done(fmt.Sprintf("Rendered %d nodes", res.Stats.NodeCount))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: svg, dot, nodelink")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default derived from input)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the render cache")
	return cmd
}

// newRenderCache opens the on-disk artifact cache, falling back to no
// caching when the cache directory is unavailable.
func newRenderCache(logger interface{ Warn(msg any, kv ...any) }) cache.Cache {
	dir, err := os.UserCacheDir()
	if err != nil {
		logger.Warn("cache directory unavailable, caching disabled", "error", err)
		return cache.NewNullCache()
	}
	c, err := cache.NewFileCache(filepath.Join(dir, "flowscope"))
	if err != nil {
		logger.Warn("cache directory unavailable, caching disabled", "error", err)
		return cache.NewNullCache()
	}
	return c
}

func outputPath(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	switch format {
	case pipeline.FormatDOT:
		return base + ".dot"
	case pipeline.FormatNodeLink:
		return base + ".nodelink.svg"
	default:
		return base + ".svg"
	}
}
