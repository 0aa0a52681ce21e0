// Package pipeline turns an editing session into rendered artifacts.
//
// This package implements the load → layout → render flow shared by the
// CLI and the HTTP server. The session already carries the laid-out
// diagram with overrides applied; the pipeline's job is producing output
// formats from it and caching the expensive ones.
//
// # Architecture
//
// A Runner holds a cache and a logger and renders on demand:
//
//	runner := pipeline.NewRunner(fileCache, logger)
//	result, err := runner.Execute(ctx, sess, pipeline.Options{
//	    Formats: []string{"svg", "nodelink"},
//	})
//	svg := result.Artifacts["svg"]
//
// The flow-view SVG and DOT text are generated directly from session
// state and are never cached. The nodelink format shells into Graphviz,
// so its output is cached keyed by a hash of the exact DOT input.
package pipeline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Output formats supported by the pipeline.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatNodeLink = "nodelink"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatDOT:      true,
	FormatNodeLink: true,
}

// Options controls a pipeline run.
type Options struct {
	// Formats lists the outputs to produce. Defaults to ["svg"].
	Formats []string

	// Detailed includes throughput values in node-link labels.
	Detailed bool

	// Refresh bypasses the cache and re-renders everything.
	Refresh bool
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	for _, f := range o.Formats {
		if !ValidFormats[f] {
			return fmt.Errorf("unknown format %q (want svg, dot, or nodelink)", f)
		}
	}
	return nil
}

// Stats captures timing and size information for a pipeline run.
type Stats struct {
	RenderTime time.Duration
	NodeCount  int
	FlowCount  int
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	// RenderHit is true when every cacheable artifact came from cache.
	// Only the nodelink format is cacheable.
	RenderHit bool
}

// Result holds the outputs of a pipeline run.
type Result struct {
	// Artifacts maps format name to rendered bytes.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

func defaultLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
