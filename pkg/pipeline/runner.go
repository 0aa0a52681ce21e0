package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowscope/flowscope/pkg/cache"
	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/render"
	"github.com/flowscope/flowscope/pkg/render/nodelink"
)

// Runner renders sessions into artifacts with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store render results. Multiple goroutines can safely use the same
// Runner with different sessions.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Runner{
		Cache:  c,
		Logger: defaultLogger(logger),
	}
}

// Execute renders all requested formats from the session.
func (r *Runner) Execute(ctx context.Context, sess *editor.Session, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	d := sess.Diagram()
	result := &Result{
		Artifacts: make(map[string][]byte),
		Stats: Stats{
			NodeCount: len(d.Nodes),
			FlowCount: len(d.Flows),
		},
		CacheInfo: CacheInfo{RenderHit: true},
	}

	start := time.Now()
	for _, format := range opts.Formats {
		data, hit, err := r.renderFormat(ctx, sess, format, opts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		result.Artifacts[format] = data
		if format == FormatNodeLink && !hit {
			result.CacheInfo.RenderHit = false
		}
	}
	result.Stats.RenderTime = time.Since(start)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"nodes", result.Stats.NodeCount,
		"cached", result.CacheInfo.RenderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// renderFormat produces one artifact. The bool reports a cache hit and
// is only meaningful for cacheable formats.
func (r *Runner) renderFormat(ctx context.Context, sess *editor.Session, format string, opts Options) ([]byte, bool, error) {
	switch format {
	case FormatSVG:
		return render.SVG(sess), false, nil

	case FormatDOT:
		dot := nodelink.ToDOT(sess.Diagram(), nodelink.Options{Detailed: opts.Detailed})
		return []byte(dot), false, nil

	case FormatNodeLink:
		dot := nodelink.ToDOT(sess.Diagram(), nodelink.Options{Detailed: opts.Detailed})
		return r.renderNodelink(ctx, dot, opts.Refresh)

	default:
		return nil, false, fmt.Errorf("unknown format %q", format)
	}
}

// renderNodelink runs Graphviz, serving from cache when the exact same
// DOT text was rendered before.
func (r *Runner) renderNodelink(ctx context.Context, dot string, refresh bool) ([]byte, bool, error) {
	key := cache.ArtifactKey(FormatNodeLink, []byte(dot))

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			return data, true, nil
		}
	}

	data, err := nodelink.RenderSVG(dot)
	if err != nil {
		return nil, false, err
	}
	_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
	return data, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
