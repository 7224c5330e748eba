package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/thermobook/internal/cache"
	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/store"
	"github.com/ppiankov/thermobook/internal/util"
)

// Store is the persistence collaborator of the write policy
type Store interface {
	Exists(ctx context.Context, cas int64) (bool, error)
	Insert(ctx context.Context, s *model.Substance) error
}

// Skip reasons reported when a record is not persisted
const (
	SkipNoStore   = "no store"
	SkipNoImage   = "no image"
	SkipDuplicate = "already stored"
	SkipNoData    = "no substance"
)

// Result is the outcome of processing one identifier
type Result struct {
	Identifier string
	URL        string
	Walk       *WalkResult
	Substance  *model.Substance
	Stored     bool
	SkipReason string
}

// Pipeline resolves identifiers, walks their pages and applies the write policy
type Pipeline struct {
	walker      *Walker
	store       Store
	baseURL     string
	walkTimeout time.Duration
	logger      *slog.Logger
}

// NewPipeline wires the fetch layer from cfg. st may be nil to disable persistence.
// extra options are applied after the configured ones (e.g. WithLimiter).
func NewPipeline(cfg *model.Config, st Store, logger *slog.Logger, extra ...FetcherOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := NewFetcher(cfg.HTTP, append(ConfiguredOptions(cfg, logger), extra...)...)

	return NewPipelineWithWalker(NewWalker(fetcher.FetchWithRetry, logger), st, cfg.Site.BaseURL, cfg.Walk.Timeout, logger)
}

// ConfiguredOptions returns the logger, cache and robots options enabled by cfg
func ConfiguredOptions(cfg *model.Config, logger *slog.Logger) []FetcherOption {
	opts := []FetcherOption{WithLogger(logger)}
	if c := cache.FromConfig(cfg.Cache); c != nil {
		opts = append(opts, WithCache(c))
	}
	if cfg.Robots.Enabled {
		opts = append(opts, WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, nil, logger)))
	}
	return opts
}

// NewPipelineWithWalker builds a pipeline around an existing walker
func NewPipelineWithWalker(w *Walker, st Store, baseURL string, walkTimeout time.Duration, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = model.DefaultBaseURL
	}
	return &Pipeline{
		walker:      w,
		store:       st,
		baseURL:     baseURL,
		walkTimeout: walkTimeout,
		logger:      logger,
	}
}

// Process walks the substance named by identifier (name, CAS number or URL)
// and persists the record when the write policy allows it.
func (p *Pipeline) Process(ctx context.Context, identifier string) (*Result, error) {
	rootURL := model.RootURL(p.baseURL, identifier)
	result := &Result{Identifier: identifier, URL: rootURL}

	walkCtx := ctx
	if p.walkTimeout > 0 {
		var cancel context.CancelFunc
		walkCtx, cancel = context.WithTimeout(ctx, p.walkTimeout)
		defer cancel()
	}

	walk, err := p.walker.Walk(walkCtx, rootURL)
	if err != nil {
		return result, err
	}
	result.Walk = walk
	result.Substance = walk.Substance

	if walk.Substance == nil {
		result.SkipReason = SkipNoData
		return result, nil
	}

	stored, reason, err := p.Persist(ctx, walk.Substance)
	if err != nil {
		return result, fmt.Errorf("persist: %w", err)
	}
	result.Stored = stored
	result.SkipReason = reason
	return result, nil
}

// Persist inserts s only if it has a structure image and its CAS is not stored yet.
// Skips are logged no-ops and report their reason.
func (p *Pipeline) Persist(ctx context.Context, s *model.Substance) (bool, string, error) {
	if p.store == nil {
		return false, SkipNoStore, nil
	}
	if !s.HasImage() {
		p.logger.Info("skipping insert", "cas", s.CAS, "reason", SkipNoImage)
		return false, SkipNoImage, nil
	}

	exists, err := p.store.Exists(ctx, s.CAS)
	if err != nil {
		return false, "", fmt.Errorf("exists: %w", err)
	}
	if exists {
		p.logger.Info("skipping insert", "cas", s.CAS, "reason", SkipDuplicate)
		return false, SkipDuplicate, nil
	}

	if err := p.store.Insert(ctx, s); err != nil {
		// Lost a race against a concurrent walk of the same substance
		if errors.Is(err, store.ErrDuplicate) {
			p.logger.Info("skipping insert", "cas", s.CAS, "reason", SkipDuplicate)
			return false, SkipDuplicate, nil
		}
		return false, "", fmt.Errorf("insert: %w", err)
	}
	p.logger.Info("stored substance", "cas", s.CAS, "name", s.Name)
	return true, "", nil
}
