// Package feedrules edits the FeedRulesConfig of one feed as a unit, with
// dirty detection against the config loaded at session start and an
// optimistic cache update that is rolled back when the save fails.
package feedrules

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/cache"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

// Section names as they appear in the persisted JSON.
const (
	SectionFilters              = "filters"
	SectionFieldMappings        = "fieldMappings"
	SectionFieldTransformations = "fieldTransformations"
	SectionCalculatedFields     = "calculatedFields"
	SectionShardRules           = "shardRules"
)

// FeedUpdater writes a feed's rules config. The API client implements it.
type FeedUpdater interface {
	UpdateFeedRules(ctx context.Context, feedKey string, cfg *models.FeedRulesConfig) (*models.Feed, error)
}

// Session holds the working copy of one feed's rules config.
type Session struct {
	mu       sync.Mutex
	feed     models.Feed
	snapshot *models.FeedRulesConfig
	current  *models.FeedRulesConfig
	cache    *cache.Cache
	logger   *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithCache makes Save update the cache entry of the feed optimistically.
func WithCache(c *cache.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession snapshots feed.Rules and starts editing a copy of it.
func NewSession(feed models.Feed, opts ...Option) *Session {
	s := &Session{
		feed:     feed,
		snapshot: feed.Rules.Clone(),
		current:  feed.Rules.Clone(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey is the cache entry holding the feed.
func CacheKey(feedKey string) string {
	return cache.Key("feeds", feedKey)
}

// Current returns a copy of the working config.
func (s *Session) Current() *models.FeedRulesConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Edit applies fn to the working config.
func (s *Session) Edit(fn func(cfg *models.FeedRulesConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.current)
}

// Reset discards edits and returns to the snapshot.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.snapshot.Clone()
}

// IsDirty reports whether the working config differs from the snapshot.
func (s *Session) IsDirty() bool {
	return len(s.DirtySections()) > 0
}

// DirtySections lists the sections that differ from the snapshot.
func (s *Session) DirtySections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dirty []string
	if !sameSection(s.snapshot.Filters, s.current.Filters) {
		dirty = append(dirty, SectionFilters)
	}
	if !sameSection(s.snapshot.FieldMappings, s.current.FieldMappings) {
		dirty = append(dirty, SectionFieldMappings)
	}
	if !sameSection(s.snapshot.FieldTransformations, s.current.FieldTransformations) {
		dirty = append(dirty, SectionFieldTransformations)
	}
	if !sameSection(s.snapshot.CalculatedFields, s.current.CalculatedFields) {
		dirty = append(dirty, SectionCalculatedFields)
	}
	if !sameSection(s.snapshot.ShardRules, s.current.ShardRules) {
		dirty = append(dirty, SectionShardRules)
	}
	return dirty
}

// Validate checks every filter and mapping of the working config.
func (s *Session) Validate() error {
	cfg := s.Current()
	var result *multierror.Error

	for i, f := range cfg.Filters {
		if err := validation.ValidateFilter(f); err != nil {
			result = multierror.Append(result, fmt.Errorf("filter %d: %w", i+1, err))
		}
	}
	for i, m := range cfg.FieldMappings {
		if m.Source == "" || m.Target == "" {
			result = multierror.Append(result, fmt.Errorf("field mapping %d: source and target are required", i+1))
		}
	}
	for i, c := range cfg.CalculatedFields {
		if c.Name == "" || c.Expression == "" {
			result = multierror.Append(result, fmt.Errorf("calculated field %d: name and expression are required", i+1))
		}
	}
	return result.ErrorOrNil()
}

// Save validates and writes the working config. The cached feed is updated
// before the call and restored if it fails. On success the written config
// becomes the new snapshot and the feed lists are invalidated.
func (s *Session) Save(ctx context.Context, updater FeedUpdater) (*models.Feed, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate feed rules: %w", err)
	}

	key := CacheKey(s.feed.Key)
	cfg := s.Current()

	var (
		prior    any
		hadPrior bool
	)
	if s.cache != nil {
		prior, hadPrior = s.cache.Get(key)
		optimistic := s.feed
		if cached, ok := prior.(*models.Feed); ok && cached != nil {
			optimistic = *cached
		}
		optimistic.Rules = cfg.Clone()
		s.cache.Set(key, &optimistic)
	}

	updated, err := updater.UpdateFeedRules(ctx, s.feed.Key, cfg)
	if err != nil {
		if s.cache != nil {
			if hadPrior {
				s.cache.Set(key, prior)
			} else {
				s.cache.Invalidate(key)
			}
		}
		s.logger.Warn("feed rules save failed, cache rolled back", "feed_key", s.feed.Key, "error", err)
		return nil, fmt.Errorf("save feed rules: %w", err)
	}

	// An empty 2xx body decodes to a zero feed; keep the loaded one then.
	s.mu.Lock()
	s.snapshot = cfg.Clone()
	if updated != nil && updated.Key != "" {
		s.feed = *updated
	}
	s.feed.Rules = cfg.Clone()
	saved := s.feed
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Invalidate("feeds")
		cached := saved
		s.cache.Set(key, &cached)
	}
	return &saved, nil
}

func sameSection[T any](a, b []T) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
