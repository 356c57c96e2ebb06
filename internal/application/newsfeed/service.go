// Package newsfeed runs the tariff news pipeline: periodic ingestion from
// RSS/Atom feeds into the news store, queries over stored items, retention
// cleanup and the live feed filtered by the current selection.
package newsfeed

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/feed"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
	"github.com/haebom/tariff/pkg/errors"
)

// ErrIngestRunning is returned when another ingestion holds the lock.
var ErrIngestRunning = errors.New(errors.ErrCodeServiceUnavailable, "news ingestion already running")

// Fetcher downloads feeds.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []feed.Result
	FetchRaw(ctx context.Context, url string) ([]byte, error)
}

// EventSink is told about ingested and purged items.
type EventSink interface {
	NewsIngested(ctx context.Context, items []news.Item) error
	NewsPurged(ctx context.Context, removed, retentionDays int, cutoff time.Time) error
}

// NopEventSink drops every event.
type NopEventSink struct{}

func (NopEventSink) NewsIngested(context.Context, []news.Item) error       { return nil }
func (NopEventSink) NewsPurged(context.Context, int, int, time.Time) error { return nil }

// Locker serialises ingestion across processes.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Cache holds the raw live feed document.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// Service defines the news operations.
type Service interface {
	Ingest(ctx context.Context) (*IngestResult, error)
	Query(ctx context.Context, params news.SearchParams) (*news.SearchResult, error)
	ByDate(ctx context.Context, day string) (*DayResult, error)
	BySource(ctx context.Context, source string) (*SourceResult, error)
	Cleanup(ctx context.Context, days int) (*CleanupResult, error)
	Live(ctx context.Context, keywords []string) (*LiveResult, error)
	LiveXML(ctx context.Context) ([]byte, error)
}

// Config tunes the service.
type Config struct {
	Feeds         []string
	FilteredFeeds []string
	LiveFeedURL   string
	PageSize      int
	RetentionDays int
	LiveCacheTTL  time.Duration
}

// Deps are the collaborators of the service.  Events, Lock and Cache are
// optional.
type Deps struct {
	Repo    news.Repository
	Fetcher Fetcher
	Events  EventSink
	Lock    Locker
	Cache   Cache
	Metrics *prometheus.AppMetrics
}

// FeedReport summarises one feed of an ingestion run.
type FeedReport struct {
	URL      string `json:"url"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

// IngestResult counts what an ingestion run did.  Processed counts items
// that passed validation and relevance filtering; New counts stored ones.
type IngestResult struct {
	Processed  int          `json:"processedItems"`
	New        int          `json:"newItems"`
	Duplicates int          `json:"duplicates"`
	Filtered   int          `json:"filtered"`
	Incomplete int          `json:"incomplete"`
	Feeds      []FeedReport `json:"feeds"`
	Timestamp  time.Time    `json:"timestamp"`
}

type DayResult struct {
	Date  string      `json:"date"`
	Count int         `json:"count"`
	Items []news.Item `json:"items"`
}

type SourceResult struct {
	Source           string      `json:"source"`
	Count            int         `json:"count"`
	Items            []news.Item `json:"items"`
	AvailableSources []string    `json:"availableSources"`
}

type CleanupResult struct {
	Removed    int       `json:"removedCount"`
	Days       int       `json:"days"`
	CutoffDate time.Time `json:"cutoffDate"`
	Timestamp  time.Time `json:"timestamp"`
}

// LiveResult is the live feed filtered by keywords.  Total counts the
// articles before filtering.
type LiveResult struct {
	Keywords []string       `json:"keywords"`
	Articles []news.Article `json:"articles"`
	Count    int            `json:"count"`
	Total    int            `json:"total"`
}

type serviceImpl struct {
	repo     news.Repository
	fetcher  Fetcher
	events   EventSink
	lock     Locker
	cache    Cache
	metrics  *prometheus.AppMetrics
	cfg      Config
	filtered map[string]bool
	logger   logging.Logger
	now      func() time.Time
}

// NewService creates the news service.
func NewService(deps Deps, cfg Config, logger logging.Logger) Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = news.DefaultPageSize
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = news.DefaultRetentionDays
	}
	if cfg.LiveCacheTTL <= 0 {
		cfg.LiveCacheTTL = 5 * time.Minute
	}
	s := &serviceImpl{
		repo:     deps.Repo,
		fetcher:  deps.Fetcher,
		events:   deps.Events,
		lock:     deps.Lock,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		cfg:      cfg,
		filtered: make(map[string]bool, len(cfg.FilteredFeeds)),
		logger:   logger.Named("newsfeed"),
		now:      time.Now,
	}
	if s.events == nil {
		s.events = NopEventSink{}
	}
	if s.metrics == nil {
		s.metrics = prometheus.NewNoopAppMetrics()
	}
	for _, u := range cfg.FilteredFeeds {
		s.filtered[u] = true
	}
	return s
}

func (s *serviceImpl) Ingest(ctx context.Context) (*IngestResult, error) {
	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrIngestRunning
		}
		defer func() {
			if err := s.lock.Unlock(context.Background()); err != nil {
				s.logger.Warn("ingest lock release failed", logging.Err(err))
			}
		}()
	}

	start := s.now()
	urls := make([]string, 0, len(s.cfg.Feeds)+len(s.cfg.FilteredFeeds))
	urls = append(urls, s.cfg.Feeds...)
	for _, u := range s.cfg.FilteredFeeds {
		if !contains(s.cfg.Feeds, u) {
			urls = append(urls, u)
		}
	}

	res := &IngestResult{Feeds: make([]FeedReport, 0, len(urls))}
	var stored []news.Item
	for _, r := range s.fetcher.FetchAll(ctx, urls) {
		prometheus.RecordFeedFetch(s.metrics, feedLabel(r.URL), r.Err, r.Duration)
		report := FeedReport{URL: r.URL, Articles: len(r.Articles)}
		if r.Err != nil {
			report.Error = r.Err.Error()
			res.Feeds = append(res.Feeds, report)
			continue
		}
		res.Feeds = append(res.Feeds, report)

		for _, a := range r.Articles {
			if a.Title == "" || a.Link == "" || a.PublishDate == nil {
				res.Incomplete++
				s.metrics.NewsItemsTotal.WithLabelValues("incomplete").Inc()
				continue
			}
			if s.filtered[r.URL] && !news.IsTariffRelated(a.Title, a.Description) {
				res.Filtered++
				s.metrics.NewsItemsTotal.WithLabelValues("filtered").Inc()
				continue
			}
			res.Processed++

			item := news.NewItem(a, s.now())
			exists, err := s.repo.Exists(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				res.Duplicates++
				s.metrics.NewsItemsTotal.WithLabelValues("duplicate").Inc()
				continue
			}
			if err := s.repo.Save(ctx, item); err != nil {
				return nil, err
			}
			res.New++
			s.metrics.NewsItemsTotal.WithLabelValues("new").Inc()
			stored = append(stored, item)
		}
	}

	if len(stored) > 0 {
		if err := s.events.NewsIngested(ctx, stored); err != nil {
			s.metrics.EventsPublishedTotal.WithLabelValues("news.ingested", "failure").Inc()
			s.logger.Warn("news ingested event not published", logging.Err(err))
		} else {
			s.metrics.EventsPublishedTotal.WithLabelValues("news.ingested", "success").Inc()
		}
	}

	res.Timestamp = s.now()
	s.metrics.NewsIngestDuration.WithLabelValues().Observe(res.Timestamp.Sub(start).Seconds())
	s.logger.Info("news ingested",
		logging.Int("feeds", len(urls)),
		logging.Int("processed", res.Processed),
		logging.Int("new", res.New),
		logging.Int("duplicates", res.Duplicates),
		logging.Int("filtered", res.Filtered),
		logging.Duration("took", res.Timestamp.Sub(start)))
	return res, nil
}

func (s *serviceImpl) Query(ctx context.Context, params news.SearchParams) (*news.SearchResult, error) {
	p, err := params.Normalize(s.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	var ids []string
	ordered := false
	switch {
	case p.Source != "":
		ids, err = s.repo.IDsBySource(ctx, news.SourceKey(p.Source))
	case p.StartDate != "":
		ids, err = s.idsInRange(ctx, p.StartDate, p.EndDate)
	default:
		ids, err = s.repo.IDs(ctx)
		ordered = true
	}
	if err != nil {
		return nil, err
	}

	result := &news.SearchResult{Page: p.Page, Items: []news.Item{}}
	if ordered && p.Query == "" {
		result.Total = len(ids)
		result.TotalPages = news.TotalPages(result.Total, p.Limit)
		start, end := news.PageBounds(len(ids), p.Page, p.Limit)
		items, err := s.repo.GetMany(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		if items != nil {
			result.Items = items
		}
		return result, nil
	}

	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if p.Query != "" {
		kept := items[:0]
		for _, it := range items {
			if it.Matches(p.Query) {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	if !ordered {
		sortNewestFirst(items)
	}

	result.Total = len(items)
	result.TotalPages = news.TotalPages(result.Total, p.Limit)
	start, end := news.PageBounds(len(items), p.Page, p.Limit)
	result.Items = append(result.Items, items[start:end]...)
	return result, nil
}

func (s *serviceImpl) idsInRange(ctx context.Context, startDay, endDay string) ([]string, error) {
	days, err := news.DatesInRange(startDay, endDay)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, d := range days {
		dayIDs, err := s.repo.IDsByDate(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, id := range dayIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *serviceImpl) ByDate(ctx context.Context, day string) (*DayResult, error) {
	if strings.TrimSpace(day) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "date parameter is required (format: YYYY-MM-DD)")
	}
	if _, err := news.ParseDay(day); err != nil {
		return nil, err
	}
	ids, err := s.repo.IDsByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	if items == nil {
		items = []news.Item{}
	}
	return &DayResult{Date: day, Count: len(items), Items: items}, nil
}

func (s *serviceImpl) BySource(ctx context.Context, source string) (*SourceResult, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "source parameter is required")
	}
	ids, err := s.repo.IDsBySource(ctx, news.SourceKey(source))
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	if items == nil {
		items = []news.Item{}
	}

	keys, err := s.repo.SourceKeys(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]string, len(keys))
	for i, k := range keys {
		available[i] = news.SourceDisplayName(k)
	}
	return &SourceResult{Source: source, Count: len(items), Items: items, AvailableSources: available}, nil
}

func (s *serviceImpl) Cleanup(ctx context.Context, days int) (*CleanupResult, error) {
	if days == 0 {
		days = s.cfg.RetentionDays
	}
	if days < news.MinRetentionDays {
		return nil, errors.Newf(errors.ErrCodeInvalidQuery, "days must be a number greater than or equal to %d", news.MinRetentionDays)
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, -days)
	ids, err := s.repo.IDsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	removed := 0
	for _, it := range items {
		if err := s.repo.Delete(ctx, it); err != nil {
			return nil, err
		}
		removed++
	}
	s.metrics.NewsCleanupRemoved.WithLabelValues().Add(float64(removed))

	if removed > 0 {
		if err := s.events.NewsPurged(ctx, removed, days, cutoff); err != nil {
			s.metrics.EventsPublishedTotal.WithLabelValues("news.purged", "failure").Inc()
			s.logger.Warn("news purged event not published", logging.Err(err))
		} else {
			s.metrics.EventsPublishedTotal.WithLabelValues("news.purged", "success").Inc()
		}
	}
	s.logger.Info("news cleanup finished",
		logging.Int("removed", removed), logging.Int("days", days), logging.String("cutoff", cutoff.Format(time.RFC3339)))
	return &CleanupResult{Removed: removed, Days: days, CutoffDate: cutoff, Timestamp: s.now()}, nil
}

func (s *serviceImpl) Live(ctx context.Context, keywords []string) (*LiveResult, error) {
	raw, err := s.LiveXML(ctx)
	if err != nil {
		return nil, err
	}
	articles, err := feed.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	kept := news.FilterArticles(articles, keywords)
	if keywords == nil {
		keywords = []string{}
	}
	return &LiveResult{Keywords: keywords, Articles: kept, Count: len(kept), Total: len(articles)}, nil
}

func (s *serviceImpl) LiveXML(ctx context.Context) ([]byte, error) {
	url := s.cfg.LiveFeedURL
	if url == "" {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "no live feed configured")
	}
	if s.cache == nil {
		return s.fetcher.FetchRaw(ctx, url)
	}

	var doc string
	loaded := false
	err := s.cache.GetOrSet(ctx, "live:"+news.ItemID(url), &doc, s.cfg.LiveCacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded = true
		body, err := s.fetcher.FetchRaw(ctx, url)
		if err != nil {
			return nil, err
		}
		return string(body), nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordCacheAccess(s.metrics, "live_feed", !loaded)
	return []byte(doc), nil
}

func sortNewestFirst(items []news.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PublishDate.Equal(items[j].PublishDate) {
			return items[i].PublishDate.After(items[j].PublishDate)
		}
		return items[i].ID < items[j].ID
	})
}

// feedLabel keeps metric label cardinality down to scheme, host and path.
func feedLabel(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
