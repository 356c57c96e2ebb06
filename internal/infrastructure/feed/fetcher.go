// Package feed fetches RSS and Atom feeds and turns their entries into news
// articles.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

// maxFeedBytes bounds a single feed document.
const maxFeedBytes = 8 << 20

// Options configure a Fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// Concurrency bounds parallel fetches in FetchAll.
	Concurrency int
	Client      *http.Client
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	concurrency int
	logger      logging.Logger
}

func NewFetcher(opts Options, log logging.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{client: client, userAgent: opts.UserAgent, concurrency: opts.Concurrency, logger: log}
}

// Fetch downloads url and returns its entries in feed order.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]news.Article, error) {
	body, err := f.FetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(body))
}

// FetchRaw downloads the feed document without parsing it.
func (f *Fetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFeedFetch, "invalid feed url").WithDetail(url)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFeedFetch, "feed request failed").WithDetail(url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeFeedFetch, fmt.Sprintf("feed returned status %d", resp.StatusCode)).WithDetail(url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFeedFetch, "read feed body").WithDetail(url)
	}
	return body, nil
}

// Parse reads an RSS or Atom document.
func Parse(r io.Reader) ([]news.Article, error) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFeedFetch, "feed is not valid RSS or Atom")
	}
	out := make([]news.Article, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil || it.Link == "" {
			continue
		}
		a := news.Article{
			Title:       StripHTML(it.Title),
			Link:        it.Link,
			Description: StripHTML(firstNonEmpty(it.Description, it.Content)),
		}
		switch {
		case it.PublishedParsed != nil:
			t := it.PublishedParsed.UTC()
			a.PublishDate = &t
		case it.UpdatedParsed != nil:
			t := it.UpdatedParsed.UTC()
			a.PublishDate = &t
		}
		if src := sourceOf(it); src != "" {
			a.Source = src
		}
		out = append(out, a)
	}
	return out, nil
}

// sourceOf falls back to the entry author; Google News titles carry the
// publisher in the title instead.
func sourceOf(it *gofeed.Item) string {
	if it.Author != nil {
		return it.Author.Name
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Result is the outcome of one feed in FetchAll.
type Result struct {
	URL      string
	Articles []news.Article
	Err      error
	Duration time.Duration
}

// FetchAll fetches every url with bounded concurrency.  A failing feed is
// reported in its Result and does not stop the others.  Results keep the
// order of urls.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	var mu sync.Mutex
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			start := time.Now()
			arts, err := f.Fetch(gctx, u)
			mu.Lock()
			results[i] = Result{URL: u, Articles: arts, Err: err, Duration: time.Since(start)}
			mu.Unlock()
			if err != nil {
				f.logger.Warn("feed fetch failed", logging.String("url", u), logging.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
