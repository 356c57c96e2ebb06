package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>tariff - Google News</title>
  <item>
    <title>US raises tariffs on steel - Reuters</title>
    <link>https://example.com/a</link>
    <pubDate>Mon, 07 Apr 2025 14:00:00 GMT</pubDate>
    <description>&lt;a href="https://example.com/a"&gt;US raises tariffs&lt;/a&gt;&amp;nbsp;&lt;font color="#6f6f6f"&gt;Reuters&lt;/font&gt;</description>
  </item>
  <item>
    <title>Undated story - AP</title>
    <link>https://example.com/b</link>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Trade</title>
  <entry>
    <title>Canada responds to duties</title>
    <link href="https://example.com/c"/>
    <updated>2025-04-08T09:30:00Z</updated>
    <summary>Ottawa announced &lt;b&gt;retaliatory&lt;/b&gt; measures.</summary>
    <author><name>CBC</name></author>
  </entry>
</feed>`

func TestParse_RSS(t *testing.T) {
	arts, err := Parse(strings.NewReader(rssFixture))
	require.NoError(t, err)
	require.Len(t, arts, 2)

	a := arts[0]
	assert.Equal(t, "US raises tariffs on steel - Reuters", a.Title)
	assert.Equal(t, "https://example.com/a", a.Link)
	require.NotNil(t, a.PublishDate)
	assert.Equal(t, time.Date(2025, 4, 7, 14, 0, 0, 0, time.UTC), *a.PublishDate)
	assert.Equal(t, "US raises tariffs Reuters", a.Description)

	assert.Nil(t, arts[1].PublishDate)
}

func TestParse_Atom(t *testing.T) {
	arts, err := Parse(strings.NewReader(atomFixture))
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, "Canada responds to duties", arts[0].Title)
	assert.Equal(t, "https://example.com/c", arts[0].Link)
	assert.Equal(t, "Ottawa announced retaliatory measures.", arts[0].Description)
	assert.Equal(t, "CBC", arts[0].Source)
	require.NotNil(t, arts[0].PublishDate)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not a feed"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeedFetch))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	f := NewFetcher(Options{UserAgent: "tariff-test/1.0"}, logging.NewNopLogger())
	arts, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, arts, 2)
	assert.Equal(t, "tariff-test/1.0", gotUA)
}

func TestFetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(Options{}, logging.NewNopLogger())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeedFetch))
	assert.Contains(t, err.Error(), "503")
}

func TestFetchAll_IsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(rssFixture)) })
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(atomFixture)) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(Options{Concurrency: 2}, logging.NewNopLogger())
	urls := []string{srv.URL + "/rss", srv.URL + "/broken", srv.URL + "/atom"}
	res := f.FetchAll(context.Background(), urls)

	require.Len(t, res, 3)
	for i, r := range res {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.NoError(t, res[0].Err)
	assert.Len(t, res[0].Articles, 2)
	assert.Error(t, res[1].Err)
	assert.NoError(t, res[2].Err)
	assert.Len(t, res[2].Articles, 1)
}

func TestStripHTML(t *testing.T) {
	cases := map[string]string{
		"plain   text\n here":                           "plain text here",
		"<p>one</p><p>two</p>":                          "one two",
		"a &amp; b":                                     "a & b",
		"<script>x()</script>visible":                   "visible",
		`<a href="x">link</a>&nbsp;<font>Source</font>`: "link Source",
		"":                                              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripHTML(in), in)
	}
}
