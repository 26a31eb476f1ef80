package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyrelay/internal/storage"
)

type fakeFetcher struct {
	meta  *Metadata
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, handle, postID string) (*Metadata, error) {
	f.calls++
	return f.meta, f.err
}

// memCache is an in-memory PreviewCache for tests. TTL is recorded but not
// enforced; expiry behavior is covered by the storage package tests.
type memCache struct {
	entries map[string][]byte
	lastTTL time.Duration
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) GetPreview(ctx context.Context, key string) ([]byte, error) {
	doc, ok := m.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (m *memCache) SetPreview(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	m.entries[key] = doc
	m.lastTTL = ttl
	return nil
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func newTestRouter(fetcher Fetcher, cache storage.PreviewCache) http.Handler {
	return NewRouter(NewServer(fetcher, cache, testLogger()))
}

func get(t *testing.T, router http.Handler, path, userAgent string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", userAgent)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetPreview_CrawlerGetsDocument(t *testing.T) {
	fetcher := &fakeFetcher{meta: &Metadata{
		DisplayName: "Alice",
		Text:        "hello world",
		ImageURL:    "https://cdn.bsky.app/img/thumb.jpg",
		PostURL:     "https://bsky.app/profile/alice/post/abc123",
	}}
	router := newTestRouter(fetcher, newMemCache())

	w := get(t, router, "/preview/alice/post/abc123",
		"Mozilla/5.0 (compatible; Twitterbot/1.0)")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `<meta property="og:title" content="Alice">`)
	assert.Contains(t, body, `<meta property="og:description" content="hello world">`)
	assert.Contains(t, body, `<meta property="og:image" content="https://cdn.bsky.app/img/thumb.jpg">`)
	assert.Contains(t, body, `<meta property="og:url" content="https://bsky.app/profile/alice/post/abc123">`)
}

func TestGetPreview_HumanVisitorIsRedirected(t *testing.T) {
	fetcher := &fakeFetcher{}
	router := newTestRouter(fetcher, newMemCache())

	agents := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"curl/8.4.0",
		"",
	}
	for _, ua := range agents {
		w := get(t, router, "/preview/alice/post/abc123", ua)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://bsky.app/profile/alice/post/abc123", w.Header().Get("Location"))
	}
	assert.Zero(t, fetcher.calls, "redirected requests must not trigger a fetch")
}

func TestGetPreview_KnownCrawlersAreServed(t *testing.T) {
	for _, ua := range []string{
		"Twitterbot/1.0",
		"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
		"LinkedInBot/1.0 (compatible; Mozilla/5.0)",
	} {
		fetcher := &fakeFetcher{meta: &Metadata{DisplayName: "Alice", PostURL: "https://bsky.app/profile/alice/post/1"}}
		w := get(t, newTestRouter(fetcher, newMemCache()), "/preview/alice/post/1", ua)
		assert.Equal(t, http.StatusOK, w.Code, "user agent %q", ua)
	}
}

func TestGetPreview_SecondRequestServedFromCache(t *testing.T) {
	fetcher := &fakeFetcher{meta: &Metadata{DisplayName: "Alice", Text: "hi"}}
	cache := newMemCache()
	router := newTestRouter(fetcher, cache)

	first := get(t, router, "/preview/alice/post/abc123", "Twitterbot/1.0")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, fetcher.calls)
	assert.Equal(t, time.Hour, cache.lastTTL)

	// Mutate what the fetcher would return; the cached document must win.
	fetcher.meta = &Metadata{DisplayName: "Changed"}

	second := get(t, router, "/preview/alice/post/abc123", "Twitterbot/1.0")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not recompute")
	assert.Equal(t, first.Body.String(), second.Body.String(), "hits serve the stored document verbatim")
}

func TestGetPreview_CacheKeyIncludesHandleAndPostID(t *testing.T) {
	fetcher := &fakeFetcher{meta: &Metadata{DisplayName: "X"}}
	router := newTestRouter(fetcher, newMemCache())

	get(t, router, "/preview/alice/post/1", "Twitterbot/1.0")
	get(t, router, "/preview/bob/post/1", "Twitterbot/1.0")
	get(t, router, "/preview/alice/post/2", "Twitterbot/1.0")

	assert.Equal(t, 3, fetcher.calls, "distinct (handle, post_id) pairs are distinct cache keys")
}

func TestGetPreview_ExtractionFailureIs404AndUncached(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("no og:title")}
	cache := newMemCache()
	router := newTestRouter(fetcher, cache)

	w := get(t, router, "/preview/alice/post/gone", "Twitterbot/1.0")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, cache.entries, "failures must not be cached")

	// The next request tries again rather than serving a cached failure.
	get(t, router, "/preview/alice/post/gone", "Twitterbot/1.0")
	assert.Equal(t, 2, fetcher.calls)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeFetcher{}, newMemCache())

	w := get(t, router, "/health", "curl/8.4.0")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRender_TruncatesLongText(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'a'
	}

	doc, err := Render(&Metadata{DisplayName: "Alice", Text: string(long)})
	require.NoError(t, err)

	want := string(long[:200]) + "..."
	assert.Contains(t, string(doc), want)
	assert.NotContains(t, string(doc), string(long))
}

func TestRender_OmitsThumbnailWithoutImage(t *testing.T) {
	doc, err := Render(&Metadata{DisplayName: "Alice", Text: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, string(doc), `class="thumbnail"`)
}
