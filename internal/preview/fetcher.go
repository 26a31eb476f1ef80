package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const fetchTimeout = 30 * time.Second

// Metadata holds the unfurl fields extracted from a public post page.
type Metadata struct {
	DisplayName string
	Text        string
	ImageURL    string
	PostURL     string
}

// Fetcher resolves a (handle, post id) pair to unfurl metadata.
type Fetcher interface {
	Fetch(ctx context.Context, handle, postID string) (*Metadata, error)
}

// HTTPFetcher scrapes the post's public page for its Open Graph metadata,
// falling back to the public API for video thumbnails.
type HTTPFetcher struct {
	httpClient *http.Client
	appHost    string
	apiHost    string
	videoHost  string
	log        logrus.FieldLogger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher against the public bsky.app hosts.
func NewHTTPFetcher(logger logrus.FieldLogger) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		appHost:    "https://bsky.app",
		apiHost:    "https://public.api.bsky.app",
		videoHost:  "https://video.bsky.app",
		log:        logger.WithField("component", "fetcher"),
	}
}

type threadResponse struct {
	Thread struct {
		Post struct {
			Author struct {
				DID string `json:"did"`
			} `json:"author"`
			Record struct {
				Embed struct {
					Video struct {
						Ref struct {
							Link string `json:"$link"`
						} `json:"ref"`
					} `json:"video"`
				} `json:"embed"`
			} `json:"record"`
		} `json:"post"`
	} `json:"thread"`
}

// Fetch retrieves the post page and extracts title, description and image.
// A missing title is treated as malformed metadata and reported as an error
// so the caller can answer 404 without caching anything.
func (f *HTTPFetcher) Fetch(ctx context.Context, handle, postID string) (*Metadata, error) {
	postURL := fmt.Sprintf("%s/profile/%s/post/%s", f.appHost, handle, postID)
	log := f.log.WithField("post_url", postURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, postURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse post page: %w", err)
	}

	meta := &Metadata{
		DisplayName: metaContent(doc, `meta[property="og:title"]`),
		Text:        metaContent(doc, `meta[property="og:description"]`),
		ImageURL:    metaContent(doc, `meta[property="og:image"]`),
		PostURL:     postURL,
	}
	if meta.DisplayName == "" {
		return nil, fmt.Errorf("post page carries no og:title metadata")
	}

	// A summary card means the embed is a video (or other non-image), so
	// the page's og:image is not a usable thumbnail. Resolve one through
	// the public API; failures here degrade the preview, they don't kill it.
	if metaContentByName(doc, "twitter:card") == "summary" {
		if thumb, err := f.videoThumbnail(ctx, handle, postID); err != nil {
			log.WithError(err).Warn("Failed to resolve video thumbnail")
		} else if thumb != "" {
			meta.ImageURL = thumb
		}
	}

	return meta, nil
}

// videoThumbnail asks the public API for the post's record and builds the
// video thumbnail URL from the author DID and the video blob ref.
func (f *HTTPFetcher) videoThumbnail(ctx context.Context, handle, postID string) (string, error) {
	atURI := fmt.Sprintf("at://%s/app.bsky.feed.post/%s", handle, postID)

	q := url.Values{}
	q.Set("uri", atURI)
	q.Set("depth", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.apiHost+"/xrpc/app.bsky.feed.getPostThread?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build thread request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("thread request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thread request returned status %d", resp.StatusCode)
	}

	var thread threadResponse
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		return "", fmt.Errorf("failed to decode thread response: %w", err)
	}

	did := thread.Thread.Post.Author.DID
	videoRef := thread.Thread.Post.Record.Embed.Video.Ref.Link
	if did == "" || videoRef == "" {
		return "", nil
	}

	return fmt.Sprintf("%s/watch/%s/%s/thumbnail.jpg", f.videoHost, did, videoRef), nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

func metaContentByName(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return content
}
