package preview

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"skyrelay/internal/storage"
)

// cacheTTL is how long a rendered preview document is served unchanged.
const cacheTTL = time.Hour

// crawlerAgents is the allow-list of link-unfurling bots. Any other client
// is a human and gets redirected to the real post.
var crawlerAgents = []string{
	"twitterbot/1.0",
	"facebookexternalhit",
	"linkedinbot",
}

// Server handles preview requests: crawler gating, cache lookup, and
// compute-on-miss. Concurrent misses for the same key may both compute and
// both write; the content is deterministic within the TTL window, so
// last-write-wins is harmless and no locking is needed.
type Server struct {
	fetcher Fetcher
	cache   storage.PreviewCache
	appHost string
	log     logrus.FieldLogger
}

// NewServer wires the preview handler.
func NewServer(fetcher Fetcher, cache storage.PreviewCache, logger logrus.FieldLogger) *Server {
	return &Server{
		fetcher: fetcher,
		cache:   cache,
		appHost: "https://bsky.app",
		log:     logger.WithField("component", "preview"),
	}
}

// NewRouter builds the gin engine with all routes configured.
func NewRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/preview/:handle/post/:post_id", s.GetPreview)
	r.GET("/health", s.HealthCheck)

	return r
}

// GetPreview serves the preview document for one post, a redirect for
// non-crawler clients, or 404 when metadata cannot be extracted.
func (s *Server) GetPreview(c *gin.Context) {
	handle := c.Param("handle")
	postID := c.Param("post_id")
	log := s.log.WithFields(logrus.Fields{"handle": handle, "post_id": postID})

	if !isCrawler(c.GetHeader("User-Agent")) {
		c.Redirect(http.StatusFound,
			fmt.Sprintf("%s/profile/%s/post/%s", s.appHost, handle, postID))
		return
	}

	key := handle + "/" + postID

	cached, err := s.cache.GetPreview(c.Request.Context(), key)
	if err == nil {
		log.Debug("Cache hit")
		c.Data(http.StatusOK, "text/html; charset=utf-8", cached)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.WithError(err).Warn("Cache read failed, recomputing")
	}

	log.Debug("Cache miss, generating preview")

	meta, err := s.fetcher.Fetch(c.Request.Context(), handle, postID)
	if err != nil {
		log.WithError(err).Warn("Failed to extract post metadata")
		c.String(http.StatusNotFound, "Post not found or unsupported post type")
		return
	}

	doc, err := Render(meta)
	if err != nil {
		log.WithError(err).Error("Failed to render preview")
		c.String(http.StatusNotFound, "Post not found or unsupported post type")
		return
	}

	if err := s.cache.SetPreview(c.Request.Context(), key, doc, cacheTTL); err != nil {
		// Serve the document anyway; the next request recomputes.
		log.WithError(err).Warn("Failed to cache preview")
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
}

// HealthCheck reports service liveness.
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, agent := range crawlerAgents {
		if strings.Contains(ua, agent) {
			return true
		}
	}
	return false
}
