package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"skyrelay/internal/bluesky"
	"skyrelay/internal/domain"
	"skyrelay/internal/storage"
)

// Feed fetches raw feed items from the source platform.
type Feed interface {
	FetchRecentPosts(ctx context.Context, actor string, limit int) ([]bluesky.FeedItem, error)
}

// Poster relays a single post to the destination platform.
type Poster interface {
	Publish(ctx context.Context, post domain.Post) error
}

// Syncer runs the poll-and-relay pipeline: fetch, classify, dedup, relay,
// persist. Cycles are strictly sequential; there is no concurrency within
// a cycle, so publish order matches feed order.
type Syncer struct {
	feed     Feed
	poster   Poster
	seen     storage.SeenStore
	actor    string
	handle   string
	limit    int
	interval time.Duration
	log      logrus.FieldLogger
}

// NewSyncer wires the pipeline for one author. handle filters the feed,
// actor addresses the author-feed request, and interval is the fixed delay
// between cycles.
func NewSyncer(feed Feed, poster Poster, seen storage.SeenStore, actor, handle string,
	limit int, interval time.Duration, logger logrus.FieldLogger) *Syncer {
	return &Syncer{
		feed:     feed,
		poster:   poster,
		seen:     seen,
		actor:    actor,
		handle:   handle,
		limit:    limit,
		interval: interval,
		log:      logger.WithField("component", "syncer"),
	}
}

// Run executes one cycle immediately, then one per interval until ctx is
// cancelled. Errors never escape a cycle; the loop only stops on ctx.
func (s *Syncer) Run(ctx context.Context) {
	s.log.WithField("interval", s.interval.String()).Info("Syncer started")

	s.Cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Syncer stopped")
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle performs a single fetch, classify, dedup, relay, persist pass.
// Fetch or load failures skip the cycle entirely, leaving the seen-set
// untouched so the same posts are considered again next time. Per-post
// relay failures are logged and the loop moves on; the failed post is still
// recorded as seen at cycle end, because the destination publish is not
// idempotent and a retry could double-post.
func (s *Syncer) Cycle(ctx context.Context) {
	seen, err := s.seen.LoadSeen(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to load seen posts, skipping cycle")
		return
	}

	items, err := s.feed.FetchRecentPosts(ctx, s.actor, s.limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to fetch feed, skipping cycle")
		return
	}

	current := make([]domain.Post, 0, len(items))
	for _, item := range items {
		if post, ok := bluesky.Classify(item, s.handle); ok {
			current = append(current, post)
		}
	}

	fresh := NewPosts(current, seen)
	if len(fresh) == 0 {
		s.log.Debug("No new posts found")
	}

	for _, post := range fresh {
		if err := s.poster.Publish(ctx, post); err != nil {
			s.log.WithError(err).WithField("uri", post.URI).Error("Relay failed, post abandoned")
		}
	}

	// The full classified fetch replaces the seen-set, not just the posts
	// that relayed cleanly.
	if err := s.seen.ReplaceSeen(ctx, current); err != nil {
		s.log.WithError(err).Error("Failed to persist seen posts")
	}
}
