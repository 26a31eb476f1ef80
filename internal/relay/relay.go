package relay

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"skyrelay/internal/domain"
)

// Publisher is the destination platform surface the relay needs.
type Publisher interface {
	// UploadMedia downloads the blob at mediaURL and uploads it to the
	// destination, returning a media id.
	UploadMedia(ctx context.Context, mediaURL string) (string, error)

	// PostTweet publishes text (optionally with a media id attached) and
	// returns the created post's id.
	PostTweet(ctx context.Context, text, mediaID string) (string, error)

	// Reply publishes text as a reply to the post with id inReplyToID.
	Reply(ctx context.Context, text, inReplyToID string) (string, error)
}

// Relay cross-posts one post at a time to the destination platform.
type Relay struct {
	publisher   Publisher
	previewHost string
	log         logrus.FieldLogger
}

// NewRelay creates a relay that rewrites quote links onto previewHost.
func NewRelay(publisher Publisher, previewHost string, logger logrus.FieldLogger) *Relay {
	return &Relay{
		publisher:   publisher,
		previewHost: previewHost,
		log:         logger.WithField("component", "relay"),
	}
}

// Publish performs the kind-specific publish sequence for post: optional
// media upload, the primary post, and a best-effort follow-up reply linking
// back to the original. An error means the primary publish did not happen;
// the post is abandoned for this cycle and never retried.
func (r *Relay) Publish(ctx context.Context, post domain.Post) error {
	log := r.log.WithFields(logrus.Fields{"uri": post.URI, "kind": post.Kind})
	log.Info("Relaying post")

	text := post.Text
	var mediaID string

	switch post.Kind {
	case domain.KindMedia:
		id, err := r.publisher.UploadMedia(ctx, post.MediaURL)
		if err != nil {
			return fmt.Errorf("media upload for %s: %w", post.URI, err)
		}
		mediaID = id

	case domain.KindQuote:
		previewURL, err := PreviewURL(post.QuotedPostURL, r.previewHost)
		if err != nil {
			// The quoted link cannot be preview-ized; publish the body
			// without it rather than dropping the post.
			log.WithError(err).Warn("Failed to rewrite quoted post URL")
		} else {
			text += "\n\n" + previewURL
		}
	}

	tweetID, err := r.publisher.PostTweet(ctx, text, mediaID)
	if err != nil {
		return fmt.Errorf("publish for %s: %w", post.URI, err)
	}

	r.replyWithOriginal(ctx, post, tweetID)
	return nil
}

// replyWithOriginal posts the follow-up reply linking back to the source
// post. It is best-effort enrichment: failure is logged, never retried, and
// never rolls back the primary publish.
func (r *Relay) replyWithOriginal(ctx context.Context, post domain.Post, tweetID string) {
	original := fmt.Sprintf("https://bsky.app/profile/%s/post/%s", post.AuthorHandle, post.RecordKey())

	link := original
	if previewURL, err := PreviewURL(original, r.previewHost); err == nil {
		link = previewURL
	}

	if _, err := r.publisher.Reply(ctx, "Original post on Bluesky: "+link, tweetID); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"uri":      post.URI,
			"tweet_id": tweetID,
		}).Error("Failed to post follow-up reply")
	}
}

// PreviewURL rewrites a public post URL of the form
// https://bsky.app/profile/{handle}/post/{post_id} onto the preview service
// host, preserving the handle and post id segments.
func PreviewURL(postURL, previewHost string) (string, error) {
	u, err := url.Parse(postURL)
	if err != nil {
		return "", fmt.Errorf("invalid post URL %q: %w", postURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "profile" || parts[2] != "post" {
		return "", fmt.Errorf("unexpected post URL format: %q", postURL)
	}
	handle, postID := parts[1], parts[3]

	return fmt.Sprintf("https://%s/preview/%s/post/%s", previewHost, handle, postID), nil
}
