package bluesky

import (
	"fmt"
	"strings"

	"skyrelay/internal/domain"
)

// Classify maps one feed item onto a relayable Post. The boolean is false
// for items that are filtered out: posts by other authors, records that are
// not canonical posts, replies, and embed types with no defined handling.
func Classify(item FeedItem, targetHandle string) (domain.Post, bool) {
	post := item.Post

	if post.Author.Handle != targetHandle {
		return domain.Post{}, false
	}
	if post.Record.Type != recordTypePost {
		return domain.Post{}, false
	}
	if len(post.Record.Reply) > 0 {
		return domain.Post{}, false
	}

	out := domain.Post{
		URI:          post.URI,
		Text:         post.Record.Text,
		Kind:         domain.KindText,
		AuthorHandle: post.Author.Handle,
	}

	if post.Embed == nil && len(post.Record.Embed) == 0 {
		return out, true
	}
	if post.Embed == nil {
		// Record carries an embed the feed view did not hydrate; nothing
		// to relay from it.
		return domain.Post{}, false
	}

	switch post.Embed.Type {
	case embedTypeImages:
		// Only the first image is relayed. Multi-image posts losing their
		// later images is a documented limitation of the relay contract,
		// not an accident.
		if len(post.Embed.Images) == 0 || post.Embed.Images[0].Fullsize == "" {
			return domain.Post{}, false
		}
		out.Kind = domain.KindMedia
		out.MediaURL = post.Embed.Images[0].Fullsize
		return out, true

	case embedTypeRecord:
		quoted := post.Embed.Record
		if quoted == nil {
			return domain.Post{}, false
		}
		quotedURL, ok := quotedPostURL(*quoted)
		if !ok {
			return domain.Post{}, false
		}
		out.Kind = domain.KindQuote
		out.QuotedPostURL = quotedURL
		return out, true

	default:
		// Unknown embed type: no handling is defined, so the post is
		// dropped rather than cross-posted with its attachment missing.
		return domain.Post{}, false
	}
}

// quotedPostURL builds the public URL of a quoted post from its author
// handle and the trailing segment of its AT-URI.
func quotedPostURL(quoted EmbedRecord) (string, bool) {
	handle := quoted.Author.Handle
	idx := strings.LastIndex(quoted.URI, "/")
	if handle == "" || idx < 0 || idx == len(quoted.URI)-1 {
		return "", false
	}
	postID := quoted.URI[idx+1:]
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, postID), true
}
