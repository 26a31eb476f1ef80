package domain

import "strings"

// PostKind identifies the structural shape of a post.
type PostKind string

const (
	// KindText is a plain text post with no attachments.
	KindText PostKind = "text"

	// KindMedia is a post carrying an image attachment.
	KindMedia PostKind = "media"

	// KindQuote is a post quoting another post.
	KindQuote PostKind = "quote"
)

// Post is the unit of work flowing through the relay pipeline.
// Exactly one of MediaURL/QuotedPostURL is set, consistent with Kind.
type Post struct {
	// URI is the AT-URI of the post on the source platform
	// (e.g. at://did:plc:abc/app.bsky.feed.post/3l6zrfcjs2y2t).
	// It is stable and serves as the dedup key.
	URI string `json:"uri"`

	// Text is the plain body content.
	Text string `json:"text"`

	// Kind is one of text, media or quote.
	Kind PostKind `json:"kind"`

	// MediaURL is the full-resolution URL of the first attached image.
	// Set iff Kind == KindMedia.
	MediaURL string `json:"media_url,omitempty"`

	// QuotedPostURL is the public URL of the quoted post.
	// Set iff Kind == KindQuote.
	QuotedPostURL string `json:"quoted_post_url,omitempty"`

	// AuthorHandle is the source-platform handle of the post's author.
	AuthorHandle string `json:"author_handle"`
}

// RecordKey returns the trailing segment of the post's AT-URI, which is the
// post id used in public profile URLs.
func (p Post) RecordKey() string {
	idx := strings.LastIndex(p.URI, "/")
	if idx < 0 {
		return p.URI
	}
	return p.URI[idx+1:]
}
