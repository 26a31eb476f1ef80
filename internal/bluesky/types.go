package bluesky

import "encoding/json"

// Record and embed type markers used by the feed API.
const (
	recordTypePost  = "app.bsky.feed.post"
	embedTypeImages = "app.bsky.embed.images#view"
	embedTypeRecord = "app.bsky.embed.record#view"
)

// FeedItem is one entry of a getAuthorFeed response.
type FeedItem struct {
	Post FeedPost `json:"post"`
}

// FeedPost is the hydrated post view inside a feed item.
type FeedPost struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Author Author `json:"author"`
	Record Record `json:"record"`

	// Embed is the hydrated view of the post's attachment, if any.
	Embed *Embed `json:"embed,omitempty"`
}

// Author identifies the account that wrote a post.
type Author struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

// Record is the raw post record. Reply and Embed are kept opaque: their
// presence is what the classifier checks, not their contents.
type Record struct {
	Type  string          `json:"$type"`
	Text  string          `json:"text"`
	Reply json.RawMessage `json:"reply,omitempty"`
	Embed json.RawMessage `json:"embed,omitempty"`
}

// Embed is the hydrated attachment view on a feed post. Exactly one of the
// type-specific fields is populated, selected by Type.
type Embed struct {
	Type   string       `json:"$type"`
	Images []EmbedImage `json:"images,omitempty"`
	Record *EmbedRecord `json:"record,omitempty"`
}

// EmbedImage is one image of an image-gallery embed.
type EmbedImage struct {
	Thumb    string `json:"thumb,omitempty"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt,omitempty"`
}

// EmbedRecord is the quoted post of a record embed.
type EmbedRecord struct {
	URI    string `json:"uri"`
	Author Author `json:"author"`
}

type feedResponse struct {
	Feed   []FeedItem `json:"feed"`
	Cursor string     `json:"cursor,omitempty"`
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
