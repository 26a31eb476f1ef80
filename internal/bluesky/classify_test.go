package bluesky

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyrelay/internal/domain"
)

const targetHandle = "alice.bsky.social"

func textItem(uri, text string) FeedItem {
	return FeedItem{
		Post: FeedPost{
			URI:    uri,
			Author: Author{DID: "did:plc:abc", Handle: targetHandle},
			Record: Record{Type: recordTypePost, Text: text},
		},
	}
}

func TestClassify_TextPost(t *testing.T) {
	item := textItem("at://x/1", "hi")

	post, ok := Classify(item, targetHandle)
	require.True(t, ok)
	assert.Equal(t, domain.Post{
		URI:          "at://x/1",
		Text:         "hi",
		Kind:         domain.KindText,
		AuthorHandle: targetHandle,
	}, post)
}

func TestClassify_MediaPostPicksFirstImageOnly(t *testing.T) {
	item := textItem("at://x/2", "two pics")
	item.Post.Embed = &Embed{
		Type: embedTypeImages,
		Images: []EmbedImage{
			{Fullsize: "https://cdn.bsky.app/img/feed_fullsize/plain/first@jpeg"},
			{Fullsize: "https://cdn.bsky.app/img/feed_fullsize/plain/second@jpeg"},
		},
	}

	post, ok := Classify(item, targetHandle)
	require.True(t, ok)
	assert.Equal(t, domain.KindMedia, post.Kind)
	assert.Equal(t, "https://cdn.bsky.app/img/feed_fullsize/plain/first@jpeg", post.MediaURL)
	assert.Empty(t, post.QuotedPostURL)
}

func TestClassify_QuotePost(t *testing.T) {
	item := textItem("at://x/3", "check this out")
	item.Post.Embed = &Embed{
		Type: embedTypeRecord,
		Record: &EmbedRecord{
			URI:    "at://did:plc:other/app.bsky.feed.post/abc123",
			Author: Author{Handle: "bob.bsky.social"},
		},
	}

	post, ok := Classify(item, targetHandle)
	require.True(t, ok)
	assert.Equal(t, domain.KindQuote, post.Kind)
	assert.Equal(t, "https://bsky.app/profile/bob.bsky.social/post/abc123", post.QuotedPostURL)
	assert.Empty(t, post.MediaURL)
}

func TestClassify_Filters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FeedItem)
	}{
		{"wrong author", func(it *FeedItem) {
			it.Post.Author.Handle = "someoneelse.bsky.social"
		}},
		{"non-post record type", func(it *FeedItem) {
			it.Post.Record.Type = "app.bsky.feed.repost"
		}},
		{"reply", func(it *FeedItem) {
			it.Post.Record.Reply = json.RawMessage(`{"parent":{"uri":"at://x/0"}}`)
		}},
		{"unknown embed type", func(it *FeedItem) {
			it.Post.Embed = &Embed{Type: "app.bsky.embed.external#view"}
		}},
		{"image embed with no images", func(it *FeedItem) {
			it.Post.Embed = &Embed{Type: embedTypeImages}
		}},
		{"record embed with no quoted author", func(it *FeedItem) {
			it.Post.Embed = &Embed{Type: embedTypeRecord, Record: &EmbedRecord{URI: "at://x/9"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := textItem("at://x/4", "body")
			tt.mutate(&item)

			_, ok := Classify(item, targetHandle)
			assert.False(t, ok)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	item := textItem("at://x/5", "same in, same out")
	item.Post.Embed = &Embed{
		Type:   embedTypeImages,
		Images: []EmbedImage{{Fullsize: "https://cdn.bsky.app/img/feed_fullsize/plain/a@jpeg"}},
	}

	first, okFirst := Classify(item, targetHandle)
	for i := 0; i < 10; i++ {
		got, ok := Classify(item, targetHandle)
		assert.Equal(t, okFirst, ok)
		assert.Equal(t, first, got)
	}
}
