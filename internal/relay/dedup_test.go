package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skyrelay/internal/domain"
)

func posts(uris ...string) []domain.Post {
	out := make([]domain.Post, len(uris))
	for i, uri := range uris {
		out[i] = domain.Post{URI: uri, Kind: domain.KindText}
	}
	return out
}

func uris(in []domain.Post) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = p.URI
	}
	return out
}

func TestNewPosts_AgainstEmptySeenSet(t *testing.T) {
	current := posts("at://x/1", "at://x/2")

	fresh := NewPosts(current, nil)
	assert.Equal(t, current, fresh)
}

func TestNewPosts_Idempotent(t *testing.T) {
	// new_posts(S, S) = [] for any S.
	sets := [][]domain.Post{
		nil,
		posts("at://x/1"),
		posts("at://x/1", "at://x/2", "at://x/3"),
	}
	for _, s := range sets {
		assert.Empty(t, NewPosts(s, s))
	}
}

func TestNewPosts_PreservesFeedOrder(t *testing.T) {
	current := posts("at://x/5", "at://x/1", "at://x/4", "at://x/2", "at://x/3")
	seen := posts("at://x/1", "at://x/2")

	fresh := NewPosts(current, seen)
	assert.Equal(t, []string{"at://x/5", "at://x/4", "at://x/3"}, uris(fresh))
}

func TestNewPosts_SeenOrderIrrelevant(t *testing.T) {
	current := posts("at://x/1", "at://x/2", "at://x/3")

	a := NewPosts(current, posts("at://x/2", "at://x/3"))
	b := NewPosts(current, posts("at://x/3", "at://x/2"))
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"at://x/1"}, uris(a))
}
