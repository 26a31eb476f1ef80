package relay

import "skyrelay/internal/domain"

// NewPosts returns the subsequence of current whose URIs are absent from
// seen, preserving the feed order of current. It is a pure function.
func NewPosts(current, seen []domain.Post) []domain.Post {
	seenURIs := make(map[string]struct{}, len(seen))
	for _, post := range seen {
		seenURIs[post.URI] = struct{}{}
	}

	var fresh []domain.Post
	for _, post := range current {
		if _, ok := seenURIs[post.URI]; !ok {
			fresh = append(fresh, post)
		}
	}
	return fresh
}
