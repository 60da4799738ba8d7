// Package collection caches the signed-in user's posts and answers filter
// queries locally. Filtering never touches the network; only Refresh and
// Delete do.
package collection

import (
	"errors"
	"strings"
	"sync"

	"xcreator/internal/postclient"
	"xcreator/internal/session"
	"xcreator/pkg/domain"
)

// View holds the cached post list.
type View struct {
	posts    *postclient.Client
	sessions *session.Manager

	mu    sync.Mutex
	items []domain.Post
}

func NewView(posts *postclient.Client, sessions *session.Manager) *View {
	return &View{posts: posts, sessions: sessions}
}

// Refresh replaces the cache with the backend's current list. The old cache
// survives a failed fetch.
func (v *View) Refresh() error {
	token, ok := v.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	posts, err := v.posts.List(token)
	if err != nil {
		return classify(err)
	}
	v.mu.Lock()
	v.items = posts
	v.mu.Unlock()
	return nil
}

// All returns a copy of the cached list in backend order.
func (v *View) All() []domain.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Post(nil), v.items...)
}

// Filter applies the status and text filters to the cache.
func (v *View) Filter(status, query string) []domain.Post {
	return FilterPosts(v.All(), status, query)
}

// Get looks a post up in the cache by id.
func (v *View) Get(id int64) (domain.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.items {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Post{}, false
}

// Delete removes a post. Callers must pass confirmed=true; an unconfirmed
// call is rejected before any network traffic, which is how the confirmation
// dialog's cancel path is modeled. On success the list is re-fetched.
func (v *View) Delete(id int64, confirmed bool) error {
	if !confirmed {
		return domain.Validationf("deletion not confirmed")
	}
	token, ok := v.sessions.Token()
	if !ok {
		return domain.Validationf("not signed in")
	}
	if err := v.posts.Delete(token, id); err != nil {
		return classify(err)
	}
	return v.Refresh()
}

// Reset drops the cache. Runs on logout.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = nil
}

// FilterPosts returns the posts matching the given status and query, in the
// order they were given. "all" or an empty status matches every status; the
// query is a case-insensitive substring match on content. The input slice is
// not modified.
func FilterPosts(posts []domain.Post, status, query string) []domain.Post {
	query = strings.ToLower(strings.TrimSpace(query))
	matchStatus := status != "" && status != "all"
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if matchStatus && string(p.Status) != status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Content), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func classify(err error) error {
	var apiErr *postclient.APIError
	if errors.As(err, &apiErr) {
		return domain.FromStatus(apiErr.Status, apiErr.Message)
	}
	return domain.NetworkErr()
}
