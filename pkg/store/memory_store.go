package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"postboard/pkg/domain"
)

// MemoryStore keeps all rows in-process. It mirrors the GormStore
// contract (duplicate and not-found errors included) so app and server
// tests run without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	emails     map[string]int64
	posts      map[int64]domain.Post
	votes      map[domain.Vote]struct{}
	nextUserID int64
	nextPostID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]domain.User),
		emails: make(map[string]int64),
		posts:  make(map[int64]domain.Post),
		votes:  make(map[domain.Vote]struct{}),
	}
}

// CreateUser inserts a user, assigning the next id.
func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emails[u.Email]; exists {
		return domain.User{}, ErrDuplicateEmail
	}
	m.nextUserID++
	u.ID = m.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by id.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreatePost inserts a post, assigning the next id.
func (m *MemoryStore) CreatePost(p domain.Post) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPostID++
	p.ID = m.nextPostID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.posts[p.ID] = p
	return p, nil
}

// GetPost returns one post with its vote count.
func (m *MemoryStore) GetPost(id int64) (domain.RatedPost, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.RatedPost{}, false, nil
	}
	return domain.RatedPost{Post: p, Votes: m.countVotes(id)}, true, nil
}

// ListPosts returns posts with vote counts ordered by id, filtered and
// paged the same way the SQL store is.
func (m *MemoryStore) ListPosts(filter PostFilter) ([]domain.RatedPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	ids := make([]int64, 0, len(m.posts))
	for id, p := range m.posts {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := make([]domain.RatedPost, 0, limit)
	for _, id := range ids {
		if skip > 0 {
			skip--
			continue
		}
		if len(res) == limit {
			break
		}
		res = append(res, domain.RatedPost{Post: m.posts[id], Votes: m.countVotes(id)})
	}
	return res, nil
}

// UpdatePost applies the non-nil fields and returns the updated post.
func (m *MemoryStore) UpdatePost(id int64, update PostUpdate) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.Post{}, ErrNotFound
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Published != nil {
		p.Published = *update.Published
	}
	m.posts[id] = p
	return p, nil
}

// DeletePost removes a post and its votes.
func (m *MemoryStore) DeletePost(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	for v := range m.votes {
		if v.PostID == id {
			delete(m.votes, v)
		}
	}
	return nil
}

// CreateVote inserts an upvote; ErrDuplicateVote when it already exists.
func (m *MemoryStore) CreateVote(v domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.votes[v]; exists {
		return ErrDuplicateVote
	}
	m.votes[v] = struct{}{}
	return nil
}

// DeleteVote removes an upvote; ErrNotFound when none exists.
func (m *MemoryStore) DeleteVote(userID, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.Vote{UserID: userID, PostID: postID}
	if _, exists := m.votes[key]; !exists {
		return ErrNotFound
	}
	delete(m.votes, key)
	return nil
}

func (m *MemoryStore) countVotes(postID int64) int64 {
	var n int64
	for v := range m.votes {
		if v.PostID == postID {
			n++
		}
	}
	return n
}
