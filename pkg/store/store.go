package store

import (
	"errors"

	"postboard/pkg/domain"
)

// DefaultListLimit caps post listings when the caller sends no limit.
const DefaultListLimit = 10

var (
	// ErrDuplicateEmail reports a unique-constraint hit on users.email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateVote reports a unique-constraint hit on the
	// (user_id, post_id) vote key.
	ErrDuplicateVote = errors.New("vote already recorded")
	// ErrNotFound reports a missing row on update or delete.
	ErrNotFound = errors.New("record not found")
)

// PostFilter narrows and pages post listings.
type PostFilter struct {
	// Search is matched case-insensitively as a substring of the title.
	Search string
	// Limit defaults to DefaultListLimit when zero or negative.
	Limit int
	Skip  int
}

// PostUpdate carries the fields of a partial post update; nil fields are
// left untouched.
type PostUpdate struct {
	Title     *string
	Content   *string
	Published *bool
}

// Store defines persistence for users, posts, and votes.
type Store interface {
	// users
	CreateUser(domain.User) (domain.User, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)

	// posts
	CreatePost(domain.Post) (domain.Post, error)
	GetPost(id int64) (domain.RatedPost, bool, error)
	ListPosts(PostFilter) ([]domain.RatedPost, error)
	UpdatePost(id int64, update PostUpdate) (domain.Post, error)
	DeletePost(id int64) error

	// votes
	CreateVote(domain.Vote) error
	DeleteVote(userID, postID int64) error
}
