package domain

import "time"

// User is a registered account. PasswordHash holds the bcrypt digest,
// never the plaintext.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Post is a blog entry owned by the user who created it.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote records a single upvote by a user on a post. The (user, post)
// pair is the identity; a user holds at most one vote per post.
type Vote struct {
	UserID int64 `json:"user_id"`
	PostID int64 `json:"post_id"`
}

// RatedPost pairs a post with its aggregate vote count.
type RatedPost struct {
	Post  Post  `json:"post"`
	Votes int64 `json:"vote"`
}
