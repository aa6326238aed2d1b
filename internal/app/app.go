package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"postboard/pkg/auth"
	"postboard/pkg/domain"
	"postboard/pkg/store"
	"postboard/pkg/token"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	TokenSecret   string
	TokenTTL      time.Duration
	TokenIssuer   string
	TokenAudience string
	TokenLeeway   time.Duration

	// Store and Tokens override the defaults built from the fields above
	// (used by tests).
	Store  store.Store
	Tokens *token.Service
}

// App is the core application service wiring storage, password hashing,
// and token issuance together.
type App struct {
	store  store.Store
	tokens *token.Service
}

// New constructs the application with database storage and a token service.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		var err error
		tokens, err = token.New(cfg.TokenSecret, token.Options{
			Issuer:   cfg.TokenIssuer,
			Audience: cfg.TokenAudience,
			TTL:      cfg.TokenTTL,
			Leeway:   cfg.TokenLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init token service: %w", err)
		}
	}
	return &App{store: dataStore, tokens: tokens}, nil
}

// Register creates a new user account. The plaintext password is hashed
// before it reaches the store.
func (a *App) Register(email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, ErrEmailRequired
	}
	if !validEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	digest, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.store.CreateUser(domain.User{
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailAlreadyExists
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a bearer token. Unknown email and
// wrong password collapse to the same error.
func (a *App) Login(email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	accessToken, err := a.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return accessToken, nil
}

// UserFromToken resolves the caller from a bearer token, re-loading the
// user record so a deleted account invalidates outstanding tokens.
func (a *App) UserFromToken(raw string) (domain.User, error) {
	userID, err := a.tokens.Verify(raw)
	if err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns a user by id (public profile lookup).
func (a *App) GetUser(id int64) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// PostInput carries the fields of a post creation request.
type PostInput struct {
	Title     string
	Content   string
	Published *bool
}

// CreatePost stores a new post owned by the caller. The owner is always
// the authenticated caller, never a client-supplied id.
func (a *App) CreatePost(caller domain.User, in PostInput) (domain.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Post{}, ErrTitleRequired
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Post{}, ErrContentRequired
	}
	published := true
	if in.Published != nil {
		published = *in.Published
	}
	post, err := a.store.CreatePost(domain.Post{
		Title:     in.Title,
		Content:   in.Content,
		Published: published,
		UserID:    caller.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Post{}, fmt.Errorf("save post: %w", err)
	}
	return post, nil
}

// ListPosts returns posts with vote counts. All posts are visible to any
// authenticated caller; listing is not owner-restricted.
func (a *App) ListPosts(filter store.PostFilter) ([]domain.RatedPost, error) {
	posts, err := a.store.ListPosts(filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns one post with its vote count.
func (a *App) GetPost(id int64) (domain.RatedPost, error) {
	post, ok, err := a.store.GetPost(id)
	if err != nil {
		return domain.RatedPost{}, fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return domain.RatedPost{}, ErrPostNotFound
	}
	return post, nil
}

// UpdatePost applies a partial update after the ownership check. Fields
// absent from the payload stay untouched; id and created_at are never
// updatable.
func (a *App) UpdatePost(caller domain.User, id int64, update store.PostUpdate) (domain.Post, error) {
	existing, ok, err := a.store.GetPost(id)
	if err != nil {
		return domain.Post{}, fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return domain.Post{}, ErrPostNotFound
	}
	if existing.Post.UserID != caller.ID {
		return domain.Post{}, ErrNotPostOwner
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return domain.Post{}, ErrTitleRequired
	}
	if update.Content != nil && strings.TrimSpace(*update.Content) == "" {
		return domain.Post{}, ErrContentRequired
	}
	post, err := a.store.UpdatePost(id, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Post{}, ErrPostNotFound
		}
		return domain.Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// DeletePost removes a post (votes cascade) after the ownership check.
func (a *App) DeletePost(caller domain.User, id int64) error {
	existing, ok, err := a.store.GetPost(id)
	if err != nil {
		return fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return ErrPostNotFound
	}
	if existing.Post.UserID != caller.ID {
		return ErrNotPostOwner
	}
	if err := a.store.DeletePost(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// CastVote toggles the caller's upvote on a post: dir 1 adds (conflict when
// already present), dir 0 removes (not found when absent). Races between
// concurrent upvotes resolve on the store's unique constraint.
func (a *App) CastVote(caller domain.User, postID int64, dir int) error {
	if dir != 0 && dir != 1 {
		return ErrInvalidVoteDir
	}
	if _, ok, err := a.store.GetPost(postID); err != nil {
		return fmt.Errorf("fetch post: %w", err)
	} else if !ok {
		return ErrPostNotFound
	}
	if dir == 1 {
		err := a.store.CreateVote(domain.Vote{UserID: caller.ID, PostID: postID})
		if errors.Is(err, store.ErrDuplicateVote) {
			return ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("save vote: %w", err)
		}
		return nil
	}
	err := a.store.DeleteVote(caller.ID, postID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrVoteNotFound
	}
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t") {
		return false
	}
	return !strings.Contains(email[at+1:], "@")
}
