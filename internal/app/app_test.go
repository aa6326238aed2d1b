package app

import (
	"errors"
	"testing"
	"time"

	"postboard/pkg/domain"
	"postboard/pkg/store"
	"postboard/pkg/token"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	tokens, err := token.New("test-secret", token.Options{TTL: time.Hour})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	a, err := New(Config{Store: store.NewMemoryStore(), Tokens: tokens})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func mustRegister(t *testing.T, a *App, email string) domain.User {
	t.Helper()
	user, err := a.Register(email, "p1")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func mustCreatePost(t *testing.T, a *App, caller domain.User, title string) domain.Post {
	t.Helper()
	post, err := a.CreatePost(caller, PostInput{Title: title, Content: "c"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	if user.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	if user.PasswordHash == "p1" || user.PasswordHash == "" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	a := newTestApp(t)
	mustRegister(t, a, "A@X.com")
	if _, err := a.Register("a@x.com", "p2"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.Register("", "p1"); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	if _, err := a.Register("not-an-email", "p1"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := a.Register("a@x.com", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestLoginUniformError(t *testing.T) {
	a := newTestApp(t)
	mustRegister(t, a, "a@x.com")

	if _, err := a.Login("missing@x.com", "p1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login("a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login("a@x.com", "p1"); err != nil {
		t.Fatalf("valid login failed: %v", err)
	}
}

func TestUserFromToken(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	raw, err := a.Login("a@x.com", "p1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := a.UserFromToken(raw)
	if err != nil {
		t.Fatalf("user from token: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
	if _, err := a.UserFromToken("garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad token, got %v", err)
	}
}

func TestUserFromTokenRejectsDeletedUser(t *testing.T) {
	// A token for a user the store no longer knows must not authenticate.
	tokens, err := token.New("test-secret", token.Options{TTL: time.Hour})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	a, err := New(Config{Store: store.NewMemoryStore(), Tokens: tokens})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	raw, err := tokens.Issue(999)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := a.UserFromToken(raw); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for missing user, got %v", err)
	}
}

func TestCreatePostForcesOwner(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	post := mustCreatePost(t, a, user, "t")
	if post.UserID != user.ID {
		t.Fatalf("expected owner %d, got %d", user.ID, post.UserID)
	}
	if !post.Published {
		t.Fatal("expected published to default to true")
	}

	unpublished := false
	post2, err := a.CreatePost(user, PostInput{Title: "t2", Content: "c", Published: &unpublished})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post2.Published {
		t.Fatal("expected explicit published=false to stick")
	}
}

func TestCreatePostValidation(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	if _, err := a.CreatePost(user, PostInput{Content: "c"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := a.CreatePost(user, PostInput{Title: "t"}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	a := newTestApp(t)
	owner := mustRegister(t, a, "owner@x.com")
	other := mustRegister(t, a, "other@x.com")
	post := mustCreatePost(t, a, owner, "t")

	newTitle := "changed"
	if _, err := a.UpdatePost(other, post.ID, store.PostUpdate{Title: &newTitle}); !errors.Is(err, ErrNotPostOwner) {
		t.Fatalf("expected ErrNotPostOwner on update, got %v", err)
	}
	if err := a.DeletePost(other, post.ID); !errors.Is(err, ErrNotPostOwner) {
		t.Fatalf("expected ErrNotPostOwner on delete, got %v", err)
	}

	updated, err := a.UpdatePost(owner, post.ID, store.PostUpdate{Title: &newTitle})
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Title != "changed" || updated.Content != "c" {
		t.Fatalf("partial update went wrong: %+v", updated)
	}
	if err := a.DeletePost(owner, post.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, err := a.GetPost(post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound after delete, got %v", err)
	}
}

func TestUpdateMissingPost(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	title := "t"
	if _, err := a.UpdatePost(user, 12345, store.PostUpdate{Title: &title}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	if err := a.DeletePost(user, 12345); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestCastVoteToggle(t *testing.T) {
	a := newTestApp(t)
	owner := mustRegister(t, a, "owner@x.com")
	voter := mustRegister(t, a, "voter@x.com")
	post := mustCreatePost(t, a, owner, "t")

	if err := a.CastVote(voter, post.ID, 1); err != nil {
		t.Fatalf("first upvote: %v", err)
	}
	if err := a.CastVote(voter, post.ID, 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	rated, err := a.GetPost(post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if rated.Votes != 1 {
		t.Fatalf("expected 1 vote, got %d", rated.Votes)
	}

	if err := a.CastVote(voter, post.ID, 0); err != nil {
		t.Fatalf("remove vote: %v", err)
	}
	if err := a.CastVote(voter, post.ID, 0); !errors.Is(err, ErrVoteNotFound) {
		t.Fatalf("expected ErrVoteNotFound, got %v", err)
	}

	rated, err = a.GetPost(post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if rated.Votes != 0 {
		t.Fatalf("expected vote count back to 0, got %d", rated.Votes)
	}
}

func TestCastVoteEdgeCases(t *testing.T) {
	a := newTestApp(t)
	user := mustRegister(t, a, "a@x.com")
	if err := a.CastVote(user, 12345, 1); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound for missing post, got %v", err)
	}
	post := mustCreatePost(t, a, user, "t")
	if err := a.CastVote(user, post.ID, 2); !errors.Is(err, ErrInvalidVoteDir) {
		t.Fatalf("expected ErrInvalidVoteDir, got %v", err)
	}
}
