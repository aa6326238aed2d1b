package app

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and stale
	// or invalid tokens alike, so responses cannot be used for account
	// enumeration.
	ErrInvalidCredentials = errors.New("Invalid Credentials")

	ErrEmailRequired      = errors.New("email required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailAlreadyExists = errors.New("email already registered")

	ErrUserNotFound = errors.New("user does not exist")
	ErrPostNotFound = errors.New("post does not exist")
	ErrVoteNotFound = errors.New("vote does not exist")

	ErrNotPostOwner = errors.New("not authorized to perform requested action")
	ErrAlreadyVoted = errors.New("already voted on this post")

	ErrTitleRequired   = errors.New("title required")
	ErrContentRequired = errors.New("content required")
	ErrInvalidVoteDir  = errors.New("vote direction must be 0 or 1")
)
