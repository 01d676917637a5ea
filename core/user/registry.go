package user

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

// Registry is the user directory the session authenticates against.
type Registry interface {
	// Append stores u under a fresh sequential id and returns the stored copy.
	Append(ctx context.Context, u User) (User, error)
	// FindByCredentials returns nil, nil when no user matches email and password.
	FindByCredentials(ctx context.Context, email, pwd string) (*User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	QueryAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u User) (User, error)
}
