// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/rollbook/internal/model"
)

// UserRepository provides access to stored credentials and the current session.
type UserRepository interface {
	// Create appends a credential; errs.ErrAlreadyExists if the username is taken.
	Create(ctx context.Context, c model.Credential) error
	// GetByUsername loads a credential by exact username; errs.ErrNotFound if missing.
	GetByUsername(ctx context.Context, username string) (*model.Credential, error)
	// GetSession returns the persisted current user, or nil when logged out.
	GetSession(ctx context.Context) (*model.User, error)
	// SetSession persists u as the current user.
	SetSession(ctx context.Context, u model.User) error
	// ClearSession removes the current user.
	ClearSession(ctx context.Context) error
}
