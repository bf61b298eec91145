package kv

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/repository"
	"github.com/and161185/rollbook/internal/store"
)

// UserRepo implements UserRepository over the "users" and "current_user" keys.
type UserRepo struct {
	mu  sync.Mutex
	s   store.Store
	log *zap.Logger
}

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository.
func NewUserRepo(s store.Store, log *zap.Logger) *UserRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserRepo{s: s, log: log}
}

// Create appends c after a linear scan for the same username.
func (r *UserRepo) Create(ctx context.Context, c model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, _, err := readList[model.Credential](ctx, r.s, KeyUsers, r.log)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == c.Username {
			return errs.ErrAlreadyExists
		}
	}
	return write(ctx, r.s, KeyUsers, append(users, c))
}

// GetByUsername scans the collection for an exact username match.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.Credential, error) {
	users, _, err := readList[model.Credential](ctx, r.s, KeyUsers, r.log)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

// GetSession reads the current user; absent or corrupt means logged out.
func (r *UserRepo) GetSession(ctx context.Context) (*model.User, error) {
	u, _, err := readOne[model.User](ctx, r.s, KeyCurrentUser, r.log)
	return u, err
}

// SetSession persists u as the current user.
func (r *UserRepo) SetSession(ctx context.Context, u model.User) error {
	return write(ctx, r.s, KeyCurrentUser, u)
}

// ClearSession removes the current user key.
func (r *UserRepo) ClearSession(ctx context.Context) error {
	return r.s.Remove(ctx, KeyCurrentUser)
}
