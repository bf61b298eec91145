// Package service contains application services for authentication and attendance.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/rollbook/internal/crypto"
	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/repository"
)

// AuthService defines registration and session operations.
//
// Expected negative outcomes (taken username, bad credentials, logged out) are reported
// as false/nil results; only storage faults come back as errors.
type AuthService interface {
	// Register stores a new credential. It returns false if the username exists.
	Register(ctx context.Context, user model.User, secret string) (bool, error)
	// Login verifies credentials and persists the session. It returns nil on mismatch.
	Login(ctx context.Context, username, secret string) (*model.User, error)
	// Logout clears the session.
	Logout(ctx context.Context) error
	// CurrentUser returns the persisted session, or nil.
	CurrentUser(ctx context.Context) (*model.User, error)
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	params pkgcrypto.Params
	log    *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, params pkgcrypto.Params, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, params: params, log: log}
}

// Register hashes the secret with a per-user salt and appends the credential.
// It does not log the user in.
func (s *AuthServiceImpl) Register(ctx context.Context, user model.User, secret string) (bool, error) {
	if user.Username == "" || secret == "" {
		return false, fmt.Errorf("%w: empty username/password", errs.ErrInvalidInput)
	}
	if user.Role == "" {
		user.Role = model.RoleTeacher
	}
	if user.Role != model.RoleTeacher {
		return false, fmt.Errorf("%w: role %q", errs.ErrInvalidInput, user.Role)
	}

	// cheap pre-check so a taken username does not cost a hash
	if _, err := s.users.GetByUsername(ctx, user.Username); err == nil {
		return false, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return false, err
	}

	hash, err := pkgcrypto.HashSecret(secret, s.params)
	if err != nil {
		return false, err
	}
	err = s.users.Create(ctx, model.Credential{Username: user.Username, Role: user.Role, SecretHash: hash})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("user registered", zap.String("username", user.Username))
	return true, nil
}

// Login checks username and secret; on success the stripped user becomes the session.
func (s *AuthServiceImpl) Login(ctx context.Context, username, secret string) (*model.User, error) {
	c, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ok, err := pkgcrypto.VerifySecret(secret, c.SecretHash)
	if err != nil {
		// unusable stored digest counts as a mismatch
		s.log.Warn("stored secret hash unreadable", zap.String("username", username), zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	u := c.User()
	if err := s.users.SetSession(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.String("username", u.Username))
	return &u, nil
}

// Logout clears the session key.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	return s.users.ClearSession(ctx)
}

// CurrentUser restores a prior session without re-authenticating.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context) (*model.User, error) {
	return s.users.GetSession(ctx)
}
