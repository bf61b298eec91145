// Package contact delivers contact-form submissions.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/errs"
)

// Messages shown to the sender.
const (
	MsgReceived        = "Message received! We will get back to you shortly."
	MsgConnectFailed   = "Failed to connect to the server."
	MsgSomethingFailed = "Something went wrong. Please try again."
)

// Form is a contact request.
type Form struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Result is the endpoint's reply.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submitter delivers a form. Delivery failures are reported wrapped in errs.ErrTransport.
type Submitter interface {
	Submit(ctx context.Context, f Form) (Result, error)
}

// Service validates forms and maps delivery failures to sender-facing results.
type Service struct {
	sub      Submitter
	validate *validator.Validate
	log      *zap.Logger
}

// NewService constructs a contact service.
func NewService(sub Submitter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sub: sub, validate: validator.New(), log: log}
}

// Send returns errs.ErrInvalidInput for incomplete forms. Any other failure becomes an
// unsuccessful Result.
func (s *Service) Send(ctx context.Context, f Form) (Result, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	if err := s.validate.Struct(f); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return Result{}, fmt.Errorf("%w: %s failed %q", errs.ErrInvalidInput, ve[0].Field(), ve[0].Tag())
		}
		return Result{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	res, err := s.sub.Submit(ctx, f)
	if err != nil {
		s.log.Warn("contact submission failed", zap.String("email", f.Email), zap.Error(err))
		return Result{Success: false, Message: MsgConnectFailed}, nil
	}
	if !res.Success {
		s.log.Warn("contact endpoint rejected submission", zap.String("reply", res.Message))
		return Result{Success: false, Message: MsgSomethingFailed}, nil
	}
	s.log.Info("contact message delivered", zap.String("subject", f.Subject))
	return res, nil
}
