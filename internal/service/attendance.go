package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/repository"
)

// AttendanceService defines the caller-facing attendance operations.
type AttendanceService interface {
	// List returns all records newest first.
	List(ctx context.Context) ([]model.AttendanceRecord, error)
	// Add validates and normalizes nr, then stores it.
	Add(ctx context.Context, nr model.NewRecord) (model.AttendanceRecord, error)
	// Remove deletes a record by id. Unknown ids are ignored.
	Remove(ctx context.Context, id string) error
}

type AttendanceServiceImpl struct {
	repo     repository.AttendanceRepository
	validate *validator.Validate
	now      func() time.Time
}

// NewAttendanceService constructs AttendanceService over repo.
func NewAttendanceService(repo repository.AttendanceRepository) *AttendanceServiceImpl {
	return &AttendanceServiceImpl{repo: repo, validate: validator.New(), now: time.Now}
}

// List sorts a copy of the stored collection by timestamp descending.
func (s *AttendanceServiceImpl) List(ctx context.Context) ([]model.AttendanceRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]model.AttendanceRecord(nil), records...)
	model.SortNewestFirst(out)
	if out == nil {
		out = []model.AttendanceRecord{}
	}
	return out, nil
}

// Add applies defaults before delegating:
// - StudentName is trimmed and must not be blank
// - Date defaults to today and must be YYYY-MM-DD
// - Status defaults to Present
func (s *AttendanceServiceImpl) Add(ctx context.Context, nr model.NewRecord) (model.AttendanceRecord, error) {
	nr.StudentName = strings.TrimSpace(nr.StudentName)
	nr.Date = strings.TrimSpace(nr.Date)
	if nr.Date == "" {
		nr.Date = s.now().Format(model.DateLayout)
	}
	if nr.Status == "" {
		nr.Status = model.StatusPresent
	}
	if err := s.validate.Struct(nr); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return model.AttendanceRecord{}, fmt.Errorf("%w: %s failed %q", errs.ErrInvalidInput, ve[0].Field(), ve[0].Tag())
		}
		return model.AttendanceRecord{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return s.repo.Add(ctx, nr)
}

// Remove rejects an empty id; anything else goes to the repository.
func (s *AttendanceServiceImpl) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", errs.ErrInvalidInput)
	}
	return s.repo.Remove(ctx, id)
}
