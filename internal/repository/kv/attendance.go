package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/repository"
	"github.com/and161185/rollbook/internal/store"
)

// AttendanceRepo implements AttendanceRepository over the "attendance" key.
//
// Read-modify-write cycles are serialized within the process only; another process
// sharing the same store can still interleave and win.
type AttendanceRepo struct {
	mu    sync.Mutex
	s     store.Store
	log   *zap.Logger
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

var _ repository.AttendanceRepository = (*AttendanceRepo)(nil)

// NewAttendanceRepo constructs an attendance repository.
func NewAttendanceRepo(s store.Store, log *zap.Logger) *AttendanceRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttendanceRepo{s: s, log: log, now: time.Now, newID: uuid.NewV4}
}

// List returns records in insertion order.
func (r *AttendanceRepo) List(ctx context.Context) ([]model.AttendanceRecord, error) {
	records, state, err := readList[model.AttendanceRecord](ctx, r.s, KeyAttendance, r.log)
	if err != nil {
		return nil, err
	}
	r.log.Debug("attendance listed", zap.Stringer("state", state), zap.Int("count", len(records)))
	return records, nil
}

// Add appends a new record. The student name is stored as given; blank names are
// rejected by callers. The timestamp never goes below the newest stored one.
func (r *AttendanceRepo) Add(ctx context.Context, nr model.NewRecord) (model.AttendanceRecord, error) {
	if !nr.Status.Valid() {
		return model.AttendanceRecord{}, fmt.Errorf("%w: status %q", errs.ErrInvalidInput, nr.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, _, err := readList[model.AttendanceRecord](ctx, r.s, KeyAttendance, r.log)
	if err != nil {
		return model.AttendanceRecord{}, err
	}

	id, err := r.uniqueID(records)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	ts := r.now().UnixMilli()
	for _, rec := range records {
		if rec.Timestamp > ts {
			ts = rec.Timestamp
		}
	}

	rec := model.AttendanceRecord{
		ID:          id,
		StudentName: nr.StudentName,
		Date:        nr.Date,
		Status:      nr.Status,
		Timestamp:   ts,
	}
	records = append(records, rec)
	if err := write(ctx, r.s, KeyAttendance, records); err != nil {
		return model.AttendanceRecord{}, err
	}
	r.log.Debug("attendance added", zap.String("id", rec.ID), zap.Int("total", len(records)))
	return rec, nil
}

// Remove drops the record with id. Nothing is written when id is unknown.
func (r *AttendanceRepo) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, _, err := readList[model.AttendanceRecord](ctx, r.s, KeyAttendance, r.log)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	if err := write(ctx, r.s, KeyAttendance, kept); err != nil {
		return err
	}
	r.log.Debug("attendance removed", zap.String("id", id), zap.Int("total", len(kept)))
	return nil
}

func (r *AttendanceRepo) uniqueID(existing []model.AttendanceRecord) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		taken[rec.ID] = struct{}{}
	}
	for range 3 {
		u, err := r.newID()
		if err != nil {
			return "", err
		}
		if _, dup := taken[u.String()]; !dup {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("generate record id: %w", errs.ErrAlreadyExists)
}
