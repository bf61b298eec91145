package repository

import (
	"context"

	"github.com/and161185/rollbook/internal/model"
)

// AttendanceRepository provides create/list/delete access to attendance records.
type AttendanceRepository interface {
	// List returns all records in insertion order. Absent or corrupt data reads as empty.
	List(ctx context.Context) ([]model.AttendanceRecord, error)
	// Add assigns id and timestamp, appends the record and persists the collection.
	Add(ctx context.Context, r model.NewRecord) (model.AttendanceRecord, error)
	// Remove deletes the record with id; an unknown id is a no-op.
	Remove(ctx context.Context, id string) error
}
