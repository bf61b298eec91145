// Package model defines domain entities used by services and repositories.
package model

import "sort"

// DateLayout is the calendar-date format of AttendanceRecord.Date.
const DateLayout = "2006-01-02"

// Role is the account role. Only teachers exist.
type Role string

const RoleTeacher Role = "teacher"

// User is an authenticated identity without credentials. It is also the persisted session shape.
type User struct {
	Username string `json:"username" validate:"required"`
	Role     Role   `json:"role" validate:"required,oneof=teacher"`
}

// Credential is a stored user entry. SecretHash is a PHC-encoded argon2id digest, never the secret itself.
type Credential struct {
	Username   string `json:"username" validate:"required"`
	Role       Role   `json:"role" validate:"required,oneof=teacher"`
	SecretHash string `json:"secretHash" validate:"required"`
}

// User strips the secret.
func (c Credential) User() User {
	return User{Username: c.Username, Role: c.Role}
}

// Status is the attendance mark of a single record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// AttendanceRecord is a single immutable attendance entry.
type AttendanceRecord struct {
	ID          string `json:"id" validate:"required"`
	StudentName string `json:"studentName"`
	Date        string `json:"date"`
	Status      Status `json:"status" validate:"oneof=Present Absent Late"`
	Timestamp   int64  `json:"timestamp" validate:"gte=0"` // unix millis at creation
}

// NewRecord is a record creation intent; id and timestamp are assigned by the repository.
type NewRecord struct {
	StudentName string `json:"studentName" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status      Status `json:"status" validate:"omitempty,oneof=Present Absent Late"`
}

// SortNewestFirst orders records by timestamp descending; equal timestamps keep their relative order.
func SortNewestFirst(records []AttendanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}
