package fiscalyears

import (
	"errors"
	"strings"
	"time"
)

// Status enumerates fiscal year states.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusCurrent  Status = "current"
	StatusClosed   Status = "closed"
)

// FiscalYear represents an organization's accounting year window.
type FiscalYear struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"organization_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    Status    `json:"status"`
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Covers reports whether the date falls inside the year window.
func (fy FiscalYear) Covers(date time.Time) bool {
	return !date.Before(fy.StartDate) && !date.After(fy.EndDate)
}

var (
	// ErrNotFound indicates no fiscal year matched.
	ErrNotFound = errors.New("fiscalyears: fiscal year not found")
	// ErrLocked indicates the year no longer accepts postings.
	ErrLocked = errors.New("fiscalyears: fiscal year is locked")
	// ErrNoOpenYear indicates no unlocked year covers the posting date.
	ErrNoOpenYear = errors.New("fiscalyears: no open fiscal year covers the date")
	// ErrInvalidRange indicates end date not after start date.
	ErrInvalidRange = errors.New("fiscalyears: end date must be after start date")
)

// CreateInput groups the fields required to create a fiscal year.
type CreateInput struct {
	OrgID     int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
}

// Validate ensures the input meets minimum criteria.
func (in CreateInput) Validate() error {
	if in.OrgID == 0 {
		return errors.New("fiscalyears: organization required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("fiscalyears: name required")
	}
	if !in.EndDate.After(in.StartDate) {
		return ErrInvalidRange
	}
	switch in.Status {
	case "", StatusUpcoming, StatusCurrent, StatusClosed:
	default:
		return errors.New("fiscalyears: invalid status")
	}
	return nil
}
