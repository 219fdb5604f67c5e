package fiscalyears

import (
	"context"
	"errors"
	"time"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, in CreateInput) (FiscalYear, error)
	List(ctx context.Context, orgID int64) ([]FiscalYear, error)
	FindByDate(ctx context.Context, orgID int64, date time.Time) (FiscalYear, error)
	SetLocked(ctx context.Context, orgID, id int64, locked bool) error
}

// Service coordinates fiscal year management and the posting guard.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the fiscal years service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new fiscal year.
func (s *Service) Create(ctx context.Context, in CreateInput) (FiscalYear, error) {
	if err := in.Validate(); err != nil {
		return FiscalYear{}, err
	}
	return s.repo.Insert(ctx, in)
}

// List returns the organization's fiscal years, newest first.
func (s *Service) List(ctx context.Context, orgID int64) ([]FiscalYear, error) {
	return s.repo.List(ctx, orgID)
}

// Lock stops further postings into the fiscal year.
func (s *Service) Lock(ctx context.Context, orgID, id int64) error {
	return s.repo.SetLocked(ctx, orgID, id, true)
}

// Unlock re-enables postings into the fiscal year.
func (s *Service) Unlock(ctx context.Context, orgID, id int64) error {
	return s.repo.SetLocked(ctx, orgID, id, false)
}

// EnsureOpenForPosting verifies that an open fiscal year covers the voucher
// date. Closed years reject postings whether or not the lock flag was set,
// so a year the nightly roll transitioned to closed stops accepting entries
// immediately. The posting engine calls this before writing anything.
func (s *Service) EnsureOpenForPosting(ctx context.Context, orgID int64, date time.Time) error {
	year, err := s.repo.FindByDate(ctx, orgID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNoOpenYear
		}
		return err
	}
	if year.IsLocked || year.Status == StatusClosed {
		return ErrLocked
	}
	return nil
}
