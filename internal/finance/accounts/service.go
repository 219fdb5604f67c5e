package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-erp/strata-erp/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, in CreateInput) (Account, error)
	Get(ctx context.Context, orgID, id int64) (Account, error)
	List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, int, error)
	SetStatus(ctx context.Context, orgID, id int64, status AccountStatus) error
}

// AuditPort records account events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates chart of accounts operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the accounts service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new account. The current balance starts at
// the opening balance and is mutated only by the posting engine afterwards.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	account, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    in.OrgID,
			Action:   "account.create",
			Entity:   "account",
			EntityID: fmt.Sprintf("%d", account.ID),
			Meta: map[string]any{
				"code": account.Code,
				"type": string(account.Type),
			},
			At: s.now(),
		})
	}
	return account, nil
}

// Get returns one account scoped to the organization.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns accounts ordered by code with pagination metadata.
func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, shared.Pagination, error) {
	accounts, total, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	return accounts, shared.NewPagination(filter.Page, perPage, total), nil
}

// Deactivate soft-disables an account. Postings against inactive accounts are
// still valid history; the account just stops appearing in active listings.
func (s *Service) Deactivate(ctx context.Context, orgID, id int64) error {
	return s.repo.SetStatus(ctx, orgID, id, AccountStatusInactive)
}
