package accounts

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-erp/strata-erp/internal/shared"
	_ "github.com/strata-erp/strata-erp/testing"
)

type mockRepository struct {
	accounts map[int64]Account
	byCode   map[string]int64
	nextID   int64

	insertError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[int64]Account),
		byCode:   make(map[string]int64),
		nextID:   1,
	}
}

func (m *mockRepository) Insert(ctx context.Context, in CreateInput) (Account, error) {
	if m.insertError != nil {
		return Account{}, m.insertError
	}
	if _, exists := m.byCode[codeKey(in.OrgID, in.Code)]; exists {
		return Account{}, ErrDuplicateCode
	}
	account := Account{
		ID:             m.nextID,
		OrgID:          in.OrgID,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		SubType:        in.SubType,
		OpeningBalance: in.OpeningBalance,
		CurrentBalance: in.OpeningBalance,
		Status:         AccountStatusActive,
		IsCashAccount:  in.IsCashAccount,
		IsBankAccount:  in.IsBankAccount,
	}
	m.nextID++
	m.accounts[account.ID] = account
	m.byCode[codeKey(in.OrgID, in.Code)] = account.ID
	return account, nil
}

func (m *mockRepository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	account, ok := m.accounts[id]
	if !ok || account.OrgID != orgID {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (m *mockRepository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, int, error) {
	out := make([]Account, 0)
	for _, account := range m.accounts {
		if account.OrgID != orgID {
			continue
		}
		if filter.Type != "" && account.Type != filter.Type {
			continue
		}
		if filter.Status != "" && account.Status != filter.Status {
			continue
		}
		out = append(out, account)
	}
	return out, len(out), nil
}

func (m *mockRepository) SetStatus(ctx context.Context, orgID, id int64, status AccountStatus) error {
	account, ok := m.accounts[id]
	if !ok || account.OrgID != orgID {
		return ErrNotFound
	}
	account.Status = status
	m.accounts[id] = account
	return nil
}

func codeKey(orgID int64, code string) string {
	return strconv.FormatInt(orgID, 10) + ":" + code
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func validInput() CreateInput {
	return CreateInput{
		OrgID:          1,
		Code:           "1000",
		Name:           "Cash",
		Type:           AccountTypeAsset,
		OpeningBalance: d("250.00"),
		IsCashAccount:  true,
	}
}

func TestCreateAccount(t *testing.T) {
	repo := newMockRepository()
	audit := &mockAudit{}
	svc := NewService(repo, audit)

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "1000", account.Code)
	assert.Equal(t, AccountStatusActive, account.Status)
	assert.True(t, account.CurrentBalance.Equal(d("250.00")))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "account.create", audit.logs[0].Action)
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	badType := validInput()
	badType.Type = "bank"
	_, err := svc.Create(context.Background(), badType)
	assert.ErrorIs(t, err, ErrInvalidType)

	blankCode := validInput()
	blankCode.Code = "  "
	_, err = svc.Create(context.Background(), blankCode)
	assert.Error(t, err)

	tooPrecise := validInput()
	tooPrecise.OpeningBalance = d("10.001")
	_, err = svc.Create(context.Background(), tooPrecise)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestGetCrossTenant(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, account.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), 1, account.ID))
	got, err := svc.Get(context.Background(), 1, account.ID)
	require.NoError(t, err)
	assert.Equal(t, AccountStatusInactive, got.Status)
}

func TestNormalDebit(t *testing.T) {
	assert.True(t, Account{Type: AccountTypeAsset}.NormalDebit())
	assert.True(t, Account{Type: AccountTypeExpense}.NormalDebit())
	assert.False(t, Account{Type: AccountTypeLiability}.NormalDebit())
	assert.False(t, Account{Type: AccountTypeEquity}.NormalDebit())
	assert.False(t, Account{Type: AccountTypeRevenue}.NormalDebit())
}
