package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/customer"
	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateChecking(acc *account.CheckingAccount) error {
	args := m.Called(acc)
	return args.Error(0)
}

func (m *MockAccountRepository) CreateCredit(acc *account.CreditAccount) error {
	args := m.Called(acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetChecking(id string) (*account.CheckingAccount, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.CheckingAccount), args.Error(1)
}

func (m *MockAccountRepository) GetCredit(id string) (*account.CreditAccount, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.CreditAccount), args.Error(1)
}

func (m *MockAccountRepository) GetCheckingByCustomer(customerID string) (*account.CheckingAccount, error) {
	args := m.Called(customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.CheckingAccount), args.Error(1)
}

func (m *MockAccountRepository) SaveChecking(acc *account.CheckingAccount) error {
	args := m.Called(acc)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveCredit(acc *account.CreditAccount) error {
	args := m.Called(acc)
	return args.Error(0)
}

func (m *MockAccountRepository) ListChecking(statuses ...account.CheckingStatus) ([]*account.CheckingAccount, error) {
	args := m.Called(statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.CheckingAccount), args.Error(1)
}

func (m *MockAccountRepository) ListCredit(statuses ...account.CreditStatus) ([]*account.CreditAccount, error) {
	args := m.Called(statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.CreditAccount), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Append(rec *transaction.Record) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(id string) (*transaction.Record, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Record), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccount(accountID string, limit, offset int) ([]*transaction.Record, int, error) {
	args := m.Called(accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*transaction.Record), args.Int(1), args.Error(2)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Get() (*ledger.Ledger, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Ledger), args.Error(1)
}

func (m *MockLedgerRepository) Post(entries []ledger.Entry) (*ledger.Ledger, error) {
	args := m.Called(entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Ledger), args.Error(1)
}

type MockClockRepository struct {
	mock.Mock
}

func (m *MockClockRepository) Current() (time.Time, error) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockClockRepository) Set(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(c *customer.Customer) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(id string) (*customer.Customer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByEmail(email string) (*customer.Customer, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) NextID(prefix string) string {
	args := m.Called(prefix)
	return args.String(0)
}
