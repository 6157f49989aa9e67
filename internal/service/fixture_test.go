package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/config"
	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
)

// The in-memory repositories below back the end-to-end scenario tests.
// They mimic the SQL repositories: reads hand out copies, so state only
// changes through Save, and missing rows come back as ErrNotFound.

type memAccountRepo struct {
	mu       sync.Mutex
	checking map[string]account.CheckingAccount
	credit   map[string]account.CreditAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		checking: make(map[string]account.CheckingAccount),
		credit:   make(map[string]account.CreditAccount),
	}
}

func (r *memAccountRepo) CreateChecking(acc *account.CheckingAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checking[acc.ID] = *acc
	return nil
}

func (r *memAccountRepo) CreateCredit(acc *account.CreditAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credit[acc.ID] = *acc
	return nil
}

func (r *memAccountRepo) GetChecking(id string) (*account.CheckingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.checking[id]
	if !ok {
		return nil, fmt.Errorf("checking account %s: %w", id, bankerr.ErrNotFound)
	}
	return &acc, nil
}

func (r *memAccountRepo) GetCredit(id string) (*account.CreditAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.credit[id]
	if !ok {
		return nil, fmt.Errorf("credit account %s: %w", id, bankerr.ErrNotFound)
	}
	return &acc, nil
}

func (r *memAccountRepo) GetCheckingByCustomer(customerID string) (*account.CheckingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range r.checking {
		if acc.CustomerID == customerID {
			acc := acc
			return &acc, nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", customerID, bankerr.ErrNotFound)
}

func (r *memAccountRepo) SaveChecking(acc *account.CheckingAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checking[acc.ID] = *acc
	return nil
}

func (r *memAccountRepo) SaveCredit(acc *account.CreditAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credit[acc.ID] = *acc
	return nil
}

func (r *memAccountRepo) ListChecking(statuses ...account.CheckingStatus) ([]*account.CheckingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*account.CheckingAccount
	for _, acc := range r.checking {
		if matchesChecking(acc.Status, statuses) {
			acc := acc
			out = append(out, &acc)
		}
	}
	return out, nil
}

func (r *memAccountRepo) ListCredit(statuses ...account.CreditStatus) ([]*account.CreditAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*account.CreditAccount
	for _, acc := range r.credit {
		if matchesCredit(acc.Status, statuses) {
			acc := acc
			out = append(out, &acc)
		}
	}
	return out, nil
}

func matchesChecking(s account.CheckingStatus, statuses []account.CheckingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func matchesCredit(s account.CreditStatus, statuses []account.CreditStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

type memTxRepo struct {
	mu      sync.Mutex
	records []transaction.Record
}

func (r *memTxRepo) Append(rec *transaction.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *memTxRepo) GetByID(id string) (*transaction.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec := rec
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, bankerr.ErrNotFound)
}

func (r *memTxRepo) ListByAccount(accountID string, limit, offset int) ([]*transaction.Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*transaction.Record
	for i := range r.records {
		rec := r.records[i]
		if rec.AccountID == accountID || rec.CreditAccountID == accountID {
			matched = append(matched, &rec)
		}
	}
	total := len(matched)
	if limit <= 0 {
		limit = 50
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// byType returns every stored record of the given type, in append order.
func (r *memTxRepo) byType(t transaction.Type) []transaction.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transaction.Record
	for _, rec := range r.records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

type memLedgerRepo struct {
	mu       sync.Mutex
	balances map[ledger.Bucket]decimal.Decimal
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{balances: make(map[ledger.Bucket]decimal.Decimal)}
}

func (r *memLedgerRepo) Get() (*ledger.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := &ledger.Ledger{Balances: make(map[ledger.Bucket]decimal.Decimal), UpdatedAt: time.Now()}
	for _, b := range ledger.Buckets {
		out.Balances[b] = r.balances[b]
	}
	return out, nil
}

func (r *memLedgerRepo) Post(entries []ledger.Entry) (*ledger.Ledger, error) {
	r.mu.Lock()
	for _, e := range entries {
		r.balances[e.Bucket] = r.balances[e.Bucket].Add(e.Amount)
	}
	r.mu.Unlock()
	return r.Get()
}

type memClockRepo struct {
	mu  sync.Mutex
	now time.Time
}

func (r *memClockRepo) Current() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now, nil
}

func (r *memClockRepo) Set(t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = t
	return nil
}

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NextID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", prefix, g.n)
}

// fixture wires the real services over in-memory repositories.
type fixture struct {
	accounts   *memAccountRepo
	txs        *memTxRepo
	ledgers    *memLedgerRepo
	clock      *memClockRepo
	ledgerSvc  LedgerService
	accountSvc AccountService
	creditSvc  CreditService
	scheduler  SchedulerService
	events     EventService
	bank       config.Bank
}

func newFixture(start time.Time) *fixture {
	f := &fixture{
		accounts: newMemAccountRepo(),
		txs:      &memTxRepo{},
		ledgers:  newMemLedgerRepo(),
		clock:    &memClockRepo{now: start},
		bank:     config.DefaultBank(),
	}
	ids := &seqIDGen{}
	f.ledgerSvc = NewLedgerService(f.ledgers, f.accounts)
	f.accountSvc = NewAccountService(f.accounts, f.txs, f.ledgerSvc, ids, f.bank)
	f.creditSvc = NewCreditService(f.accounts, f.txs, f.ledgerSvc, ids, f.bank)
	f.scheduler = NewSchedulerService(f.clock, f.accountSvc, f.creditSvc)
	f.events = NewEventService(f.accountSvc, f.creditSvc, f.scheduler)
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
