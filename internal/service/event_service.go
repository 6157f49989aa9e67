package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
)

// EventService routes language-neutral business events to the owning
// service. Malformed events fail before any state changes; in a batch a
// failed event is logged and skipped so the rest of the batch still runs.
type EventService interface {
	ProcessEvent(ev transaction.EventRecord) (*transaction.Record, error)
	ProcessBatch(events []transaction.EventRecord) ([]*transaction.Record, int)
}

type eventService struct {
	accountSvc   AccountService
	creditSvc    CreditService
	schedulerSvc SchedulerService
}

func NewEventService(accountSvc AccountService, creditSvc CreditService, schedulerSvc SchedulerService) EventService {
	return &eventService{
		accountSvc:   accountSvc,
		creditSvc:    creditSvc,
		schedulerSvc: schedulerSvc,
	}
}

func (s *eventService) ProcessEvent(ev transaction.EventRecord) (*transaction.Record, error) {
	ts := ev.Timestamp
	if ts.IsZero() {
		current, err := s.schedulerSvc.CurrentDate()
		if err != nil {
			return nil, err
		}
		ts = current
	}

	switch ev.Type {
	case transaction.EventTransferIn:
		amount, err := parseAmount(ev.Amount)
		if err != nil {
			return nil, err
		}
		return s.accountSvc.Deposit(ev.Account, ev.FromIBAN, amount, ts)

	case transaction.EventTransferOut:
		amount, err := parseAmount(ev.Amount)
		if err != nil {
			return nil, err
		}
		return s.accountSvc.TransferOut(ev.Account, ev.ToIBAN, amount, ts)

	case transaction.EventCreditRequest:
		amount, err := parseAmount(ev.Amount)
		if err != nil {
			return nil, err
		}
		return s.creditSvc.RequestCredit(ev.Account, amount, ts)

	case transaction.EventManualRepayment:
		amount, err := parseAmount(ev.Amount)
		if err != nil {
			return nil, err
		}
		return s.creditSvc.ManualRepayment(ev.Account, amount, ts)

	case transaction.EventAccountClosure:
		return s.accountSvc.CloseAccount(ev.Account, ts)

	case transaction.EventTimeEvent:
		newDate, err := time.Parse("2006-01-02", ev.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", ev.Date, bankerr.ErrMalformedInput)
		}
		advanced, err := s.schedulerSvc.AdvanceClock(newDate)
		if err != nil {
			return nil, err
		}
		// The clock advance itself is acknowledged but not persisted to
		// any account history.
		return &transaction.Record{
			Type:      transaction.TypeTimeEvent,
			Timestamp: advanced,
			Status:    transaction.StatusCompleted,
		}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q: %w", ev.Type, bankerr.ErrMalformedInput)
	}
}

// ProcessBatch runs events in order and returns the records of the events
// that produced one, along with the number of events that failed.
func (s *eventService) ProcessBatch(events []transaction.EventRecord) ([]*transaction.Record, int) {
	records := make([]*transaction.Record, 0, len(events))
	failed := 0
	for i, ev := range events {
		rec, err := s.ProcessEvent(ev)
		if err != nil {
			failed++
			logger.Warn("event skipped",
				zap.Int("index", i),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
			continue
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, failed
}

// parseAmount parses a decimal string strictly; anything that does not
// parse or is not strictly positive rejects the event before any mutation.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", raw, bankerr.ErrMalformedInput)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount %q must be positive: %w", raw, bankerr.ErrMalformedInput)
	}
	return amount, nil
}
