package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/metrics"
	"github.com/haifischbank/haifischbank-server/internal/repository"
)

// SchedulerService advances the simulated system clock and drives the
// time-based batch passes. On the first of the month the scheduled
// repayments run before daily penalty accrual, so a pair that can pay never
// collects a penalty for the same day it settles.
type SchedulerService interface {
	CurrentDate() (time.Time, error)
	AdvanceClock(newDate time.Time) (time.Time, error)
}

type schedulerService struct {
	clockRepo  repository.ClockRepository
	accountSvc AccountService
	creditSvc  CreditService
}

func NewSchedulerService(
	clockRepo repository.ClockRepository,
	accountSvc AccountService,
	creditSvc CreditService,
) SchedulerService {
	return &schedulerService{
		clockRepo:  clockRepo,
		accountSvc: accountSvc,
		creditSvc:  creditSvc,
	}
}

func (s *schedulerService) CurrentDate() (time.Time, error) {
	return s.clockRepo.Current()
}

// AdvanceClock moves the clock forward to newDate and runs every batch
// pass that the new date triggers. The clock only moves forward: a date at
// or before the current one is rejected before anything runs. The new date
// is persisted before the passes so a pass failure never leaves the clock
// behind; individual pass failures are logged and do not abort the advance.
func (s *schedulerService) AdvanceClock(newDate time.Time) (time.Time, error) {
	current, err := s.clockRepo.Current()
	if err != nil {
		return time.Time{}, err
	}

	newDate = newDate.UTC().Truncate(24 * time.Hour)
	if !newDate.After(current) {
		return time.Time{}, fmt.Errorf("clock must move forward (current %s, got %s): %w",
			current.Format("2006-01-02"), newDate.Format("2006-01-02"), bankerr.ErrMalformedInput)
	}

	if err := s.clockRepo.Set(newDate); err != nil {
		return time.Time{}, err
	}
	metrics.ClockAdvancesTotal.Inc()
	logger.Info("clock advanced",
		zap.String("from", current.Format("2006-01-02")),
		zap.String("to", newDate.Format("2006-01-02")),
	)

	firstOfMonth := newDate.Day() == 1

	if firstOfMonth {
		s.runPass("monthly_payments", func() (int, error) {
			return s.creditSvc.ProcessMonthlyPayments(newDate)
		})
	}
	s.runPass("daily_penalties", func() (int, error) {
		return s.creditSvc.AccrueDailyPenalties(newDate)
	})
	if firstOfMonth {
		s.runPass("quarterly_fees", func() (int, error) {
			return s.accountSvc.ProcessQuarterlyFees(newDate)
		})
		s.runPass("write_offs", func() (int, error) {
			return s.creditSvc.WriteOffDelinquent(newDate)
		})
	}

	return newDate, nil
}

func (s *schedulerService) runPass(name string, pass func() (int, error)) {
	start := time.Now()
	n, err := pass()
	metrics.SchedulerPassDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("scheduler pass failed", zap.String("pass", name), zap.Error(err))
		return
	}
	logger.Info("scheduler pass done", zap.String("pass", name), zap.Int("processed", n))
}
