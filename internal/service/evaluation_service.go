package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"propfirm/internal/config"
	"propfirm/internal/engine"
	"propfirm/internal/metrics"
	"propfirm/internal/models"
	"propfirm/internal/repository"
	"propfirm/internal/stream"
)

// EvaluationResult is the full outcome of one Evaluate call, exposed to
// dashboards, the risk monitor and admin tools.
type EvaluationResult struct {
	AccountID uint64 `json:"account_id"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`

	Snapshot   engine.Snapshot         `json:"snapshot"`
	Compliance engine.ComplianceResult `json:"compliance"`
	RiskLevel  engine.RiskLevel        `json:"risk_level"`

	NewViolations []models.Violation      `json:"new_violations"`
	Transition    *models.PhaseTransition `json:"transition,omitempty"`

	// StaleEquity flags that the broker adapter has not delivered an equity
	// reading within the configured window; the numbers are still served,
	// time-stamped, and the staleness is the consumer's to display.
	StaleEquity bool `json:"stale_equity"`
}

// EvaluationService runs the compliance pipeline for one account:
// day accounting, metrics, rule evaluation, violation detection, risk
// classification and the phase state machine, all under the account lock.
type EvaluationService struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Config    config.EvaluatorConfig
	Collector *metrics.Collector
	Stream    *stream.Hub

	locks *accountLocks

	// now is swappable in tests.
	now func() time.Time
}

func NewEvaluationService(repo repository.Repository, logger *zap.Logger, cfg config.EvaluatorConfig) *EvaluationService {
	return &EvaluationService{
		Repo:   repo,
		Logger: logger,
		Config: cfg,
		locks:  newAccountLocks(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs one evaluation tick for the account. It never blocks on
// broker I/O; it works from whatever the ledger last recorded. Errors come
// back as *engine.EvaluationError so callers can distinguish "evaluation
// unavailable" from a pass/fail verdict.
func (s *EvaluationService) Evaluate(ctx context.Context, accountID uint64) (EvaluationResult, error) {
	start := s.clock()()
	res, err := s.evaluateLocked(ctx, accountID)
	s.Collector.ObserveEvaluation(s.clock()().Sub(start), err != nil)
	return res, err
}

// Metrics computes the account's current snapshot without mutating anything:
// no rollover, no violation records, no transitions. Used by read endpoints
// that must stay side-effect free.
func (s *EvaluationService) Metrics(ctx context.Context, accountID uint64) (EvaluationResult, error) {
	acct, err := s.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	if acct == nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.ConfigurationError{Reason: "account not found"},
		}
	}
	rules, err := s.Repo.GetChallengeByID(ctx, acct.ChallengeID)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	if rules == nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.ConfigurationError{Reason: "rule set missing for challenge"},
		}
	}
	loc, err := time.LoadLocation(acct.Timezone)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.DataIntegrityError{Field: "timezone", Reason: acct.Timezone},
		}
	}
	now := s.clock()()
	snap, err := engine.ComputeSnapshot(engine.MetricsInputs{
		InitialBalance:       acct.InitialBalance,
		Balance:              acct.Balance,
		Equity:               acct.Equity,
		MaxEquityToDate:      acct.MaxEquityToDate,
		TodayStartEquity:     acct.TodayStartEquity,
		TradingDaysCompleted: acct.TradingDaysCount,
		EquityUpdatedAt:      acct.EquityUpdatedAt,
	}, now)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	result := EvaluationResult{
		AccountID:  acct.ID,
		Phase:      acct.Phase,
		Status:     acct.Status,
		Snapshot:   snap,
		Compliance: engine.EvaluateRules(snap, *rules, acct.Phase, engine.CalendarDaysSince(acct.CreatedAt, now, loc)),
		RiskLevel:  engine.ClassifyRisk(snap, *rules),
	}
	if s.Config.StaleEquityAfter > 0 && !acct.EquityUpdatedAt.IsZero() {
		result.StaleEquity = now.Sub(acct.EquityUpdatedAt) > s.Config.StaleEquityAfter
	}
	return result, nil
}

func (s *EvaluationService) evaluateLocked(ctx context.Context, accountID uint64) (EvaluationResult, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	acct, err := s.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	if acct == nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.ConfigurationError{Reason: "account not found"},
		}
	}

	rules, err := s.Repo.GetChallengeByID(ctx, acct.ChallengeID)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	if rules == nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.ConfigurationError{Reason: "rule set missing for challenge"},
		}
	}

	loc, err := time.LoadLocation(acct.Timezone)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{
			AccountID: accountID,
			Err:       &engine.DataIntegrityError{Field: "timezone", Reason: acct.Timezone},
		}
	}

	now := s.clock()()

	// Trading-day accounting first, so todayStartEquity and the day counter
	// are correct before any metric is derived.
	if ro, crossed := engine.CheckRollover(*acct, now, loc); crossed {
		if err := applyRollover(ctx, s.Repo, acct, ro); err != nil {
			return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
		}
	}

	snap, err := engine.ComputeSnapshot(engine.MetricsInputs{
		InitialBalance:       acct.InitialBalance,
		Balance:              acct.Balance,
		Equity:               acct.Equity,
		MaxEquityToDate:      acct.MaxEquityToDate,
		TodayStartEquity:     acct.TodayStartEquity,
		TradingDaysCompleted: acct.TradingDaysCount,
		EquityUpdatedAt:      acct.EquityUpdatedAt,
	}, now)
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}

	result := EvaluationResult{
		AccountID: acct.ID,
		Phase:     acct.Phase,
		Status:    acct.Status,
		Snapshot:  snap,
		RiskLevel: engine.ClassifyRisk(snap, *rules),
	}
	if s.Config.StaleEquityAfter > 0 && !acct.EquityUpdatedAt.IsZero() {
		result.StaleEquity = now.Sub(acct.EquityUpdatedAt) > s.Config.StaleEquityAfter
	}

	// Terminal accounts are still observable (dashboards keep their final
	// numbers) but nothing is detected or transitioned anymore.
	if acct.Terminal() {
		result.Compliance = engine.EvaluateRules(snap, *rules, acct.Phase,
			engine.CalendarDaysSince(acct.CreatedAt, now, loc))
		return result, nil
	}

	result.Compliance = engine.EvaluateRules(snap, *rules, acct.Phase,
		engine.CalendarDaysSince(acct.CreatedAt, now, loc))

	history, err := s.Repo.ListViolations(ctx, repository.ListViolationsParams{
		AccountID: &acct.ID,
		Limit:     500,
	})
	if err != nil {
		return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
	}
	prev := engine.BreachStateFromHistory(history)
	result.NewViolations = engine.DetectViolations(result.Compliance, snap, *rules, prev, acct.ID, now)

	decision := engine.DecidePhase(*acct, *rules, result.Compliance, now)
	result.Transition = decision.Transition

	// Fold intraday worsts for the daily compliance record.
	dirty := false
	if snap.DailyDrawdownPercent.GreaterThan(acct.WorstDailyDrawdownToday) {
		acct.WorstDailyDrawdownToday = snap.DailyDrawdownPercent
		dirty = true
	}
	if snap.OverallDrawdownPercent.GreaterThan(acct.WorstOverallDrawdownToday) {
		acct.WorstOverallDrawdownToday = snap.OverallDrawdownPercent
		dirty = true
	}

	if len(result.NewViolations) > 0 {
		if err := s.Repo.InsertViolations(ctx, result.NewViolations); err != nil {
			return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
		}
		for _, v := range result.NewViolations {
			s.Collector.RecordViolation(v.Type, v.IsFatal)
			s.publish(stream.Event{Kind: stream.KindViolation, AccountID: acct.ID, Payload: v, At: now})
		}
	}

	if decision.Transition != nil {
		if err := s.Repo.InsertPhaseTransition(ctx, decision.Transition); err != nil {
			return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
		}
		acct.Phase = decision.Transition.ToPhase
		if decision.NewStatus != "" {
			acct.Status = decision.NewStatus
		}
		if decision.Transition.ToPhase != models.PhaseFailed {
			// A new phase starts as a fresh account: the trader re-earns the
			// next target from the initial balance, with a clean day counter.
			resetForNewPhase(acct)
		}
		dirty = true
		s.Collector.RecordTransition(decision.Transition.ToPhase)
		s.publish(stream.Event{Kind: stream.KindPhaseTransition, AccountID: acct.ID, Payload: decision.Transition, At: now})
		if s.Logger != nil {
			s.Logger.Info("phase transition",
				zap.Uint64("account_id", acct.ID),
				zap.String("from", decision.Transition.FromPhase),
				zap.String("to", decision.Transition.ToPhase),
				zap.String("reason", decision.Transition.Reason),
			)
		}
	}

	if dirty {
		if err := s.Repo.SaveAccount(ctx, acct); err != nil {
			return EvaluationResult{}, &engine.EvaluationError{AccountID: accountID, Err: err}
		}
	}

	result.Phase = acct.Phase
	result.Status = acct.Status
	return result, nil
}

func resetForNewPhase(acct *models.Account) {
	acct.Balance = acct.InitialBalance
	acct.Equity = acct.InitialBalance
	acct.MaxEquityToDate = acct.InitialBalance
	acct.TodayStartEquity = acct.InitialBalance
	acct.TradingDaysCount = 0
	acct.TradedToday = false
	acct.WorstDailyDrawdownToday = decimal.Zero
	acct.WorstOverallDrawdownToday = decimal.Zero
}

// applyRollover closes out the previous trading day and opens the new one.
// Idempotent: the daily record upsert keeps the first write and repeated
// polls within one day never reach here. Both the evaluator and the ledger
// call it, always under the account lock.
func applyRollover(ctx context.Context, repo repository.Repository, acct *models.Account, ro engine.DayRollover) error {
	if !ro.ClosedDay.IsZero() {
		rec := ro.Record
		if err := repo.UpsertDailyComplianceRecord(ctx, &rec); err != nil {
			return err
		}
		if ro.CountsTradingDay {
			acct.TradingDaysCount++
		}
	}
	newDay := ro.NewDay
	acct.CurrentTradingDay = &newDay
	acct.TodayStartEquity = acct.Equity
	acct.TradedToday = false
	acct.WorstDailyDrawdownToday = decimal.Zero
	acct.WorstOverallDrawdownToday = decimal.Zero
	// A daily lock expires with the day it was applied on.
	if acct.Status == models.StatusDailyLocked {
		acct.Status = models.StatusActive
	}
	return repo.SaveAccount(ctx, acct)
}

func (s *EvaluationService) publish(ev stream.Event) {
	if s.Stream != nil {
		s.Stream.Publish(ev)
	}
}

func (s *EvaluationService) clock() func() time.Time {
	if s.now != nil {
		return s.now
	}
	return func() time.Time { return time.Now().UTC() }
}
