package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"propfirm/internal/engine"
	"propfirm/internal/models"
	"propfirm/internal/repository"
)

// TradeEvent is a broker-reported trade open or close. A nil ClosedAt means
// the trade is still open; Profit is only meaningful once closed.
type TradeEvent struct {
	AccountID  uint64           `json:"account_id"`
	ExternalID string           `json:"external_id"`
	Symbol     string           `json:"symbol"`
	Volume     decimal.Decimal  `json:"volume"`
	OpenPrice  decimal.Decimal  `json:"open_price"`
	ClosePrice *decimal.Decimal `json:"close_price"`
	Profit     decimal.Decimal  `json:"profit"`
	OpenedAt   time.Time        `json:"opened_at"`
	ClosedAt   *time.Time       `json:"closed_at"`
}

// EquityEvent is a broker-reported equity reading. Balance is optional; some
// adapters only stream equity.
type EquityEvent struct {
	AccountID uint64           `json:"account_id"`
	Equity    decimal.Decimal  `json:"equity"`
	Balance   *decimal.Decimal `json:"balance"`
	At        time.Time        `json:"at"`
}

// LedgerService applies broker events to account state. It shares the
// per-account locks with the evaluator so ledger writes and evaluations never
// interleave on one account.
type LedgerService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	locks *accountLocks
	now   func() time.Time
}

// NewLedgerService builds a ledger that serializes with the given evaluator.
func NewLedgerService(evaluator *EvaluationService, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		Repo:   evaluator.Repo,
		Logger: logger,
		locks:  evaluator.locks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ApplyTrade records a trade event. Re-delivery of the same (account,
// external id) is a no-op; late events for closed days are stored and flagged
// as reconciliation anomalies without touching closed-day accounting.
func (s *LedgerService) ApplyTrade(ctx context.Context, ev TradeEvent) (*models.Trade, error) {
	if ev.ExternalID == "" {
		return nil, &engine.DataIntegrityError{Field: "external_id", Reason: "empty"}
	}
	unlock := s.locks.Lock(ev.AccountID)
	defer unlock()

	acct, loc, err := s.loadAccount(ctx, ev.AccountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if ro, crossed := engine.CheckRollover(*acct, now, loc); crossed {
		if err := applyRollover(ctx, s.Repo, acct, ro); err != nil {
			return nil, err
		}
	}

	eventAt := ev.OpenedAt
	if ev.ClosedAt != nil {
		eventAt = *ev.ClosedAt
	}
	late := engine.IsLateForDay(*acct, eventAt, loc)
	if late {
		if err := s.flagAnomaly(ctx, acct, ev.ExternalID, eventAt, loc,
			"trade event arrived after its trading day was closed", ev); err != nil {
			return nil, err
		}
	}

	trade := &models.Trade{
		AccountID:  ev.AccountID,
		ExternalID: ev.ExternalID,
		Symbol:     ev.Symbol,
		Volume:     ev.Volume,
		OpenPrice:  ev.OpenPrice,
		ClosePrice: ev.ClosePrice,
		Profit:     ev.Profit,
		OpenedAt:   ev.OpenedAt,
		ClosedAt:   ev.ClosedAt,
	}

	existing, err := s.Repo.GetTradeByExternalID(ctx, ev.AccountID, ev.ExternalID)
	if err != nil {
		return nil, err
	}
	switch {
	case existing == nil:
		inserted, err := s.Repo.InsertTrade(ctx, trade)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// Raced with a duplicate delivery; the first write won.
			return s.Repo.GetTradeByExternalID(ctx, ev.AccountID, ev.ExternalID)
		}
		if trade.ClosedAt != nil {
			if err := s.applyRealizedProfit(ctx, acct, ev.Profit); err != nil {
				return nil, err
			}
		}
	case existing.Open() && ev.ClosedAt != nil:
		if err := s.Repo.CloseTrade(ctx, ev.AccountID, ev.ExternalID, trade); err != nil {
			return nil, err
		}
		if err := s.applyRealizedProfit(ctx, acct, ev.Profit); err != nil {
			return nil, err
		}
	default:
		// Duplicate open or re-delivered close.
		return existing, nil
	}

	// Only activity within the current trading day marks the day as traded;
	// a late close must not resurrect a day that ended flat.
	if !late && !acct.TradedToday {
		acct.TradedToday = true
		if err := s.Repo.SaveAccount(ctx, acct); err != nil {
			return nil, err
		}
	}
	return trade, nil
}

// ApplyEquity records an equity reading and advances derived account state.
// Samples are append-only; out-of-order or late readings are kept in the
// series but never move state backwards.
func (s *LedgerService) ApplyEquity(ctx context.Context, ev EquityEvent) error {
	if ev.Equity.IsNegative() {
		return &engine.DataIntegrityError{Field: "equity", Reason: "negative"}
	}
	if ev.Balance != nil && ev.Balance.IsNegative() {
		return &engine.DataIntegrityError{Field: "balance", Reason: "negative"}
	}
	unlock := s.locks.Lock(ev.AccountID)
	defer unlock()

	acct, loc, err := s.loadAccount(ctx, ev.AccountID)
	if err != nil {
		return err
	}
	now := s.now()
	if ev.At.IsZero() {
		ev.At = now
	}
	if ro, crossed := engine.CheckRollover(*acct, now, loc); crossed {
		if err := applyRollover(ctx, s.Repo, acct, ro); err != nil {
			return err
		}
	}

	balance := acct.Balance
	if ev.Balance != nil {
		balance = *ev.Balance
	}
	if err := s.Repo.InsertEquitySample(ctx, &models.EquitySample{
		AccountID: ev.AccountID,
		Equity:    ev.Equity,
		Balance:   balance,
		SampledAt: ev.At,
	}); err != nil {
		return err
	}

	if engine.IsLateForDay(*acct, ev.At, loc) {
		return s.flagAnomaly(ctx, acct, "", ev.At, loc,
			"equity reading arrived after its trading day was closed", ev)
	}
	if ev.At.Before(acct.EquityUpdatedAt) {
		// Out of order within the day; the series keeps it, state does not.
		return nil
	}

	acct.Equity = ev.Equity
	if ev.Balance != nil {
		acct.Balance = *ev.Balance
	}
	if acct.Equity.GreaterThan(acct.MaxEquityToDate) {
		acct.MaxEquityToDate = acct.Equity
	}
	acct.EquityUpdatedAt = ev.At
	return s.Repo.SaveAccount(ctx, acct)
}

func (s *LedgerService) loadAccount(ctx context.Context, accountID uint64) (*models.Account, *time.Location, error) {
	acct, err := s.Repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil {
		return nil, nil, &engine.ConfigurationError{Reason: fmt.Sprintf("account %d not found", accountID)}
	}
	loc, err := time.LoadLocation(acct.Timezone)
	if err != nil {
		return nil, nil, &engine.DataIntegrityError{Field: "timezone", Reason: acct.Timezone}
	}
	return acct, loc, nil
}

func (s *LedgerService) applyRealizedProfit(ctx context.Context, acct *models.Account, profit decimal.Decimal) error {
	acct.Balance = acct.Balance.Add(profit)
	if acct.Balance.IsNegative() {
		return &engine.DataIntegrityError{Field: "balance", Reason: "negative after realized profit"}
	}
	return s.Repo.SaveAccount(ctx, acct)
}

func (s *LedgerService) flagAnomaly(ctx context.Context, acct *models.Account, externalID string, eventAt time.Time, loc *time.Location, detail string, event any) error {
	anomaly := &models.ReconciliationAnomaly{
		AccountID:       acct.ID,
		TradeExternalID: externalID,
		EventAt:         eventAt,
		TradingDay:      engine.DayStart(eventAt, loc),
		Detail:          detail,
	}
	if raw, err := json.Marshal(event); err == nil {
		anomaly.Payload = datatypes.JSON(raw)
	}
	if err := s.Repo.InsertReconciliationAnomaly(ctx, anomaly); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Warn("ledger: late event flagged",
			zap.Uint64("account_id", acct.ID),
			zap.String("external_id", externalID),
			zap.Time("event_at", eventAt),
		)
	}
	return nil
}
