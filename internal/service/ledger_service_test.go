package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"propfirm/internal/engine"
	"propfirm/internal/models"
)

func testLedger(repo *stubRepo) (*LedgerService, *EvaluationService) {
	evaluator := testEvaluator(repo)
	ledger := NewLedgerService(evaluator, zap.NewNop())
	ledger.now = func() time.Time { return testNow }
	return ledger, evaluator
}

func closedTradeEvent(accountID uint64, externalID, profit string, closedAt time.Time) TradeEvent {
	close := d("1.05")
	return TradeEvent{
		AccountID:  accountID,
		ExternalID: externalID,
		Symbol:     "EURUSD",
		Volume:     d("1"),
		OpenPrice:  d("1.04"),
		ClosePrice: &close,
		Profit:     d(profit),
		OpenedAt:   closedAt.Add(-time.Hour),
		ClosedAt:   &closedAt,
	}
}

func TestApplyTradeIdempotent(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	ev := closedTradeEvent(acct.ID, "T-1", "500", testNow.Add(-time.Minute))
	if _, err := ledger.ApplyTrade(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.ApplyTrade(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(repo.trades))
	}
	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Balance.Equal(d("100500")) {
		t.Fatalf("balance = %s, want 100500 (profit applied once)", stored.Balance)
	}
	if !stored.TradedToday {
		t.Fatalf("trade should mark the day as traded")
	}
}

func TestApplyTradeOpenThenClose(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	open := TradeEvent{
		AccountID:  acct.ID,
		ExternalID: "T-2",
		Symbol:     "EURUSD",
		Volume:     d("1"),
		OpenPrice:  d("1.04"),
		OpenedAt:   testNow.Add(-time.Hour),
	}
	if _, err := ledger.ApplyTrade(context.Background(), open); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Balance.Equal(d("100000")) {
		t.Fatalf("open trade moved balance to %s", stored.Balance)
	}

	close := closedTradeEvent(acct.ID, "T-2", "-300", testNow.Add(-time.Minute))
	trade, err := ledger.ApplyTrade(context.Background(), close)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.Open() {
		t.Fatalf("trade still open after close event")
	}
	stored, _ = repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Balance.Equal(d("99700")) {
		t.Fatalf("balance = %s, want 99700", stored.Balance)
	}

	// Re-delivered close is a no-op.
	if _, err := ledger.ApplyTrade(context.Background(), close); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ = repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Balance.Equal(d("99700")) {
		t.Fatalf("balance = %s after duplicate close, want 99700", stored.Balance)
	}
}

func TestApplyTradeLateEventFlagsAnomaly(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	// Stamped inside a day that already rolled over.
	late := closedTradeEvent(acct.ID, "T-3", "200", testNow.AddDate(0, 0, -2))
	if _, err := ledger.ApplyTrade(context.Background(), late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(repo.anomalies))
	}
	if repo.anomalies[0].TradeExternalID != "T-3" {
		t.Fatalf("anomaly external id = %s", repo.anomalies[0].TradeExternalID)
	}
	// The trade is still kept and its P&L applies now; only day accounting is
	// protected.
	if len(repo.trades) != 1 {
		t.Fatalf("late trade not stored")
	}
	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if stored.TradedToday {
		t.Fatalf("late trade marked the current day as traded")
	}
	if stored.TradingDaysCount != 5 {
		t.Fatalf("late trade changed trading days: %d", stored.TradingDaysCount)
	}
}

func TestApplyTradeRejectsEmptyExternalID(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	_, err := ledger.ApplyTrade(context.Background(), TradeEvent{AccountID: 1, OpenedAt: testNow})
	var integrity *engine.DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want DataIntegrityError", err)
	}
}

func TestApplyTradeUnknownAccount(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	_, err := ledger.ApplyTrade(context.Background(), closedTradeEvent(77, "T-9", "100", testNow))
	var cfgErr *engine.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}

func TestApplyEquityAdvancesState(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	newBalance := d("100200")
	if err := ledger.ApplyEquity(context.Background(), EquityEvent{
		AccountID: acct.ID,
		Equity:    d("101500"),
		Balance:   &newBalance,
		At:        testNow,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Equity.Equal(d("101500")) || !stored.Balance.Equal(d("100200")) {
		t.Fatalf("equity/balance = %s/%s", stored.Equity, stored.Balance)
	}
	if !stored.MaxEquityToDate.Equal(d("101500")) {
		t.Fatalf("high-water mark = %s, want 101500", stored.MaxEquityToDate)
	}
	if !stored.EquityUpdatedAt.Equal(testNow) {
		t.Fatalf("equity_updated_at = %v", stored.EquityUpdatedAt)
	}
	if len(repo.samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(repo.samples))
	}

	// A drop later in the day lowers equity but never the high-water mark.
	if err := ledger.ApplyEquity(context.Background(), EquityEvent{
		AccountID: acct.ID,
		Equity:    d("99000"),
		At:        testNow.Add(time.Minute),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ = repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.MaxEquityToDate.Equal(d("101500")) {
		t.Fatalf("high-water mark moved down: %s", stored.MaxEquityToDate)
	}
	if !stored.Equity.Equal(d("99000")) {
		t.Fatalf("equity = %s, want 99000", stored.Equity)
	}
}

func TestApplyEquityOutOfOrderKeptButNotApplied(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	if err := ledger.ApplyEquity(context.Background(), EquityEvent{
		AccountID: acct.ID, Equity: d("100500"), At: testNow,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An older reading arrives afterwards.
	if err := ledger.ApplyEquity(context.Background(), EquityEvent{
		AccountID: acct.ID, Equity: d("90000"), At: testNow.Add(-30 * time.Minute),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if !stored.Equity.Equal(d("100500")) {
		t.Fatalf("out-of-order reading applied: %s", stored.Equity)
	}
	if len(repo.samples) != 2 {
		t.Fatalf("samples = %d, want 2 (series keeps everything)", len(repo.samples))
	}
}

func TestApplyEquityRejectsNegative(t *testing.T) {
	repo := newStubRepo()
	ledger, _ := testLedger(repo)
	err := ledger.ApplyEquity(context.Background(), EquityEvent{AccountID: 1, Equity: d("-5")})
	var integrity *engine.DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want DataIntegrityError", err)
	}
}

func TestLedgerAndEvaluatorShareSerialization(t *testing.T) {
	repo := newStubRepo()
	ledger, evaluator := testLedger(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	// Drive a breach through the ledger, then evaluate: the evaluation must
	// see the ledger's state, not a stale copy.
	if err := ledger.ApplyEquity(context.Background(), EquityEvent{
		AccountID: acct.ID, Equity: d("94000"), At: testNow,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := evaluator.Evaluate(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != models.PhaseFailed {
		t.Fatalf("phase = %s, want FAILED after 6%% daily drawdown", res.Phase)
	}
}
