package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is the derived metrics view of an account at one instant. It is
// recomputed on every equity-affecting event and never cached across events.
type Snapshot struct {
	ProfitPercent          decimal.Decimal `json:"profit_percent"`
	DailyDrawdownPercent   decimal.Decimal `json:"daily_drawdown_percent"`
	OverallDrawdownPercent decimal.Decimal `json:"overall_drawdown_percent"`
	TradingDaysCompleted   int             `json:"trading_days_completed"`

	Equity          decimal.Decimal `json:"equity"`
	EquityUpdatedAt time.Time       `json:"equity_updated_at"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// MetricsInputs are the account fields the calculator reads. Kept as a plain
// value type so the computation stays a pure function.
type MetricsInputs struct {
	InitialBalance   decimal.Decimal
	Balance          decimal.Decimal
	Equity           decimal.Decimal
	MaxEquityToDate  decimal.Decimal
	TodayStartEquity decimal.Decimal

	TradingDaysCompleted int
	EquityUpdatedAt      time.Time
}

// ComputeSnapshot derives profit and drawdown percentages.
//
//	profit  = (equity - initial) / initial * 100
//	overall = max(0, (maxEquity - equity) / maxEquity * 100)
//	daily   = max(0, (todayStart - equity) / todayStart * 100)
//
// A non-positive divisor short-circuits that metric to 0 instead of dividing
// by zero. A negative balance or equity is a DataIntegrityError: that is
// broker corruption, not a drawdown.
func ComputeSnapshot(in MetricsInputs, now time.Time) (Snapshot, error) {
	if in.Balance.IsNegative() {
		return Snapshot{}, &DataIntegrityError{Field: "balance", Reason: "negative balance"}
	}
	if in.Equity.IsNegative() {
		return Snapshot{}, &DataIntegrityError{Field: "equity", Reason: "equity below zero"}
	}

	snap := Snapshot{
		TradingDaysCompleted: in.TradingDaysCompleted,
		Equity:               in.Equity,
		EquityUpdatedAt:      in.EquityUpdatedAt,
		ComputedAt:           now,
	}

	if in.InitialBalance.IsPositive() {
		snap.ProfitPercent = in.Equity.Sub(in.InitialBalance).
			Div(in.InitialBalance).Mul(hundred)
	}
	snap.OverallDrawdownPercent = drawdownPercent(in.MaxEquityToDate, in.Equity)
	snap.DailyDrawdownPercent = drawdownPercent(in.TodayStartEquity, in.Equity)

	return snap, nil
}

// drawdownPercent is the decline of equity from a reference value, floored at
// zero. No drawdown is 0, never negative.
func drawdownPercent(reference, equity decimal.Decimal) decimal.Decimal {
	if !reference.IsPositive() {
		return decimal.Zero
	}
	dd := reference.Sub(equity).Div(reference).Mul(hundred)
	if dd.IsNegative() {
		return decimal.Zero
	}
	return dd
}
