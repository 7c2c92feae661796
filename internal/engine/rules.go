package engine

import (
	"github.com/shopspring/decimal"

	"propfirm/internal/models"
)

// ComplianceResult is the per-rule verdict of one snapshot against one rule
// set. Deterministic, no I/O.
type ComplianceResult struct {
	ProfitTargetMet bool `json:"profit_target_met"`
	// TargetPercent is the target for the current phase; nil while FUNDED.
	TargetPercent *decimal.Decimal `json:"target_percent"`

	DailyDrawdownBreached   bool `json:"daily_drawdown_breached"`
	OverallDrawdownBreached bool `json:"overall_drawdown_breached"`
	MinTradingDaysMet       bool `json:"min_trading_days_met"`

	// TradingPeriodExceeded is set once the account has used more calendar
	// days than the rule set allows. Whether that is fatal depends on the
	// profit target (see DecidePhase).
	TradingPeriodExceeded bool `json:"trading_period_exceeded"`
	// TradingDaysUsed counts calendar days since account creation.
	TradingDaysUsed int `json:"trading_days_used"`

	HasViolation bool `json:"has_violation"`
}

// EvaluateRules compares a snapshot against the rule set for the account's
// current phase. Breach comparisons are strict: equity exactly at a drawdown
// limit is still compliant.
func EvaluateRules(snap Snapshot, rules models.Challenge, phase string, calendarDaysUsed int) ComplianceResult {
	res := ComplianceResult{
		TargetPercent:   phaseTarget(rules, phase),
		TradingDaysUsed: calendarDaysUsed,
	}

	if res.TargetPercent != nil {
		res.ProfitTargetMet = snap.ProfitPercent.GreaterThanOrEqual(*res.TargetPercent)
	}

	res.DailyDrawdownBreached = snap.DailyDrawdownPercent.GreaterThan(rules.DailyDrawdownPercent)
	res.OverallDrawdownBreached = snap.OverallDrawdownPercent.GreaterThan(rules.OverallDrawdownPercent)
	res.MinTradingDaysMet = snap.TradingDaysCompleted >= rules.MinTradingDays

	if rules.MaxTradingPeriodDays != nil && calendarDaysUsed > *rules.MaxTradingPeriodDays {
		res.TradingPeriodExceeded = true
	}

	res.HasViolation = res.DailyDrawdownBreached || res.OverallDrawdownBreached
	return res
}

// phaseTarget returns the profit target for the phase, or nil when the phase
// carries none (FUNDED, FAILED).
func phaseTarget(rules models.Challenge, phase string) *decimal.Decimal {
	switch phase {
	case models.PhaseOne:
		t := rules.Phase1TargetPercent
		return &t
	case models.PhaseTwo:
		if rules.Phase2TargetPercent == nil {
			return nil
		}
		t := *rules.Phase2TargetPercent
		return &t
	default:
		return nil
	}
}
