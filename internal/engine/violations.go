package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"propfirm/internal/models"
)

// approachWarningUsage is the fraction of a limit at which a non-fatal
// warning record is emitted, ahead of any actual breach.
const approachWarningUsage = 0.8

// BreachState summarizes what has already been recorded for an account, so
// detection is edge-triggered: a violation is emitted only on the transition
// from not-breached to breached, never re-emitted on every poll.
type BreachState struct {
	DailyBreached   bool
	OverallBreached bool
	PeriodExceeded  bool

	DailyWarned   bool
	OverallWarned bool
	PeriodWarned  bool
}

// BreachStateFromHistory folds prior violation records into the edge-trigger
// state. Fatal records mark a type as breached; warning records mark it as
// already warned.
func BreachStateFromHistory(history []models.Violation) BreachState {
	var st BreachState
	for _, v := range history {
		switch v.Type {
		case models.ViolationDailyDrawdown:
			if v.IsFatal {
				st.DailyBreached = true
			} else {
				st.DailyWarned = true
			}
		case models.ViolationOverallDrawdown:
			if v.IsFatal {
				st.OverallBreached = true
			} else {
				st.OverallWarned = true
			}
		case models.ViolationMaxTradingDays:
			if v.IsFatal {
				st.PeriodExceeded = true
			} else {
				st.PeriodWarned = true
			}
		}
	}
	return st
}

// DetectViolations compares the compliance result against what was already
// recorded and returns only the new records to append. Both drawdown breach
// types are fatal; exhausting the trading period without the profit target is
// fatal too. Records carry structured actual/threshold values; the message is
// derived from them, never the source of truth.
func DetectViolations(res ComplianceResult, snap Snapshot, rules models.Challenge, prev BreachState, accountID uint64, now time.Time) []models.Violation {
	var out []models.Violation

	if res.DailyDrawdownBreached && !prev.DailyBreached {
		out = append(out, newViolation(accountID, models.ViolationDailyDrawdown,
			snap.DailyDrawdownPercent, rules.DailyDrawdownPercent, true, now))
	}
	if res.OverallDrawdownBreached && !prev.OverallBreached {
		out = append(out, newViolation(accountID, models.ViolationOverallDrawdown,
			snap.OverallDrawdownPercent, rules.OverallDrawdownPercent, true, now))
	}
	if res.TradingPeriodExceeded && res.TargetPercent != nil && !res.ProfitTargetMet && !prev.PeriodExceeded {
		limit := decimal.Zero
		if rules.MaxTradingPeriodDays != nil {
			limit = decimal.NewFromInt(int64(*rules.MaxTradingPeriodDays))
		}
		out = append(out, newViolation(accountID, models.ViolationMaxTradingDays,
			decimal.NewFromInt(int64(res.TradingDaysUsed)), limit, true, now))
	}

	// Approach warnings: one non-fatal record the first time usage of a
	// limit reaches 80%, so monitoring sees trouble before it is fatal.
	if !res.DailyDrawdownBreached && !prev.DailyBreached && !prev.DailyWarned &&
		usageOf(snap.DailyDrawdownPercent, rules.DailyDrawdownPercent) >= approachWarningUsage {
		out = append(out, newViolation(accountID, models.ViolationDailyDrawdown,
			snap.DailyDrawdownPercent, rules.DailyDrawdownPercent, false, now))
	}
	if !res.OverallDrawdownBreached && !prev.OverallBreached && !prev.OverallWarned &&
		usageOf(snap.OverallDrawdownPercent, rules.OverallDrawdownPercent) >= approachWarningUsage {
		out = append(out, newViolation(accountID, models.ViolationOverallDrawdown,
			snap.OverallDrawdownPercent, rules.OverallDrawdownPercent, false, now))
	}
	if rules.MaxTradingPeriodDays != nil && res.TargetPercent != nil && !res.TradingPeriodExceeded && !prev.PeriodWarned {
		used := float64(res.TradingDaysUsed)
		limit := float64(*rules.MaxTradingPeriodDays)
		if limit > 0 && used/limit >= approachWarningUsage {
			v := newViolation(accountID, models.ViolationMaxTradingDays,
				decimal.NewFromInt(int64(res.TradingDaysUsed)),
				decimal.NewFromInt(int64(*rules.MaxTradingPeriodDays)), false, now)
			// Time running out is informational; it needs no trader action
			// the way an 80% drawdown does.
			v.Severity = models.SeverityInfo
			v.Message = fmt.Sprintf("%d of %d trading period days used", res.TradingDaysUsed, *rules.MaxTradingPeriodDays)
			out = append(out, v)
		}
	}

	return out
}

func newViolation(accountID uint64, vtype string, actual, threshold decimal.Decimal, fatal bool, now time.Time) models.Violation {
	severity := models.SeverityWarning
	if fatal {
		severity = models.SeverityCritical
	}
	return models.Violation{
		RecordID:       uuid.NewString(),
		AccountID:      accountID,
		Type:           vtype,
		Severity:       severity,
		Message:        violationMessage(vtype, actual, threshold, fatal),
		ActualValue:    actual,
		ThresholdValue: threshold,
		IsFatal:        fatal,
		CreatedAt:      now,
	}
}

func violationMessage(vtype string, actual, threshold decimal.Decimal, fatal bool) string {
	switch vtype {
	case models.ViolationDailyDrawdown:
		if fatal {
			return fmt.Sprintf("daily drawdown %s%% exceeded limit %s%%", actual.StringFixed(2), threshold.StringFixed(2))
		}
		return fmt.Sprintf("daily drawdown %s%% approaching limit %s%%", actual.StringFixed(2), threshold.StringFixed(2))
	case models.ViolationOverallDrawdown:
		if fatal {
			return fmt.Sprintf("overall drawdown %s%% exceeded limit %s%%", actual.StringFixed(2), threshold.StringFixed(2))
		}
		return fmt.Sprintf("overall drawdown %s%% approaching limit %s%%", actual.StringFixed(2), threshold.StringFixed(2))
	case models.ViolationMaxTradingDays:
		return fmt.Sprintf("trading period exhausted after %s of %s days without meeting profit target", actual.StringFixed(0), threshold.StringFixed(0))
	default:
		return fmt.Sprintf("rule breach: actual %s, threshold %s", actual.String(), threshold.String())
	}
}

func usageOf(actual, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}
	return actual.Div(limit).InexactFloat64()
}
