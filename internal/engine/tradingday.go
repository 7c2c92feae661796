package engine

import (
	"time"

	"propfirm/internal/models"
)

// DayStart truncates t to midnight in the trading timezone.
func DayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameTradingDay reports whether a and b fall on the same calendar day in the
// trading timezone.
func SameTradingDay(a, b time.Time, loc *time.Location) bool {
	return DayStart(a, loc).Equal(DayStart(b, loc))
}

// CalendarDaysSince counts whole calendar days from creation to now in the
// trading timezone, used against maxTradingPeriodDays.
func CalendarDaysSince(createdAt, now time.Time, loc *time.Location) int {
	start := DayStart(createdAt, loc)
	end := DayStart(now, loc)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}

// DayRollover describes one crossed day boundary: the closed day, whether it
// counts as a trading day, and the compliance record to persist for it.
type DayRollover struct {
	ClosedDay time.Time
	NewDay    time.Time
	// CountsTradingDay is true when the closed day saw at least one trade
	// event, so tradingDaysCount increments exactly once for it.
	CountsTradingDay bool
	Record           models.DailyComplianceRecord
}

// CheckRollover determines whether the account crossed its day boundary since
// the last observed trading day. It is a pure check: callers apply the reset
// (todayStartEquity, counters) under the account lock. Repeated calls within
// one day return nothing, which makes polling idempotent.
func CheckRollover(acct models.Account, now time.Time, loc *time.Location) (DayRollover, bool) {
	today := DayStart(now, loc)
	if acct.CurrentTradingDay == nil {
		// First observation: open the day, nothing to close yet.
		return DayRollover{NewDay: today}, true
	}
	last := DayStart(*acct.CurrentTradingDay, loc)
	if !today.After(last) {
		return DayRollover{}, false
	}
	return DayRollover{
		ClosedDay:        last,
		NewDay:           today,
		CountsTradingDay: acct.TradedToday,
		Record: models.DailyComplianceRecord{
			AccountID:              acct.ID,
			Date:                   last,
			DailyDrawdownPercent:   acct.WorstDailyDrawdownToday,
			OverallDrawdownPercent: acct.WorstOverallDrawdownToday,
			ClosingEquity:          acct.Equity,
			Traded:                 acct.TradedToday,
		},
	}, true
}

// IsLateForDay reports whether an event timestamp belongs to a day that has
// already been closed out for this account. Such events must not rewrite
// closed-day accounting; they are flagged as reconciliation anomalies.
func IsLateForDay(acct models.Account, eventAt time.Time, loc *time.Location) bool {
	if acct.CurrentTradingDay == nil {
		return false
	}
	return DayStart(eventAt, loc).Before(DayStart(*acct.CurrentTradingDay, loc))
}
