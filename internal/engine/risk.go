package engine

import (
	"propfirm/internal/models"
)

// RiskLevel is an advisory classification for monitoring and alerting. It is
// independent of hard rule breaches and never mutates account state.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Proportional-usage bands, applied to the worse of the daily and overall
// drawdown relative to its configured limit.
const (
	riskCriticalUsage = 0.9
	riskHighUsage     = 0.6
	riskMediumUsage   = 0.4
)

// ClassifyRisk maps a snapshot to a coarse risk level by how much of each
// configured drawdown limit is consumed. First band that matches wins.
func ClassifyRisk(snap Snapshot, rules models.Challenge) RiskLevel {
	usage := limitUsage(snap, rules)
	switch {
	case usage >= riskCriticalUsage:
		return RiskCritical
	case usage >= riskHighUsage:
		return RiskHigh
	case usage >= riskMediumUsage:
		return RiskMedium
	default:
		return RiskLow
	}
}

// limitUsage is max(daily/dailyLimit, overall/overallLimit) as a plain float;
// risk banding does not need decimal exactness.
func limitUsage(snap Snapshot, rules models.Challenge) float64 {
	usage := 0.0
	if rules.DailyDrawdownPercent.IsPositive() {
		u := snap.DailyDrawdownPercent.Div(rules.DailyDrawdownPercent).InexactFloat64()
		if u > usage {
			usage = u
		}
	}
	if rules.OverallDrawdownPercent.IsPositive() {
		u := snap.OverallDrawdownPercent.Div(rules.OverallDrawdownPercent).InexactFloat64()
		if u > usage {
			usage = u
		}
	}
	return usage
}
