package engine

import (
	"time"

	"github.com/google/uuid"

	"propfirm/internal/models"
)

// Transition reasons used by the automatic evaluator. Manual overrides carry
// free-form admin reasons instead.
const (
	ReasonProfitTargetMet       = "profit_target_met"
	ReasonDailyDrawdownBreach   = "daily_drawdown_breach"
	ReasonOverallDrawdownBreach = "overall_drawdown_breach"
	ReasonTradingPeriodExceeded = "trading_period_exceeded"
)

// PhaseDecision is the outcome of one state-machine step. A nil Transition
// means the account stays where it is.
type PhaseDecision struct {
	Transition *models.PhaseTransition
	// NewStatus is set when the phase change also forces a status change
	// (fatal breaches disqualify). Empty means status is untouched.
	NewStatus string
}

// DecidePhase runs the phase state machine for one evaluated snapshot.
//
// PHASE1 -> PHASE2 -> FUNDED for two-phase products, PHASE1 -> FUNDED for
// one-phase products; any non-terminal state drops to FAILED on a fatal
// breach. FAILED is terminal for the evaluator: only an audited admin
// override reopens an account. The evaluator never demotes, so a manual
// force-pass is never undone here either.
func DecidePhase(acct models.Account, rules models.Challenge, res ComplianceResult, now time.Time) PhaseDecision {
	if acct.Terminal() {
		return PhaseDecision{}
	}

	if res.HasViolation {
		reason := ReasonDailyDrawdownBreach
		if res.OverallDrawdownBreached {
			reason = ReasonOverallDrawdownBreach
		}
		return fail(acct, reason, now)
	}
	// The trading period bounds the evaluation phases only. A phase with no
	// target (FUNDED) has nothing left to run out of time for.
	if res.TradingPeriodExceeded && res.TargetPercent != nil && !res.ProfitTargetMet {
		return fail(acct, ReasonTradingPeriodExceeded, now)
	}

	advance := res.ProfitTargetMet && res.MinTradingDaysMet
	if !advance {
		return PhaseDecision{}
	}

	switch acct.Phase {
	case models.PhaseOne:
		to := models.PhaseTwo
		if rules.IsOnePhase() {
			to = models.PhaseFunded
		}
		return PhaseDecision{Transition: transition(acct, to, ReasonProfitTargetMet, now)}
	case models.PhaseTwo:
		return PhaseDecision{Transition: transition(acct, models.PhaseFunded, ReasonProfitTargetMet, now)}
	default:
		// FUNDED has no further target.
		return PhaseDecision{}
	}
}

func fail(acct models.Account, reason string, now time.Time) PhaseDecision {
	return PhaseDecision{
		Transition: transition(acct, models.PhaseFailed, reason, now),
		NewStatus:  models.StatusDisqualified,
	}
}

func transition(acct models.Account, to, reason string, now time.Time) *models.PhaseTransition {
	return &models.PhaseTransition{
		RecordID:   uuid.NewString(),
		AccountID:  acct.ID,
		FromPhase:  acct.Phase,
		ToPhase:    to,
		Reason:     reason,
		OccurredAt: now,
	}
}
