package engine

import (
	"testing"
	"time"

	"propfirm/internal/models"
)

func activeAccount(phase string) models.Account {
	return models.Account{
		ID:     42,
		Phase:  phase,
		Status: models.StatusActive,
	}
}

func TestDecidePhaseAdvancesTwoPhase(t *testing.T) {
	rules := twoPhaseRules()
	now := time.Now().UTC()

	res := EvaluateRules(snapWith("8", "0", "0", 5), rules, models.PhaseOne, 10)
	dec := DecidePhase(activeAccount(models.PhaseOne), rules, res, now)
	if dec.Transition == nil {
		t.Fatalf("expected a transition")
	}
	if dec.Transition.FromPhase != models.PhaseOne || dec.Transition.ToPhase != models.PhaseTwo {
		t.Fatalf("transition = %s -> %s, want PHASE1 -> PHASE2", dec.Transition.FromPhase, dec.Transition.ToPhase)
	}
	if dec.Transition.Reason != ReasonProfitTargetMet || dec.Transition.Manual {
		t.Fatalf("unexpected transition record: %+v", dec.Transition)
	}
	if dec.NewStatus != "" {
		t.Fatalf("promotion should not change status, got %q", dec.NewStatus)
	}

	res = EvaluateRules(snapWith("5", "0", "0", 5), rules, models.PhaseTwo, 20)
	dec = DecidePhase(activeAccount(models.PhaseTwo), rules, res, now)
	if dec.Transition == nil || dec.Transition.ToPhase != models.PhaseFunded {
		t.Fatalf("expected PHASE2 -> FUNDED, got %+v", dec.Transition)
	}
}

func TestDecidePhaseOnePhaseFundsDirectly(t *testing.T) {
	rules := twoPhaseRules()
	rules.Phase2TargetPercent = nil
	res := EvaluateRules(snapWith("8", "0", "0", 5), rules, models.PhaseOne, 10)
	dec := DecidePhase(activeAccount(models.PhaseOne), rules, res, time.Now())
	if dec.Transition == nil || dec.Transition.ToPhase != models.PhaseFunded {
		t.Fatalf("one-phase product should fund directly, got %+v", dec.Transition)
	}
}

func TestDecidePhaseTargetWithoutMinDaysHolds(t *testing.T) {
	rules := twoPhaseRules()
	res := EvaluateRules(snapWith("8", "0", "0", 2), rules, models.PhaseOne, 5)
	dec := DecidePhase(activeAccount(models.PhaseOne), rules, res, time.Now())
	if dec.Transition != nil {
		t.Fatalf("should hold until min trading days are met, got %+v", dec.Transition)
	}
}

func TestDecidePhaseFailsOnBreach(t *testing.T) {
	rules := twoPhaseRules()
	now := time.Now().UTC()

	for _, phase := range []string{models.PhaseOne, models.PhaseTwo, models.PhaseFunded} {
		res := EvaluateRules(snapWith("-11", "2", "11", 5), rules, phase, 10)
		dec := DecidePhase(activeAccount(phase), rules, res, now)
		if dec.Transition == nil || dec.Transition.ToPhase != models.PhaseFailed {
			t.Fatalf("%s: expected FAILED transition, got %+v", phase, dec.Transition)
		}
		if dec.Transition.Reason != ReasonOverallDrawdownBreach {
			t.Fatalf("%s: reason = %s", phase, dec.Transition.Reason)
		}
		if dec.NewStatus != models.StatusDisqualified {
			t.Fatalf("%s: status = %q, want DISQUALIFIED", phase, dec.NewStatus)
		}
	}
}

func TestDecidePhaseFailsOnPeriodExhaustion(t *testing.T) {
	rules := twoPhaseRules()
	res := EvaluateRules(snapWith("2", "0", "0", 10), rules, models.PhaseOne, 61)
	dec := DecidePhase(activeAccount(models.PhaseOne), rules, res, time.Now())
	if dec.Transition == nil || dec.Transition.ToPhase != models.PhaseFailed {
		t.Fatalf("expected FAILED on period exhaustion, got %+v", dec.Transition)
	}
	if dec.Transition.Reason != ReasonTradingPeriodExceeded {
		t.Fatalf("reason = %s", dec.Transition.Reason)
	}
}

func TestDecidePhaseTerminalAccountsUntouched(t *testing.T) {
	rules := twoPhaseRules()
	res := EvaluateRules(snapWith("-11", "2", "11", 5), rules, models.PhaseFailed, 10)

	failed := activeAccount(models.PhaseFailed)
	if dec := DecidePhase(failed, rules, res, time.Now()); dec.Transition != nil {
		t.Fatalf("FAILED account re-transitioned: %+v", dec.Transition)
	}

	closed := activeAccount(models.PhaseFunded)
	closed.Status = models.StatusClosed
	if dec := DecidePhase(closed, rules, res, time.Now()); dec.Transition != nil {
		t.Fatalf("CLOSED account transitioned: %+v", dec.Transition)
	}
}

func TestDecidePhaseFundedWithoutBreachHolds(t *testing.T) {
	rules := twoPhaseRules()
	res := EvaluateRules(snapWith("40", "1", "1", 100), rules, models.PhaseFunded, 200)
	if dec := DecidePhase(activeAccount(models.PhaseFunded), rules, res, time.Now()); dec.Transition != nil {
		t.Fatalf("compliant FUNDED account should stay put, got %+v", dec.Transition)
	}
}
