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

func testAdmin(repo *stubRepo) (*AdminService, *EvaluationService) {
	evaluator := testEvaluator(repo)
	admin := NewAdminService(evaluator, zap.NewNop(), nil)
	admin.now = func() time.Time { return testNow }
	return admin, evaluator
}

func TestForcePhaseRecordsTransitionAndAudit(t *testing.T) {
	repo := newStubRepo()
	admin, _ := testAdmin(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	transition, err := admin.ForcePhase(context.Background(), acct.ID, models.PhaseFunded, "ops-1", "goodwill pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !transition.Manual || transition.ActorID != "ops-1" || transition.Reason != "goodwill pass" {
		t.Fatalf("transition record incomplete: %+v", transition)
	}
	if transition.FromPhase != models.PhaseOne || transition.ToPhase != models.PhaseFunded {
		t.Fatalf("transition = %s -> %s", transition.FromPhase, transition.ToPhase)
	}

	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if stored.Phase != models.PhaseFunded {
		t.Fatalf("phase = %s, want FUNDED", stored.Phase)
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != "force_phase" {
		t.Fatalf("audit trail missing: %+v", repo.audits)
	}
}

func TestForcePhaseValidation(t *testing.T) {
	repo := newStubRepo()
	admin, _ := testAdmin(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	cases := []struct {
		name    string
		phase   string
		actorID string
		reason  string
	}{
		{"unknown phase", "PHASE9", "ops-1", "r"},
		{"missing actor", models.PhaseFunded, "", "r"},
		{"missing reason", models.PhaseFunded, "ops-1", ""},
		{"same phase", models.PhaseOne, "ops-1", "r"},
	}
	for _, tt := range cases {
		_, err := admin.ForcePhase(context.Background(), acct.ID, tt.phase, tt.actorID, tt.reason)
		var cfgErr *engine.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%s: error = %v, want ConfigurationError", tt.name, err)
		}
	}
	if len(repo.transitions) != 0 || len(repo.audits) != 0 {
		t.Fatalf("rejected overrides left records")
	}
}

func TestForceFailDisqualifies(t *testing.T) {
	repo := newStubRepo()
	admin, _ := testAdmin(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	if _, err := admin.ForcePhase(context.Background(), acct.ID, models.PhaseFailed, "ops-1", "rule 4.2 breach confirmed manually"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if stored.Status != models.StatusDisqualified {
		t.Fatalf("status = %s, want DISQUALIFIED", stored.Status)
	}
}

func TestForcePhaseReinstatesFailedAccount(t *testing.T) {
	repo := newStubRepo()
	admin, _ := testAdmin(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	stored.Phase = models.PhaseFailed
	stored.Status = models.StatusDisqualified
	_ = repo.SaveAccount(context.Background(), stored)

	if _, err := admin.ForcePhase(context.Background(), acct.ID, models.PhaseOne, "ops-2", "appeal upheld"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if after.Phase != models.PhaseOne || after.Status != models.StatusActive {
		t.Fatalf("reinstated account = %s/%s", after.Phase, after.Status)
	}
}

func TestEvaluatorDoesNotReverseManualOverride(t *testing.T) {
	repo := newStubRepo()
	admin, evaluator := testAdmin(repo)
	ch := seedChallenge(repo)
	// No profit at all; a manual pass moves it to FUNDED anyway.
	acct := seedAccount(repo, ch, "100000", "100000")

	if _, err := admin.ForcePhase(context.Background(), acct.ID, models.PhaseFunded, "ops-1", "migration from legacy program"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := evaluator.Evaluate(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Transition != nil {
		t.Fatalf("evaluator reversed a manual override: %+v", res.Transition)
	}
	if res.Phase != models.PhaseFunded {
		t.Fatalf("phase = %s, want FUNDED", res.Phase)
	}
}

func TestForceStatus(t *testing.T) {
	repo := newStubRepo()
	admin, _ := testAdmin(repo)
	ch := seedChallenge(repo)
	acct := seedAccount(repo, ch, "100000", "100000")

	if err := admin.ForceStatus(context.Background(), acct.ID, models.StatusPaused, "ops-1", "payment dispute"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetAccountByID(context.Background(), acct.ID)
	if stored.Status != models.StatusPaused {
		t.Fatalf("status = %s, want PAUSED", stored.Status)
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != "force_status" {
		t.Fatalf("audit trail missing: %+v", repo.audits)
	}

	if err := admin.ForceStatus(context.Background(), acct.ID, "LIMBO", "ops-1", "r"); err == nil {
		t.Fatalf("unknown status accepted")
	}
}
