package service

import (
	"context"
	"testing"

	"propfirm/internal/engine"
	"propfirm/internal/models"
)

func TestRiskOverview(t *testing.T) {
	repo := newStubRepo()
	svc := testEvaluator(repo)
	ch := seedChallenge(repo)

	quiet := seedAccount(repo, ch, "100500", "100400")
	hot := seedAccount(repo, ch, "95900", "100000") // 82% of the daily limit
	failed := seedAccount(repo, ch, "90000", "100000")

	stored, _ := repo.GetAccountByID(context.Background(), failed.ID)
	stored.Phase = models.PhaseFailed
	stored.Status = models.StatusDisqualified
	_ = repo.SaveAccount(context.Background(), stored)

	overview, err := svc.RiskOverview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Totals[string(engine.RiskLow)] != 1 {
		t.Fatalf("low total = %d, want 1", overview.Totals[string(engine.RiskLow)])
	}
	if overview.Totals[string(engine.RiskHigh)] != 1 {
		t.Fatalf("high total = %d, want 1", overview.Totals[string(engine.RiskHigh)])
	}
	if len(overview.Elevated) != 1 || overview.Elevated[0].AccountID != hot.ID {
		t.Fatalf("elevated list wrong: %+v", overview.Elevated)
	}
	for _, entry := range overview.Elevated {
		if entry.AccountID == quiet.ID || entry.AccountID == failed.ID {
			t.Fatalf("unexpected account in elevated list: %d", entry.AccountID)
		}
	}
}
