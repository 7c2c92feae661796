package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"propfirm/internal/models"
	"propfirm/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Semantics mirror the gorm store: append-only tables keep the first write on
// a conflicting key.
type stubRepo struct {
	mu sync.Mutex

	challenges  map[uint64]models.Challenge
	accounts    map[uint64]models.Account
	trades      []models.Trade
	samples     []models.EquitySample
	violations  []models.Violation
	transitions []models.PhaseTransition
	daily       map[string]models.DailyComplianceRecord
	anomalies   []models.ReconciliationAnomaly
	audits      []models.AuditLog

	nextID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		challenges: map[uint64]models.Challenge{},
		accounts:   map[uint64]models.Account{},
		daily:      map[string]models.DailyComplianceRecord{},
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

func dailyKey(accountID uint64, date time.Time) string {
	return fmt.Sprintf("%d:%s", accountID, date.Format("2006-01-02"))
}

func (s *stubRepo) InsertChallenge(ctx context.Context, item *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.challenges[item.ID] = *item
	return nil
}

func (s *stubRepo) SaveChallenge(ctx context.Context, item *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[item.ID] = *item
	return nil
}

func (s *stubRepo) GetChallengeByID(ctx context.Context, id uint64) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *stubRepo) ListChallenges(ctx context.Context, limit, offset int) ([]models.Challenge, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Challenge
	for _, item := range s.challenges {
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (s *stubRepo) CountAccountsByChallengeID(ctx context.Context, challengeID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, acct := range s.accounts {
		if acct.ChallengeID == challengeID {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) InsertAccount(ctx context.Context, item *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.accounts[item.ID] = *item
	return nil
}

func (s *stubRepo) GetAccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *stubRepo) SaveAccount(ctx context.Context, item *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[item.ID] = *item
	return nil
}

func (s *stubRepo) ListAccounts(ctx context.Context, params repository.ListAccountsParams) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, acct := range s.accounts {
		if params.Phase != nil && acct.Phase != *params.Phase {
			continue
		}
		if params.Status != nil && acct.Status != *params.Status {
			continue
		}
		if params.TraderID != nil && acct.TraderID != *params.TraderID {
			continue
		}
		out = append(out, acct)
	}
	return out, nil
}

func (s *stubRepo) CountAccounts(ctx context.Context, params repository.ListAccountsParams) (int64, error) {
	items, _ := s.ListAccounts(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListEvaluatableAccountIDs(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for id, acct := range s.accounts {
		if !acct.Terminal() {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertTrade(ctx context.Context, item *models.Trade) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.AccountID == item.AccountID && t.ExternalID == item.ExternalID {
			return false, nil
		}
	}
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.trades = append(s.trades, *item)
	return true, nil
}

func (s *stubRepo) GetTradeByExternalID(ctx context.Context, accountID uint64, externalID string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.AccountID == accountID && t.ExternalID == externalID {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) CloseTrade(ctx context.Context, accountID uint64, externalID string, item *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.trades {
		if t.AccountID == accountID && t.ExternalID == externalID {
			s.trades[i].ClosePrice = item.ClosePrice
			s.trades[i].ClosedAt = item.ClosedAt
			s.trades[i].Profit = item.Profit
			return nil
		}
	}
	return nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for _, t := range s.trades {
		if params.AccountID != 0 && t.AccountID != params.AccountID {
			continue
		}
		if params.Open != nil && t.Open() != *params.Open {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubRepo) InsertEquitySample(ctx context.Context, item *models.EquitySample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.samples = append(s.samples, *item)
	return nil
}

func (s *stubRepo) ListEquitySamples(ctx context.Context, accountID uint64, since time.Time, limit int) ([]models.EquitySample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EquitySample
	for _, sample := range s.samples {
		if sample.AccountID == accountID && !sample.SampledAt.Before(since) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertViolations(ctx context.Context, items []models.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		dup := false
		for _, existing := range s.violations {
			if existing.RecordID == item.RecordID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if item.ID == 0 {
			item.ID = s.id()
		}
		s.violations = append(s.violations, item)
	}
	return nil
}

func (s *stubRepo) ListViolations(ctx context.Context, params repository.ListViolationsParams) ([]models.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Violation
	for _, v := range s.violations {
		if params.AccountID != nil && v.AccountID != *params.AccountID {
			continue
		}
		if params.Type != nil && v.Type != *params.Type {
			continue
		}
		if params.Fatal != nil && v.IsFatal != *params.Fatal {
			continue
		}
		if params.Since != nil && v.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *stubRepo) CountViolations(ctx context.Context, params repository.ListViolationsParams) (int64, error) {
	items, _ := s.ListViolations(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transitions {
		if existing.RecordID == item.RecordID {
			return nil
		}
	}
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.transitions = append(s.transitions, *item)
	return nil
}

func (s *stubRepo) ListPhaseTransitions(ctx context.Context, accountID uint64, limit, offset int) ([]models.PhaseTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PhaseTransition
	for _, tr := range s.transitions {
		if tr.AccountID == accountID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertDailyComplianceRecord(ctx context.Context, item *models.DailyComplianceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dailyKey(item.AccountID, item.Date)
	if _, exists := s.daily[key]; exists {
		return nil
	}
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.daily[key] = *item
	return nil
}

func (s *stubRepo) ListDailyComplianceRecords(ctx context.Context, accountID uint64, since time.Time) ([]models.DailyComplianceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailyComplianceRecord
	for _, rec := range s.daily {
		if rec.AccountID == accountID && !rec.Date.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertReconciliationAnomaly(ctx context.Context, item *models.ReconciliationAnomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.anomalies = append(s.anomalies, *item)
	return nil
}

func (s *stubRepo) ListReconciliationAnomalies(ctx context.Context, accountID uint64, limit, offset int) ([]models.ReconciliationAnomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReconciliationAnomaly
	for _, a := range s.anomalies {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertAuditLog(ctx context.Context, item *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.audits = append(s.audits, *item)
	return nil
}

func (s *stubRepo) ListAuditLogs(ctx context.Context, accountID uint64, limit, offset int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, a := range s.audits {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return out, nil
}
