package repository

import (
	"context"
	"time"

	"propfirm/internal/models"
)

// Repository is the persistence surface of the evaluation engine. The gorm
// implementation lives in repository/gorm; tests use an in-memory stub.
type Repository interface {
	// Challenges (rule sets).
	InsertChallenge(ctx context.Context, item *models.Challenge) error
	SaveChallenge(ctx context.Context, item *models.Challenge) error
	GetChallengeByID(ctx context.Context, id uint64) (*models.Challenge, error)
	ListChallenges(ctx context.Context, limit, offset int) ([]models.Challenge, int64, error)
	CountAccountsByChallengeID(ctx context.Context, challengeID uint64) (int64, error)

	// Accounts.
	InsertAccount(ctx context.Context, item *models.Account) error
	GetAccountByID(ctx context.Context, id uint64) (*models.Account, error)
	SaveAccount(ctx context.Context, item *models.Account) error
	ListAccounts(ctx context.Context, params ListAccountsParams) ([]models.Account, error)
	CountAccounts(ctx context.Context, params ListAccountsParams) (int64, error)
	ListEvaluatableAccountIDs(ctx context.Context) ([]uint64, error)

	// Trades and equity samples.
	InsertTrade(ctx context.Context, item *models.Trade) (bool, error)
	GetTradeByExternalID(ctx context.Context, accountID uint64, externalID string) (*models.Trade, error)
	CloseTrade(ctx context.Context, accountID uint64, externalID string, item *models.Trade) error
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	InsertEquitySample(ctx context.Context, item *models.EquitySample) error
	ListEquitySamples(ctx context.Context, accountID uint64, since time.Time, limit int) ([]models.EquitySample, error)

	// Violations (append-only).
	InsertViolations(ctx context.Context, items []models.Violation) error
	ListViolations(ctx context.Context, params ListViolationsParams) ([]models.Violation, error)
	CountViolations(ctx context.Context, params ListViolationsParams) (int64, error)

	// Phase transitions (append-only).
	InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error
	ListPhaseTransitions(ctx context.Context, accountID uint64, limit, offset int) ([]models.PhaseTransition, error)

	// Daily compliance history.
	UpsertDailyComplianceRecord(ctx context.Context, item *models.DailyComplianceRecord) error
	ListDailyComplianceRecords(ctx context.Context, accountID uint64, since time.Time) ([]models.DailyComplianceRecord, error)

	// Reconciliation anomalies.
	InsertReconciliationAnomaly(ctx context.Context, item *models.ReconciliationAnomaly) error
	ListReconciliationAnomalies(ctx context.Context, accountID uint64, limit, offset int) ([]models.ReconciliationAnomaly, error)

	// Admin audit trail.
	InsertAuditLog(ctx context.Context, item *models.AuditLog) error
	ListAuditLogs(ctx context.Context, accountID uint64, limit, offset int) ([]models.AuditLog, error)
}

type ListAccountsParams struct {
	Limit    int
	Offset   int
	Phase    *string
	Status   *string
	TraderID *string
	OrderBy  string
	Asc      *bool
}

type ListTradesParams struct {
	Limit     int
	Offset    int
	AccountID uint64
	Open      *bool
	Since     *time.Time
}

type ListViolationsParams struct {
	Limit     int
	Offset    int
	AccountID *uint64
	Type      *string
	Fatal     *bool
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}
