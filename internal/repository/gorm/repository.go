package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"propfirm/internal/models"
	"propfirm/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- challenges -------------------------------------------------------------

func (s *Store) InsertChallenge(ctx context.Context, item *models.Challenge) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveChallenge(ctx context.Context, item *models.Challenge) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetChallengeByID(ctx context.Context, id uint64) (*models.Challenge, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Challenge
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListChallenges(ctx context.Context, limit, offset int) ([]models.Challenge, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, nil
	}
	limit = normalizeLimit(limit, 100)
	offset = normalizeOffset(offset)
	var items []models.Challenge
	if err := s.db.WithContext(ctx).
		Order("id asc").Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Challenge{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) CountAccountsByChallengeID(ctx context.Context, challengeID uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("challenge_id = ?", challengeID).Count(&total).Error
	return total, err
}

// --- accounts ---------------------------------------------------------------

func (s *Store) InsertAccount(ctx context.Context, item *models.Account) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAccountByID(ctx context.Context, id uint64) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveAccount(ctx context.Context, item *models.Account) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) ListAccounts(ctx context.Context, params repository.ListAccountsParams) ([]models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.accountsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Account
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAccounts(ctx context.Context, params repository.ListAccountsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.accountsQuery(ctx, params).Count(&total).Error
	return total, err
}

func (s *Store) accountsQuery(ctx context.Context, params repository.ListAccountsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Account{})
	if params.Phase != nil && strings.TrimSpace(*params.Phase) != "" {
		query = query.Where("phase = ?", strings.TrimSpace(*params.Phase))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.TraderID != nil && strings.TrimSpace(*params.TraderID) != "" {
		query = query.Where("trader_id = ?", strings.TrimSpace(*params.TraderID))
	}
	return query
}

// ListEvaluatableAccountIDs returns accounts the sweep should visit: anything
// not yet terminal. PAUSED and DAILY_LOCKED accounts are still evaluated so a
// stale breach cannot hide behind a pause.
func (s *Store) ListEvaluatableAccountIDs(ctx context.Context) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("phase <> ?", models.PhaseFailed).
		Where("status NOT IN ?", []string{models.StatusDisqualified, models.StatusClosed}).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

// --- trades & equity samples ------------------------------------------------

// InsertTrade is idempotent on (account_id, external_id); it reports whether
// a row was actually inserted so re-delivered broker events are no-ops.
func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(item)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) GetTradeByExternalID(ctx context.Context, accountID uint64, externalID string) (*models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).
		First(&item, "account_id = ? AND external_id = ?", accountID, externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CloseTrade fills the close-side fields of an open trade. Closed trades are
// immutable: a second close for the same external id does nothing.
func (s *Store) CloseTrade(ctx context.Context, accountID uint64, externalID string, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("account_id = ? AND external_id = ? AND closed_at IS NULL", accountID, externalID).
		Updates(map[string]any{
			"close_price": item.ClosePrice,
			"profit":      item.Profit,
			"closed_at":   item.ClosedAt,
		}).Error
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("account_id = ?", params.AccountID)
	if params.Open != nil {
		if *params.Open {
			query = query.Where("closed_at IS NULL")
		} else {
			query = query.Where("closed_at IS NOT NULL")
		}
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("opened_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Order("opened_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertEquitySample(ctx context.Context, item *models.EquitySample) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEquitySamples(ctx context.Context, accountID uint64, since time.Time, limit int) ([]models.EquitySample, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 1000)
	query := s.db.WithContext(ctx).Model(&models.EquitySample{}).
		Where("account_id = ?", accountID)
	if !since.IsZero() {
		query = query.Where("sampled_at >= ?", since)
	}
	var items []models.EquitySample
	if err := query.Order("sampled_at asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- violations -------------------------------------------------------------

func (s *Store) InsertViolations(ctx context.Context, items []models.Violation) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	// Append-only; record_id collisions from redelivery are skipped.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoNothing: true,
	}).Create(&items).Error
}

func (s *Store) ListViolations(ctx context.Context, params repository.ListViolationsParams) ([]models.Violation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.violationsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Violation
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountViolations(ctx context.Context, params repository.ListViolationsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.violationsQuery(ctx, params).Count(&total).Error
	return total, err
}

func (s *Store) violationsQuery(ctx context.Context, params repository.ListViolationsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Violation{})
	if params.AccountID != nil {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Fatal != nil {
		query = query.Where("is_fatal = ?", *params.Fatal)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

// --- phase transitions ------------------------------------------------------

func (s *Store) InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListPhaseTransitions(ctx context.Context, accountID uint64, limit, offset int) ([]models.PhaseTransition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	offset = normalizeOffset(offset)
	var items []models.PhaseTransition
	if err := s.db.WithContext(ctx).Model(&models.PhaseTransition{}).
		Where("account_id = ?", accountID).
		Order("occurred_at desc").Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- daily compliance -------------------------------------------------------

func (s *Store) UpsertDailyComplianceRecord(ctx context.Context, item *models.DailyComplianceRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// One record per (account, day); a rollover retried after a crash keeps
	// the first write.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListDailyComplianceRecords(ctx context.Context, accountID uint64, since time.Time) ([]models.DailyComplianceRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DailyComplianceRecord{}).
		Where("account_id = ?", accountID)
	if !since.IsZero() {
		query = query.Where("date >= ?", since)
	}
	var items []models.DailyComplianceRecord
	if err := query.Order("date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- reconciliation anomalies -----------------------------------------------

func (s *Store) InsertReconciliationAnomaly(ctx context.Context, item *models.ReconciliationAnomaly) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListReconciliationAnomalies(ctx context.Context, accountID uint64, limit, offset int) ([]models.ReconciliationAnomaly, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	offset = normalizeOffset(offset)
	var items []models.ReconciliationAnomaly
	if err := s.db.WithContext(ctx).Model(&models.ReconciliationAnomaly{}).
		Where("account_id = ?", accountID).
		Order("created_at desc").Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- audit logs -------------------------------------------------------------

func (s *Store) InsertAuditLog(ctx context.Context, item *models.AuditLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAuditLogs(ctx context.Context, accountID uint64, limit, offset int) ([]models.AuditLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	offset = normalizeOffset(offset)
	var items []models.AuditLog
	if err := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("account_id = ?", accountID).
		Order("created_at desc").Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, def string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = def
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
