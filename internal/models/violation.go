package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Violation types.
const (
	ViolationDailyDrawdown   = "DAILY_DRAWDOWN"
	ViolationOverallDrawdown = "OVERALL_DRAWDOWN"
	ViolationMaxTradingDays  = "MAX_TRADING_DAYS"
	ViolationOther           = "OTHER"
)

// Violation severities.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Violation is an append-only breach record. Consumers de-duplicate by
// RecordID; rows are never updated or deleted. Actual and threshold values
// are structured so presentation layers format the message, never the
// reverse.
type Violation struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordID  string `gorm:"type:varchar(36);not null;uniqueIndex" json:"record_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	Type     string `gorm:"type:varchar(30);not null;index" json:"type"`
	Severity string `gorm:"type:varchar(10);not null" json:"severity"`
	Message  string `gorm:"type:text" json:"message"`

	ActualValue    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"actual_value"`
	ThresholdValue decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"threshold_value"`

	IsFatal bool `gorm:"not null;default:false;index" json:"is_fatal"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (Violation) TableName() string {
	return "violations"
}
