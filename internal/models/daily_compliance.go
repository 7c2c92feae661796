package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyComplianceRecord is written once per account per trading day at
// rollover, capturing the worst drawdowns observed during that day.
type DailyComplianceRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64 `gorm:"not null;index:idx_daily_compliance_account_date,unique" json:"account_id"`

	// Date is the start of the trading day in the account's timezone.
	Date time.Time `gorm:"type:timestamptz;not null;index:idx_daily_compliance_account_date,unique" json:"date"`

	DailyDrawdownPercent   decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"daily_drawdown_percent"`
	OverallDrawdownPercent decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"overall_drawdown_percent"`
	ClosingEquity          decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"closing_equity"`
	Traded                 bool            `gorm:"not null;default:false" json:"traded"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (DailyComplianceRecord) TableName() string {
	return "daily_compliance_records"
}
