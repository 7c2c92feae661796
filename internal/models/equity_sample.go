package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquitySample is an append-only point in the account's equity time series,
// written on every ledger-affecting event.
type EquitySample struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64 `gorm:"not null;index:idx_equity_samples_account_time" json:"account_id"`

	Equity  decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"equity"`
	Balance decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"balance"`

	SampledAt time.Time `gorm:"type:timestamptz;not null;index:idx_equity_samples_account_time" json:"sampled_at"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (EquitySample) TableName() string {
	return "equity_samples"
}
