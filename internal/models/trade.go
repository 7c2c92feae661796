package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a broker-reported open/close event. Immutable once closed.
// ExternalID is the broker's identifier; re-delivery of the same id for the
// same account is a no-op.
type Trade struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  uint64 `gorm:"not null;index:idx_trades_account_external,unique" json:"account_id"`
	ExternalID string `gorm:"type:varchar(100);not null;index:idx_trades_account_external,unique" json:"external_id"`

	Symbol     string           `gorm:"type:varchar(30)" json:"symbol"`
	Volume     decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"volume"`
	OpenPrice  decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"open_price"`
	ClosePrice *decimal.Decimal `gorm:"type:numeric(20,8)" json:"close_price"`

	// Profit is realized P&L; zero while the trade is open.
	Profit decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"profit"`

	OpenedAt time.Time  `gorm:"type:timestamptz;not null;index" json:"opened_at"`
	ClosedAt *time.Time `gorm:"type:timestamptz" json:"closed_at"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}

func (t Trade) Open() bool {
	return t.ClosedAt == nil
}
