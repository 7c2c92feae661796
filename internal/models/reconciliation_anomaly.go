package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReconciliationAnomaly records a late-arriving event stamped inside an
// already-closed trading day. Closed-day accounting is never rewritten; the
// anomaly is surfaced for manual reconciliation instead.
type ReconciliationAnomaly struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	TradeExternalID string    `gorm:"type:varchar(100)" json:"trade_external_id"`
	EventAt         time.Time `gorm:"type:timestamptz;not null" json:"event_at"`
	// TradingDay is the closed day the event belonged to.
	TradingDay time.Time `gorm:"type:timestamptz;not null" json:"trading_day"`
	Detail     string    `gorm:"type:text" json:"detail"`
	// Payload keeps the offending event verbatim for manual reconciliation.
	Payload datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (ReconciliationAnomaly) TableName() string {
	return "reconciliation_anomalies"
}
