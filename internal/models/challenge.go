package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Challenge is the immutable rule set a trading account is evaluated against.
// All thresholds flow from here; no component hardcodes a limit.
type Challenge struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`

	Phase1TargetPercent decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"phase1_target_percent"`
	// Phase2TargetPercent is nil for one-phase products; PHASE1 then
	// promotes straight to FUNDED.
	Phase2TargetPercent *decimal.Decimal `gorm:"type:numeric(10,4)" json:"phase2_target_percent"`

	DailyDrawdownPercent   decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"daily_drawdown_percent"`
	OverallDrawdownPercent decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"overall_drawdown_percent"`

	MinTradingDays int `gorm:"not null;default:0" json:"min_trading_days"`
	// MaxTradingPeriodDays is nil for unlimited-time products.
	MaxTradingPeriodDays *int `gorm:"" json:"max_trading_period_days"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// IsOnePhase reports whether the product funds directly after phase 1.
func (c Challenge) IsOnePhase() bool {
	return c.Phase2TargetPercent == nil
}
