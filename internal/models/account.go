package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account phases.
const (
	PhaseOne    = "PHASE1"
	PhaseTwo    = "PHASE2"
	PhaseFunded = "FUNDED"
	PhaseFailed = "FAILED"
)

// Account statuses.
const (
	StatusActive       = "ACTIVE"
	StatusPaused       = "PAUSED"
	StatusClosed       = "CLOSED"
	StatusDailyLocked  = "DAILY_LOCKED"
	StatusDisqualified = "DISQUALIFIED"
)

// Account is a trader's evaluation/funded instance. The engine is the only
// writer of derived state; broker adapters only feed raw trade/equity events.
type Account struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ChallengeID uint64 `gorm:"not null;index" json:"challenge_id"`
	Challenge   Challenge `json:"-"`

	TraderID string `gorm:"type:varchar(100);not null;index" json:"trader_id"`

	InitialBalance decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"initial_balance"`
	Balance        decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"balance"`
	Equity         decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"equity"`

	// MaxEquityToDate is the high-water mark. Monotonically non-decreasing
	// while the account is active; only an admin override may lower it.
	MaxEquityToDate  decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"max_equity_to_date"`
	TodayStartEquity decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"today_start_equity"`

	TradingDaysCount int    `gorm:"not null;default:0" json:"trading_days_count"`
	Phase            string `gorm:"type:varchar(10);not null;default:'PHASE1';index" json:"phase"`
	Status           string `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`

	// Timezone is the IANA zone that defines this account's trading-day
	// boundary.
	Timezone string `gorm:"type:varchar(50);not null;default:'UTC'" json:"timezone"`

	// CurrentTradingDay is the start of the trading day (in Timezone) the
	// ledger last observed; TradedToday tracks whether that day has had at
	// least one trade event.
	CurrentTradingDay *time.Time `gorm:"type:timestamptz" json:"current_trading_day"`
	TradedToday       bool       `gorm:"not null;default:false" json:"traded_today"`

	// Intraday worst drawdowns, folded into the daily compliance record at
	// rollover.
	WorstDailyDrawdownToday   decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"worst_daily_drawdown_today"`
	WorstOverallDrawdownToday decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"worst_overall_drawdown_today"`

	// EquityUpdatedAt stamps the last broker-fed equity reading. Evaluations
	// tolerate staleness but surface it.
	EquityUpdatedAt time.Time `gorm:"type:timestamptz" json:"equity_updated_at"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "trading_accounts"
}

// Terminal reports whether the automatic evaluator is done with this account.
func (a Account) Terminal() bool {
	return a.Phase == PhaseFailed || a.Status == StatusDisqualified || a.Status == StatusClosed
}
