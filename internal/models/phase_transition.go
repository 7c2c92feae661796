package models

import (
	"time"
)

// PhaseTransition is the append-only audit trail of phase changes. An
// account's phase always equals the ToPhase of its latest transition, or
// PHASE1 when none exist. Manual transitions come from admin overrides and
// are never reversed by the automatic evaluator.
type PhaseTransition struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordID  string `gorm:"type:varchar(36);not null;uniqueIndex" json:"record_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	FromPhase string `gorm:"type:varchar(10);not null" json:"from_phase"`
	ToPhase   string `gorm:"type:varchar(10);not null" json:"to_phase"`
	Reason    string `gorm:"type:text;not null" json:"reason"`

	Manual  bool   `gorm:"not null;default:false" json:"manual"`
	ActorID string `gorm:"type:varchar(100)" json:"actor_id,omitempty"`

	OccurredAt time.Time `gorm:"type:timestamptz;not null;index" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (PhaseTransition) TableName() string {
	return "phase_transitions"
}
