package models

import (
	"time"
)

// AuditLog records administrative override actions. Force-pass/force-fail and
// status overrides are only valid with an actor and a reason.
type AuditLog struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	ActorID string `gorm:"type:varchar(100);not null" json:"actor_id"`
	Action  string `gorm:"type:varchar(50);not null" json:"action"`
	Reason  string `gorm:"type:text;not null" json:"reason"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
