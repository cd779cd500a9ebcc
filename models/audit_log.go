package models

import "time"

// AuditLog records who changed what through the admin surface.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ActorID       uint      `gorm:"index" json:"actorId"`
	ActorUsername string    `gorm:"size:100" json:"actorUsername"`
	Action        string    `gorm:"size:50;not null" json:"action"`
	TargetType    string    `gorm:"size:30;not null" json:"targetType"`
	TargetID      uint      `json:"targetId"`
	Detail        *string   `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "tkj_audit_log" }
