package types

import (
	"time"

	"github.com/google/uuid"
)

// GenerationSession is the persisted audit record of one AI generation
// request. accepted_count is written exactly once afterwards, by the accept
// flow, and never exceeds proposals_count.
type GenerationSession struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User               *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	ProposalsCount     int       `gorm:"not null;column:proposals_count" json:"proposals_count"`
	AcceptedCount      int       `gorm:"not null;default:0;column:accepted_count" json:"accepted_count"`
	SourceTextLength   int       `gorm:"not null;column:source_text_length" json:"source_text_length"`
	SourceTextHash     string    `gorm:"not null;column:source_text_hash" json:"source_text_hash"`
	GenerateDurationMs *int64    `gorm:"column:generate_duration_ms" json:"generate_duration_ms,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (GenerationSession) TableName() string {
	return "generation_session"
}
