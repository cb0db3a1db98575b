package types

import (
	"time"

	"github.com/google/uuid"
)

// Flashcard origin values. A manual card never references a generation
// session; an AI card always does. An AI_full card becomes AI_edited when its
// content is changed; the reverse transition does not exist.
const (
	OriginManual   = "manual"
	OriginAIFull   = "AI_full"
	OriginAIEdited = "AI_edited"
)

// ValidOrigin reports whether s is one of the known origin values.
func ValidOrigin(s string) bool {
	return s == OriginManual || s == OriginAIFull || s == OriginAIEdited
}

type Flashcard struct {
	ID                  uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID          `gorm:"type:uuid;not null;index" json:"-"`
	User                *User              `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	FrontText           string             `gorm:"not null;column:front_text" json:"front_text"`
	BackText            string             `gorm:"not null;column:back_text" json:"back_text"`
	Origin              string             `gorm:"not null;default:'manual';index;column:origin" json:"origin"`
	GenerationSessionID *uuid.UUID         `gorm:"type:uuid;column:generation_session_id" json:"generation_session_id"`
	GenerationSession   *GenerationSession `gorm:"constraint:OnDelete:SET NULL;foreignKey:GenerationSessionID;references:ID" json:"-"`
	LastReviewedAt      *time.Time         `gorm:"column:last_reviewed_at" json:"last_reviewed_at"`
	CreatedAt           time.Time          `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"not null;default:now()" json:"updated_at"`
}

func (Flashcard) TableName() string {
	return "flashcard"
}
