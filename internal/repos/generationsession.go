package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
)

type GenerationSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sessions []*types.GenerationSession) ([]*types.GenerationSession, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.GenerationSession, error)
	UpdateAcceptedCount(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, acceptedCount int) error
}

type generationSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationSessionRepo(db *gorm.DB, baseLog *logger.Logger) GenerationSessionRepo {
	repoLog := baseLog.With("repo", "GenerationSessionRepo")
	return &generationSessionRepo{db: db, log: repoLog}
}

func (gsr *generationSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.GenerationSession) ([]*types.GenerationSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = gsr.db
	}

	if len(sessions) == 0 {
		return []*types.GenerationSession{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (gsr *generationSessionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, sessionIDs []uuid.UUID) ([]*types.GenerationSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = gsr.db
	}

	var results []*types.GenerationSession

	if len(sessionIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", sessionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateAcceptedCount overwrites accepted_count with the size of the latest
// accept call. Last write wins; accepting twice is not cumulative.
func (gsr *generationSessionRepo) UpdateAcceptedCount(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, acceptedCount int) error {
	transaction := tx
	if transaction == nil {
		transaction = gsr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.GenerationSession{}).
		Where("id = ?", sessionID).
		Update("accepted_count", acceptedCount).Error
}
