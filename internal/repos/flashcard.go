package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
)

// Sort orders accepted by the flashcard list endpoint.
const (
	SortCreatedAtDesc      = "created_at_desc"
	SortCreatedAtAsc       = "created_at_asc"
	SortLastReviewedAtAsc  = "last_reviewed_at_asc"
	SortLastReviewedAtDesc = "last_reviewed_at_desc"
)

// FlashcardListFilter scopes a list query to one owner and carries the
// search/filter/sort/pagination parameters.
type FlashcardListFilter struct {
	UserID uuid.UUID
	Query  string
	Origin string
	Sort   string
	Offset int
	Limit  int
}

type FlashcardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, flashcards []*types.Flashcard) ([]*types.Flashcard, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, flashcardIDs []uuid.UUID) ([]*types.Flashcard, error)
	List(ctx context.Context, tx *gorm.DB, filter FlashcardListFilter) ([]*types.Flashcard, int64, error)
	Update(ctx context.Context, tx *gorm.DB, flashcard *types.Flashcard) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, flashcardIDs []uuid.UUID) error
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	repoLog := baseLog.With("repo", "FlashcardRepo")
	return &flashcardRepo{db: db, log: repoLog}
}

func (fr *flashcardRepo) Create(ctx context.Context, tx *gorm.DB, flashcards []*types.Flashcard) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	if len(flashcards) == 0 {
		return []*types.Flashcard{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&flashcards).Error; err != nil {
		return nil, err
	}

	return flashcards, nil
}

func (fr *flashcardRepo) GetByIDs(ctx context.Context, tx *gorm.DB, flashcardIDs []uuid.UUID) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var results []*types.Flashcard

	if len(flashcardIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", flashcardIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *flashcardRepo) List(ctx context.Context, tx *gorm.DB, filter FlashcardListFilter) ([]*types.Flashcard, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.Flashcard{}).
		Where("user_id = ?", filter.UserID)

	if filter.Origin != "" {
		query = query.Where("origin = ?", filter.Origin)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("front_text ILIKE ? OR back_text ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case SortCreatedAtAsc:
		query = query.Order("created_at ASC")
	case SortLastReviewedAtAsc:
		query = query.Order("last_reviewed_at ASC NULLS FIRST")
	case SortLastReviewedAtDesc:
		query = query.Order("last_reviewed_at DESC NULLS LAST")
	default:
		query = query.Order("created_at DESC")
	}

	var results []*types.Flashcard
	if err := query.
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (fr *flashcardRepo) Update(ctx context.Context, tx *gorm.DB, flashcard *types.Flashcard) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Flashcard{}).
		Where("id = ?", flashcard.ID).
		Updates(map[string]interface{}{
			"front_text": flashcard.FrontText,
			"back_text":  flashcard.BackText,
			"origin":     flashcard.Origin,
			"updated_at": flashcard.UpdatedAt,
		}).Error
}

func (fr *flashcardRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, flashcardIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	if len(flashcardIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("id IN ?", flashcardIDs).
		Delete(&types.Flashcard{}).Error
}
