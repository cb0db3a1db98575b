package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/repos"
	"github.com/fiszkiapp/fiszki-backend/internal/review"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
)

// CreateFlashcardCommand describes one flashcard to persist. Origin defaults
// to manual when empty. A manual card must not reference a generation
// session; an AI card must.
type CreateFlashcardCommand struct {
	FrontText           string
	BackText            string
	Origin              string
	GenerationSessionID *uuid.UUID
}

type CreateFlashcardsResult struct {
	SavedCount int                `json:"saved_count"`
	Flashcards []*types.Flashcard `json:"flashcards"`
}

type FlashcardListQuery struct {
	Page     int
	PageSize int
	Query    string
	Origin   string
	Sort     string
}

type FlashcardListResult struct {
	Items    []*types.Flashcard `json:"items"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Total    int64              `json:"total"`
}

type UpdateFlashcardInput struct {
	FrontText *string
	BackText  *string
}

type FlashcardService interface {
	Create(ctx context.Context, userID uuid.UUID, commands []CreateFlashcardCommand) (*CreateFlashcardsResult, error)
	List(ctx context.Context, userID uuid.UUID, query FlashcardListQuery) (*FlashcardListResult, error)
	GetByID(ctx context.Context, userID, flashcardID uuid.UUID) (*types.Flashcard, error)
	Update(ctx context.Context, userID, flashcardID uuid.UUID, input UpdateFlashcardInput) (*types.Flashcard, error)
	Delete(ctx context.Context, userID, flashcardID uuid.UUID) error
}

type flashcardService struct {
	db            *gorm.DB
	log           *logger.Logger
	flashcardRepo repos.FlashcardRepo
	sessionRepo   repos.GenerationSessionRepo
}

func NewFlashcardService(db *gorm.DB, log *logger.Logger, flashcardRepo repos.FlashcardRepo, sessionRepo repos.GenerationSessionRepo) FlashcardService {
	serviceLog := log.With("service", "FlashcardService")
	return &flashcardService{
		db:            db,
		log:           serviceLog,
		flashcardRepo: flashcardRepo,
		sessionRepo:   sessionRepo,
	}
}

// ValidateOriginSessionRules enforces the origin/session pairing invariant
// for every command in a batch before any write happens.
func ValidateOriginSessionRules(commands []CreateFlashcardCommand) error {
	for i, cmd := range commands {
		origin := cmd.Origin
		if origin == "" {
			origin = types.OriginManual
		}
		if !types.ValidOrigin(origin) {
			return &errs.BusinessRuleError{
				Index:   i,
				Field:   "origin",
				Message: fmt.Sprintf("origin %q is not one of manual, AI_full, AI_edited", origin),
			}
		}
		if origin == types.OriginManual && cmd.GenerationSessionID != nil {
			return &errs.BusinessRuleError{
				Index:   i,
				Field:   "generation_session_id",
				Message: "origin 'manual' cannot have generation_session_id",
			}
		}
		if origin != types.OriginManual && cmd.GenerationSessionID == nil {
			return &errs.BusinessRuleError{
				Index:   i,
				Field:   "generation_session_id",
				Message: fmt.Sprintf("origin %q requires generation_session_id", origin),
			}
		}
	}
	return nil
}

func validateCardText(commands []CreateFlashcardCommand) error {
	var fields []errs.FieldError
	for i, cmd := range commands {
		front := strings.TrimSpace(cmd.FrontText)
		back := strings.TrimSpace(cmd.BackText)
		if n := len([]rune(front)); n < 1 || n > maxProposalFieldChars {
			fields = append(fields, errs.FieldError{
				Field:   fmt.Sprintf("[%d].front_text", i),
				Message: "front_text must be between 1 and 1000 characters",
			})
		}
		if n := len([]rune(back)); n < 1 || n > maxProposalFieldChars {
			fields = append(fields, errs.FieldError{
				Field:   fmt.Sprintf("[%d].back_text", i),
				Message: "back_text must be between 1 and 1000 characters",
			})
		}
	}
	if len(fields) > 0 {
		return &errs.ValidationError{Fields: fields}
	}
	return nil
}

func (fs *flashcardService) Create(ctx context.Context, userID uuid.UUID, commands []CreateFlashcardCommand) (*CreateFlashcardsResult, error) {
	if len(commands) < 1 || len(commands) > review.MaxProposals {
		return nil, &errs.BusinessRuleError{
			Index:   0,
			Field:   "batch",
			Message: fmt.Sprintf("batch must contain between 1 and %d flashcards", review.MaxProposals),
		}
	}
	if err := validateCardText(commands); err != nil {
		return nil, err
	}
	if err := ValidateOriginSessionRules(commands); err != nil {
		return nil, err
	}

	// Referenced sessions must exist and belong to the caller.
	sessionIDSet := map[uuid.UUID]struct{}{}
	for _, cmd := range commands {
		if cmd.GenerationSessionID != nil {
			sessionIDSet[*cmd.GenerationSessionID] = struct{}{}
		}
	}
	if len(sessionIDSet) > 0 {
		sessionIDs := make([]uuid.UUID, 0, len(sessionIDSet))
		for id := range sessionIDSet {
			sessionIDs = append(sessionIDs, id)
		}
		sessions, err := fs.sessionRepo.GetByIDs(ctx, nil, sessionIDs)
		if err != nil {
			fs.log.Error("Failed to validate generation sessions", "error", err)
			return nil, fmt.Errorf("failed to validate generation sessions: %w", errs.ErrPersistence)
		}
		owned := map[uuid.UUID]bool{}
		for _, session := range sessions {
			if session.UserID == userID {
				owned[session.ID] = true
			}
		}
		for id := range sessionIDSet {
			if !owned[id] {
				return nil, fmt.Errorf("session %s: %w", id, errs.ErrSessionNotFound)
			}
		}
	}

	flashcards := make([]*types.Flashcard, len(commands))
	for i, cmd := range commands {
		origin := cmd.Origin
		if origin == "" {
			origin = types.OriginManual
		}
		flashcards[i] = &types.Flashcard{
			ID:                  uuid.New(),
			UserID:              userID,
			FrontText:           strings.TrimSpace(cmd.FrontText),
			BackText:            strings.TrimSpace(cmd.BackText),
			Origin:              origin,
			GenerationSessionID: cmd.GenerationSessionID,
		}
	}

	saved, err := fs.flashcardRepo.Create(ctx, nil, flashcards)
	if err != nil {
		fs.log.Error("Failed to save flashcards", "error", err)
		return nil, fmt.Errorf("failed to save flashcards: %w", errs.ErrPersistence)
	}

	return &CreateFlashcardsResult{
		SavedCount: len(saved),
		Flashcards: saved,
	}, nil
}

func (fs *flashcardService) List(ctx context.Context, userID uuid.UUID, query FlashcardListQuery) (*FlashcardListResult, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		return nil, errs.Validation("page_size", "page_size must not exceed 100")
	}
	if query.Origin != "" && !types.ValidOrigin(query.Origin) {
		return nil, errs.Validation("origin", "origin must be one of manual, AI_full, AI_edited")
	}
	switch query.Sort {
	case "", repos.SortCreatedAtDesc, repos.SortCreatedAtAsc, repos.SortLastReviewedAtAsc, repos.SortLastReviewedAtDesc:
	default:
		return nil, errs.Validation("sort", "unknown sort order")
	}

	items, total, err := fs.flashcardRepo.List(ctx, nil, repos.FlashcardListFilter{
		UserID: userID,
		Query:  query.Query,
		Origin: query.Origin,
		Sort:   query.Sort,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		fs.log.Error("Failed to list flashcards", "error", err)
		return nil, fmt.Errorf("failed to list flashcards: %w", errs.ErrPersistence)
	}
	if items == nil {
		items = []*types.Flashcard{}
	}

	return &FlashcardListResult{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

func (fs *flashcardService) GetByID(ctx context.Context, userID, flashcardID uuid.UUID) (*types.Flashcard, error) {
	flashcards, err := fs.flashcardRepo.GetByIDs(ctx, nil, []uuid.UUID{flashcardID})
	if err != nil {
		fs.log.Error("Failed to load flashcard", "error", err)
		return nil, fmt.Errorf("failed to load flashcard: %w", errs.ErrPersistence)
	}
	// A foreign card is indistinguishable from a missing one.
	if len(flashcards) == 0 || flashcards[0].UserID != userID {
		return nil, fmt.Errorf("flashcard %s: %w", flashcardID, errs.ErrNotFound)
	}
	return flashcards[0], nil
}

// Update changes front and/or back text. Editing the content of an AI_full
// card reclassifies it as AI_edited; manual and AI_edited keep their origin.
func (fs *flashcardService) Update(ctx context.Context, userID, flashcardID uuid.UUID, input UpdateFlashcardInput) (*types.Flashcard, error) {
	if input.FrontText == nil && input.BackText == nil {
		return nil, errs.Validation("body", "at least one of front_text, back_text must be provided")
	}
	var fields []errs.FieldError
	if input.FrontText != nil {
		if n := len([]rune(strings.TrimSpace(*input.FrontText))); n < 1 || n > maxProposalFieldChars {
			fields = append(fields, errs.FieldError{Field: "front_text", Message: "front_text must be between 1 and 1000 characters"})
		}
	}
	if input.BackText != nil {
		if n := len([]rune(strings.TrimSpace(*input.BackText))); n < 1 || n > maxProposalFieldChars {
			fields = append(fields, errs.FieldError{Field: "back_text", Message: "back_text must be between 1 and 1000 characters"})
		}
	}
	if len(fields) > 0 {
		return nil, &errs.ValidationError{Fields: fields}
	}

	flashcard, err := fs.GetByID(ctx, userID, flashcardID)
	if err != nil {
		return nil, err
	}

	contentChanged := false
	if input.FrontText != nil {
		next := strings.TrimSpace(*input.FrontText)
		if next != flashcard.FrontText {
			flashcard.FrontText = next
			contentChanged = true
		}
	}
	if input.BackText != nil {
		next := strings.TrimSpace(*input.BackText)
		if next != flashcard.BackText {
			flashcard.BackText = next
			contentChanged = true
		}
	}
	if contentChanged && flashcard.Origin == types.OriginAIFull {
		flashcard.Origin = types.OriginAIEdited
	}
	flashcard.UpdatedAt = time.Now().UTC()

	if err := fs.flashcardRepo.Update(ctx, nil, flashcard); err != nil {
		fs.log.Error("Failed to update flashcard", "error", err)
		return nil, fmt.Errorf("failed to update flashcard: %w", errs.ErrPersistence)
	}
	return flashcard, nil
}

func (fs *flashcardService) Delete(ctx context.Context, userID, flashcardID uuid.UUID) error {
	if _, err := fs.GetByID(ctx, userID, flashcardID); err != nil {
		return err
	}
	if err := fs.flashcardRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{flashcardID}); err != nil {
		fs.log.Error("Failed to delete flashcard", "error", err)
		return fmt.Errorf("failed to delete flashcard: %w", errs.ErrPersistence)
	}
	return nil
}
