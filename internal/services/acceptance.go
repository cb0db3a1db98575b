package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/repos"
	"github.com/fiszkiapp/fiszki-backend/internal/review"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
)

type AcceptProposalsInput struct {
	GenerationSessionID uuid.UUID
	Cards               []ProposalRecord
}

type AcceptProposalsResult struct {
	SavedCount int                `json:"saved_count"`
	Flashcards []*types.Flashcard `json:"flashcards"`
}

type AcceptanceService interface {
	Accept(ctx context.Context, userID uuid.UUID, input AcceptProposalsInput) (*AcceptProposalsResult, error)
}

type acceptanceService struct {
	db            *gorm.DB
	log           *logger.Logger
	sessionRepo   repos.GenerationSessionRepo
	flashcardRepo repos.FlashcardRepo
}

func NewAcceptanceService(db *gorm.DB, log *logger.Logger, sessionRepo repos.GenerationSessionRepo, flashcardRepo repos.FlashcardRepo) AcceptanceService {
	serviceLog := log.With("service", "AcceptanceService")
	return &acceptanceService{
		db:            db,
		log:           serviceLog,
		sessionRepo:   sessionRepo,
		flashcardRepo: flashcardRepo,
	}
}

// Accept persists reviewed proposals as flashcards for the session owner.
// Preconditions are checked in order: batch size, card text bounds, session
// existence, session ownership. The flashcard insert is a single batch
// statement, so it either commits every card or none. The accepted_count
// bookkeeping update that follows is non-fatal: the cards are already saved,
// so a failure there is logged and the result still reports success.
func (as *acceptanceService) Accept(ctx context.Context, userID uuid.UUID, input AcceptProposalsInput) (*AcceptProposalsResult, error) {
	if len(input.Cards) < review.MinProposals || len(input.Cards) > review.MaxProposals {
		return nil, &errs.BusinessRuleError{
			Index:   0,
			Field:   "cards",
			Message: fmt.Sprintf("cards must contain between %d and %d items", review.MinProposals, review.MaxProposals),
		}
	}

	// Edited proposals obey the same text bounds as any other flashcard.
	commands := make([]CreateFlashcardCommand, len(input.Cards))
	for i, card := range input.Cards {
		commands[i] = CreateFlashcardCommand{FrontText: card.FrontText, BackText: card.BackText}
	}
	if err := validateCardText(commands); err != nil {
		return nil, err
	}

	sessions, err := as.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{input.GenerationSessionID})
	if err != nil {
		as.log.Error("Failed to load generation session", "error", err)
		return nil, fmt.Errorf("failed to load generation session: %w", errs.ErrPersistence)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session %s: %w", input.GenerationSessionID, errs.ErrSessionNotFound)
	}
	session := sessions[0]
	if session.UserID != userID {
		return nil, fmt.Errorf("session %s does not belong to caller: %w", session.ID, errs.ErrForbidden)
	}

	sessionID := session.ID
	flashcards := make([]*types.Flashcard, len(input.Cards))
	for i, card := range input.Cards {
		flashcards[i] = &types.Flashcard{
			ID:                  uuid.New(),
			UserID:              userID,
			FrontText:           card.FrontText,
			BackText:            card.BackText,
			Origin:              types.OriginAIFull,
			GenerationSessionID: &sessionID,
		}
	}

	saved, err := as.flashcardRepo.Create(ctx, nil, flashcards)
	if err != nil {
		as.log.Error("Failed to save accepted flashcards", "error", err)
		return nil, fmt.Errorf("failed to save flashcards: %w", errs.ErrPersistence)
	}

	if err := as.sessionRepo.UpdateAcceptedCount(ctx, nil, sessionID, len(saved)); err != nil {
		as.log.Warn("Failed to update session accepted_count", "session_id", sessionID, "error", err)
	}

	return &AcceptProposalsResult{
		SavedCount: len(saved),
		Flashcards: saved,
	}, nil
}
