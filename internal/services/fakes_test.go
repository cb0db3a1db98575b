package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/repos"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
)

type fakeAIClient struct {
	content   string
	err       error
	chatCalls int
	lastMsgs  []AIMessage
	lastOpts  *AIOptions
}

func (f *fakeAIClient) Chat(_ context.Context, messages []AIMessage, opts *AIOptions) (*AICompletion, error) {
	f.chatCalls++
	f.lastMsgs = append([]AIMessage(nil), messages...)
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &AICompletion{Content: f.content}, nil
}

type fakeGenerationSessionRepo struct {
	sessions map[uuid.UUID]*types.GenerationSession

	createErr   error
	createCalls int

	updateErr         error
	updateCalls       int
	lastUpdatedID     uuid.UUID
	lastAcceptedCount int
}

func newFakeGenerationSessionRepo() *fakeGenerationSessionRepo {
	return &fakeGenerationSessionRepo{sessions: map[uuid.UUID]*types.GenerationSession{}}
}

func (f *fakeGenerationSessionRepo) Create(_ context.Context, _ *gorm.DB, sessions []*types.GenerationSession) ([]*types.GenerationSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, session := range sessions {
		f.sessions[session.ID] = session
	}
	return sessions, nil
}

func (f *fakeGenerationSessionRepo) GetByIDs(_ context.Context, _ *gorm.DB, sessionIDs []uuid.UUID) ([]*types.GenerationSession, error) {
	var out []*types.GenerationSession
	for _, id := range sessionIDs {
		if session, ok := f.sessions[id]; ok {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeGenerationSessionRepo) UpdateAcceptedCount(_ context.Context, _ *gorm.DB, sessionID uuid.UUID, acceptedCount int) error {
	f.updateCalls++
	f.lastUpdatedID = sessionID
	f.lastAcceptedCount = acceptedCount
	if f.updateErr != nil {
		return f.updateErr
	}
	if session, ok := f.sessions[sessionID]; ok {
		session.AcceptedCount = acceptedCount
	}
	return nil
}

type fakeFlashcardRepo struct {
	cards map[uuid.UUID]*types.Flashcard

	createErr   error
	createCalls int

	listItems  []*types.Flashcard
	listTotal  int64
	listErr    error
	lastFilter repos.FlashcardListFilter

	updateErr   error
	lastUpdated *types.Flashcard

	deleteErr  error
	deletedIDs []uuid.UUID
}

func newFakeFlashcardRepo() *fakeFlashcardRepo {
	return &fakeFlashcardRepo{cards: map[uuid.UUID]*types.Flashcard{}}
}

func (f *fakeFlashcardRepo) Create(_ context.Context, _ *gorm.DB, flashcards []*types.Flashcard) ([]*types.Flashcard, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, card := range flashcards {
		f.cards[card.ID] = card
	}
	return flashcards, nil
}

func (f *fakeFlashcardRepo) GetByIDs(_ context.Context, _ *gorm.DB, flashcardIDs []uuid.UUID) ([]*types.Flashcard, error) {
	var out []*types.Flashcard
	for _, id := range flashcardIDs {
		if card, ok := f.cards[id]; ok {
			out = append(out, card)
		}
	}
	return out, nil
}

func (f *fakeFlashcardRepo) List(_ context.Context, _ *gorm.DB, filter repos.FlashcardListFilter) ([]*types.Flashcard, int64, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listItems, f.listTotal, nil
}

func (f *fakeFlashcardRepo) Update(_ context.Context, _ *gorm.DB, flashcard *types.Flashcard) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastUpdated = flashcard
	f.cards[flashcard.ID] = flashcard
	return nil
}

func (f *fakeFlashcardRepo) FullDeleteByIDs(_ context.Context, _ *gorm.DB, flashcardIDs []uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, flashcardIDs...)
	for _, id := range flashcardIDs {
		delete(f.cards, id)
	}
	return nil
}
