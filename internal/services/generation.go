package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
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

const (
	maxProposalFieldChars = 1000
	aiTemperature         = 0.7
	aiMaxTokens           = 4000
)

// ProposalRecord is one AI-suggested front/back pair, not yet persisted.
type ProposalRecord struct {
	FrontText string `json:"front_text"`
	BackText  string `json:"back_text"`
}

type GenerateFlashcardsInput struct {
	SourceText   string
	Language     string // "pl", "en" or "" (match source language)
	MaxProposals int
}

type GenerationSessionSummary struct {
	ID               uuid.UUID `json:"id"`
	ProposalsCount   int       `json:"proposals_count"`
	SourceTextLength int       `json:"source_text_length"`
	CreatedAt        time.Time `json:"created_at"`
}

type GenerateFlashcardsResult struct {
	Session    GenerationSessionSummary
	Proposals  []ProposalRecord
	DurationMs int64
}

type GenerationService interface {
	GenerateFlashcards(ctx context.Context, userID uuid.UUID, input GenerateFlashcardsInput) (*GenerateFlashcardsResult, error)
}

type generationService struct {
	db          *gorm.DB
	log         *logger.Logger
	aiClient    AIClient
	sessionRepo repos.GenerationSessionRepo
}

func NewGenerationService(db *gorm.DB, log *logger.Logger, aiClient AIClient, sessionRepo repos.GenerationSessionRepo) GenerationService {
	serviceLog := log.With("service", "GenerationService")
	return &generationService{
		db:          db,
		log:         serviceLog,
		aiClient:    aiClient,
		sessionRepo: sessionRepo,
	}
}

// GenerateFlashcards runs one generation round: validate, hash, call the AI
// provider once, parse the returned JSON into proposals, and record the
// session row. If the session insert fails, the already-generated proposals
// are discarded and the whole call fails; the caller never gets proposals
// without a session reference.
func (gs *generationService) GenerateFlashcards(ctx context.Context, userID uuid.UUID, input GenerateFlashcardsInput) (*GenerateFlashcardsResult, error) {
	if err := validateGenerateInput(input); err != nil {
		return nil, err
	}

	start := time.Now()
	sourceTextHash := HashSourceText(input.SourceText)

	messages := []AIMessage{
		{Role: "system", Content: systemPrompt(input.Language)},
		{Role: "user", Content: userPrompt(input.SourceText, input.MaxProposals)},
	}

	completion, err := gs.aiClient.Chat(ctx, messages, &AIOptions{
		Temperature: aiTemperature,
		MaxTokens:   aiMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	proposals, err := gs.parseProposals(completion.Content, input.MaxProposals)
	if err != nil {
		return nil, err
	}

	durationMs := time.Since(start).Milliseconds()

	session := &types.GenerationSession{
		ID:                 uuid.New(),
		UserID:             userID,
		ProposalsCount:     len(proposals),
		AcceptedCount:      0,
		SourceTextLength:   len([]rune(input.SourceText)),
		SourceTextHash:     sourceTextHash,
		GenerateDurationMs: &durationMs,
	}
	created, err := gs.sessionRepo.Create(ctx, nil, []*types.GenerationSession{session})
	if err != nil {
		gs.log.Error("Failed to create generation session", "error", err)
		return nil, fmt.Errorf("failed to save generation session: %w", errs.ErrPersistence)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("no generation session returned from insert: %w", errs.ErrPersistence)
	}

	return &GenerateFlashcardsResult{
		Session: GenerationSessionSummary{
			ID:               created[0].ID,
			ProposalsCount:   created[0].ProposalsCount,
			SourceTextLength: created[0].SourceTextLength,
			CreatedAt:        created[0].CreatedAt,
		},
		Proposals:  proposals,
		DurationMs: durationMs,
	}, nil
}

// HashSourceText returns the hex SHA-256 digest of the exact source text
// bytes. Bookkeeping only, never a security decision.
func HashSourceText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func validateGenerateInput(input GenerateFlashcardsInput) error {
	var fields []errs.FieldError

	if !review.ValidateSourceText(input.SourceText) {
		fields = append(fields, errs.FieldError{
			Field:   "source_text",
			Message: fmt.Sprintf("source_text must be between %d and %d characters", review.MinSourceTextChars, review.MaxSourceTextChars),
		})
	}
	if input.Language != "" && input.Language != "pl" && input.Language != "en" {
		fields = append(fields, errs.FieldError{
			Field:   "language",
			Message: "language must be one of: pl, en, null",
		})
	}
	if input.MaxProposals < review.MinProposals || input.MaxProposals > review.MaxProposals {
		fields = append(fields, errs.FieldError{
			Field:   "max_proposals",
			Message: fmt.Sprintf("max_proposals must be between %d and %d", review.MinProposals, review.MaxProposals),
		})
	}

	if len(fields) > 0 {
		return &errs.ValidationError{Fields: fields}
	}
	return nil
}

func systemPrompt(language string) string {
	base := `You are an expert educational content creator specializing in creating effective flashcards for learning.

Your task is to generate high-quality flashcard proposals from the provided text.

Guidelines:
- Create clear, concise questions and answers
- Focus on key concepts and important information
- Each flashcard should test one specific piece of knowledge
- Questions should be unambiguous and answerable from the text
- Answers should be complete but concise (max 1000 characters each)
- Return ONLY valid JSON array, no additional text or markdown`

	switch language {
	case "pl":
		return base + "\n- Generate flashcards in Polish language"
	case "en":
		return base + "\n- Generate flashcards in English language"
	default:
		return base + "\n- Generate flashcards in the same language as the source text"
	}
}

func userPrompt(sourceText string, maxProposals int) string {
	return fmt.Sprintf(`Generate up to %d flashcard proposals from the following text.

Return a JSON array with this exact structure:
[
  {
    "front_text": "Question or prompt",
    "back_text": "Answer or explanation"
  }
]

Source text:
%s

Remember: Return ONLY the JSON array, no markdown formatting or additional text.`, maxProposals, sourceText)
}

// parseProposals extracts a JSON array of proposals from model output.
// Invalid elements are skipped, kept fields are trimmed and truncated to 1000
// characters, and parsing stops once maxProposals valid records accumulate.
func (gs *generationService) parseProposals(content string, maxProposals int) ([]ProposalRecord, error) {
	jsonContent := extractJSONArray(content)

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, &errs.UpstreamError{Cause: fmt.Errorf("ai response is not a JSON array: %w", err)}
	}

	var proposals []ProposalRecord
	for i, element := range raw {
		if len(proposals) >= maxProposals {
			break
		}

		var candidate struct {
			FrontText *string `json:"front_text"`
			BackText  *string `json:"back_text"`
		}
		if err := json.Unmarshal(element, &candidate); err != nil {
			gs.log.Warn("Skipping malformed proposal element", "index", i, "error", err)
			continue
		}
		if candidate.FrontText == nil || candidate.BackText == nil {
			gs.log.Warn("Skipping proposal element with missing fields", "index", i)
			continue
		}
		front := strings.TrimSpace(*candidate.FrontText)
		back := strings.TrimSpace(*candidate.BackText)
		if front == "" || back == "" {
			gs.log.Warn("Skipping proposal element with empty fields", "index", i)
			continue
		}

		proposals = append(proposals, ProposalRecord{
			FrontText: truncateRunes(front, maxProposalFieldChars),
			BackText:  truncateRunes(back, maxProposalFieldChars),
		})
	}

	if len(proposals) == 0 {
		return nil, &errs.UpstreamError{Cause: fmt.Errorf("no valid proposals generated")}
	}
	return proposals, nil
}

// extractJSONArray unwraps markdown code fences and, failing that, pulls the
// first bracketed array substring out of surrounding prose.
func extractJSONArray(content string) string {
	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasPrefix(trimmed, "[") {
		return trimmed
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
