package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/requestdata"
	"github.com/fiszkiapp/fiszki-backend/internal/review"
	"github.com/fiszkiapp/fiszki-backend/internal/services"
)

type AIHandler struct {
	generationService services.GenerationService
	acceptanceService services.AcceptanceService
}

func NewAIHandler(generationService services.GenerationService, acceptanceService services.AcceptanceService) *AIHandler {
	return &AIHandler{
		generationService: generationService,
		acceptanceService: acceptanceService,
	}
}

func (h *AIHandler) Generate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	var req struct {
		SourceText   string  `json:"source_text"`
		Language     *string `json:"language"`
		MaxProposals *int    `json:"max_proposals"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON", nil)
		return
	}

	input := services.GenerateFlashcardsInput{
		SourceText:   req.SourceText,
		MaxProposals: review.MaxProposals,
	}
	if req.Language != nil {
		input.Language = *req.Language
	}
	if req.MaxProposals != nil {
		input.MaxProposals = *req.MaxProposals
	}

	result, err := h.generationService.GenerateFlashcards(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_session": result.Session,
		"proposals":          result.Proposals,
	})
}

func (h *AIHandler) Accept(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	var req struct {
		GenerationSessionID string `json:"generation_session_id"`
		Cards               []struct {
			FrontText string `json:"front_text"`
			BackText  string `json:"back_text"`
		} `json:"cards"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON", nil)
		return
	}

	sessionID, err := uuid.Parse(req.GenerationSessionID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "generation_session_id must be a valid UUID", nil)
		return
	}

	cards := make([]services.ProposalRecord, len(req.Cards))
	for i, card := range req.Cards {
		cards[i] = services.ProposalRecord{
			FrontText: card.FrontText,
			BackText:  card.BackText,
		}
	}

	result, err := h.acceptanceService.Accept(c.Request.Context(), rd.UserID, services.AcceptProposalsInput{
		GenerationSessionID: sessionID,
		Cards:               cards,
	})
	if err != nil {
		// A vanished session is a conflict on this endpoint, not a 404: the
		// client is holding proposals for a session that no longer exists.
		if errors.Is(err, errs.ErrSessionNotFound) {
			RespondError(c, http.StatusConflict, "SESSION_NOT_FOUND", "generation session not found or has been cancelled", nil)
			return
		}
		RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
