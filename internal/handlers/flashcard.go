package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fiszkiapp/fiszki-backend/internal/requestdata"
	"github.com/fiszkiapp/fiszki-backend/internal/services"
)

type FlashcardHandler struct {
	flashcardService services.FlashcardService
}

func NewFlashcardHandler(flashcardService services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{flashcardService: flashcardService}
}

type createFlashcardRequest struct {
	FrontText           string  `json:"front_text"`
	BackText            string  `json:"back_text"`
	Origin              string  `json:"origin"`
	GenerationSessionID *string `json:"generation_session_id"`
}

func (r createFlashcardRequest) toCommand() (services.CreateFlashcardCommand, error) {
	cmd := services.CreateFlashcardCommand{
		FrontText: r.FrontText,
		BackText:  r.BackText,
		Origin:    r.Origin,
	}
	if r.GenerationSessionID != nil && *r.GenerationSessionID != "" {
		id, err := uuid.Parse(*r.GenerationSessionID)
		if err != nil {
			return cmd, err
		}
		cmd.GenerationSessionID = &id
	}
	return cmd, nil
}

// Create accepts either a single flashcard object or an array of 1-20.
func (h *FlashcardHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", "failed to read request body", nil)
		return
	}

	var requests []createFlashcardRequest
	if err := json.Unmarshal(body, &requests); err != nil {
		var single createFlashcardRequest
		if err := json.Unmarshal(body, &single); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_JSON", "request body must be a flashcard object or an array of flashcards", nil)
			return
		}
		requests = []createFlashcardRequest{single}
	}

	commands := make([]services.CreateFlashcardCommand, len(requests))
	for i, req := range requests {
		cmd, err := req.toCommand()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "generation_session_id must be a valid UUID", nil)
			return
		}
		commands[i] = cmd
	}

	result, err := h.flashcardService.Create(c.Request.Context(), rd.UserID, commands)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *FlashcardHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	query := services.FlashcardListQuery{
		Query:  c.Query("q"),
		Origin: c.Query("origin"),
		Sort:   c.Query("sort"),
	}
	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "page must be a positive integer", nil)
			return
		}
		query.Page = page
	}
	if sizeStr := c.Query("page_size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "page_size must be a positive integer", nil)
			return
		}
		query.PageSize = size
	}

	result, err := h.flashcardService.List(c.Request.Context(), rd.UserID, query)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlashcardHandler) GetByID(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	flashcardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid UUID", nil)
		return
	}

	flashcard, err := h.flashcardService.GetByID(c.Request.Context(), rd.UserID, flashcardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flashcard)
}

func (h *FlashcardHandler) Update(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	flashcardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid UUID", nil)
		return
	}

	var req struct {
		FrontText *string `json:"front_text"`
		BackText  *string `json:"back_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON", nil)
		return
	}

	flashcard, err := h.flashcardService.Update(c.Request.Context(), rd.UserID, flashcardID, services.UpdateFlashcardInput{
		FrontText: req.FrontText,
		BackText:  req.BackText,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         flashcard.ID,
		"front_text": flashcard.FrontText,
		"back_text":  flashcard.BackText,
		"origin":     flashcard.Origin,
		"updated_at": flashcard.UpdatedAt,
	})
}

func (h *FlashcardHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	flashcardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid UUID", nil)
		return
	}

	if err := h.flashcardService.Delete(c.Request.Context(), rd.UserID, flashcardID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
