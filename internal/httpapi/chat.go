package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/qa"
)

// ChatHandler adapts the grounded question-answering service.
type ChatHandler struct {
	log *logger.Logger
	qa  *qa.Service
}

func NewChatHandler(log *logger.Logger, qaSvc *qa.Service) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), qa: qaSvc}
}

type chatRequest struct {
	Question   string `json:"question" binding:"required"`
	DocumentID string `json:"document_id" binding:"required"`
	Filename   string `json:"filename,omitempty"`
}

func (h *ChatHandler) Answer(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question and document_id are required")
		return
	}

	answer, err := h.qa.Answer(c.Request.Context(), req.DocumentID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
