package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

// GenerateHandler adapts the content generators: quizzes, short-answer
// grading, summaries, and flashcards.
type GenerateHandler struct {
	log      *logger.Logger
	generate *generate.Service
}

func NewGenerateHandler(log *logger.Logger, generateSvc *generate.Service) *GenerateHandler {
	return &GenerateHandler{log: log.With("handler", "GenerateHandler"), generate: generateSvc}
}

var validQuestionTypes = map[string]bool{"multiple_choice": true, "short_answer": true}

type quizRequest struct {
	DocumentID    string   `json:"document_id" binding:"required"`
	NumQuestions  int      `json:"num_questions"`
	QuestionTypes []string `json:"question_types"`
}

func (h *GenerateHandler) Quiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "document_id, num_questions, and question_types are required")
		return
	}
	if req.NumQuestions < 5 || req.NumQuestions > 50 {
		badRequest(c, "num_questions must be between 5 and 50")
		return
	}
	if len(req.QuestionTypes) == 0 {
		badRequest(c, "question_types must be non-empty")
		return
	}
	for _, t := range req.QuestionTypes {
		if !validQuestionTypes[t] {
			badRequest(c, "question_types must be a subset of multiple_choice, short_answer, got %q", t)
			return
		}
	}

	quiz, err := h.generate.Quiz(c.Request.Context(), req.DocumentID, req.NumQuestions, req.QuestionTypes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

type evaluateAnswerRequest struct {
	Question      string `json:"question" binding:"required"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer" binding:"required"`
}

func (h *GenerateHandler) EvaluateAnswer(c *gin.Context) {
	var req evaluateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question and correct_answer are required")
		return
	}

	result, err := h.generate.EvaluateShortAnswer(c.Request.Context(), req.Question, req.UserAnswer, req.CorrectAnswer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type summaryRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Length     string `json:"length" binding:"required"`
}

func (h *GenerateHandler) Summary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "document_id and length are required")
		return
	}

	summary, err := h.generate.Summary(c.Request.Context(), req.DocumentID, req.Length)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type flashcardsRequest struct {
	DocumentID    string `json:"document_id" binding:"required"`
	NumFlashcards int    `json:"num_flashcards"`
}

func (h *GenerateHandler) Flashcards(c *gin.Context) {
	var req flashcardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "document_id and num_flashcards are required")
		return
	}
	if req.NumFlashcards <= 0 {
		badRequest(c, "num_flashcards must be positive")
		return
	}

	set, err := h.generate.Flashcards(c.Request.Context(), req.DocumentID, req.NumFlashcards)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": set})
}
