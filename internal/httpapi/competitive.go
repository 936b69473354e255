package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/adaptive"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

// CompetitiveHandler adapts the competitive-quiz question-bank generator and
// the adaptive quiz engine that plays it.
type CompetitiveHandler struct {
	log      *logger.Logger
	generate *generate.Service
	adaptive *adaptive.Service
}

func NewCompetitiveHandler(log *logger.Logger, generateSvc *generate.Service, adaptiveSvc *adaptive.Service) *CompetitiveHandler {
	return &CompetitiveHandler{log: log.With("handler", "CompetitiveHandler"), generate: generateSvc, adaptive: adaptiveSvc}
}

// publicQuestion is the client-visible shape of a bank question while it is
// in play: the correct_answer and explanation stay hidden until it is graded.
type publicQuestion struct {
	QuestionID string              `json:"question_id"`
	Difficulty generate.Difficulty `json:"difficulty"`
	Question   string              `json:"question"`
	Options    []string            `json:"options"`
	Hint       string              `json:"hint"`
}

func toPublicQuestion(q *generate.BankQuestion) *publicQuestion {
	if q == nil {
		return nil
	}
	return &publicQuestion{QuestionID: q.QuestionID, Difficulty: q.Difficulty, Question: q.Question, Options: q.Options, Hint: q.Hint}
}

type generateBankRequest struct {
	NumQuestions int    `json:"num_questions"`
	DocumentID   string `json:"document_id,omitempty"`
	Topic        string `json:"topic,omitempty"`
}

func (h *CompetitiveHandler) GenerateBank(c *gin.Context) {
	var req generateBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "num_questions and either document_id or topic are required")
		return
	}
	if req.NumQuestions < 3 || req.NumQuestions > 100 {
		badRequest(c, "num_questions must be between 3 and 100")
		return
	}

	bank, err := h.generate.GenerateBank(c.Request.Context(), generate.BankSource{DocumentID: req.DocumentID, Topic: req.Topic}, req.NumQuestions)
	if err != nil {
		respondError(c, err)
		return
	}
	h.adaptive.RegisterBank(bank)

	c.JSON(http.StatusOK, gin.H{"quiz_id": bank.QuizID, "question_bank": bank.Items})
}

type startSessionRequest struct {
	QuizID       string `json:"quiz_id" binding:"required"`
	NumQuestions int    `json:"num_questions"`
}

func (h *CompetitiveHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quiz_id and num_questions are required")
		return
	}
	if req.NumQuestions < 5 || req.NumQuestions > 10 {
		badRequest(c, "num_questions must be between 5 and 10")
		return
	}

	session, err := h.adaptive.Start(c.Request.Context(), req.QuizID, req.NumQuestions)
	if err != nil {
		respondError(c, err)
		return
	}

	question := h.adaptive.CurrentQuestion(session)
	c.JSON(http.StatusOK, gin.H{
		"session_id":         session.SessionID,
		"question":           toPublicQuestion(question),
		"current_difficulty": session.CurrentDifficulty,
	})
}

type answerRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

func (h *CompetitiveHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "session_id, question_id, and answer are required")
		return
	}

	result, err := h.adaptive.Answer(c.Request.Context(), req.SessionID, req.QuestionID, req.Answer)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"is_correct":     result.IsCorrect,
		"correct_answer": result.CorrectAnswer,
		"explanation":    result.Explanation,
		"reward":         result.Reward,
		"stats":          result.Stats,
		"is_complete":    result.IsComplete,
	}
	if !result.IsComplete {
		resp["next_question"] = toPublicQuestion(result.NextQuestion)
		resp["next_difficulty"] = result.NextDifficulty
	}
	c.JSON(http.StatusOK, resp)
}
