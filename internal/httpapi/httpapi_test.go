package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/adaptive"
	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/ingestion"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/memory"
	mockprovider "github.com/studyforge/studyforge/internal/provider/mock"
	"github.com/studyforge/studyforge/internal/qa"
	"github.com/studyforge/studyforge/internal/retrieval"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	log := testLogger(t)
	cfg := &config.Config{
		HTTP:      config.HTTPConfig{MaxRequestBytes: 25 << 20},
		Provider:  config.ProviderConfig{EmbeddingModel: "mock-embed", CompletionModel: "mock-complete"},
		Retrieval: config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000},
		Adaptive:  config.AdaptiveConfig{QLAlpha: 0.1, QLGamma: 0.9, QLEpsilon: 0.2, BlendWeightQ: 0.7},
	}
	store := memory.New()
	embedder := mockprovider.New()

	ingestionSvc := ingestion.New(embedder, store, cfg, log)
	retrievalSvc := retrieval.New(embedder, store, cfg, log)
	qaSvc := qa.New(retrievalSvc, embedder, cfg, log)
	generateSvc := generate.New(retrievalSvc, embedder, cfg, log)
	adaptiveSvc := adaptive.New(cfg, log)

	handlers := Handlers{
		Documents:   NewDocumentsHandler(log, ingestionSvc),
		Chat:        NewChatHandler(log, qaSvc),
		Generate:    NewGenerateHandler(log, generateSvc),
		Competitive: NewCompetitiveHandler(log, generateSvc, adaptiveSvc),
	}

	seedDocument(t, embedder, store, "doc-1")
	return New(cfg, log, handlers)
}

func seedDocument(t *testing.T, embedder *mockprovider.Provider, store vectorstore.VectorStore, namespace string) {
	t.Helper()
	sentence := strings.Repeat("Photosynthesis converts light energy into chemical energy stored in glucose. ", 3)
	embeddings, err := embedder.Embed(context.Background(), "mock-embed", []string{sentence})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	err = store.Upsert(context.Background(), namespace, []vectorstore.Vector{{
		ID:     namespace + "-0",
		Values: embeddings[0],
		Metadata: map[string]any{
			"text": sentence, "filename": "bio.pdf", "page_number": 1, "chunk_index": 0,
		},
	}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthReturnsOK(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}

func TestChatReturnsAnswer(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodPost, "/chat", map[string]string{
		"question":    "What does photosynthesis convert?",
		"document_id": "doc-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestChatRejectsMissingQuestion(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodPost, "/chat", map[string]string{"document_id": "doc-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Detail == "" {
		t.Fatalf("expected a non-empty detail message")
	}
}

func TestQuizRejectsOutOfRangeNumQuestions(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodPost, "/quiz", map[string]any{
		"document_id":    "doc-1",
		"num_questions":  2,
		"question_types": []string{"multiple_choice"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestQuizRejectsUnknownQuestionType(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodPost, "/quiz", map[string]any{
		"document_id":    "doc-1",
		"num_questions":  5,
		"question_types": []string{"essay"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestCompetitiveQuizFullFlow(t *testing.T) {
	engine := testEngine(t)

	bankResp := doRequest(t, engine, http.MethodPost, "/competitive-quiz/generate-bank", map[string]any{
		"num_questions": 6,
		"document_id":   "doc-1",
	})
	if bankResp.Code != http.StatusOK {
		t.Fatalf("generate-bank status = %d, body = %s", bankResp.Code, bankResp.Body.String())
	}
	var bankBody struct {
		QuizID       string                  `json:"quiz_id"`
		QuestionBank []generate.BankQuestion `json:"question_bank"`
	}
	if err := json.Unmarshal(bankResp.Body.Bytes(), &bankBody); err != nil {
		t.Fatalf("unmarshal bank: %v", err)
	}
	if bankBody.QuizID == "" || len(bankBody.QuestionBank) != 6 {
		t.Fatalf("unexpected bank body: %+v", bankBody)
	}

	startResp := doRequest(t, engine, http.MethodPost, "/competitive-quiz/start", map[string]any{
		"quiz_id":       bankBody.QuizID,
		"num_questions": 5,
	})
	if startResp.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", startResp.Code, startResp.Body.String())
	}
	var startBody struct {
		SessionID string `json:"session_id"`
		Question  struct {
			QuestionID    string `json:"question_id"`
			CorrectAnswer string `json:"correct_answer"`
		} `json:"question"`
		CurrentDifficulty string `json:"current_difficulty"`
	}
	if err := json.Unmarshal(startResp.Body.Bytes(), &startBody); err != nil {
		t.Fatalf("unmarshal start: %v", err)
	}
	if startBody.SessionID == "" || startBody.Question.QuestionID == "" {
		t.Fatalf("unexpected start body: %+v", startBody)
	}
	if startBody.Question.CorrectAnswer != "" {
		t.Fatalf("expected correct_answer to be hidden from the public question view")
	}

	answerResp := doRequest(t, engine, http.MethodPost, "/competitive-quiz/answer", map[string]any{
		"session_id":  startBody.SessionID,
		"question_id": startBody.Question.QuestionID,
		"answer":      "A",
	})
	if answerResp.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body = %s", answerResp.Code, answerResp.Body.String())
	}
	var answerBody struct {
		IsCorrect     bool `json:"is_correct"`
		Stats         struct {
			QuestionsAnswered int `json:"questions_answered"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(answerResp.Body.Bytes(), &answerBody); err != nil {
		t.Fatalf("unmarshal answer: %v", err)
	}
	if answerBody.Stats.QuestionsAnswered != 1 {
		t.Fatalf("stats.questions_answered = %d, want 1", answerBody.Stats.QuestionsAnswered)
	}
}

func TestCompetitiveStartRejectsUnknownQuiz(t *testing.T) {
	engine := testEngine(t)
	w := doRequest(t, engine, http.MethodPost, "/competitive-quiz/start", map[string]any{
		"quiz_id":       "does-not-exist",
		"num_questions": 5,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", w.Code, w.Body.String())
	}
}
