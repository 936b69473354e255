package redis

import (
	"context"
	"testing"
	"time"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestNewRejectsDisabledConfig(t *testing.T) {
	_, err := New(config.RedisConfig{Enabled: false}, testLogger(t))
	if err == nil {
		t.Fatalf("expected an error when redis.enabled is false")
	}
}

// TestSaveAndLoadBankRoundTrip exercises the store against a live Redis
// instance. It skips itself when one isn't reachable at the configured
// address, since Redis is an optional deployment-time dependency here.
func TestSaveAndLoadBankRoundTrip(t *testing.T) {
	store, err := New(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:6379"}, testLogger(t))
	if err != nil {
		t.Skipf("no redis reachable at 127.0.0.1:6379, skipping: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bank := &generate.QuestionBank{
		QuizID: "test-quiz-roundtrip",
		Items: []generate.BankQuestion{
			{QuestionID: "q1", Difficulty: generate.DifficultyMedium, Question: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: "B"},
		},
	}

	if err := store.SaveBank(ctx, bank); err != nil {
		t.Fatalf("SaveBank: %v", err)
	}

	loaded, err := store.LoadBank(ctx, bank.QuizID)
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if loaded == nil || loaded.QuizID != bank.QuizID || len(loaded.Items) != 1 {
		t.Fatalf("unexpected loaded bank: %+v", loaded)
	}
}

func TestLoadBankReturnsNilForUnknownQuiz(t *testing.T) {
	store, err := New(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:6379"}, testLogger(t))
	if err != nil {
		t.Skipf("no redis reachable at 127.0.0.1:6379, skipping: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	loaded, err := store.LoadBank(ctx, "quiz-id-that-does-not-exist")
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected a nil bank for an unknown quiz id, got %+v", loaded)
	}
}
