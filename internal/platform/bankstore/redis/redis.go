// Package redis implements adaptive.BankStore on top of Redis, letting a
// generated question bank survive process restarts across horizontally
// scaled instances of the server. It is an optional adapter: the adaptive
// engine works fine without one.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

const keyPrefix = "sf:bank:"

// bankTTL bounds how long a generated bank is retained; competitive-quiz
// sessions are expected to be played out well within a day of generation.
const bankTTL = 24 * time.Hour

type Store struct {
	log *logger.Logger
	rdb *goredis.Client
}

func New(cfg config.RedisConfig, log *logger.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Store{log: log.With("service", "RedisBankStore"), rdb: rdb}, nil
}

func (s *Store) SaveBank(ctx context.Context, bank *generate.QuestionBank) error {
	raw, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	return s.rdb.Set(ctx, keyPrefix+bank.QuizID, raw, bankTTL).Err()
}

func (s *Store) LoadBank(ctx context.Context, quizID string) (*generate.QuestionBank, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+quizID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var bank generate.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	return &bank, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
