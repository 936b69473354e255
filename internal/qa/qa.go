// Package qa implements grounded question answering: retrieve, prompt,
// complete, post-process, and fall back to general knowledge when the
// answer is not actually supported by the document.
package qa

import (
	"context"
	"strings"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/prompting"
	"github.com/studyforge/studyforge/internal/provider"
	"github.com/studyforge/studyforge/internal/retrieval"
)

const retrievalK = 5

const sourcePreviewChars = 300

// Source is one cited chunk trimmed for display.
type Source struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Answer is the full result of one chat turn.
type Answer struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	FromDocument bool     `json:"from_document"`
	Filename     string   `json:"filename"`
}

type Service struct {
	retrieval *retrieval.Service
	completer provider.Completer
	model     string
	log       *logger.Logger
}

func New(retrievalSvc *retrieval.Service, completer provider.Completer, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		retrieval: retrievalSvc,
		completer: completer,
		model:     cfg.Provider.CompletionModel,
		log:       log.With("service", "QAService"),
	}
}

// Answer runs the grounded QA flow, falling back to a general-knowledge
// completion when from_document turns out false.
func (s *Service) Answer(ctx context.Context, documentID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apierr.BadInputf("question is required")
	}

	chunks, err := s.retrieval.Retrieve(ctx, documentID, question, retrievalK)
	if err != nil {
		return nil, err
	}

	qType := prompting.Classify(question)
	prompt := prompting.BuildPrompt(qType, chunks, question)

	raw, err := s.completer.GenerateText(ctx, s.model, []provider.Message{
		{Role: "user", Content: prompt},
	}, provider.GenerateOptions{})
	if err != nil {
		return nil, apierr.UpstreamErrorf(err, "completion failed")
	}
	processed := prompting.PostProcess(raw)

	fromDocument := prompting.FromDocument(chunks, processed)
	if !fromDocument {
		fallbackRaw, err := s.completer.GenerateText(ctx, s.model, []provider.Message{
			{Role: "user", Content: prompting.BuildFallbackPrompt(question)},
		}, provider.GenerateOptions{})
		if err != nil {
			return nil, apierr.UpstreamErrorf(err, "fallback completion failed")
		}
		return &Answer{
			Answer:       prompting.PostProcess(fallbackRaw),
			Sources:      nil,
			FromDocument: false,
		}, nil
	}

	sources := make([]Source, 0, 3)
	filename := ""
	for i, c := range chunks {
		if i >= 3 {
			break
		}
		if filename == "" {
			filename = c.Filename
		}
		sources = append(sources, Source{
			Filename:   c.Filename,
			PageNumber: c.PageNumber,
			Text:       truncate(c.Text, sourcePreviewChars),
		})
	}

	return &Answer{
		Answer:       processed,
		Sources:      sources,
		FromDocument: true,
		Filename:     filename,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
