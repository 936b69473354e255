// Package generate implements the structured content generators: quizzes,
// short-answer evaluation, summaries, flashcards, and competitive
// question banks. Every generator validates the model's JSON output against
// its schema and retries once with a repair instruction before failing.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/provider"
	"github.com/studyforge/studyforge/internal/retrieval"
	"github.com/studyforge/studyforge/internal/schema"
)

const breadthK = 10

// Difficulty is one of the three adaptive-quiz difficulty tiers.
type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizItem is one generated quiz question.
type QuizItem struct {
	Question      string   `json:"question"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Hint          string   `json:"hint"`
	Explanation   string   `json:"explanation"`
}

// Quiz is the §4.7 quiz generator's result.
type Quiz struct {
	Questions []QuizItem `json:"questions"`
}

// ShortAnswerEval is the result of grading one short-answer response.
type ShortAnswerEval struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

// Summary is the §4.7 summary generator's result.
type Summary struct {
	SummaryTitle string   `json:"summary_title"`
	Summary      string   `json:"summary"`
	KeyTopics    []string `json:"key_topics"`
	WordCount    int      `json:"word_count"`
}

// Flashcard is one front/back study card.
type Flashcard struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category"`
}

// FlashcardSet is the §4.7 flashcards generator's result.
type FlashcardSet struct {
	FlashcardSetTitle string      `json:"flashcard_set_title"`
	Flashcards        []Flashcard `json:"flashcards"`
}

// BankQuestion is one item of a competitive-quiz question bank; always
// multiple-choice and difficulty-tagged.
type BankQuestion struct {
	QuestionID    string     `json:"question_id"`
	Difficulty    Difficulty `json:"difficulty"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Hint          string     `json:"hint"`
	Explanation   string     `json:"explanation"`
}

// QuestionBank is the §4.7 competitive question-bank generator's result.
type QuestionBank struct {
	QuizID string         `json:"quiz_id"`
	Items  []BankQuestion `json:"items"`
}

var summaryTargetWords = map[string]int{"short": 200, "medium": 400, "long": 800}

type Service struct {
	retrieval *retrieval.Service
	completer provider.Completer
	model     string
	maxRepair int
	log       *logger.Logger
}

func New(retrievalSvc *retrieval.Service, completer provider.Completer, cfg *config.Config, log *logger.Logger) *Service {
	maxRepair := cfg.Provider.JSONSchema.MaxRetries
	if maxRepair <= 0 {
		maxRepair = 1
	}
	return &Service{
		retrieval: retrievalSvc,
		completer: completer,
		model:     cfg.Provider.CompletionModel,
		maxRepair: maxRepair,
		log:       log.With("service", "GenerateService"),
	}
}

// breadthContext retrieves a wide, narrative-ordered context window for a
// generator to draw on: top-k by similarity, then re-sorted by chunk_index.
func (s *Service) breadthContext(ctx context.Context, documentID, seed string) ([]retrieval.RetrievedChunk, error) {
	chunks, err := s.retrieval.Retrieve(ctx, documentID, seed, breadthK)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

func contextText(chunks []retrieval.RetrievedChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s, p. %d]\n%s", c.Filename, c.PageNumber, c.Text)
	}
	return b.String()
}

// generateStructured calls the completer under the given schema, validates
// the result, and retries once with a repair instruction before giving up.
func (s *Service) generateStructured(ctx context.Context, schemaName string, jsonSchema map[string]any, prompt string, out any) error {
	messages := []provider.Message{{Role: "user", Content: prompt}}
	opts := provider.GenerateOptions{JSONSchema: &provider.JSONSchema{Name: schemaName, Schema: jsonSchema, Strict: true}}

	var lastErr error
	for attempt := 0; attempt <= s.maxRepair; attempt++ {
		raw, err := s.completer.GenerateText(ctx, s.model, messages, opts)
		if err != nil {
			return apierr.UpstreamErrorf(err, "generation call failed")
		}
		raw = unfence(raw)

		var value any
		var stepErr error
		if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &value); err != nil {
			// Some completion backends wrap structured output in a YAML
			// document instead of raw JSON even when asked for JSON; fall
			// back to a YAML decode and re-marshal before giving up on
			// this attempt.
			var yamlValue any
			if yamlErr := yaml.Unmarshal([]byte(raw), &yamlValue); yamlErr != nil {
				stepErr = fmt.Errorf("output is not valid JSON: %w", err)
			} else if reencoded, marshalErr := json.Marshal(yamlValue); marshalErr != nil {
				stepErr = fmt.Errorf("output is not valid JSON: %w", err)
			} else {
				raw = string(reencoded)
				value = yamlValue
			}
		}

		if stepErr == nil {
			if err := schema.ValidateInstance(jsonSchema, value, "$"); err != nil {
				stepErr = err
			} else if err := validateOptionsStructure(value); err != nil {
				stepErr = err
			} else if err := json.Unmarshal([]byte(raw), out); err != nil {
				stepErr = fmt.Errorf("output did not decode into the expected shape: %w", err)
			} else {
				return nil
			}
		}
		lastErr = stepErr

		messages = append(messages,
			provider.Message{Role: "assistant", Content: raw},
			provider.Message{Role: "user", Content: fmt.Sprintf(
				"Your previous output was invalid: %v. Return corrected JSON that strictly matches the schema, with no surrounding prose.", lastErr,
			)},
		)
	}
	return apierr.Generationf("model output failed schema validation after repair: %v", lastErr)
}

var optionLetterPrefix = regexp.MustCompile(`^([A-Da-d])\s*[.\):-]`)

// validateOptionsStructure is a structural post-check the JSON Schema alone
// can't express: schema.ValidateInstance only checks an "options" array's
// item type, never its length or per-item shape, so a model can still return
// 3 options, duplicate leading letters, or a correct_answer that names no
// supplied option. Runs after schema validation succeeds; any failure here
// feeds back into the same repair-prompt retry as a schema-validation error.
func validateOptionsStructure(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	rawOptions, present := obj["options"]
	if !present || rawOptions == nil {
		return nil
	}
	options, ok := rawOptions.([]any)
	if !ok {
		return fmt.Errorf("options must be an array")
	}
	if len(options) != 4 {
		return fmt.Errorf("options must contain exactly 4 entries, got %d", len(options))
	}

	seenLetters := make(map[string]bool, 4)
	for i, rawOption := range options {
		text, ok := rawOption.(string)
		if !ok {
			return fmt.Errorf("options[%d] must be a string", i)
		}
		m := optionLetterPrefix.FindStringSubmatch(text)
		if m == nil {
			return fmt.Errorf("options[%d] must start with a letter A-D followed by a separator, got %q", i, text)
		}
		letter := strings.ToUpper(m[1])
		if seenLetters[letter] {
			return fmt.Errorf("options must start with 4 distinct letters, got a repeated %q", letter)
		}
		seenLetters[letter] = true
	}

	rawCorrect, present := obj["correct_answer"]
	if !present || rawCorrect == nil {
		return nil
	}
	correct, ok := rawCorrect.(string)
	if !ok || strings.TrimSpace(correct) == "" {
		return nil
	}
	letter := strings.ToUpper(strings.TrimSpace(correct))
	if len(letter) != 1 || !seenLetters[letter] {
		return fmt.Errorf("correct_answer %q does not name one of the supplied options", correct)
	}
	return nil
}

// unfence strips a leading/trailing ```json, ```yaml, or bare ``` code
// fence some completion backends wrap structured output in despite being
// asked for a raw JSON response.
func unfence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		firstLine := strings.ToLower(strings.TrimSpace(trimmed[:nl]))
		if firstLine == "" || firstLine == "json" || firstLine == "yaml" || firstLine == "yml" {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// Quiz generates numQuestions self-contained questions of the requested
// types from documentID's content.
func (s *Service) Quiz(ctx context.Context, documentID string, numQuestions int, types []string) (*Quiz, error) {
	if numQuestions <= 0 {
		return nil, apierr.BadInputf("num_questions must be positive")
	}
	if len(types) == 0 {
		return nil, apierr.BadInputf("question_types must be non-empty")
	}

	chunks, err := s.breadthContext(ctx, documentID, "key facts and concepts covered in this material")
	if err != nil {
		return nil, err
	}

	itemSchema, err := schema.QuizItemV1()
	if err != nil {
		return nil, apierr.Internalf(err, "quiz schema build failed")
	}

	quiz := &Quiz{Questions: make([]QuizItem, 0, numQuestions)}
	for i := 0; i < numQuestions; i++ {
		qType := types[i%len(types)]
		prompt := fmt.Sprintf(
			"Using only the context below, write ONE %s study question. The question must be "+
				"self-contained: someone who has not read the source must be able to answer it from "+
				"the question text alone. Do not reference \"the passage\" or \"the document\".\n\n"+
				"If question_type is multiple_choice, provide exactly 4 distinct options, each starting "+
				"with a letter A-D followed by a separator, and set correct_answer to that letter. "+
				"If question_type is short_answer, set options and correct_answer to null.\n\n%s\n\nQuestion %d of %d.",
			qType, contextText(chunks), i+1, numQuestions,
		)

		var item QuizItem
		if err := s.generateStructured(ctx, "quiz_item_v1", itemSchema, prompt, &item); err != nil {
			return nil, err
		}
		item.QuestionType = qType
		quiz.Questions = append(quiz.Questions, item)
	}
	return quiz, nil
}

// EvaluateShortAnswer runs the semantic short-answer grading call.
func (s *Service) EvaluateShortAnswer(ctx context.Context, question, userAnswer, correctAnswer string) (*ShortAnswerEval, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(correctAnswer) == "" {
		return nil, apierr.BadInputf("question and correct_answer are required")
	}

	evalSchema, err := schema.ShortAnswerEvalV1()
	if err != nil {
		return nil, apierr.Internalf(err, "short answer eval schema build failed")
	}

	prompt := fmt.Sprintf(
		"Grade a student's short-answer response. Treat synonymous or paraphrased wording as correct. "+
			"For numeric answers, require agreement to the precision implied by the question.\n\n"+
			"Question: %s\nExpected answer: %s\nStudent answer: %s\n\n"+
			"Return is_correct and one sentence of feedback.",
		question, correctAnswer, userAnswer,
	)

	var result ShortAnswerEval
	if err := s.generateStructured(ctx, "short_answer_eval_v1", evalSchema, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summary generates a length-targeted summary of documentID's content.
func (s *Service) Summary(ctx context.Context, documentID, length string) (*Summary, error) {
	target, ok := summaryTargetWords[length]
	if !ok {
		return nil, apierr.BadInputf("length must be one of short, medium, long")
	}

	chunks, err := s.breadthContext(ctx, documentID, "overall structure and main ideas of this material")
	if err != nil {
		return nil, err
	}

	sumSchema, err := schema.SummaryV1()
	if err != nil {
		return nil, apierr.Internalf(err, "summary schema build failed")
	}

	lower := int(float64(target) * 0.7)
	upper := int(float64(target) * 1.3)
	prompt := fmt.Sprintf(
		"Write a study summary of the material below, targeting approximately %d words "+
			"(acceptable range %d-%d words). Extract the key_topics as short phrases and report "+
			"the actual word_count of the summary field.\n\n%s",
		target, lower, upper, contextText(chunks),
	)

	var result Summary
	if err := s.generateStructured(ctx, "summary_v1", sumSchema, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Flashcards generates numFlashcards front/back study cards.
func (s *Service) Flashcards(ctx context.Context, documentID string, numFlashcards int) (*FlashcardSet, error) {
	if numFlashcards <= 0 {
		return nil, apierr.BadInputf("num_flashcards must be positive")
	}

	chunks, err := s.breadthContext(ctx, documentID, "key terms, definitions, and facts in this material")
	if err != nil {
		return nil, err
	}

	fcSchema, err := schema.FlashcardsV1()
	if err != nil {
		return nil, apierr.Internalf(err, "flashcards schema build failed")
	}

	prompt := fmt.Sprintf(
		"Create exactly %d flashcards from the material below. Each card's front is a question or "+
			"term, and back is its answer or definition. Assign each card a short category label.\n\n%s",
		numFlashcards, contextText(chunks),
	)

	var result FlashcardSet
	if err := s.generateStructured(ctx, "flashcards_v1", fcSchema, prompt, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BankSource identifies what a generated question bank is drawn from:
// either a document's content or a free-text topic.
type BankSource struct {
	DocumentID string
	Topic      string
}

// GenerateBank produces a competitive-quiz question bank distributing
// difficulty approximately evenly across low/medium/hard.
func (s *Service) GenerateBank(ctx context.Context, source BankSource, numQuestions int) (*QuestionBank, error) {
	if numQuestions <= 0 {
		return nil, apierr.BadInputf("num_questions must be positive")
	}
	if strings.TrimSpace(source.DocumentID) == "" && strings.TrimSpace(source.Topic) == "" {
		return nil, apierr.BadInputf("either document_id or topic is required")
	}

	var contextBlock string
	if source.DocumentID != "" {
		chunks, err := s.breadthContext(ctx, source.DocumentID, "important facts and concepts for a quiz")
		if err != nil {
			return nil, err
		}
		contextBlock = contextText(chunks)
	} else {
		contextBlock = "Topic: " + source.Topic
	}

	itemSchema, err := schema.BankItemV1()
	if err != nil {
		return nil, apierr.Internalf(err, "bank item schema build failed")
	}

	difficulties := distributeDifficulty(numQuestions)
	bank := &QuestionBank{QuizID: newID("quiz"), Items: make([]BankQuestion, 0, numQuestions)}

	for i, difficulty := range difficulties {
		prompt := fmt.Sprintf(
			"Using only the context below, write ONE multiple-choice question at %s difficulty. "+
				"Provide exactly 4 distinct options prefixed A-D, and set correct_answer to that letter.\n\n%s\n\n"+
				"Question %d of %d.",
			difficulty, contextBlock, i+1, numQuestions,
		)

		var item BankQuestion
		var raw struct {
			Difficulty    string   `json:"difficulty"`
			Question      string   `json:"question"`
			Options       []string `json:"options"`
			CorrectAnswer string   `json:"correct_answer"`
			Hint          string   `json:"hint"`
			Explanation   string   `json:"explanation"`
		}
		if err := s.generateStructured(ctx, "bank_item_v1", itemSchema, prompt, &raw); err != nil {
			return nil, err
		}
		item.QuestionID = newID("q")
		item.Difficulty = Difficulty(difficulty)
		item.Question = raw.Question
		item.Options = raw.Options
		item.CorrectAnswer = raw.CorrectAnswer
		item.Hint = raw.Hint
		item.Explanation = raw.Explanation
		bank.Items = append(bank.Items, item)
	}

	return bank, nil
}

// distributeDifficulty splits n questions across low/medium/hard round-robin
// so every tier is represented whenever n >= 3, rather than filling one tier
// to capacity before moving to the next (which can starve later tiers when n
// isn't a multiple of 3, e.g. n=4 filling low/medium and leaving hard empty).
func distributeDifficulty(n int) []string {
	tiers := []string{"low", "medium", "hard"}
	out := make([]string, n)
	for i := range out {
		out[i] = tiers[i%len(tiers)]
	}
	return out
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
