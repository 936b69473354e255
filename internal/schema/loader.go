package schema

import "sync"

var (
	quizItemOnce   sync.Once
	quizItemSchema map[string]any
	quizItemErr    error

	shortAnswerEvalOnce   sync.Once
	shortAnswerEvalSchema map[string]any
	shortAnswerEvalErr    error

	summaryOnce   sync.Once
	summarySchema map[string]any
	summaryErr    error

	flashcardsOnce   sync.Once
	flashcardsSchema map[string]any
	flashcardsErr    error

	bankItemOnce   sync.Once
	bankItemSchema map[string]any
	bankItemErr    error
)

// QuizItemV1 is the §4.7 Quiz generator's per-item schema. options/
// correct_answer are still declared (OpenAI structured outputs require every
// property to be listed in "required"); for short_answer items the model is
// instructed to set them to null.
func QuizItemV1() (map[string]any, error) {
	quizItemOnce.Do(func() {
		quizItemSchema, quizItemErr = build("quiz_item_v1", map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"question":      map[string]any{"type": "string"},
				"question_type": map[string]any{"type": "string", "enum": []any{"multiple_choice", "short_answer"}},
				"options": map[string]any{
					"type":  []any{"array", "null"},
					"items": map[string]any{"type": "string"},
				},
				"correct_answer": map[string]any{"type": []any{"string", "null"}},
				"hint":           map[string]any{"type": "string"},
				"explanation":    map[string]any{"type": "string"},
			},
			"required": []any{"question", "question_type", "options", "correct_answer", "hint", "explanation"},
		})
	})
	return quizItemSchema, quizItemErr
}

// ShortAnswerEvalV1 is the §4.7 short-answer evaluator's schema.
func ShortAnswerEvalV1() (map[string]any, error) {
	shortAnswerEvalOnce.Do(func() {
		shortAnswerEvalSchema, shortAnswerEvalErr = build("short_answer_eval_v1", map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"is_correct": map[string]any{"type": "boolean"},
				"feedback":   map[string]any{"type": "string"},
			},
			"required": []any{"is_correct", "feedback"},
		})
	})
	return shortAnswerEvalSchema, shortAnswerEvalErr
}

// SummaryV1 is the §4.7 Summary generator's schema.
func SummaryV1() (map[string]any, error) {
	summaryOnce.Do(func() {
		summarySchema, summaryErr = build("summary_v1", map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"summary_title": map[string]any{"type": "string"},
				"summary":       map[string]any{"type": "string"},
				"key_topics":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"word_count":    map[string]any{"type": "integer"},
			},
			"required": []any{"summary_title", "summary", "key_topics", "word_count"},
		})
	})
	return summarySchema, summaryErr
}

// FlashcardsV1 is the §4.7 Flashcards generator's schema (array of cards).
func FlashcardsV1() (map[string]any, error) {
	flashcardsOnce.Do(func() {
		flashcardsSchema, flashcardsErr = build("flashcards_v1", map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"flashcard_set_title": map[string]any{"type": "string"},
				"flashcards": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"front":    map[string]any{"type": "string"},
							"back":     map[string]any{"type": "string"},
							"category": map[string]any{"type": "string"},
						},
						"required": []any{"front", "back", "category"},
					},
				},
			},
			"required": []any{"flashcard_set_title", "flashcards"},
		})
	})
	return flashcardsSchema, flashcardsErr
}

// BankItemV1 is the §4.7 competitive question-bank item schema: always
// multiple-choice, difficulty-tagged.
func BankItemV1() (map[string]any, error) {
	bankItemOnce.Do(func() {
		bankItemSchema, bankItemErr = build("bank_item_v1", map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"difficulty":     map[string]any{"type": "string", "enum": []any{"low", "medium", "hard"}},
				"question":       map[string]any{"type": "string"},
				"options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"correct_answer": map[string]any{"type": "string"},
				"hint":           map[string]any{"type": "string"},
				"explanation":    map[string]any{"type": "string"},
			},
			"required": []any{"difficulty", "question", "options", "correct_answer", "hint", "explanation"},
		})
	})
	return bankItemSchema, bankItemErr
}

func build(name string, m map[string]any) (map[string]any, error) {
	if err := ValidateOpenAIJSONSchema(name, m); err != nil {
		return nil, err
	}
	return m, nil
}
