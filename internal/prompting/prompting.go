// Package prompting classifies a question, builds a type-specific prompt
// around retrieved context, and post-processes the raw completion including
// the out-of-document detection that drives the QA fallback path.
package prompting

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/studyforge/studyforge/internal/retrieval"
)

// QuestionType is one of the seven priority-ordered classification tags.
type QuestionType string

const (
	TypeList       QuestionType = "list"
	TypeDefinition QuestionType = "definition"
	TypeComparison QuestionType = "comparison"
	TypeHow        QuestionType = "how"
	TypeWhy        QuestionType = "why"
	TypeWhat       QuestionType = "what"
	TypeGeneral    QuestionType = "general"
)

const similarityFallbackThreshold = 0.3

// Classify maps a raw question to one of seven tags by priority-ordered,
// diacritic-insensitive substring matching. The first matching rule wins.
func Classify(question string) QuestionType {
	q := normalizeForMatch(question)

	switch {
	case strings.HasPrefix(q, "what are") || strings.Contains(q, "what are") ||
		strings.HasPrefix(q, "list ") || strings.Contains(q, "list ") ||
		strings.HasPrefix(q, "name ") || strings.Contains(q, "name ") ||
		strings.Contains(q, "enumerate"):
		return TypeList
	case strings.Contains(q, "what is") || strings.Contains(q, "define") || strings.Contains(q, "explain what"):
		return TypeDefinition
	case strings.Contains(q, "difference between") || strings.Contains(q, "compare") ||
		strings.Contains(q, "contrast") || strings.Contains(q, " vs"):
		return TypeComparison
	case strings.HasPrefix(q, "how"):
		return TypeHow
	case strings.HasPrefix(q, "why") || strings.Contains(q, "what causes"):
		return TypeWhy
	case strings.HasPrefix(q, "what"):
		return TypeWhat
	default:
		return TypeGeneral
	}
}

func normalizeForMatch(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	return stripDiacritics(lowered)
}

// stripDiacritics maps common accented Latin vowels, ñ and ç to their plain
// ASCII letters through a fixed table; unrecognized runes pass through
// unchanged, which is safe since matching only cares about plain ASCII
// trigger phrases.
func stripDiacritics(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == ' ', unicode.IsDigit(r):
			b.WriteRune(r)
		case r == 'á' || r == 'à' || r == 'â' || r == 'ä' || r == 'ã':
			b.WriteRune('a')
		case r == 'é' || r == 'è' || r == 'ê' || r == 'ë':
			b.WriteRune('e')
		case r == 'í' || r == 'ì' || r == 'î' || r == 'ï':
			b.WriteRune('i')
		case r == 'ó' || r == 'ò' || r == 'ô' || r == 'ö' || r == 'õ':
			b.WriteRune('o')
		case r == 'ú' || r == 'ù' || r == 'û' || r == 'ü':
			b.WriteRune('u')
		case r == 'ñ':
			b.WriteRune('n')
		case r == 'ç':
			b.WriteRune('c')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var typeInstructions = map[QuestionType]string{
	TypeList:       "Answer with a bulleted list; one item per line, no numbering unless order matters.",
	TypeDefinition: "Open with a concise one-sentence definition, then elaborate with supporting detail.",
	TypeComparison: "Present the comparison as paired points, addressing each side of the comparison in turn.",
	TypeHow:        "Answer as an ordered list of steps, in the sequence they must be performed.",
	TypeWhy:        "Answer as a causal chain: state the immediate cause, then trace back through contributing causes.",
	TypeWhat:       "Give a brief answer first, then a more detailed explanation.",
	TypeGeneral:    "Give a brief answer first, then a more detailed explanation.",
}

// BuildPrompt assembles the four-section prompt: role, type-specific
// formatting instructions, the retrieved context, then the question.
func BuildPrompt(qType QuestionType, chunks []retrieval.RetrievedChunk, question string) string {
	var b strings.Builder
	b.WriteString("You are a study assistant answering strictly from the supplied context. ")
	b.WriteString("Do not use outside knowledge unless the context is insufficient.\n\n")

	b.WriteString(typeInstructions[qType])
	b.WriteString("\n\n")

	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s, p. %d]\n%s", c.Filename, c.PageNumber, c.Text)
	}
	b.WriteString("\n\n")
	b.WriteString(question)
	return b.String()
}

// BuildFallbackPrompt asks the completer to answer from general knowledge,
// explicitly instructing it to open with a one-line disclaimer.
func BuildFallbackPrompt(question string) string {
	return "The supplied study materials do not contain information to answer this question. " +
		"Answer from general knowledge, but you MUST open your response with a single sentence " +
		"explicitly stating that the information is not in the uploaded materials, before continuing.\n\n" +
		"Question: " + question
}

var boilerplatePrefixes = []string{
	"based on the provided context,",
	"based on the context provided,",
	"according to the context,",
	"according to the provided context,",
	"i apologize, but",
	"i'm sorry, but",
}

var newlineRun = regexp.MustCompile(`\n{3,}`)

// PostProcess strips leading boilerplate, removes stray bold markers,
// collapses excess blank lines, and capitalizes the first character.
func PostProcess(raw string) string {
	s := strings.TrimSpace(raw)
	lowered := strings.ToLower(s)
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(lowered, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	s = stripStrayBold(s)
	s = newlineRun.ReplaceAllString(s, "\n\n")
	s = capitalizeFirst(s)
	return s
}

// stripStrayBold treats an odd number of "**" markers as a sign of stray
// emphasis and then removes every "**" in the text, including markers that
// wrap a bold span; an even count leaves the text unchanged. "# Heading" and
// "- item" markup is never touched.
func stripStrayBold(s string) string {
	if strings.Count(s, "**")%2 != 0 {
		return strings.ReplaceAll(s, "**", "")
	}
	return s
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		return s[:i] + strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}

var outOfDocumentPhrases = []string{
	"not available in the provided",
	"does not contain",
	"no information about",
	"not mentioned in",
	"not found in",
	"i'm sorry",
}

// FromDocument reports whether the answer should be treated as grounded in
// the supplied document. Either the pre-signal (weak retrieval) or the
// post-signal (an answer that reads like a refusal) is sufficient to negate
// it.
func FromDocument(chunks []retrieval.RetrievedChunk, postProcessedAnswer string) bool {
	if len(chunks) == 0 {
		return false
	}
	allWeak := true
	for _, c := range chunks {
		if c.Similarity >= similarityFallbackThreshold {
			allWeak = false
			break
		}
	}
	if allWeak {
		return false
	}

	lowered := strings.ToLower(postProcessedAnswer)
	for _, phrase := range outOfDocumentPhrases {
		if strings.Contains(lowered, phrase) {
			return false
		}
	}
	return true
}
