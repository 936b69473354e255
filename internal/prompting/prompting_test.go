package prompting

import (
	"strings"
	"testing"

	"github.com/studyforge/studyforge/internal/retrieval"
)

func TestClassifyPriorityOrder(t *testing.T) {
	cases := []struct {
		question string
		want     QuestionType
	}{
		{"What are the stages of mitosis?", TypeList},
		{"List the primary colors", TypeList},
		{"What is photosynthesis?", TypeDefinition},
		{"Define osmosis", TypeDefinition},
		{"What is the difference between mitosis and meiosis?", TypeDefinition},
		{"Compare DNA and RNA", TypeComparison},
		{"How does photosynthesis work?", TypeHow},
		{"Why does ice float?", TypeWhy},
		{"What causes rust?", TypeWhy},
		{"What color is the sky?", TypeWhat},
		{"Tell me about the French Revolution", TypeGeneral},
	}
	for _, tc := range cases {
		if got := Classify(tc.question); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}

func TestClassifyIsDiacriticInsensitive(t *testing.T) {
	if got := Classify("Whát ís phötosynthesis?"); got != TypeDefinition {
		t.Fatalf("Classify diacritic case = %q, want %q", got, TypeDefinition)
	}
}

func TestBuildPromptIncludesAllFourSections(t *testing.T) {
	chunks := []retrieval.RetrievedChunk{
		{Filename: "bio.pdf", PageNumber: 3, Text: "Photosynthesis converts light energy into chemical energy."},
	}
	prompt := BuildPrompt(TypeDefinition, chunks, "What is photosynthesis?")

	if !strings.Contains(prompt, "[Source: bio.pdf, p. 3]") {
		t.Fatalf("prompt missing source marker: %q", prompt)
	}
	if !strings.Contains(prompt, "Photosynthesis converts light energy") {
		t.Fatalf("prompt missing chunk text")
	}
	if !strings.Contains(prompt, "What is photosynthesis?") {
		t.Fatalf("prompt missing question")
	}
}

func TestPostProcessStripsBoilerplateAndCapitalizes(t *testing.T) {
	raw := "based on the provided context, photosynthesis converts light into chemical energy."
	got := PostProcess(raw)
	if got != "Photosynthesis converts light into chemical energy." {
		t.Fatalf("PostProcess() = %q", got)
	}
}

func TestPostProcessCollapsesExcessNewlines(t *testing.T) {
	raw := "First paragraph.\n\n\n\n\nSecond paragraph."
	got := PostProcess(raw)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("PostProcess() left excess newlines: %q", got)
	}
}

func TestFromDocumentFalseWhenAllSimilaritiesWeak(t *testing.T) {
	chunks := []retrieval.RetrievedChunk{{Similarity: 0.1}, {Similarity: 0.2}}
	if FromDocument(chunks, "some grounded-looking answer") {
		t.Fatalf("expected from_document=false for weak similarities")
	}
}

func TestFromDocumentFalseWhenAnswerReadsLikeRefusal(t *testing.T) {
	chunks := []retrieval.RetrievedChunk{{Similarity: 0.9}}
	if FromDocument(chunks, "This information is not mentioned in the supplied text.") {
		t.Fatalf("expected from_document=false when answer contains refusal phrase")
	}
}

func TestFromDocumentTrueForStrongGroundedAnswer(t *testing.T) {
	chunks := []retrieval.RetrievedChunk{{Similarity: 0.85}}
	if !FromDocument(chunks, "Photosynthesis converts light energy into chemical energy.") {
		t.Fatalf("expected from_document=true for strong grounded answer")
	}
}

func TestFromDocumentFalseWhenNoChunks(t *testing.T) {
	if FromDocument(nil, "anything") {
		t.Fatalf("expected from_document=false with no retrieved chunks")
	}
}
