package pdftext

import (
	"testing"

	"github.com/studyforge/studyforge/internal/platform/apierr"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := Extract("notes.txt", []byte("just some plain text, not a pdf at all"))
	if err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
	if apierr.KindOf(err) != apierr.BadInput {
		t.Fatalf("kind = %v, want BadInput", apierr.KindOf(err))
	}
}

func TestExtractRejectsMalformedPDFHeader(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("%PDF-1.4\nnot actually valid pdf structure"))
	if err == nil {
		t.Fatalf("expected error for malformed PDF")
	}
	if apierr.KindOf(err) != apierr.BadInput {
		t.Fatalf("kind = %v, want BadInput", apierr.KindOf(err))
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	in := "Hello World  \n\n  foo\tbar"
	got := normalize(in)
	want := "Hello World \n\n foo\tbar"
	if got != want {
		t.Fatalf("normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesLongBlankLineRunsToTwoNewlines(t *testing.T) {
	in := "Section One\n\n\n\n\nSection Two"
	got := normalize(in)
	want := "Section One\n\nSection Two"
	if got != want {
		t.Fatalf("normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeTurnsControlCharsIntoSpacesButKeepsTabsAndNewlines(t *testing.T) {
	in := "a\x00b\x07\nc\td"
	got := normalize(in)
	want := "a b \nc\td"
	if got != want {
		t.Fatalf("normalize() = %q, want %q", got, want)
	}
}

func TestCountNonSpace(t *testing.T) {
	if got := countNonSpace("a b\nc\t"); got != 3 {
		t.Fatalf("countNonSpace() = %d, want 3", got)
	}
}

func TestLooksLikePDF(t *testing.T) {
	if looksLikePDF([]byte("hello")) {
		t.Fatalf("expected non-PDF bytes to fail sniff")
	}
	if !looksLikePDF([]byte("%PDF-1.7\n...")) {
		t.Fatalf("expected %%PDF- prefixed bytes to pass sniff")
	}
}
