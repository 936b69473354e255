// Package pdftext extracts per-page plain text from PDF study material. It
// performs no OCR: a page with no extractable text layer yields an empty
// string for that page rather than an error, since scanned-image pages are
// out of scope for this system.
package pdftext

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/studyforge/studyforge/internal/platform/apierr"
)

// Page is one page's extracted text, 1-indexed to match how documents cite
// pages back to a reader.
type Page struct {
	Number int
	Text   string
}

const minExtractedChars = 10

// Extract parses data as a PDF and returns its pages' plain text in order.
// It returns a BadInput apierr when data does not carry a PDF header or the
// document's total extracted text falls below a minimum usable length.
func Extract(filename string, data []byte) ([]Page, error) {
	if !looksLikePDF(data) {
		return nil, apierr.BadInputf("file %q is not a PDF", filename)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apierr.BadInputf("could not open %q as a PDF: %v", filename, err)
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)
	var totalNonSpace int

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i, Text: ""})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		raw, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unparseable page does not invalidate the document;
			// scanned or malformed pages just contribute no text.
			pages = append(pages, Page{Number: i, Text: ""})
			continue
		}

		text := normalize(raw)
		totalNonSpace += countNonSpace(text)
		pages = append(pages, Page{Number: i, Text: text})
	}

	if totalNonSpace < minExtractedChars {
		return nil, apierr.BadInputf(
			"%q has no extractable text (found %d non-whitespace characters, need at least %d); scanned/image-only PDFs are not supported",
			filename, totalNonSpace, minExtractedChars,
		)
	}

	return pages, nil
}

func looksLikePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

var newlineRun = regexp.MustCompile(`\n{3,}`)

// normalize collapses whitespace runs (including the PDF text layer's stray
// control characters) into single spaces, preserving TAB and LF so that
// chunk.Split's paragraph/line separators still have something to match.
// Runs of three or more consecutive blank lines collapse to exactly two.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	out := newlineRun.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// TotalPages is a small convenience used by ingestion to enforce the
// document page-count ceiling before committing to full extraction.
func TotalPages(data []byte) (int, error) {
	if !looksLikePDF(data) {
		return 0, apierr.BadInputf("not a PDF")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("pdf reader: %w", err)
	}
	return r.NumPage(), nil
}
