package ingestion

import (
	"bytes"
	"context"
	"testing"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/memory"
	mockprovider "github.com/studyforge/studyforge/internal/provider/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		Chunk:     config.ChunkConfig{ChunkSize: 1024, ChunkOverlap: 200},
		Ingestion: config.IngestionConfig{MaxPagesTotal: 300, MaxBatchSize: 96, MaxConcurrency: 4},
		Retrieval: config.RetrievalConfig{MinChunkChars: 50},
		Provider:  config.ProviderConfig{EmbeddingModel: "mock-embed"},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestIngestRejectsNonPDFFilename(t *testing.T) {
	svc := New(mockprovider.New(), memory.New(), testConfig(), testLogger(t))
	_, err := svc.Ingest(context.Background(), "notes.txt", []byte("whatever"))
	if err == nil {
		t.Fatalf("expected error for non-pdf filename")
	}
}

func TestIngestRejectsNonPDFBytes(t *testing.T) {
	svc := New(mockprovider.New(), memory.New(), testConfig(), testLogger(t))
	_, err := svc.Ingest(context.Background(), "notes.pdf", []byte("not a pdf"))
	if err == nil {
		t.Fatalf("expected error for non-pdf bytes")
	}
}

func TestIngestAndListDocumentsRoundTrip(t *testing.T) {
	data := buildTestPDF(t, "Photosynthesis is the process by which plants convert light energy into chemical energy stored in glucose. "+
		"Chlorophyll in chloroplasts absorbs sunlight to drive this reaction across many repeated sentences to fill a page of study material.")

	svc := New(mockprovider.New(), memory.New(), testConfig(), testLogger(t))
	doc, err := svc.Ingest(context.Background(), "biology.pdf", data)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.ChunkCount == 0 {
		t.Fatalf("expected at least one chunk")
	}
	if doc.Filename != "biology.pdf" {
		t.Fatalf("filename = %q", doc.Filename)
	}

	docs, err := svc.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != doc.ID {
		t.Fatalf("document id mismatch: got=%q want=%q", docs[0].ID, doc.ID)
	}
}

// buildTestPDF renders a minimal single-page PDF containing repeated text,
// built by hand since no PDF-writing library is in the dependency graph.
func buildTestPDF(t *testing.T, body string) []byte {
	t.Helper()
	content := "BT /F1 12 Tf 72 720 Td (" + pdfEscape(body) + ") Tj ET"

	var buf bytes.Buffer
	offsets := make([]int, 0, 5)
	write := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	buf.WriteString("%PDF-1.4\n")
	write("1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n")
	write("2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n")
	write("3 0 obj<</Type/Page/Parent 2 0 R/Resources<</Font<</F1 4 0 R>>>>/MediaBox[0 0 612 792]/Contents 5 0 R>>endobj\n")
	write("4 0 obj<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>endobj\n")
	write("5 0 obj<</Length " + itoa(len(content)) + ">>stream\n" + content + "\nendstream endobj\n")

	xrefStart := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(pad10(off) + " 00000 n \n")
	}
	buf.WriteString("trailer<</Size 6/Root 1 0 R>>\nstartxref\n" + itoa(xrefStart) + "\n%%EOF")
	return buf.Bytes()
}

func pdfEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '(' || r == ')' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func pad10(n int) string {
	s := itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
