package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/ingestion"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

// DocumentsHandler adapts the ingestion service: uploading PDFs and listing
// what has already been ingested.
type DocumentsHandler struct {
	log       *logger.Logger
	ingestion *ingestion.Service
}

func NewDocumentsHandler(log *logger.Logger, ingestionSvc *ingestion.Service) *DocumentsHandler {
	return &DocumentsHandler{log: log.With("handler", "DocumentsHandler"), ingestion: ingestionSvc}
}

type uploadedDocument struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	PageCount     int    `json:"page_count"`
	ChunksCreated int    `json:"chunks_created"`
}

type uploadResponse struct {
	Documents []uploadedDocument `json:"documents"`
}

// Upload ingests one or more multipart PDF files and returns a summary of
// each document that was successfully indexed. The first ingestion failure
// aborts the request; documents already ingested this call remain indexed.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "request must be multipart/form-data with a files[] field")
		return
	}

	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		badRequest(c, "at least one file is required in files[]")
		return
	}

	out := make([]uploadedDocument, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(c, apierr.BadInputf("could not read uploaded file %q", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			respondError(c, apierr.BadInputf("could not read uploaded file %q", fh.Filename))
			return
		}

		doc, err := h.ingestion.Ingest(c.Request.Context(), fh.Filename, data)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, uploadedDocument{
			DocumentID:    doc.ID,
			Filename:      doc.Filename,
			PageCount:     doc.PageCount,
			ChunksCreated: doc.ChunkCount,
		})
	}

	c.JSON(http.StatusOK, uploadResponse{Documents: out})
}

type documentSummary struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	VectorCount int    `json:"vector_count"`
}

type listDocumentsResponse struct {
	Documents []documentSummary `json:"documents"`
}

func (h *DocumentsHandler) List(c *gin.Context) {
	docs, err := h.ingestion.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{DocumentID: d.ID, Filename: d.Filename, VectorCount: d.ChunkCount})
	}
	c.JSON(http.StatusOK, listDocumentsResponse{Documents: out})
}
