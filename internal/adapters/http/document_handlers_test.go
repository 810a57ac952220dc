package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/hybrid-retriever/internal/config"
	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

func multipartBody(t *testing.T, fieldName, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadDocumentAccepted(t *testing.T) {
	ingestor := &ingestorFake{doc: &domain.Document{ID: "doc-1", Filename: "notes.txt", Status: domain.StatusUploaded}}
	handler := newTestHandler(config.Config{}, testHandlerOverrides{ingestor: ingestor})

	body, contentType := multipartBody(t, "file", "notes.txt", "refund policy text")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if ingestor.filename != "notes.txt" {
		t.Fatalf("unexpected filename forwarded: %q", ingestor.filename)
	}
	if string(ingestor.payload) != "refund policy text" {
		t.Fatalf("upload body not forwarded, got %q", ingestor.payload)
	}
}

func TestUploadDocumentRequiresFilePart(t *testing.T) {
	handler := newTestHandler(config.Config{}, testHandlerOverrides{})

	body, contentType := multipartBody(t, "attachment", "notes.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByID(t *testing.T) {
	store := &documentStoreFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Filename: "notes.txt", Status: domain.StatusReady, ChunkCount: 4},
	}}
	handler := newTestHandler(config.Config{}, testHandlerOverrides{store: store})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.ID != "doc-1" || doc.ChunkCount != 4 {
		t.Fatalf("unexpected document payload: %+v", doc)
	}
}

func TestGetDocumentByIDNotFound(t *testing.T) {
	handler := newTestHandler(config.Config{}, testHandlerOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/ghost", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListDocumentsBindsQueryParameters(t *testing.T) {
	store := &documentStoreFake{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Status: domain.StatusReady},
	}}
	handler := newTestHandler(config.Config{}, testHandlerOverrides{store: store})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?status=ready&limit=7", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if store.listStatus != domain.StatusReady {
		t.Fatalf("status filter not bound, got %q", store.listStatus)
	}
	if store.listLimit != 7 {
		t.Fatalf("limit not bound, got %d", store.listLimit)
	}
}

func TestListDocumentsRejectsInvalidLimit(t *testing.T) {
	handler := newTestHandler(config.Config{}, testHandlerOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?limit=lots", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
