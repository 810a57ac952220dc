package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Segment is one extracted unit of source text before chunking: a PDF
// page, a spreadsheet sheet, or a whole plain-text file. Page and
// Section are optional provenance carried through to indexed chunks.
type Segment struct {
	Text    string
	Page    int
	Section string
}

// Chunk is one indexed passage of a processed document. Index is the
// zero-based position within the document; Identity() derives the key
// both search legs store so fused results deduplicate.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	SourcePath string `json:"source_path,omitempty"`
	Page       int    `json:"page,omitempty"`
	Section    string `json:"section,omitempty"`
}

func (c Chunk) Identity() string {
	return ChunkIdentity(c.DocumentID, c.Index)
}
