package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

// Composite routes extraction by MIME type, falling back to the file
// extension and finally to the plain-text extractor.
type Composite struct {
	byMime      map[string]ports.TextExtractor
	byExtension map[string]ports.TextExtractor
	fallback    ports.TextExtractor
}

func NewComposite(fallback ports.TextExtractor) *Composite {
	return &Composite{
		byMime:      make(map[string]ports.TextExtractor),
		byExtension: make(map[string]ports.TextExtractor),
		fallback:    fallback,
	}
}

func (c *Composite) RegisterMime(mimeType string, ext ports.TextExtractor) *Composite {
	c.byMime[normalizeMime(mimeType)] = ext
	return c
}

func (c *Composite) RegisterExtension(extension string, ext ports.TextExtractor) *Composite {
	c.byExtension[strings.ToLower(extension)] = ext
	return c
}

func (c *Composite) Extract(ctx context.Context, doc *domain.Document) ([]domain.Segment, error) {
	return c.pick(doc).Extract(ctx, doc)
}

func (c *Composite) pick(doc *domain.Document) ports.TextExtractor {
	if ext, ok := c.byMime[normalizeMime(doc.MimeType)]; ok {
		return ext
	}
	if ext, ok := c.byExtension[strings.ToLower(filepath.Ext(doc.Filename))]; ok {
		return ext
	}
	return c.fallback
}

// normalizeMime drops parameters such as charset before lookup.
func normalizeMime(mimeType string) string {
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}
