package xlsxdoc

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

type storageFake struct {
	data map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = raw
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data[key])), nil
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetCellValue("Sheet1", "A1", "contract"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := wb.SetCellValue("Sheet1", "B1", "renewal"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if _, err := wb.NewSheet("Terms"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := wb.SetCellValue("Terms", "A1", "duration 12 months"); err != nil {
		t.Fatalf("set cell: %v", err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractSegmentsPerSheet(t *testing.T) {
	storage := &storageFake{data: map[string][]byte{"wb": buildWorkbook(t)}}
	ext := NewExtractor(storage)

	segments, err := ext.Extract(context.Background(), &domain.Document{StoragePath: "wb", Filename: "book.xlsx"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}

	bySection := make(map[string]string, len(segments))
	for _, seg := range segments {
		bySection[seg.Section] = seg.Text
	}
	if !strings.Contains(bySection["Sheet1"], "contract\trenewal") {
		t.Fatalf("unexpected Sheet1 text: %q", bySection["Sheet1"])
	}
	if !strings.Contains(bySection["Terms"], "duration 12 months") {
		t.Fatalf("unexpected Terms text: %q", bySection["Terms"])
	}
}

func TestExtractRejectsNonWorkbook(t *testing.T) {
	storage := &storageFake{data: map[string][]byte{"junk": []byte("not a zip archive")}}
	ext := NewExtractor(storage)

	_, err := ext.Extract(context.Background(), &domain.Document{StoragePath: "junk", Filename: "junk.xlsx"})
	if err == nil {
		t.Fatalf("expected error for invalid workbook")
	}
}
