package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	if err := storage.Save(context.Background(), "doc-1_notes.txt", strings.NewReader("refund policy")); err != nil {
		t.Fatalf("save: %v", err)
	}

	reader, err := storage.Open(context.Background(), "doc-1_notes.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "refund policy" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestSaveOverwritesExistingKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	if err := storage.Save(context.Background(), "doc-1", strings.NewReader("first")); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := storage.Save(context.Background(), "doc-1", strings.NewReader("second")); err != nil {
		t.Fatalf("save second: %v", err)
	}

	reader, err := storage.Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reader.Close()
	content, _ := io.ReadAll(reader)
	if string(content) != "second" {
		t.Fatalf("expected overwrite, got %q", content)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	for _, key := range []string{"", "../escape", "a/b", `a\b`, ".."} {
		t.Run(key, func(t *testing.T) {
			if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
				t.Fatalf("expected invalid key error for %q", key)
			}
			if _, err := storage.Open(context.Background(), key); err == nil {
				t.Fatalf("expected invalid key error for %q", key)
			}
		})
	}
}
