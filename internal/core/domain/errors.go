package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
)

var (
	errEmptyQuery   = errors.New("query text is empty")
	errQueryTooLong = fmt.Errorf("query text exceeds %d characters", maxQueryChars)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ChunkIdentity is the canonical passage key: "<documentID>:<index>".
// Both retrieval legs must emit it unchanged so fusion can match
// passages across lists without parsing.
func ChunkIdentity(documentID string, index int) string {
	return documentID + ":" + strconv.Itoa(index)
}
