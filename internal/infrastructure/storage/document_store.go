// Package storage keeps legal document blobs in S3-compatible object storage.
package storage

import (
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// objectKey builds prefix/taskID/uuid-filename so that two uploads with the
// same file name never collide
func objectKey(prefix string, taskID uuid.UUID, fileName string) string {
	name := uuid.New().String() + "-" + sanitizeFileName(fileName)
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return path.Join(taskID.String(), name)
	}
	return path.Join(prefix, taskID.String(), name)
}

// sanitizeFileName keeps the base name and replaces characters that are
// awkward in object keys
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "document"
	}
	return out
}

// readLimited reads the whole blob, failing once it passes limit bytes
func readLimited(blob io.Reader, limit int64) ([]byte, error) {
	if blob == nil {
		return nil, shared.NewValidationError("DOCUMENT_REQUIRED", "document content is required")
	}
	r := blob
	if limit > 0 {
		r = io.LimitReader(blob, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func checkSize(meta collections.DocumentMetadata, got, limit int64) error {
	if limit > 0 && got > limit {
		return shared.NewValidationErrorf("DOCUMENT_TOO_LARGE", "document exceeds the %d byte limit", limit)
	}
	if meta.SizeBytes > 0 && meta.SizeBytes != got {
		return shared.NewValidationErrorf("DOCUMENT_SIZE_MISMATCH",
			"document declared %d bytes but %d were received", meta.SizeBytes, got)
	}
	return nil
}

func contentTypeOrDefault(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "application/octet-stream"
	}
	return ct
}

// parseRef splits scheme://bucket/key
func parseRef(ref collections.DocumentRef, scheme string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(string(ref), scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("document ref %q is not a %s reference", ref, scheme)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("document ref %q has no object key", ref)
	}
	return bucket, key, nil
}
