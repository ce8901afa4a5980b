package collections

import (
	"strings"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentMetadata describes a legal document before it is stored
type DocumentMetadata struct {
	FileName     string
	ContentType  string
	DocumentType string
	SizeBytes    int64
}

// Validate checks the metadata is usable
func (m DocumentMetadata) Validate() error {
	if strings.TrimSpace(m.FileName) == "" {
		return shared.NewValidationError("FILE_NAME_REQUIRED", "document file name is required")
	}
	if m.SizeBytes < 0 {
		return shared.NewValidationError("INVALID_SIZE", "document size cannot be negative")
	}
	return nil
}

// DocumentRef is the handle a document store returns for a stored blob
type DocumentRef string

// LegalDocument is the metadata of a document attached to a task. The blob
// itself lives in the document store.
type LegalDocument struct {
	ID           uuid.UUID   `json:"id"`
	Sequence     int         `json:"sequence"`
	Ref          DocumentRef `json:"ref"`
	FileName     string      `json:"file_name"`
	ContentType  string      `json:"content_type"`
	DocumentType string      `json:"document_type"`
	SizeBytes    int64       `json:"size_bytes"`
	UploadedBy   uuid.UUID   `json:"uploaded_by"`
	UploadedAt   time.Time   `json:"uploaded_at"`
}

// AttachLegalDocument records the metadata of a stored document. Closed tasks
// still accept documents.
func (t *Task) AttachLegalDocument(meta DocumentMetadata, ref DocumentRef, actor Actor) (LegalDocument, error) {
	if err := meta.Validate(); err != nil {
		return LegalDocument{}, err
	}
	if strings.TrimSpace(string(ref)) == "" {
		return LegalDocument{}, shared.NewValidationError("DOCUMENT_REF_REQUIRED", "document reference is required")
	}
	for _, existing := range t.LegalDocuments {
		if existing.Ref == ref {
			return LegalDocument{}, shared.NewValidationError("DOCUMENT_ALREADY_ATTACHED", "document is already attached")
		}
	}

	doc := LegalDocument{
		ID:           uuid.New(),
		Sequence:     len(t.LegalDocuments) + 1,
		Ref:          ref,
		FileName:     strings.TrimSpace(meta.FileName),
		ContentType:  meta.ContentType,
		DocumentType: meta.DocumentType,
		SizeBytes:    meta.SizeBytes,
		UploadedBy:   actor.UserID,
		UploadedAt:   actor.At.UTC(),
	}
	t.LegalDocuments = append(t.LegalDocuments, doc)
	t.RecordAudit(AuditLegalDocumentAttached, "Legal document attached: "+doc.FileName, actor, nil, doc)
	t.touch(actor)
	return doc, nil
}
