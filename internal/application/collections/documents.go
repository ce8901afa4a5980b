package collections

import (
	"context"
	"errors"
	"io"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDocumentStoreNotConfigured is returned when documents are attached
// without a document store
var ErrDocumentStoreNotConfigured = errors.New("document store is not configured")

// AttachLegalDocument stores the blob and records its metadata on the task.
// When the attachment cannot be saved the stored blob is deleted again.
func (s *CollectionsService) AttachLegalDocument(
	ctx context.Context,
	actorID, taskID uuid.UUID,
	req AttachDocumentRequest,
	blob io.Reader,
) (*LegalDocumentResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if s.documents == nil {
		return nil, ErrDocumentStoreNotConfigured
	}
	if blob == nil {
		return nil, shared.NewValidationError("DOCUMENT_REQUIRED", "document content is required")
	}

	meta := collections.DocumentMetadata{
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		DocumentType: req.DocumentType,
		SizeBytes:    req.SizeBytes,
	}

	var (
		stored collections.DocumentRef
		doc    collections.LegalDocument
	)
	_, err := s.mutate(ctx, "attach_legal_document", actorID, taskID, func(ctx context.Context, task *collections.Task, actor collections.Actor) error {
		var err error
		stored, err = s.documents.StoreDocument(ctx, task.ID, meta, blob)
		if err != nil {
			return err
		}
		doc, err = task.AttachLegalDocument(meta, stored, actor)
		return err
	})
	if err != nil {
		if stored != "" {
			s.discardDocument(ctx, taskID, stored)
		}
		return nil, err
	}

	resp := ToLegalDocumentResponse(doc)
	return &resp, nil
}

func (s *CollectionsService) discardDocument(ctx context.Context, taskID uuid.UUID, ref collections.DocumentRef) {
	log := logger.With(logger.WithTaskID(ctx, taskID.String()), s.logger)
	// the request context may already be cancelled
	if err := s.documents.DeleteDocument(context.WithoutCancel(ctx), ref); err != nil {
		log.Error("Failed to delete orphaned legal document",
			zap.String("document_ref", string(ref)),
			zap.Error(err),
		)
		return
	}
	log.Info("Deleted unsaved legal document", zap.String("document_ref", string(ref)))
}
