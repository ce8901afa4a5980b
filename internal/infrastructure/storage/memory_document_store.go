package storage

import (
	"context"
	"io"
	"sync"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const memoryScheme = "memory"

// StoredDocument is a blob kept by MemoryDocumentStore
type StoredDocument struct {
	TaskID   uuid.UUID
	Metadata collections.DocumentMetadata
	Data     []byte
}

// MemoryDocumentStore keeps documents in process memory. It is used when
// object storage is disabled and in tests.
type MemoryDocumentStore struct {
	mu      sync.RWMutex
	docs    map[collections.DocumentRef]StoredDocument
	maxSize int64
}

// NewMemoryDocumentStore creates an empty store. A positive maxSize limits
// document size in bytes.
func NewMemoryDocumentStore(maxSize int64) *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs:    make(map[collections.DocumentRef]StoredDocument),
		maxSize: maxSize,
	}
}

// StoreDocument keeps a copy of blob
func (s *MemoryDocumentStore) StoreDocument(_ context.Context, taskID uuid.UUID, meta collections.DocumentMetadata, blob io.Reader) (collections.DocumentRef, error) {
	if err := meta.Validate(); err != nil {
		return "", err
	}
	data, err := readLimited(blob, s.maxSize)
	if err != nil {
		return "", err
	}
	if err := checkSize(meta, int64(len(data)), s.maxSize); err != nil {
		return "", err
	}

	ref := collections.DocumentRef(memoryScheme + "://documents/" + objectKey("", taskID, meta.FileName))
	s.mu.Lock()
	s.docs[ref] = StoredDocument{TaskID: taskID, Metadata: meta, Data: data}
	s.mu.Unlock()
	return ref, nil
}

// DeleteDocument removes a document. Unknown refs are ignored.
func (s *MemoryDocumentStore) DeleteDocument(_ context.Context, ref collections.DocumentRef) error {
	if _, _, err := parseRef(ref, memoryScheme); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, ref)
	s.mu.Unlock()
	return nil
}

// Get returns a stored document
func (s *MemoryDocumentStore) Get(ref collections.DocumentRef) (StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[ref]
	if !ok {
		return StoredDocument{}, shared.NewNotFoundError("document", string(ref))
	}
	return doc, nil
}

// Len returns the number of stored documents
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ensure MemoryDocumentStore implements DocumentStore
var _ collections.DocumentStore = (*MemoryDocumentStore)(nil)
