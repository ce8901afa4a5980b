package collections

import (
	"context"
	"io"
	"time"

	"github.com/collections/backend/internal/domain/collections"
	"github.com/collections/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository is a mock implementation of collections.TaskRepository
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*collections.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collections.Task), args.Error(1)
}

func (m *MockTaskRepository) FindAll(ctx context.Context, query collections.TaskQuery) ([]collections.Task, int64, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]collections.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) Create(ctx context.Context, task *collections.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) SaveWithLock(ctx context.Context, task *collections.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// publishedTypes returns the event types of every Publish call in order
func (m *MockEventPublisher) publishedTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		for _, e := range call.Arguments.Get(1).([]shared.DomainEvent) {
			types = append(types, e.EventType())
		}
	}
	return types
}

// MockReminderScheduler is a mock implementation of collections.ReminderScheduler
type MockReminderScheduler struct {
	mock.Mock
}

func (m *MockReminderScheduler) ScheduleReminder(ctx context.Context, taskID uuid.UUID, channel collections.ReminderChannel, whenUTC time.Time, templateRef string) error {
	args := m.Called(ctx, taskID, channel, whenUTC, templateRef)
	return args.Error(0)
}

// MockDocumentStore is a mock implementation of collections.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) StoreDocument(ctx context.Context, taskID uuid.UUID, meta collections.DocumentMetadata, blob io.Reader) (collections.DocumentRef, error) {
	args := m.Called(ctx, taskID, meta, blob)
	return args.Get(0).(collections.DocumentRef), args.Error(1)
}

func (m *MockDocumentStore) DeleteDocument(ctx context.Context, ref collections.DocumentRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockDirectory is a mock implementation of collections.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Resolve(ctx context.Context, refs []collections.Reference) (map[collections.Reference]collections.Resolved, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[collections.Reference]collections.Resolved), args.Error(1)
}
