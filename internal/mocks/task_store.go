package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	// Custom behavior functions
	CreateFn    func(ctx context.Context, task *domain.Task) error
	GetByIDFn   func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn    func(ctx context.Context, task *domain.Task) error
	ListFn      func(ctx context.Context, query store.TaskQuery) (*store.TaskPage, error)
	AnalyticsFn func(ctx context.Context) (*store.TaskAnalytics, error)

	// Default response values
	Task            *domain.Task
	Page            *store.TaskPage
	AnalyticsResult *store.TaskAnalytics
	Err             error

	// Call tracking for verification
	CreateCalls struct {
		mu    sync.Mutex
		Count int
		Tasks []*domain.Task
	}
	UpdateCalls struct {
		mu    sync.Mutex
		Count int
		Tasks []*domain.Task
	}
	ListCalls struct {
		mu      sync.Mutex
		Count   int
		Queries []store.TaskQuery
	}
}

// Create implements the store.TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.CreateCalls.mu.Lock()
	m.CreateCalls.Count++
	m.CreateCalls.Tasks = append(m.CreateCalls.Tasks, task)
	m.CreateCalls.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return m.Err
}

// GetByID implements the store.TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Task == nil {
		return nil, store.ErrTaskNotFound
	}
	return m.Task, nil
}

// Update implements the store.TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.UpdateCalls.mu.Lock()
	m.UpdateCalls.Count++
	m.UpdateCalls.Tasks = append(m.UpdateCalls.Tasks, task)
	m.UpdateCalls.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return m.Err
}

// List implements the store.TaskStore interface
func (m *MockTaskStore) List(
	ctx context.Context,
	query store.TaskQuery,
) (*store.TaskPage, error) {
	m.ListCalls.mu.Lock()
	m.ListCalls.Count++
	m.ListCalls.Queries = append(m.ListCalls.Queries, query)
	m.ListCalls.mu.Unlock()

	if m.ListFn != nil {
		return m.ListFn(ctx, query)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Page == nil {
		return &store.TaskPage{Pagination: store.Pagination{Page: query.Page}}, nil
	}
	return m.Page, nil
}

// Analytics implements the store.TaskStore interface
func (m *MockTaskStore) Analytics(ctx context.Context) (*store.TaskAnalytics, error) {
	if m.AnalyticsFn != nil {
		return m.AnalyticsFn(ctx)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.AnalyticsResult, nil
}
