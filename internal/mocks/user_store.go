package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	// Custom behavior functions
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)

	// Default response values
	User *domain.User
	Err  error

	// Call tracking for verification
	CreateCalls struct {
		mu    sync.Mutex
		Count int
		Users []*domain.User
	}
	GetByIDCalls struct {
		mu    sync.Mutex
		Count int
		IDs   []uuid.UUID
	}
	GetByEmailCalls struct {
		mu     sync.Mutex
		Count  int
		Emails []string
	}
}

// Create implements the store.UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.CreateCalls.mu.Lock()
	m.CreateCalls.Count++
	m.CreateCalls.Users = append(m.CreateCalls.Users, user)
	m.CreateCalls.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	return m.Err
}

// GetByID implements the store.UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.GetByIDCalls.mu.Lock()
	m.GetByIDCalls.Count++
	m.GetByIDCalls.IDs = append(m.GetByIDCalls.IDs, id)
	m.GetByIDCalls.mu.Unlock()

	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.User == nil {
		return nil, store.ErrUserNotFound
	}
	return m.User, nil
}

// GetByEmail implements the store.UserStore interface
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.GetByEmailCalls.mu.Lock()
	m.GetByEmailCalls.Count++
	m.GetByEmailCalls.Emails = append(m.GetByEmailCalls.Emails, email)
	m.GetByEmailCalls.mu.Unlock()

	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.User == nil {
		return nil, store.ErrUserNotFound
	}
	return m.User, nil
}
