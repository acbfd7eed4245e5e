package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/mocks"
	"github.com/mpetrie/taskboard-api/internal/service/auth"
	"github.com/mpetrie/taskboard-api/internal/store"
)

type authFixture struct {
	handler  *AuthHandler
	users    *mocks.MockUserStore
	jwt      *mocks.MockJWTService
	backend  *mocks.MemoryCache
	sessions *cache.SessionCache
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := &mocks.MockUserStore{}
	jwtService := &mocks.MockJWTService{Token: "generated-token"}
	backend := mocks.NewMemoryCache()
	sessions := cache.NewSessionCache(backend, time.Hour)

	return &authFixture{
		handler: NewAuthHandler(
			users,
			jwtService,
			auth.NewBcryptHasher(bcrypt.MinCost),
			auth.NewBcryptVerifier(),
			sessions,
		),
		users:    users,
		jwt:      jwtService,
		backend:  backend,
		sessions: sessions,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRegister(t *testing.T) {
	t.Parallel()

	validRequest := RegisterRequest{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "password123",
	}

	t.Run("creates user with hashed password", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		rec := postJSON(t, f.handler.Register, "/api/auth/register", validRequest)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "User created successfully", decodeMessage(t, rec))

		require.Equal(t, 1, f.users.CreateCalls.Count)
		created := f.users.CreateCalls.Users[0]
		assert.Equal(t, "test@example.com", created.Email)
		assert.Empty(t, created.Password, "plaintext must never reach the store")
		assert.NoError(t, bcrypt.CompareHashAndPassword(
			[]byte(created.HashedPassword), []byte("password123")))
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.CreateFn = func(context.Context, *domain.User) error {
			return store.ErrEmailExists
		}

		rec := postJSON(t, f.handler.Register, "/api/auth/register", validRequest)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "User already exists", decodeMessage(t, rec))
	})

	t.Run("short password", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		req := validRequest
		req.Password = "short"
		rec := postJSON(t, f.handler.Register, "/api/auth/register", req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, f.users.CreateCalls.Count)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		req := validRequest
		req.Email = "not-an-email"
		rec := postJSON(t, f.handler.Register, "/api/auth/register", req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.handler.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure yields a generic server error", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.CreateFn = func(context.Context, *domain.User) error {
			return errors.New("connection refused")
		}

		rec := postJSON(t, f.handler.Register, "/api/auth/register", validRequest)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Server error", decodeMessage(t, rec))
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	password := "password123"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	userID := uuid.New()
	storedUser := &domain.User{
		ID:             userID,
		Name:           "Test User",
		Email:          "test@example.com",
		HashedPassword: string(hashed),
	}

	t.Run("returns token and records session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.User = storedUser

		rec := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: password,
		})

		assert.Equal(t, http.StatusOK, rec.Code)

		var body LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "generated-token", body.Token)

		// The session cache now holds this token as the user's current one
		cached, err := f.sessions.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "generated-token", cached)
	})

	t.Run("second login supersedes the first session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.User = storedUser

		f.jwt.Token = "first-token"
		rec := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: password,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		f.jwt.Token = "second-token"
		rec = postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: password,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		cached, err := f.sessions.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "second-token", cached)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.User = storedUser

		rec := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: "wrong-password",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeMessage(t, rec))
	})

	t.Run("unknown email is indistinguishable from wrong password", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		// No user configured: GetByEmail returns ErrUserNotFound

		rec := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "nobody@example.com",
			Password: password,
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeMessage(t, rec))
	})

	t.Run("failed login leaves no session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.User = storedUser

		rec := postJSON(t, f.handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		_, err := f.sessions.Get(context.Background(), userID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("session write failure yields a generic server error", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.User = storedUser

		handler := NewAuthHandler(
			f.users,
			f.jwt,
			auth.NewBcryptHasher(bcrypt.MinCost),
			auth.NewBcryptVerifier(),
			failingSessionWriter{err: errors.New("redis unreachable")},
		)

		rec := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
			Email:    "test@example.com",
			Password: password,
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Server error", decodeMessage(t, rec))
	})
}

// failingSessionWriter simulates an unavailable session backend.
type failingSessionWriter struct {
	err error
}

func (f failingSessionWriter) Save(context.Context, uuid.UUID, string) error {
	return f.err
}
