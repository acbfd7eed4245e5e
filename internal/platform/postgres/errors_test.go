package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mpetrie/taskboard-api/internal/store"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name:    "no rows",
			err:     sql.ErrNoRows,
			wantErr: store.ErrNotFound,
		},
		{
			name:    "wrapped no rows",
			err:     fmt.Errorf("query failed: %w", sql.ErrNoRows),
			wantErr: store.ErrNotFound,
		},
		{
			name:    "unique violation",
			err:     pgError("23505", "users_email_unique"),
			wantErr: store.ErrDuplicate,
		},
		{
			name:    "foreign key violation",
			err:     pgError("23503", "tasks_assigned_to_fkey"),
			wantErr: store.ErrInvalidEntity,
		},
		{
			name:    "check violation",
			err:     pgError("23514", "tasks_priority_check"),
			wantErr: store.ErrInvalidEntity,
		},
		{
			name: "unrelated error passes through",
			err:  errors.New("connection reset"),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := MapError(tc.err)

			if tc.err == nil {
				assert.NoError(t, mapped)
				return
			}
			if tc.wantErr == nil {
				assert.Equal(t, tc.err, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.wantErr)
		})
	}
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := pgError("23505", "users_email_unique")
	fk := pgError("23503", "tasks_assigned_to_fkey")

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("other")))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(unique))

	// Wrapped errors are still recognized
	wrapped := fmt.Errorf("insert failed: %w", unique)
	assert.True(t, IsUniqueViolation(wrapped))
}

// fakeResult implements sql.Result for CheckRowsAffected tests.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "task"))

	err := CheckRowsAffected(fakeResult{rows: 0}, "task")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "task")

	err = CheckRowsAffected(fakeResult{rows: 0}, "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, CheckRowsAffected(nil, "task"))
	assert.Error(t, CheckRowsAffected(fakeResult{err: errors.New("driver error")}, "task"))
}
