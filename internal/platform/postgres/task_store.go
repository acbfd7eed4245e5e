package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/platform/logger"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// sortColumns whitelists the externally supplied sort fields and maps
// them to their column names. Anything not listed falls back to due_date.
var sortColumns = map[string]string{
	"dueDate":   "due_date",
	"priority":  "priority",
	"status":    "status",
	"title":     "title",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
//
// The aggregate task sub-documents (attachments, subtasks, comments,
// tags, metadata) are stored as jsonb columns; they are always read and
// written as part of their owning task.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// taskColumns is the column list shared by every task SELECT.
const taskColumns = `id, title, description, status, priority, due_date,
	assigned_to, created_by, tags, attachments, subtasks, comments,
	metadata, created_at, updated_at`

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if a referenced user does not exist
// (foreign key violation).
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	docs, err := marshalTaskDocs(task)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date,
			assigned_to, created_by, tags, attachments, subtasks, comments,
			metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.AssignedTo,
		task.CreatedBy,
		docs.tags,
		docs.attachments,
		docs.subtasks,
		docs.comments,
		docs.metadata,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			log.Warn("foreign key violation during task creation",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()))
			return fmt.Errorf("%w: referenced user not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("created_by", task.CreatedBy.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// Update implements store.TaskStore.Update
// It persists the full state of the task.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	docs, err := marshalTaskDocs(task)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
			due_date = $5, assigned_to = $6, tags = $7, attachments = $8,
			subtasks = $9, comments = $10, metadata = $11, updated_at = $12
		WHERE id = $13
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.AssignedTo,
		docs.tags,
		docs.attachments,
		docs.subtasks,
		docs.comments,
		docs.metadata,
		task.UpdatedAt,
		task.ID,
	)

	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found during update", slog.String("task_id", task.ID.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task updated successfully", slog.String("task_id", task.ID.String()))
	return nil
}

// List implements store.TaskStore.List
// It executes the filtered, sorted, paginated listing query together
// with a total count for pagination metadata.
func (s *PostgresTaskStore) List(ctx context.Context, query store.TaskQuery) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	query = query.Normalize()

	where, args := buildTaskFilter(query)

	column, ok := sortColumns[query.SortBy]
	if !ok {
		column = sortColumns[store.DefaultSortBy]
	}
	direction := "ASC"
	if query.SortOrder == "desc" {
		direction = "DESC"
	}

	offset := (query.Page - 1) * query.Limit
	listSQL := fmt.Sprintf(
		`SELECT %s FROM tasks %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, column, direction, len(args)+1, len(args)+2,
	)
	listArgs := append(append([]any{}, args...), query.Limit, offset)

	rows, err := s.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0, query.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("failed to iterate task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	var total int
	countSQL := `SELECT COUNT(*) FROM tasks ` + where
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	pages := total / query.Limit
	if total%query.Limit != 0 {
		pages++
	}

	return &store.TaskPage{
		Tasks: tasks,
		Pagination: store.Pagination{
			Total: total,
			Page:  query.Page,
			Pages: pages,
		},
	}, nil
}

// Analytics implements store.TaskStore.Analytics
// It computes the four aggregate groupings with grouped SQL, the
// relational analogue of a facet pipeline.
func (s *PostgresTaskStore) Analytics(ctx context.Context) (*store.TaskAnalytics, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	analytics := &store.TaskAnalytics{
		StatusBreakdown:      []store.StatusCount{},
		PriorityDistribution: []store.PriorityCount{},
		UserWorkload:         []store.UserWorkload{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		log.Error("failed to compute status breakdown", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	for rows.Next() {
		var entry store.StatusCount
		if err := rows.Scan(&entry.Status, &entry.Count); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		analytics.StatusBreakdown = append(analytics.StatusBreakdown, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT priority, COUNT(*) FROM tasks GROUP BY priority`)
	if err != nil {
		log.Error("failed to compute priority distribution", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	for rows.Next() {
		var entry store.PriorityCount
		if err := rows.Scan(&entry.Priority, &entry.Count); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		analytics.PriorityDistribution = append(analytics.PriorityDistribution, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT t.assigned_to, u.name, u.email,
			COUNT(*) AS task_count,
			COUNT(*) FILTER (WHERE t.priority >= 4) AS high_priority_tasks
		FROM tasks t
		JOIN users u ON u.id = t.assigned_to
		GROUP BY t.assigned_to, u.name, u.email
	`)
	if err != nil {
		log.Error("failed to compute user workload", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	for rows.Next() {
		var entry store.UserWorkload
		if err := rows.Scan(
			&entry.UserID,
			&entry.Name,
			&entry.Email,
			&entry.TaskCount,
			&entry.HighPriorityTasks,
		); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		analytics.UserWorkload = append(analytics.UserWorkload, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	_ = rows.Close()

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE due_date < NOW() AND status <> 'DONE'`,
	).Scan(&analytics.OverdueTasks)
	if err != nil {
		log.Error("failed to count overdue tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return analytics, nil
}

// buildTaskFilter translates the optional query filters into a WHERE
// clause and its arguments. The returned clause is empty when no filter
// is set.
func buildTaskFilter(query store.TaskQuery) (string, []any) {
	var conditions []string
	var args []any

	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.Status != "" {
		conditions = append(conditions, "status = "+arg(query.Status))
	}
	if query.Priority != 0 {
		conditions = append(conditions, "priority = "+arg(query.Priority))
	}
	if query.AssignedTo != uuid.Nil {
		conditions = append(conditions, "assigned_to = "+arg(query.AssignedTo))
	}
	if !query.DueDate.IsZero() {
		day := query.DueDate.UTC()
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		conditions = append(conditions, "due_date >= "+arg(dayStart))
		conditions = append(conditions, "due_date < "+arg(dayStart.AddDate(0, 0, 1)))
	}
	if query.Search != "" {
		pattern := arg("%" + query.Search + "%")
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE %[1]s OR description ILIKE %[1]s OR EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(tags) AS tag
				WHERE tag ILIKE %[1]s))`,
			pattern,
		))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// taskDocs holds the jsonb-encoded aggregate columns of a task row.
type taskDocs struct {
	tags        []byte
	attachments []byte
	subtasks    []byte
	comments    []byte
	metadata    []byte
}

func marshalTaskDocs(task *domain.Task) (*taskDocs, error) {
	docs := &taskDocs{}
	for _, field := range []struct {
		name  string
		value any
		out   *[]byte
	}{
		{"tags", task.Tags, &docs.tags},
		{"attachments", task.Attachments, &docs.attachments},
		{"subtasks", task.Subtasks, &docs.subtasks},
		{"comments", task.Comments, &docs.comments},
		{"metadata", task.Metadata, &docs.metadata},
	} {
		raw, err := json.Marshal(field.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task %s: %w", field.name, err)
		}
		*field.out = raw
	}
	return docs, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var tags, attachments, subtasks, comments, metadata []byte

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.AssignedTo,
		&task.CreatedBy,
		&tags,
		&attachments,
		&subtasks,
		&comments,
		&metadata,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		name string
		raw  []byte
		out  any
	}{
		{"tags", tags, &task.Tags},
		{"attachments", attachments, &task.Attachments},
		{"subtasks", subtasks, &task.Subtasks},
		{"comments", comments, &task.Comments},
		{"metadata", metadata, &task.Metadata},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.out); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", field.name, err)
		}
	}

	return &task, nil
}
