package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/events"
	"github.com/mpetrie/taskboard-api/internal/platform/logger"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// ListingCache is the subset of the task listing cache the service needs.
// Defined here so tests can substitute an in-memory fake.
type ListingCache interface {
	Get(ctx context.Context, query store.TaskQuery) (*store.TaskListing, error)
	Put(ctx context.Context, query store.TaskQuery, snapshot *store.TaskListing) error
	Invalidate(ctx context.Context) error
}

// TaskService orchestrates task operations across the task store and the
// listing cache, enforcing the invalidate-on-write protocol: every
// mutation deletes the cached listing synchronously before the mutation's
// result is returned, so a subsequent read can never observe a stale
// listing.
type TaskService struct {
	taskStore store.TaskStore
	userStore store.UserStore
	listCache ListingCache
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewTaskService creates a TaskService with the given dependencies.
// userStore resolves the user references embedded in listing rows.
// emitter may be nil, in which case no events are published.
func NewTaskService(
	taskStore store.TaskStore,
	userStore store.UserStore,
	listCache ListingCache,
	emitter events.EventEmitter,
	log *slog.Logger,
) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &TaskService{
		taskStore: taskStore,
		userStore: userStore,
		listCache: listCache,
		emitter:   emitter,
		logger:    log.With(slog.String("component", "task_service")),
	}
}

// CreateTask persists a new task and invalidates the listing cache before
// returning the created record.
func (s *TaskService) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.listCache.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.emit(ctx, events.EventTaskCreated, taskEventPayload{
		TaskID: task.ID,
		Status: task.Status,
		Title:  task.Title,
	})

	return task, nil
}

// ListTasks returns the filtered, sorted, paginated task listing with
// assignee, creator and comment authors resolved to display info,
// cache-aside: a cached snapshot for the same query is returned without
// touching the stores; on a miss the resolved store result populates the
// cache.
func (s *TaskService) ListTasks(ctx context.Context, query store.TaskQuery) (*store.TaskListing, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	query = query.Normalize()

	listing, err := s.listCache.Get(ctx, query)
	if err == nil {
		return listing, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, err
	}

	page, err := s.taskStore.List(ctx, query)
	if err != nil {
		return nil, err
	}

	listing, err = s.resolveListing(ctx, page)
	if err != nil {
		return nil, err
	}

	if err := s.listCache.Put(ctx, query, listing); err != nil {
		return nil, err
	}

	log.Debug("listing cache populated",
		slog.Int("tasks", len(listing.Tasks)),
		slog.Int("total", listing.Pagination.Total))
	return listing, nil
}

// resolveListing turns a raw store page into the listing view, looking up
// each referenced user once per call. A user that no longer exists
// degrades to a ref carrying only the ID; store failures abort the
// listing.
func (s *TaskService) resolveListing(ctx context.Context, page *store.TaskPage) (*store.TaskListing, error) {
	refs := make(map[uuid.UUID]store.UserRef)
	for _, task := range page.Tasks {
		for _, id := range store.TaskUserIDs(task) {
			if _, ok := refs[id]; ok {
				continue
			}
			user, err := s.userStore.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					refs[id] = store.UserRef{ID: id}
					continue
				}
				return nil, err
			}
			refs[id] = store.UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
		}
	}

	listing := &store.TaskListing{
		Tasks:      make([]*store.ListedTask, 0, len(page.Tasks)),
		Pagination: page.Pagination,
	}
	for _, task := range page.Tasks {
		listing.Tasks = append(listing.Tasks, store.NewListedTask(task, refs))
	}
	return listing, nil
}

// GetAnalytics computes the four task aggregates. Analytics are never
// cached.
func (s *TaskService) GetAnalytics(ctx context.Context) (*store.TaskAnalytics, error) {
	return s.taskStore.Analytics(ctx)
}

// UpdateStatus sets the task's status, optionally appending a comment
// authored by the acting user, and invalidates the listing cache before
// returning the updated record.
// Returns store.ErrTaskNotFound if the task does not exist and a
// domain validation error if the status is not a known value.
func (s *TaskService) UpdateStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	comment string,
	userID uuid.UUID,
) (*domain.Task, error) {
	// Reject bad input before touching the store so an invalid status can
	// never alter the persisted task.
	if err := status.Validate(); err != nil {
		return nil, err
	}

	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	if comment != "" {
		task.AppendComment(userID, comment)
	}

	if err := s.taskStore.Update(ctx, task); err != nil {
		return nil, err
	}

	if err := s.listCache.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.emit(ctx, events.EventTaskStatusUpdated, taskEventPayload{
		TaskID: task.ID,
		Status: task.Status,
		Title:  task.Title,
	})

	return task, nil
}

// AddSubtask appends a new incomplete subtask and invalidates the listing
// cache before returning the updated record.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskService) AddSubtask(ctx context.Context, taskID uuid.UUID, title string) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.AppendSubtask(title)

	if err := s.taskStore.Update(ctx, task); err != nil {
		return nil, err
	}

	if err := s.listCache.Invalidate(ctx); err != nil {
		return nil, err
	}

	s.emit(ctx, events.EventTaskSubtaskAdded, taskEventPayload{
		TaskID: task.ID,
		Status: task.Status,
		Title:  task.Title,
	})

	return task, nil
}

// taskEventPayload is the JSON body of task mutation events.
type taskEventPayload struct {
	TaskID uuid.UUID         `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
	Title  string            `json:"title"`
}

// emit publishes a best-effort event; failures are logged, never returned.
func (s *TaskService) emit(ctx context.Context, eventType string, payload taskEventPayload) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		s.logger.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", fmt.Sprintf("%v", err)))
		return
	}
	s.emitter.EmitEvent(ctx, event)
}
