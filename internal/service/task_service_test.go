package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/events"
	"github.com/mpetrie/taskboard-api/internal/mocks"
	"github.com/mpetrie/taskboard-api/internal/store"
)

func newTestTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(
		"Ship release",
		"Cut the release branch and tag",
		time.Now().UTC().Add(72*time.Hour),
		uuid.New(),
		uuid.New(),
	)
	require.NoError(t, err)
	return task
}

// serviceFixture wires a TaskService over mock stores and a real listing
// cache backed by an in-memory map, so cache protocol behavior is
// exercised end to end.
type serviceFixture struct {
	svc     *TaskService
	store   *mocks.MockTaskStore
	users   *mocks.MockUserStore
	backend *mocks.MemoryCache
	cache   *cache.TaskListCache
	emitter *events.InMemoryEventEmitter
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	backend := mocks.NewMemoryCache()
	listCache := cache.NewTaskListCache(backend, 5*time.Minute, nil)
	taskStore := &mocks.MockTaskStore{}
	userStore := &mocks.MockUserStore{}
	emitter := events.NewInMemoryEventEmitter(nil)

	return &serviceFixture{
		svc:     NewTaskService(taskStore, userStore, listCache, emitter, nil),
		store:   taskStore,
		users:   userStore,
		backend: backend,
		cache:   listCache,
		emitter: emitter,
	}
}

// recordingHandler captures emitted events for assertions.
type recordingHandler struct {
	events []*events.Event
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.Event) {
	h.events = append(h.events, event)
}

func TestCreateTaskInvalidatesListing(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	ctx := context.Background()

	// Seed a cached listing
	seeded := &store.TaskListing{Pagination: store.Pagination{Total: 1, Page: 1, Pages: 1}}
	require.NoError(t, f.cache.Put(ctx, store.TaskQuery{}, seeded))

	handler := &recordingHandler{}
	f.emitter.RegisterHandler(handler)

	task := newTestTask(t)
	created, err := f.svc.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, task.ID, created.ID)
	assert.Equal(t, 1, f.store.CreateCalls.Count)

	// The cached listing must be gone before CreateTask returns
	_, err = f.cache.Get(ctx, store.TaskQuery{})
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.Len(t, handler.events, 1)
	assert.Equal(t, events.EventTaskCreated, handler.events[0].Type)
}

func TestCreateTaskStoreError(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.store.Err = store.ErrInvalidEntity

	_, err := f.svc.CreateTask(context.Background(), newTestTask(t))
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestListTasksPopulatesCache(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	ctx := context.Background()
	query := store.TaskQuery{Status: domain.TaskStatusTodo}

	f.store.Page = &store.TaskPage{
		Tasks:      []*domain.Task{newTestTask(t)},
		Pagination: store.Pagination{Total: 1, Page: 1, Pages: 1},
	}

	page, err := f.svc.ListTasks(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 1, f.store.ListCalls.Count)

	// The store was handed the normalized query
	assert.Equal(t, store.DefaultLimit, f.store.ListCalls.Queries[0].Limit)

	// Second identical listing is served from cache
	lookups := f.users.GetByIDCalls.Count
	page, err = f.svc.ListTasks(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 1, f.store.ListCalls.Count, "cache hit must not touch the store")
	assert.Equal(t, lookups, f.users.GetByIDCalls.Count,
		"cache hit must not re-resolve user references")
}

func TestListTasksResolvesUserRefs(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	ctx := context.Background()

	assignee := &domain.User{ID: uuid.New(), Name: "Dana Fields", Email: "dana@example.com"}
	creator := &domain.User{ID: uuid.New(), Name: "Sam Porter", Email: "sam@example.com"}
	deleted := uuid.New()

	task := newTestTask(t)
	task.AssignedTo = assignee.ID
	task.CreatedBy = creator.ID
	task.AppendComment(creator.ID, "looks good")
	task.AppendComment(deleted, "orphaned comment")

	f.store.Page = &store.TaskPage{
		Tasks:      []*domain.Task{task},
		Pagination: store.Pagination{Total: 1, Page: 1, Pages: 1},
	}
	f.users.GetByIDFn = func(_ context.Context, id uuid.UUID) (*domain.User, error) {
		switch id {
		case assignee.ID:
			return assignee, nil
		case creator.ID:
			return creator, nil
		default:
			return nil, store.ErrUserNotFound
		}
	}

	listing, err := f.svc.ListTasks(ctx, store.TaskQuery{})
	require.NoError(t, err)
	require.Len(t, listing.Tasks, 1)

	row := listing.Tasks[0]
	assert.Equal(t, store.UserRef{ID: assignee.ID, Name: "Dana Fields", Email: "dana@example.com"}, row.AssignedTo)
	assert.Equal(t, store.UserRef{ID: creator.ID, Name: "Sam Porter", Email: "sam@example.com"}, row.CreatedBy)

	require.Len(t, row.Comments, 2)
	assert.Equal(t, "Sam Porter", row.Comments[0].User.Name)
	// A comment from a since-deleted user keeps the ID with empty
	// display fields.
	assert.Equal(t, store.UserRef{ID: deleted}, row.Comments[1].User)

	// Each referenced user is looked up exactly once, even when a task
	// references it in several places.
	assert.Equal(t, 3, f.users.GetByIDCalls.Count)
}

func TestListTasksUserLookupFailure(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.store.Page = &store.TaskPage{
		Tasks:      []*domain.Task{newTestTask(t)},
		Pagination: store.Pagination{Total: 1, Page: 1, Pages: 1},
	}
	infraErr := errors.New("connection refused")
	f.users.GetByIDFn = func(context.Context, uuid.UUID) (*domain.User, error) {
		return nil, infraErr
	}

	_, err := f.svc.ListTasks(context.Background(), store.TaskQuery{})
	assert.ErrorIs(t, err, infraErr)
}

func TestListTasksDifferentQueryMisses(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	ctx := context.Background()

	f.store.Page = &store.TaskPage{Pagination: store.Pagination{Total: 0, Page: 1, Pages: 0}}

	_, err := f.svc.ListTasks(ctx, store.TaskQuery{Status: domain.TaskStatusTodo})
	require.NoError(t, err)
	_, err = f.svc.ListTasks(ctx, store.TaskQuery{Status: domain.TaskStatusDone})
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.ListCalls.Count)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	t.Run("updates status and invalidates cache", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		ctx := context.Background()

		task := newTestTask(t)
		f.store.Task = task

		require.NoError(t, f.cache.Put(ctx, store.TaskQuery{}, &store.TaskListing{}))

		handler := &recordingHandler{}
		f.emitter.RegisterHandler(handler)

		updated, err := f.svc.UpdateStatus(
			ctx, task.ID, domain.TaskStatusInProgress, "", uuid.New())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
		assert.Equal(t, 1, f.store.UpdateCalls.Count)
		assert.Empty(t, updated.Comments)

		_, err = f.cache.Get(ctx, store.TaskQuery{})
		assert.ErrorIs(t, err, cache.ErrCacheMiss)

		require.Len(t, handler.events, 1)
		assert.Equal(t, events.EventTaskStatusUpdated, handler.events[0].Type)
	})

	t.Run("appends comment when provided", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		task := newTestTask(t)
		f.store.Task = task
		author := uuid.New()

		updated, err := f.svc.UpdateStatus(
			context.Background(), task.ID, domain.TaskStatusDone, "finished early", author)
		require.NoError(t, err)
		require.Len(t, updated.Comments, 1)
		assert.Equal(t, author, updated.Comments[0].UserID)
		assert.Equal(t, "finished early", updated.Comments[0].Content)
	})

	t.Run("invalid status leaves the task untouched", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.store.Task = newTestTask(t)

		_, err := f.svc.UpdateStatus(
			context.Background(), uuid.New(), "BOGUS", "", uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
		assert.Equal(t, 0, f.store.UpdateCalls.Count)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.UpdateStatus(
			context.Background(), uuid.New(), domain.TaskStatusDone, "", uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestAddSubtask(t *testing.T) {
	t.Parallel()

	t.Run("appends subtask and invalidates cache", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		ctx := context.Background()

		task := newTestTask(t)
		f.store.Task = task

		require.NoError(t, f.cache.Put(ctx, store.TaskQuery{}, &store.TaskListing{}))

		updated, err := f.svc.AddSubtask(ctx, task.ID, "Write changelog")
		require.NoError(t, err)
		require.Len(t, updated.Subtasks, 1)
		assert.Equal(t, "Write changelog", updated.Subtasks[0].Title)
		assert.False(t, updated.Subtasks[0].Completed)

		_, err = f.cache.Get(ctx, store.TaskQuery{})
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.AddSubtask(context.Background(), uuid.New(), "anything")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestGetAnalytics(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.store.AnalyticsResult = &store.TaskAnalytics{
		StatusBreakdown: []store.StatusCount{{Status: domain.TaskStatusTodo, Count: 4}},
		OverdueTasks:    2,
	}

	analytics, err := f.svc.GetAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.OverdueTasks)
	require.Len(t, analytics.StatusBreakdown, 1)
	assert.Equal(t, 4, analytics.StatusBreakdown[0].Count)
}
