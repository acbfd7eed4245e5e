package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mpetrie/taskboard-api/internal/domain"
)

// Listing defaults applied by TaskQuery.Normalize.
const (
	DefaultSortBy    = "dueDate"
	DefaultSortOrder = "asc"
	DefaultPage      = 1
	DefaultLimit     = 10
)

// TaskQuery describes the optional filters, sort and pagination of a task
// listing request. Zero values mean "not set" for the filter fields.
type TaskQuery struct {
	Status     domain.TaskStatus
	Priority   int
	AssignedTo uuid.UUID

	// DueDate filters to tasks due on that exact day (midnight to
	// midnight, UTC).
	DueDate time.Time

	// Search matches case-insensitively against title, description and tags.
	Search string

	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Normalize returns a copy of the query with defaults applied: due date
// ascending sort, page 1, 10 items per page. Out-of-range pagination
// values are clamped to the defaults.
func (q TaskQuery) Normalize() TaskQuery {
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder != "desc" {
		q.SortOrder = DefaultSortOrder
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

// Pagination describes the page position of a listing result.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// TaskPage is a single page of a filtered task listing as it comes out
// of the store, with bare user IDs. The service resolves it into a
// TaskListing before it reaches the cache or the wire.
type TaskPage struct {
	Tasks      []*domain.Task `json:"tasks"`
	Pagination Pagination     `json:"pagination"`
}

// UserRef is the display projection of a user embedded in listing rows
// in place of a bare user ID. Name and Email stay empty when the
// referenced user no longer exists.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ListedComment is a task comment with its author resolved.
type ListedComment struct {
	User      UserRef   `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListedTask is one row of the task listing: the task with its assignee,
// creator and comment authors resolved to display info. All other fields
// mirror domain.Task and keep its wire names.
type ListedTask struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    int                 `json:"priority"`
	DueDate     time.Time           `json:"dueDate"`
	AssignedTo  UserRef             `json:"assignedTo"`
	CreatedBy   UserRef             `json:"createdBy"`
	Tags        []string            `json:"tags"`
	Attachments []domain.Attachment `json:"attachments"`
	Subtasks    []domain.Subtask    `json:"subtasks"`
	Comments    []ListedComment     `json:"comments"`
	Metadata    domain.TaskMetadata `json:"metadata"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewListedTask builds the listing row for a task, resolving its user
// references against users, keyed by ID. IDs absent from the map yield a
// ref carrying only the ID.
func NewListedTask(task *domain.Task, users map[uuid.UUID]UserRef) *ListedTask {
	ref := func(id uuid.UUID) UserRef {
		if r, ok := users[id]; ok {
			return r
		}
		return UserRef{ID: id}
	}

	comments := make([]ListedComment, 0, len(task.Comments))
	for _, c := range task.Comments {
		comments = append(comments, ListedComment{
			User:      ref(c.UserID),
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		})
	}

	return &ListedTask{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		AssignedTo:  ref(task.AssignedTo),
		CreatedBy:   ref(task.CreatedBy),
		Tags:        task.Tags,
		Attachments: task.Attachments,
		Subtasks:    task.Subtasks,
		Comments:    comments,
		Metadata:    task.Metadata,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// TaskUserIDs returns the distinct user IDs a task references: assignee,
// creator and comment authors.
func TaskUserIDs(task *domain.Task) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, 2+len(task.Comments))
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(task.AssignedTo)
	add(task.CreatedBy)
	for _, c := range task.Comments {
		add(c.UserID)
	}
	return ids
}

// TaskListing is the enriched page returned by the list endpoint and
// stored as the cached listing snapshot.
type TaskListing struct {
	Tasks      []*ListedTask `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

// StatusCount is the number of tasks in one status.
type StatusCount struct {
	Status domain.TaskStatus `json:"status"`
	Count  int               `json:"count"`
}

// PriorityCount is the number of tasks at one priority level.
type PriorityCount struct {
	Priority int `json:"priority"`
	Count    int `json:"count"`
}

// UserWorkload is the per-assignee task load joined with assignee
// display info.
type UserWorkload struct {
	UserID            uuid.UUID `json:"userId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	TaskCount         int       `json:"taskCount"`
	HighPriorityTasks int       `json:"highPriorityTasks"`
}

// TaskAnalytics aggregates four independent groupings over the task store.
// No ordering guarantee across groups is provided, only correctness per
// group.
type TaskAnalytics struct {
	StatusBreakdown      []StatusCount   `json:"statusBreakdown"`
	PriorityDistribution []PriorityCount `json:"priorityDistribution"`
	UserWorkload         []UserWorkload  `json:"userWorkload"`
	OverdueTasks         int             `json:"overdueTasks"`
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrInvalidEntity if a referenced user does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists the full state of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// List executes the filtered, sorted, paginated listing query and the
	// matching total count. The query should already be normalized.
	List(ctx context.Context, query TaskQuery) (*TaskPage, error)

	// Analytics computes the four aggregate groupings in a single
	// store-native pass.
	Analytics(ctx context.Context) (*TaskAnalytics, error)
}
