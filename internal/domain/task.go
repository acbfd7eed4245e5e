package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

// Valid task statuses.
const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

// Validate checks that the status is one of the known values.
func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
}

// TaskComplexity represents the estimated complexity of a task.
type TaskComplexity string

// Valid complexity levels.
const (
	ComplexityLow    TaskComplexity = "LOW"
	ComplexityMedium TaskComplexity = "MEDIUM"
	ComplexityHigh   TaskComplexity = "HIGH"
)

// Validate checks that the complexity is one of the known values.
func (c TaskComplexity) Validate() error {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidComplexity, string(c))
}

// Attachment is a file reference attached to a task.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Subtask is a single checklist item belonging to a task.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Comment is a user-authored note on a task.
type Comment struct {
	UserID    uuid.UUID `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskMetadata carries effort estimates and complexity classification.
type TaskMetadata struct {
	EstimatedHours float64        `json:"estimatedHours,omitempty"`
	ActualHours    float64        `json:"actualHours,omitempty"`
	Complexity     TaskComplexity `json:"complexity"`
}

// Task title length bounds.
const (
	TitleMinLength = 3
	TitleMaxLength = 100
)

// Priority bounds.
const (
	PriorityMin     = 1
	PriorityMax     = 5
	PriorityDefault = 3
)

// Task represents a unit of work assigned to a user.
// JSON field names form the wire contract of the API and must not change.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    int          `json:"priority"`
	DueDate     time.Time    `json:"dueDate"`
	AssignedTo  uuid.UUID    `json:"assignedTo"`
	CreatedBy   uuid.UUID    `json:"createdBy"`
	Tags        []string     `json:"tags"`
	Attachments []Attachment `json:"attachments"`
	Subtasks    []Subtask    `json:"subtasks"`
	Comments    []Comment    `json:"comments"`
	Metadata    TaskMetadata `json:"metadata"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// NewTask creates a new Task with the given required fields, applying the
// TODO status, default priority and MEDIUM complexity defaults.
// Returns an error if validation fails.
func NewTask(
	title, description string,
	dueDate time.Time,
	assignedTo, createdBy uuid.UUID,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      TaskStatusTodo,
		Priority:    PriorityDefault,
		DueDate:     dueDate,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		Tags:        []string{},
		Attachments: []Attachment{},
		Subtasks:    []Subtask{},
		Comments:    []Comment{},
		Metadata:    TaskMetadata{Complexity: ComplexityMedium},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}

	titleLen := len(t.Title)
	if titleLen < TitleMinLength || titleLen > TitleMaxLength {
		return fmt.Errorf("%w: title must be between %d and %d characters",
			ErrValidation, TitleMinLength, TitleMaxLength)
	}

	if t.Description == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrValidation)
	}

	if err := t.Status.Validate(); err != nil {
		return err
	}

	if t.Priority < PriorityMin || t.Priority > PriorityMax {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, t.Priority)
	}

	if t.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}

	// Every task has exactly one assignee and one creator.
	if t.AssignedTo == uuid.Nil {
		return fmt.Errorf("%w: assignee is required", ErrValidation)
	}
	if t.CreatedBy == uuid.Nil {
		return fmt.Errorf("%w: creator is required", ErrValidation)
	}

	if err := t.Metadata.Complexity.Validate(); err != nil {
		return err
	}

	for _, sub := range t.Subtasks {
		if sub.Title == "" {
			return fmt.Errorf("%w: subtask title cannot be empty", ErrValidation)
		}
	}

	for _, c := range t.Comments {
		if c.UserID == uuid.Nil {
			return fmt.Errorf("%w: comment author is required", ErrValidation)
		}
		if c.Content == "" {
			return fmt.Errorf("%w: comment content cannot be empty", ErrValidation)
		}
	}

	return nil
}

// AppendComment adds a comment authored by the given user with the current
// timestamp and touches UpdatedAt.
func (t *Task) AppendComment(userID uuid.UUID, content string) {
	now := time.Now().UTC()
	t.Comments = append(t.Comments, Comment{
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
	})
	t.UpdatedAt = now
}

// AppendSubtask adds a new incomplete subtask with the given title and
// touches UpdatedAt.
func (t *Task) AppendSubtask(title string) {
	t.Subtasks = append(t.Subtasks, Subtask{
		Title:     strings.TrimSpace(title),
		Completed: false,
	})
	t.UpdatedAt = time.Now().UTC()
}
