package api

import "time"

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginResponse defines the successful response for the login endpoint.
type LoginResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a generic success message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// TaskMetadataRequest carries the optional metadata block of a task
// creation request.
type TaskMetadataRequest struct {
	EstimatedHours float64 `json:"estimatedHours" validate:"omitempty,gte=0"`
	ActualHours    float64 `json:"actualHours"    validate:"omitempty,gte=0"`
	Complexity     string  `json:"complexity"     validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// CreateTaskRequest defines the payload for the task creation endpoint.
// The creator is never part of the payload; it is always the
// authenticated session user.
type CreateTaskRequest struct {
	Title       string               `json:"title"       validate:"required,min=3,max=100"`
	Description string               `json:"description" validate:"required"`
	DueDate     time.Time            `json:"dueDate"     validate:"required"`
	AssignedTo  string               `json:"assignedTo"  validate:"required,uuid"`
	Priority    int                  `json:"priority"    validate:"omitempty,min=1,max=5"`
	Tags        []string             `json:"tags"        validate:"omitempty,dive,min=1"`
	Metadata    *TaskMetadataRequest `json:"metadata"    validate:"omitempty"`
}

// UpdateStatusRequest defines the payload for the status update endpoint.
// The status value itself is validated against the domain enum by the
// task service.
type UpdateStatusRequest struct {
	Status  string `json:"status"  validate:"required"`
	Comment string `json:"comment" validate:"omitempty,min=1"`
}

// AddSubtaskRequest defines the payload for the subtask endpoint.
type AddSubtaskRequest struct {
	Title string `json:"title" validate:"required,min=1"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
}
