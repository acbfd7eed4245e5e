package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mpetrie/taskboard-api/internal/api/middleware"
	"github.com/mpetrie/taskboard-api/internal/api/shared"
	"github.com/mpetrie/taskboard-api/internal/domain"
	"github.com/mpetrie/taskboard-api/internal/service"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// TaskHandler handles task-related API requests.
type TaskHandler struct {
	taskService *service.TaskService
	validator   *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
	}
}

// CreateTask handles POST /api/tasks.
// The authenticated session user becomes the task's creator.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication failed")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error")
		return
	}

	assignedTo, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignee ID")
		return
	}

	task, err := domain.NewTask(req.Title, req.Description, req.DueDate, assignedTo, userID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	if req.Priority != 0 {
		task.Priority = req.Priority
	}
	if len(req.Tags) > 0 {
		task.Tags = req.Tags
	}
	if req.Metadata != nil {
		task.Metadata.EstimatedHours = req.Metadata.EstimatedHours
		task.Metadata.ActualHours = req.Metadata.ActualHours
		if req.Metadata.Complexity != "" {
			task.Metadata.Complexity = domain.TaskComplexity(req.Metadata.Complexity)
		}
	}
	if err := task.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	created, err := h.taskService.CreateTask(r.Context(), task)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, created)
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query, err := parseTaskQuery(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	page, err := h.taskService.ListTasks(r.Context(), query)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), "Error fetching tasks", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// GetAnalytics handles GET /api/tasks/analytics.
func (h *TaskHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.taskService.GetAnalytics(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), "Error generating analytics", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, analytics)
}

// UpdateStatus handles PATCH /api/tasks/{taskId}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication failed")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error")
		return
	}

	task, err := h.taskService.UpdateStatus(
		r.Context(), taskID, domain.TaskStatus(req.Status), req.Comment, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// AddSubtask handles POST /api/tasks/{taskId}/subtasks.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req AddSubtaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error")
		return
	}

	task, err := h.taskService.AddSubtask(r.Context(), taskID, req.Title)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// parseTaskQuery reads the listing filters from the query string.
// Unknown sort fields fall back to the default; malformed enum, numeric
// or date values are rejected.
func parseTaskQuery(r *http.Request) (store.TaskQuery, error) {
	q := r.URL.Query()
	query := store.TaskQuery{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	if v := q.Get("status"); v != "" {
		status := domain.TaskStatus(v)
		if err := status.Validate(); err != nil {
			return store.TaskQuery{}, err
		}
		query.Status = status
	}
	if v := q.Get("priority"); v != "" {
		priority, err := strconv.Atoi(v)
		if err != nil {
			return store.TaskQuery{}, err
		}
		query.Priority = priority
	}
	if v := q.Get("assignedTo"); v != "" {
		assignedTo, err := uuid.Parse(v)
		if err != nil {
			return store.TaskQuery{}, err
		}
		query.AssignedTo = assignedTo
	}
	if v := q.Get("dueDate"); v != "" {
		dueDate, err := parseDay(v)
		if err != nil {
			return store.TaskQuery{}, err
		}
		query.DueDate = dueDate
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return store.TaskQuery{}, err
		}
		query.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return store.TaskQuery{}, err
		}
		query.Limit = limit
	}

	return query, nil
}

// parseDay accepts either a bare date or a full RFC 3339 timestamp.
func parseDay(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
