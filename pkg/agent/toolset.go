package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/repository/specification"
	"ai-taskchat-be/internal/repository/unitofwork"
	"ai-taskchat-be/pkg/llm"

	"github.com/go-playground/validator/v10"
)

const (
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

// ToolSet binds the task tools to one owner for the duration of a single
// chat turn. The model never sees or supplies the owner id; every handler
// scopes its queries with the id captured here.
type ToolSet struct {
	userId   string
	factory  unitofwork.RepositoryFactory
	validate *validator.Validate
}

func NewToolSet(userId string, factory unitofwork.RepositoryFactory) *ToolSet {
	return &ToolSet{
		userId:   userId,
		factory:  factory,
		validate: validator.New(),
	}
}

// ToolFailure is the structured failure payload. Handlers return it as data;
// a tool invocation never surfaces an error to the orchestration loop.
type ToolFailure struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func failure(code, format string, args ...interface{}) ToolFailure {
	return ToolFailure{
		Success:   false,
		ErrorCode: code,
		Message:   fmt.Sprintf(format, args...),
	}
}

// --- Argument structs ---

type AddTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description" validate:"max=1000"`
	DueDate     string `json:"due_date"`
}

type ListTasksArgs struct {
	Status string `json:"status" validate:"omitempty,oneof=all pending completed"`
	Search string `json:"search" validate:"max=200"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type CompleteTaskArgs struct {
	TaskId int64 `json:"task_id" validate:"required"`
}

type DeleteTaskArgs struct {
	TaskId int64 `json:"task_id" validate:"required"`
}

type UpdateTaskArgs struct {
	TaskId      int64   `json:"task_id" validate:"required"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
}

// --- Result structs ---

type TaskSummary struct {
	TaskId      int64   `json:"task_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at"`
}

type TaskCreatedResult struct {
	Success     bool   `json:"success"`
	TaskId      int64  `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

type TaskListResult struct {
	Success bool          `json:"success"`
	Tasks   []TaskSummary `json:"tasks"`
	Count   int           `json:"count"`
	Message string        `json:"message"`
}

type TaskCompletedResult struct {
	Success     bool   `json:"success"`
	TaskId      int64  `json:"task_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at,omitempty"`
	Message     string `json:"message"`
}

type TaskDeletedResult struct {
	Success bool   `json:"success"`
	TaskId  int64  `json:"task_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type TaskUpdatedResult struct {
	Success     bool   `json:"success"`
	TaskId      int64  `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
	Message     string `json:"message"`
}

// --- Tool table ---

type toolEntry struct {
	definition llm.ToolDefinition
	handler    func(t *ToolSet, ctx context.Context, raw json.RawMessage) interface{}
}

var toolTable = map[string]toolEntry{
	"add_task": {
		definition: llm.ToolDefinition{
			Name:        "add_task",
			Description: "Create a new todo task for the user. Title is required; description and due_date (ISO format YYYY-MM-DD) are optional.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":       map[string]interface{}{"type": "string", "description": "The task title (required)."},
					"description": map[string]interface{}{"type": "string", "description": "Optional task description."},
					"due_date":    map[string]interface{}{"type": "string", "description": "Optional due date in ISO format (YYYY-MM-DD)."},
				},
				"required": []string{"title"},
			},
		},
		handler: (*ToolSet).addTask,
	},
	"list_tasks": {
		definition: llm.ToolDefinition{
			Name:        "list_tasks",
			Description: "List the user's todo tasks, optionally filtered by status or a free-text search over title and description.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"status": map[string]interface{}{"type": "string", "enum": []string{"all", "pending", "completed"}, "description": "Filter by status."},
					"search": map[string]interface{}{"type": "string", "description": "Optional search text matched against title and description."},
					"limit":  map[string]interface{}{"type": "integer", "description": "Optional maximum number of tasks to return (1-100)."},
				},
			},
		},
		handler: (*ToolSet).listTasks,
	},
	"complete_task": {
		definition: llm.ToolDefinition{
			Name:        "complete_task",
			Description: "Mark a task as completed.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id": map[string]interface{}{"type": "integer", "description": "The ID of the task to complete."},
				},
				"required": []string{"task_id"},
			},
		},
		handler: (*ToolSet).completeTask,
	},
	"delete_task": {
		definition: llm.ToolDefinition{
			Name:        "delete_task",
			Description: "Delete a task (soft delete).",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id": map[string]interface{}{"type": "integer", "description": "The ID of the task to delete."},
				},
				"required": []string{"task_id"},
			},
		},
		handler: (*ToolSet).deleteTask,
	},
	"update_task": {
		definition: llm.ToolDefinition{
			Name:        "update_task",
			Description: "Update an existing task's title, description, or due date. At least one field besides task_id must be provided.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id":     map[string]interface{}{"type": "integer", "description": "The ID of the task to update."},
					"title":       map[string]interface{}{"type": "string", "description": "New title (optional)."},
					"description": map[string]interface{}{"type": "string", "description": "New description (optional)."},
					"due_date":    map[string]interface{}{"type": "string", "description": "New due date in ISO format YYYY-MM-DD (optional)."},
				},
				"required": []string{"task_id"},
			},
		},
		handler: (*ToolSet).updateTask,
	},
}

// Definitions returns the tool schemas advertised to the reasoning engine,
// in a stable order.
func (t *ToolSet) Definitions() []llm.ToolDefinition {
	names := []string{"add_task", "list_tasks", "complete_task", "delete_task", "update_task"}
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, toolTable[name].definition)
	}
	return defs
}

// Execute runs one tool by name and returns its payload as a generic map,
// the shape in which it is both fed back to the model and persisted on the
// assistant message. Failures of any kind come back as data.
func (t *ToolSet) Execute(ctx context.Context, name string, raw json.RawMessage) (result map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			result = toMap(failure(ErrorCodeInternal, "tool %s failed unexpectedly", name))
		}
	}()

	entry, ok := toolTable[name]
	if !ok {
		return toMap(failure(ErrorCodeValidation, "Unknown tool: %s", name))
	}
	return toMap(entry.handler(t, ctx, raw))
}

func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{
			"success":    false,
			"error_code": ErrorCodeInternal,
			"message":    "failed to encode tool result",
		}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{
			"success":    false,
			"error_code": ErrorCodeInternal,
			"message":    "failed to decode tool result",
		}
	}
	return out
}

// parseDueDate accepts full ISO timestamps and bare dates.
func parseDueDate(value string) (*time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid date format: %s", value)
}

// --- Handlers ---

func (t *ToolSet) addTask(ctx context.Context, raw json.RawMessage) interface{} {
	var args AddTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(ErrorCodeValidation, "Malformed arguments: %v", err)
	}
	args.Title = strings.TrimSpace(args.Title)
	args.Description = strings.TrimSpace(args.Description)
	if args.Title == "" || len(args.Title) > 200 {
		return failure(ErrorCodeValidation, "Title must be between 1 and 200 characters.")
	}
	if err := t.validate.Struct(args); err != nil {
		return failure(ErrorCodeValidation, "Invalid arguments: %v", err)
	}

	var dueDate *time.Time
	if args.DueDate != "" {
		parsed, err := parseDueDate(args.DueDate)
		if err != nil {
			return failure(ErrorCodeValidation, "Invalid date format: %s. Use YYYY-MM-DD.", args.DueDate)
		}
		dueDate = parsed
	}

	task := &entity.Task{
		UserId:      t.userId,
		Title:       args.Title,
		Description: args.Description,
		DueDate:     dueDate,
	}
	uow := t.factory.NewUnitOfWork(ctx)
	if err := uow.TaskRepository().Create(ctx, task); err != nil {
		return failure(ErrorCodeInternal, "Could not create task.")
	}

	return TaskCreatedResult{
		Success:     true,
		TaskId:      task.Id,
		Title:       task.Title,
		Description: task.Description,
		Status:      "pending",
		Message:     fmt.Sprintf("Task '%s' created successfully.", task.Title),
	}
}

func (t *ToolSet) listTasks(ctx context.Context, raw json.RawMessage) interface{} {
	var args ListTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(ErrorCodeValidation, "Malformed arguments: %v", err)
	}
	if args.Status == "" {
		args.Status = "all"
	}
	if err := t.validate.Struct(args); err != nil {
		return failure(ErrorCodeValidation, "Invalid arguments: %v", err)
	}

	specs := []specification.Specification{
		specification.OwnedBy{UserID: t.userId},
	}
	switch args.Status {
	case "pending":
		specs = append(specs, specification.CompletedIs{Completed: false})
	case "completed":
		specs = append(specs, specification.CompletedIs{Completed: true})
	}
	if args.Search != "" {
		specs = append(specs, specification.TaskSearch{Query: args.Search})
	}
	specs = append(specs, specification.OrderBy{Field: "created_at", Desc: true})
	if args.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: args.Limit})
	}

	uow := t.factory.NewUnitOfWork(ctx)
	tasks, err := uow.TaskRepository().FindAll(ctx, specs...)
	if err != nil {
		return failure(ErrorCodeInternal, "Could not list tasks.")
	}

	summaries := make([]TaskSummary, len(tasks))
	for i, task := range tasks {
		var dueDate *string
		if task.DueDate != nil {
			formatted := task.DueDate.Format(time.RFC3339)
			dueDate = &formatted
		}
		summaries[i] = TaskSummary{
			TaskId:      task.Id,
			Title:       task.Title,
			Description: task.Description,
			Completed:   task.Completed,
			DueDate:     dueDate,
			CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		}
	}

	return TaskListResult{
		Success: true,
		Tasks:   summaries,
		Count:   len(summaries),
		Message: fmt.Sprintf("Found %d task(s).", len(summaries)),
	}
}

// findOwnedTask resolves a task id under the owner filter. Absent, foreign
// and soft-deleted tasks are indistinguishable to the caller.
func (t *ToolSet) findOwnedTask(ctx context.Context, uow unitofwork.UnitOfWork, taskId int64) (*entity.Task, error) {
	return uow.TaskRepository().FindOne(ctx,
		specification.ByID{ID: taskId},
		specification.OwnedBy{UserID: t.userId},
	)
}

func (t *ToolSet) completeTask(ctx context.Context, raw json.RawMessage) interface{} {
	var args CompleteTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(ErrorCodeValidation, "Malformed arguments: %v", err)
	}
	if err := t.validate.Struct(args); err != nil {
		return failure(ErrorCodeValidation, "Invalid arguments: %v", err)
	}

	uow := t.factory.NewUnitOfWork(ctx)
	task, err := t.findOwnedTask(ctx, uow, args.TaskId)
	if err != nil {
		return failure(ErrorCodeInternal, "Could not look up task.")
	}
	if task == nil {
		return failure(ErrorCodeNotFound, "Task not found")
	}

	if task.Completed {
		return TaskCompletedResult{
			Success: true,
			TaskId:  task.Id,
			Title:   task.Title,
			Status:  "completed",
			Message: fmt.Sprintf("Task '%s' is already completed.", task.Title),
		}
	}

	task.Completed = true
	if err := uow.TaskRepository().Update(ctx, task); err != nil {
		return failure(ErrorCodeInternal, "Could not update task.")
	}

	completedAt := time.Now().UTC().Format(time.RFC3339)
	if task.UpdatedAt != nil {
		completedAt = task.UpdatedAt.Format(time.RFC3339)
	}
	return TaskCompletedResult{
		Success:     true,
		TaskId:      task.Id,
		Title:       task.Title,
		Status:      "completed",
		CompletedAt: completedAt,
		Message:     fmt.Sprintf("Task '%s' marked as completed.", task.Title),
	}
}

func (t *ToolSet) deleteTask(ctx context.Context, raw json.RawMessage) interface{} {
	var args DeleteTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(ErrorCodeValidation, "Malformed arguments: %v", err)
	}
	if err := t.validate.Struct(args); err != nil {
		return failure(ErrorCodeValidation, "Invalid arguments: %v", err)
	}

	uow := t.factory.NewUnitOfWork(ctx)
	task, err := t.findOwnedTask(ctx, uow, args.TaskId)
	if err != nil {
		return failure(ErrorCodeInternal, "Could not look up task.")
	}
	if task == nil {
		return failure(ErrorCodeNotFound, "Task not found")
	}

	if err := uow.TaskRepository().SoftDelete(ctx, task.Id); err != nil {
		return failure(ErrorCodeInternal, "Could not delete task.")
	}

	return TaskDeletedResult{
		Success: true,
		TaskId:  task.Id,
		Title:   task.Title,
		Message: fmt.Sprintf("Task '%s' deleted successfully.", task.Title),
	}
}

func (t *ToolSet) updateTask(ctx context.Context, raw json.RawMessage) interface{} {
	var args UpdateTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return failure(ErrorCodeValidation, "Malformed arguments: %v", err)
	}
	if err := t.validate.Struct(args); err != nil {
		return failure(ErrorCodeValidation, "Invalid arguments: %v", err)
	}
	if args.Title == nil && args.Description == nil && args.DueDate == nil {
		return failure(ErrorCodeValidation, "At least one field (title, description, or due_date) must be provided.")
	}

	uow := t.factory.NewUnitOfWork(ctx)
	task, err := t.findOwnedTask(ctx, uow, args.TaskId)
	if err != nil {
		return failure(ErrorCodeInternal, "Could not look up task.")
	}
	if task == nil {
		return failure(ErrorCodeNotFound, "Task not found")
	}

	if args.Title != nil {
		title := strings.TrimSpace(*args.Title)
		if title == "" || len(title) > 200 {
			return failure(ErrorCodeValidation, "Title must be between 1 and 200 characters.")
		}
		task.Title = title
	}
	if args.Description != nil {
		description := strings.TrimSpace(*args.Description)
		if len(description) > 1000 {
			return failure(ErrorCodeValidation, "Description must be at most 1000 characters.")
		}
		task.Description = description
	}
	if args.DueDate != nil {
		parsed, err := parseDueDate(*args.DueDate)
		if err != nil {
			return failure(ErrorCodeValidation, "Invalid date format: %s. Use YYYY-MM-DD.", *args.DueDate)
		}
		task.DueDate = parsed
	}

	if err := uow.TaskRepository().Update(ctx, task); err != nil {
		return failure(ErrorCodeInternal, "Could not update task.")
	}

	updatedAt := time.Now().UTC().Format(time.RFC3339)
	if task.UpdatedAt != nil {
		updatedAt = task.UpdatedAt.Format(time.RFC3339)
	}
	return TaskUpdatedResult{
		Success:     true,
		TaskId:      task.Id,
		Title:       task.Title,
		Description: task.Description,
		UpdatedAt:   updatedAt,
		Message:     fmt.Sprintf("Task '%s' updated successfully.", task.Title),
	}
}
