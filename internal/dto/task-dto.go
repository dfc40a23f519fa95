package dto

import "time"

type CreateTaskDTO struct {
	Title        string     `json:"title" validate:"required,min=1"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Deadline     *time.Time `json:"deadline"`
	DepartmentID *uint64    `json:"department_id" validate:"omitempty,gt=0"`
	ParentID     *uint64    `json:"parent_id" validate:"omitempty,gt=0"`
}

type UpdateTaskDTO struct {
	Title        *string    `json:"title" validate:"omitempty,min=1"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Deadline     *time.Time `json:"deadline"`
	DepartmentID *uint64    `json:"department_id" validate:"omitempty,gt=0"`
}

type UpdateTaskStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress completed blocker"`
}

type TaskDTO struct {
	ID           uint64     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CreatedByID  uint64     `json:"created_by_id"`
	DepartmentID *uint64    `json:"department_id,omitempty"`
	ParentID     *uint64    `json:"parent_id,omitempty"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// TaskStatsDTO - агрегат по статусам для дашборда.
type TaskStatsDTO struct {
	Total      uint64 `json:"total"`
	Todo       uint64 `json:"todo"`
	InProgress uint64 `json:"in_progress"`
	Completed  uint64 `json:"completed"`
	Blocker    uint64 `json:"blocker"`
}
