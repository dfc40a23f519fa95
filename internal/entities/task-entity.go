package entities

import (
	"time"

	"task-tracker/pkg/types"
)

type Task struct {
	ID          uint64 `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// Status: todo | in_progress | completed | blocker.
	// Статус родительской задачи с подзадачами - производное значение,
	// его пересчитывает TaskService после каждой мутации подзадач.
	Status   string `json:"status" db:"status"`
	Priority string `json:"priority" db:"priority"`

	Deadline *time.Time `json:"deadline" db:"deadline"`

	CreatedByID  uint64  `json:"created_by_id" db:"created_by_id"`
	DepartmentID *uint64 `json:"department_id" db:"department_id"`

	// ParentID делает задачу подзадачей. Дерево хранится плоско,
	// пересчет статуса родителя требует выборки всех "соседей" по ParentID.
	ParentID *uint64 `json:"parent_id" db:"parent_id"`

	types.BaseEntity
}

// IsSubtask сообщает, является ли задача подзадачей.
func (t *Task) IsSubtask() bool {
	return t.ParentID != nil
}
