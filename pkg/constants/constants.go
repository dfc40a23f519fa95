// pkg/constants/constants.go
package constants

//============== РОЛИ ПОЛЬЗОВАТЕЛЕЙ ==============

// Роли хранятся в БД строковыми кодами и используются в бизнес-логике напрямую.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

//============== СТАТУСЫ ЗАДАЧ ==============

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocker    = "blocker"
)

func IsValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocker:
		return true
	}
	return false
}

//============== ПРИОРИТЕТЫ ЗАДАЧ ==============

const (
	TaskPriorityLow      = "low"
	TaskPriorityMedium   = "medium"
	TaskPriorityHigh     = "high"
	TaskPriorityCritical = "critical"
)

func IsValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	}
	return false
}

//============== CACHE KEYS ==============

// Префиксы для ключей в Redis/кеше.
const (
	// Кеш роли пользователя. Формат: user:role:<userID> -> строка роли.
	// Инвалидируется каждой операцией, меняющей роль.
	CacheKeyUserRole = "user:role:%d"
)
