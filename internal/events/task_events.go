package events

import "task-tracker/internal/entities"

// TaskCreatedEvent публикуется после коммита транзакции создания задачи.
type TaskCreatedEvent struct {
	Task    *entities.Task
	ActorID uint64
}

func (e TaskCreatedEvent) Name() string {
	return "task.created"
}

// TaskStatusChangedEvent публикуется после смены статуса задачи,
// в том числе при производном пересчете статуса родителя.
type TaskStatusChangedEvent struct {
	Task      *entities.Task
	OldStatus string
	ActorID   uint64

	// Derived выставляется, когда статус изменил пересчет по подзадачам,
	// а не прямой вызов API.
	Derived bool
}

func (e TaskStatusChangedEvent) Name() string {
	return "task.status.changed"
}
