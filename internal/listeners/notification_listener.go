package listeners

import (
	"context"

	"go.uber.org/zap"

	"task-tracker/internal/events"
	"task-tracker/pkg/eventbus"
)

// NotificationListener слушает события задач и фиксирует их в журнале.
// Сама доставка уведомлений (почта, мессенджеры) остается за внешними
// системами, этот слушатель является точкой подключения для них.
type NotificationListener struct {
	logger *zap.Logger
}

func NewNotificationListener(logger *zap.Logger) *NotificationListener {
	return &NotificationListener{logger: logger}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe("task.created", l.handleTaskCreated)
	bus.Subscribe("task.status.changed", l.handleTaskStatusChanged)
	l.logger.Info("NotificationListener подписан на события задач")
}

func (l *NotificationListener) handleTaskCreated(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TaskCreatedEvent)
	if !ok || e.Task == nil {
		return nil
	}
	l.logger.Info("Создана задача",
		zap.Uint64("taskID", e.Task.ID),
		zap.String("title", e.Task.Title),
		zap.Uint64("actorID", e.ActorID))
	return nil
}

func (l *NotificationListener) handleTaskStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TaskStatusChangedEvent)
	if !ok || e.Task == nil {
		return nil
	}
	l.logger.Info("Изменен статус задачи",
		zap.Uint64("taskID", e.Task.ID),
		zap.String("oldStatus", e.OldStatus),
		zap.String("newStatus", e.Task.Status),
		zap.Bool("derived", e.Derived),
		zap.Uint64("actorID", e.ActorID))
	return nil
}
