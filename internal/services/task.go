package services

import (
	"context"
	"errors"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	"task-tracker/internal/events"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/constants"
	"task-tracker/pkg/eventbus"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"
	"task-tracker/pkg/utils"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TaskServiceInterface interface {
	GetTasks(ctx context.Context, filter types.Filter) ([]dto.TaskDTO, uint64, error)
	GetTaskStats(ctx context.Context) (*dto.TaskStatsDTO, error)
	FindTask(ctx context.Context, id uint64) (*dto.TaskDTO, error)
	CreateTask(ctx context.Context, payload dto.CreateTaskDTO) (*dto.TaskDTO, error)
	UpdateTask(ctx context.Context, id uint64, payload dto.UpdateTaskDTO) (*dto.TaskDTO, error)
	UpdateTaskStatus(ctx context.Context, id uint64, payload dto.UpdateTaskStatusDTO) (*dto.TaskDTO, error)
}

type TaskService struct {
	txManager repositories.TxManagerInterface
	taskRepo  repositories.TaskRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	bus       *eventbus.Bus
	logger    *zap.Logger
}

func NewTaskService(
	txManager repositories.TxManagerInterface,
	taskRepo repositories.TaskRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	bus *eventbus.Bus,
	logger *zap.Logger,
) TaskServiceInterface {
	return &TaskService{
		txManager: txManager,
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		bus:       bus,
		logger:    logger,
	}
}

func mapTaskToDTO(t *entities.Task) *dto.TaskDTO {
	out := &dto.TaskDTO{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		Deadline:     t.Deadline,
		CreatedByID:  t.CreatedByID,
		DepartmentID: t.DepartmentID,
		ParentID:     t.ParentID,
	}
	if t.CreatedAt != nil {
		out.CreatedAt = t.CreatedAt.Format(timeFormat)
	}
	if t.UpdatedAt != nil {
		out.UpdatedAt = t.UpdatedAt.Format(timeFormat)
	}
	return out
}

// requesterVisibility строит предикат видимости для текущего пользователя
// запроса. Роль берется из контекста, домашний департамент из БД.
func (s *TaskService) requesterVisibility(ctx context.Context) (sq.Sqlizer, uint64, string, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, 0, "", err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, 0, "", err
	}

	var homeDepartmentID *uint64
	if role == constants.RoleManager {
		user, err := s.userRepo.FindUser(ctx, userID)
		if err != nil {
			return nil, 0, "", err
		}
		homeDepartmentID = user.DepartmentID
	}
	return BuildTaskVisibility(role, userID, homeDepartmentID), userID, role, nil
}

func (s *TaskService) GetTasks(ctx context.Context, filter types.Filter) ([]dto.TaskDTO, uint64, error) {
	visibility, _, _, err := s.requesterVisibility(ctx)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.taskRepo.GetTasks(ctx, filter, visibility)
	if err != nil {
		s.logger.Error("Ошибка при получении списка задач", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.TaskDTO, 0, len(tasks))
	for i := range tasks {
		result = append(result, *mapTaskToDTO(&tasks[i]))
	}
	return result, total, nil
}

func (s *TaskService) GetTaskStats(ctx context.Context) (*dto.TaskStatsDTO, error) {
	visibility, _, _, err := s.requesterVisibility(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.taskRepo.GetTaskStats(ctx, visibility)
	if err != nil {
		s.logger.Error("Ошибка при получении статистики задач", zap.Error(err))
		return nil, err
	}
	return stats, nil
}

// canAccessTask повторяет предикат видимости для единичной задачи.
func canAccessTask(task *entities.Task, role string, userID uint64, homeDepartmentID *uint64) bool {
	switch role {
	case constants.RoleAdmin:
		return true
	case constants.RoleManager:
		return homeDepartmentID != nil && task.DepartmentID != nil && *task.DepartmentID == *homeDepartmentID
	default:
		return task.CreatedByID == userID
	}
}

func (s *TaskService) FindTask(ctx context.Context, id uint64) (*dto.TaskDTO, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}

	var homeDepartmentID *uint64
	if role == constants.RoleManager {
		user, err := s.userRepo.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		homeDepartmentID = user.DepartmentID
	}
	if !canAccessTask(task, role, userID, homeDepartmentID) {
		return nil, apperrors.NewAuthorizationError("нет доступа к этой задаче")
	}
	return mapTaskToDTO(task), nil
}

func (s *TaskService) CreateTask(ctx context.Context, payload dto.CreateTaskDTO) (*dto.TaskDTO, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	priority := payload.Priority
	if priority == "" {
		priority = constants.TaskPriorityMedium
	}

	entity := entities.Task{
		Title:        payload.Title,
		Description:  payload.Description,
		Status:       constants.TaskStatusTodo,
		Priority:     priority,
		Deadline:     payload.Deadline,
		CreatedByID:  userID,
		DepartmentID: payload.DepartmentID,
		ParentID:     payload.ParentID,
	}

	// Задача сотрудника привязывается к его домашнему департаменту,
	// явно указанный department_id доступен менеджерам и администраторам.
	if entity.DepartmentID == nil || role == constants.RoleEmployee {
		user, err := s.userRepo.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		entity.DepartmentID = user.DepartmentID
	}

	var created *entities.Task
	var derivedEvents []events.TaskStatusChangedEvent
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if payload.ParentID != nil {
			if _, err := s.taskRepo.FindTaskInTx(ctx, tx, *payload.ParentID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewNotFoundError("родительская задача не найдена")
				}
				return err
			}
		}

		task, err := s.taskRepo.CreateTaskInTx(ctx, tx, entity)
		if err != nil {
			return err
		}
		created = task

		if task.ParentID != nil {
			derivedEvents, err = s.recomputeParentStatusInTx(ctx, tx, *task.ParentID, userID)
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка при создании задачи", zap.Error(err))
		return nil, err
	}

	s.bus.Publish(ctx, events.TaskCreatedEvent{Task: created, ActorID: userID})
	for _, e := range derivedEvents {
		s.bus.Publish(ctx, e)
	}
	s.logger.Info("Задача создана", zap.Uint64("id", created.ID), zap.Uint64("creatorID", userID))
	return mapTaskToDTO(created), nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uint64, payload dto.UpdateTaskDTO) (*dto.TaskDTO, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.taskRepo.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	// Поля правит владелец, менеджеры и администраторы.
	if role == constants.RoleEmployee && current.CreatedByID != userID {
		return nil, apperrors.NewAuthorizationError("нет доступа к этой задаче")
	}

	entity := *current
	if payload.Title != nil {
		entity.Title = *payload.Title
	}
	if payload.Description != nil {
		entity.Description = *payload.Description
	}
	if payload.Priority != nil {
		entity.Priority = *payload.Priority
	}
	if payload.Deadline != nil {
		entity.Deadline = payload.Deadline
	}
	if payload.DepartmentID != nil {
		entity.DepartmentID = payload.DepartmentID
	}

	updated, err := s.taskRepo.UpdateTask(ctx, entity)
	if err != nil {
		s.logger.Error("Ошибка при обновлении задачи", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return mapTaskToDTO(updated), nil
}

func (s *TaskService) UpdateTaskStatus(ctx context.Context, id uint64, payload dto.UpdateTaskStatusDTO) (*dto.TaskDTO, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if !constants.IsValidTaskStatus(payload.Status) {
		return nil, apperrors.NewHttpError(400, "недопустимый статус задачи", nil, nil)
	}

	var updated *entities.Task
	var oldStatus string
	var derivedEvents []events.TaskStatusChangedEvent
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		task, err := s.taskRepo.FindTaskInTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("задача не найдена")
			}
			return err
		}
		if role == constants.RoleEmployee && task.CreatedByID != userID {
			return apperrors.NewAuthorizationError("нет доступа к этой задаче")
		}

		oldStatus = task.Status
		if err := s.taskRepo.UpdateTaskStatusInTx(ctx, tx, id, payload.Status); err != nil {
			return err
		}
		task.Status = payload.Status
		updated = task

		// Смена статуса подзадачи пересчитывает статус родителя
		// в той же транзакции.
		if task.ParentID != nil {
			derivedEvents, err = s.recomputeParentStatusInTx(ctx, tx, *task.ParentID, userID)
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка при смене статуса задачи", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	if oldStatus != updated.Status {
		s.bus.Publish(ctx, events.TaskStatusChangedEvent{Task: updated, OldStatus: oldStatus, ActorID: userID})
	}
	for _, e := range derivedEvents {
		s.bus.Publish(ctx, e)
	}
	return mapTaskToDTO(updated), nil
}

// deriveParentStatus вычисляет статус родителя по подзадачам: completed,
// когда завершены все; in_progress, когда завершена часть; иначе todo.
// Статус blocker у подзадачи считается незавершенным и на родителя сам
// по себе не влияет.
func deriveParentStatus(subtasks []entities.Task) string {
	completed := 0
	for i := range subtasks {
		if subtasks[i].Status == constants.TaskStatusCompleted {
			completed++
		}
	}
	switch {
	case completed == len(subtasks):
		return constants.TaskStatusCompleted
	case completed > 0:
		return constants.TaskStatusInProgress
	default:
		return constants.TaskStatusTodo
	}
}

// recomputeParentStatusInTx синхронизирует производный статус родителя.
// Задача без подзадач не трогается. Это не пользовательский переход,
// отдельной авторизации здесь нет: вызвавшая мутация уже авторизована.
func (s *TaskService) recomputeParentStatusInTx(ctx context.Context, tx pgx.Tx, parentID uint64, actorID uint64) ([]events.TaskStatusChangedEvent, error) {
	subtasks, err := s.taskRepo.GetSubtasksInTx(ctx, tx, parentID)
	if err != nil {
		return nil, err
	}
	if len(subtasks) == 0 {
		return nil, nil
	}

	parent, err := s.taskRepo.FindTaskInTx(ctx, tx, parentID)
	if err != nil {
		return nil, err
	}

	target := deriveParentStatus(subtasks)
	if parent.Status == target {
		return nil, nil
	}

	if err := s.taskRepo.UpdateTaskStatusInTx(ctx, tx, parentID, target); err != nil {
		return nil, err
	}

	oldStatus := parent.Status
	parent.Status = target
	s.logger.Debug("Пересчитан статус родительской задачи",
		zap.Uint64("parentID", parentID),
		zap.String("status", target))
	return []events.TaskStatusChangedEvent{{Task: parent, OldStatus: oldStatus, ActorID: actorID, Derived: true}}, nil
}
