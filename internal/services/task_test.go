package services

import (
	"context"
	"testing"

	"task-tracker/internal/dto"
	"task-tracker/pkg/constants"
	"task-tracker/pkg/contextkeys"
	"task-tracker/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTaskService(store *memStore) TaskServiceInterface {
	return NewTaskService(&fakeTxManager{}, store, store, eventbus.New(zap.NewNop()), zap.NewNop())
}

func ctxWithUser(userID uint64, role string) context.Context {
	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, userID)
	return context.WithValue(ctx, contextkeys.UserRoleKey, role)
}

func TestParentStatusPartiallyCompleted(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Администратор", constants.RoleAdmin, nil)
	parent := store.addTask("Миграция", constants.TaskStatusTodo, admin.ID, nil, nil)
	store.addTask("Выгрузка", constants.TaskStatusCompleted, admin.ID, nil, &parent.ID)
	store.addTask("Интеграция", constants.TaskStatusCompleted, admin.ID, nil, &parent.ID)
	sub := store.addTask("Обучение", constants.TaskStatusInProgress, admin.ID, nil, &parent.ID)
	svc := newTaskService(store)

	_, err := svc.UpdateTaskStatus(ctxWithUser(admin.ID, constants.RoleAdmin), sub.ID,
		dto.UpdateTaskStatusDTO{Status: constants.TaskStatusTodo})
	require.NoError(t, err)

	// [completed, completed, todo] -> in_progress
	assert.Equal(t, constants.TaskStatusInProgress, store.tasks[parent.ID].Status)
}

func TestParentStatusAllCompleted(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Администратор", constants.RoleAdmin, nil)
	parent := store.addTask("Миграция", constants.TaskStatusInProgress, admin.ID, nil, nil)
	store.addTask("Выгрузка", constants.TaskStatusCompleted, admin.ID, nil, &parent.ID)
	sub := store.addTask("Интеграция", constants.TaskStatusInProgress, admin.ID, nil, &parent.ID)
	svc := newTaskService(store)

	_, err := svc.UpdateTaskStatus(ctxWithUser(admin.ID, constants.RoleAdmin), sub.ID,
		dto.UpdateTaskStatusDTO{Status: constants.TaskStatusCompleted})
	require.NoError(t, err)

	assert.Equal(t, constants.TaskStatusCompleted, store.tasks[parent.ID].Status)
}

// Подзадача в статусе blocker считается незавершенной и сама по себе
// не поднимает и не меняет статус родителя: [blocker, todo] -> todo.
func TestBlockerSubtaskDoesNotBubbleUp(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Администратор", constants.RoleAdmin, nil)
	parent := store.addTask("Миграция", constants.TaskStatusInProgress, admin.ID, nil, nil)
	sub := store.addTask("Выгрузка", constants.TaskStatusTodo, admin.ID, nil, &parent.ID)
	store.addTask("Интеграция", constants.TaskStatusTodo, admin.ID, nil, &parent.ID)
	svc := newTaskService(store)

	_, err := svc.UpdateTaskStatus(ctxWithUser(admin.ID, constants.RoleAdmin), sub.ID,
		dto.UpdateTaskStatusDTO{Status: constants.TaskStatusBlocker})
	require.NoError(t, err)

	assert.Equal(t, constants.TaskStatusTodo, store.tasks[parent.ID].Status)
	assert.Equal(t, constants.TaskStatusBlocker, store.tasks[sub.ID].Status)
}

func TestTaskWithoutSubtasksKeepsDirectStatus(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Администратор", constants.RoleAdmin, nil)
	task := store.addTask("Одиночная", constants.TaskStatusTodo, admin.ID, nil, nil)
	svc := newTaskService(store)

	_, err := svc.UpdateTaskStatus(ctxWithUser(admin.ID, constants.RoleAdmin), task.ID,
		dto.UpdateTaskStatusDTO{Status: constants.TaskStatusBlocker})
	require.NoError(t, err)

	// Пересчет задач без подзадач не трогает, статус задан напрямую.
	assert.Equal(t, constants.TaskStatusBlocker, store.tasks[task.ID].Status)
}

func TestCreateSubtaskRecomputesParent(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Администратор", constants.RoleAdmin, nil)
	parent := store.addTask("Миграция", constants.TaskStatusCompleted, admin.ID, nil, nil)
	store.addTask("Выгрузка", constants.TaskStatusCompleted, admin.ID, nil, &parent.ID)
	svc := newTaskService(store)

	created, err := svc.CreateTask(ctxWithUser(admin.ID, constants.RoleAdmin), dto.CreateTaskDTO{
		Title:    "Обучение сотрудников",
		ParentID: &parent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusTodo, created.Status)

	// Новая незавершенная подзадача переводит родителя из completed.
	assert.Equal(t, constants.TaskStatusInProgress, store.tasks[parent.ID].Status)
}

func TestEmployeeCannotTouchForeignTask(t *testing.T) {
	store := newMemStore()
	owner := store.addUser("Владелец", constants.RoleEmployee, nil)
	other := store.addUser("Чужой", constants.RoleEmployee, nil)
	task := store.addTask("Задача", constants.TaskStatusTodo, owner.ID, nil, nil)
	svc := newTaskService(store)

	_, err := svc.UpdateTaskStatus(ctxWithUser(other.ID, constants.RoleEmployee), task.ID,
		dto.UpdateTaskStatusDTO{Status: constants.TaskStatusCompleted})
	require.Error(t, err)
	assert.Equal(t, constants.TaskStatusTodo, store.tasks[task.ID].Status)
}

func TestCreateTaskInheritsEmployeeHomeDepartment(t *testing.T) {
	store := newMemStore()
	dept := store.addDepartment("Департамент ИТ", nil)
	employee := store.addUser("Шарипов", constants.RoleEmployee, &dept.ID)
	svc := newTaskService(store)

	created, err := svc.CreateTask(ctxWithUser(employee.ID, constants.RoleEmployee), dto.CreateTaskDTO{
		Title: "Настроить VPN",
	})
	require.NoError(t, err)
	require.NotNil(t, created.DepartmentID)
	assert.Equal(t, dept.ID, *created.DepartmentID)
	assert.Equal(t, employee.ID, created.CreatedByID)
}
