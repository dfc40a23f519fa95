package services

import (
	"context"
	"testing"

	"task-tracker/internal/dto"
	"task-tracker/pkg/constants"
	apperrors "task-tracker/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDepartmentService(store *memStore) DepartmentServiceInterface {
	return NewDepartmentService(&fakeTxManager{}, store, store, newFakeCache(), zap.NewNop())
}

func TestCreateDepartmentAssignsManager(t *testing.T) {
	store := newMemStore()
	user := store.addUser("Рахимов", constants.RoleEmployee, nil)
	svc := newDepartmentService(store)

	created, err := svc.CreateDepartment(context.Background(), dto.CreateDepartmentDTO{
		Name:      "Финансовый департамент",
		ManagerID: &user.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ManagerID)
	assert.Equal(t, user.ID, *created.ManagerID)

	// Назначение дает роль manager и домашний департамент.
	stored := store.users[user.ID]
	assert.Equal(t, constants.RoleManager, stored.Role)
	require.NotNil(t, stored.DepartmentID)
	assert.Equal(t, created.ID, *stored.DepartmentID)
}

func TestCreateDepartmentManagerConflict(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Каримова", constants.RoleManager, nil)
	store.addDepartment("Департамент ИТ", &manager.ID)
	svc := newDepartmentService(store)

	before := len(store.departments)
	_, err := svc.CreateDepartment(context.Background(), dto.CreateDepartmentDTO{
		Name:      "Финансовый департамент",
		ManagerID: &manager.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Len(t, store.departments, before, "конфликт не должен оставлять частичных записей")
}

func TestCreateDepartmentManagerNotFound(t *testing.T) {
	store := newMemStore()
	svc := newDepartmentService(store)

	missing := uint64(777)
	_, err := svc.CreateDepartment(context.Background(), dto.CreateDepartmentDTO{
		Name:      "Финансовый департамент",
		ManagerID: &missing,
	})
	require.Error(t, err)
	assert.Empty(t, store.departments)
}

func TestUpdateDepartmentReassignManager(t *testing.T) {
	store := newMemStore()
	oldManager := store.addUser("Рахимов", constants.RoleManager, nil)
	newManager := store.addUser("Шарипов", constants.RoleEmployee, nil)
	dept := store.addDepartment("Финансовый департамент", &oldManager.ID)
	svc := newDepartmentService(store)

	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, dto.UpdateDepartmentDTO{
		ManagerID: ptrNullUint64(newManager.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, newManager.ID, *updated.ManagerID)

	assert.Equal(t, constants.RoleEmployee, store.users[oldManager.ID].Role)
	assert.Equal(t, constants.RoleManager, store.users[newManager.ID].Role)
	require.NotNil(t, store.users[newManager.ID].DepartmentID)
	assert.Equal(t, dept.ID, *store.users[newManager.ID].DepartmentID)
}

func TestUpdateDepartmentManagerConflictWithOtherDepartment(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Каримова", constants.RoleManager, nil)
	store.addDepartment("Департамент ИТ", &manager.ID)
	dept := store.addDepartment("Финансовый департамент", nil)
	svc := newDepartmentService(store)

	_, err := svc.UpdateDepartment(context.Background(), dept.ID, dto.UpdateDepartmentDTO{
		ManagerID: ptrNullUint64(manager.ID),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Nil(t, store.departments[dept.ID].ManagerID)
}

func TestUpdateDepartmentSameManagerIsNoop(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Рахимов", constants.RoleManager, nil)
	dept := store.addDepartment("Финансовый департамент", &manager.ID)
	svc := newDepartmentService(store)

	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, dto.UpdateDepartmentDTO{
		ManagerID: ptrNullUint64(manager.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, manager.ID, *updated.ManagerID)
	assert.Equal(t, constants.RoleManager, store.users[manager.ID].Role)
}

func TestUpdateDepartmentClearManager(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Рахимов", constants.RoleManager, nil)
	dept := store.addDepartment("Финансовый департамент", &manager.ID)
	svc := newDepartmentService(store)

	cleared := null.Uint64{}
	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, dto.UpdateDepartmentDTO{
		ManagerID: &cleared,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ManagerID)
	assert.Equal(t, constants.RoleEmployee, store.users[manager.ID].Role)
}

func TestUpdateDepartmentOmittedManagerUnchanged(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Рахимов", constants.RoleManager, nil)
	dept := store.addDepartment("Финансовый департамент", &manager.ID)
	svc := newDepartmentService(store)

	name := "Финансовый департамент (новое имя)"
	updated, err := svc.UpdateDepartment(context.Background(), dept.ID, dto.UpdateDepartmentDTO{Name: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, manager.ID, *updated.ManagerID)
	assert.Equal(t, constants.RoleManager, store.users[manager.ID].Role)
}

func TestDeleteDepartmentBlockedByChildren(t *testing.T) {
	store := newMemStore()
	parent := store.addDepartment("Головной департамент", nil)
	child := store.addDepartment("Дочерний департамент", nil)
	child.ParentID = &parent.ID
	svc := newDepartmentService(store)

	err := svc.DeleteDepartment(context.Background(), parent.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Contains(t, store.departments, parent.ID)
}

func TestDeleteDepartmentBlockedByMembers(t *testing.T) {
	store := newMemStore()
	dept := store.addDepartment("Финансовый департамент", nil)
	store.addUser("Шарипов", constants.RoleEmployee, &dept.ID)
	svc := newDepartmentService(store)

	err := svc.DeleteDepartment(context.Background(), dept.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Contains(t, store.departments, dept.ID)
}

func TestDeleteDepartmentDemotesManager(t *testing.T) {
	store := newMemStore()
	manager := store.addUser("Рахимов", constants.RoleManager, nil)
	dept := store.addDepartment("Финансовый департамент", &manager.ID)
	svc := newDepartmentService(store)

	err := svc.DeleteDepartment(context.Background(), dept.ID)
	require.NoError(t, err)
	assert.NotContains(t, store.departments, dept.ID)
	assert.Equal(t, constants.RoleEmployee, store.users[manager.ID].Role)
}

func ptrNullUint64(v uint64) *null.Uint64 {
	n := null.Uint64From(v)
	return &n
}
