package services

import (
	"context"
	"fmt"
	"testing"

	"task-tracker/internal/dto"
	"task-tracker/pkg/constants"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserFixture() (*memStore, *fakeCache, UserServiceInterface) {
	store := newMemStore()
	cache := newFakeCache()
	svc := NewUserService(&fakeTxManager{}, store, store, cache, zap.NewNop())
	return store, cache, svc
}

func TestSetUserRoleDemoteClearsManagedDepartments(t *testing.T) {
	store, cache, svc := newUserFixture()
	manager := store.addUser("Руководитель", constants.RoleManager, nil)
	dept := store.addDepartment("Департамент ИТ", &manager.ID)
	cache.data[fmt.Sprintf(constants.CacheKeyUserRole, manager.ID)] = constants.RoleManager

	updated, err := svc.SetUserRole(context.Background(), manager.ID, dto.SetUserRoleDTO{Role: constants.RoleEmployee})
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, updated.Role)

	// Снятие роли manager очищает manager_id управляемых департаментов
	// и сбрасывает кеш роли.
	assert.Nil(t, store.departments[dept.ID].ManagerID)
	_, err = cache.Get(context.Background(), fmt.Sprintf(constants.CacheKeyUserRole, manager.ID))
	assert.Error(t, err)
}

func TestSetUserRolePromoteWithoutDepartment(t *testing.T) {
	store, _, svc := newUserFixture()
	user := store.addUser("Сотрудник", constants.RoleEmployee, nil)

	updated, err := svc.SetUserRole(context.Background(), user.ID, dto.SetUserRoleDTO{Role: constants.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, constants.RoleManager, updated.Role)

	// Переходное состояние не блокируется, его видит проверка консистентности.
	consistency := NewConsistencyService(store, store, newFakeCache(), zap.NewNop())
	report, err := consistency.ValidateRoleConsistency(context.Background())
	require.NoError(t, err)
	assert.False(t, report.IsConsistent)
	require.Len(t, report.UsersWithoutDepartments, 1)
	assert.Equal(t, user.ID, report.UsersWithoutDepartments[0].ID)
}

func TestSetUserRoleInvalid(t *testing.T) {
	store, _, svc := newUserFixture()
	user := store.addUser("Сотрудник", constants.RoleEmployee, nil)

	_, err := svc.SetUserRole(context.Background(), user.ID, dto.SetUserRoleDTO{Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, constants.RoleEmployee, store.users[user.ID].Role)
}

func TestResolveRoleCachesDatabaseValue(t *testing.T) {
	store, cache, svc := newUserFixture()
	user := store.addUser("Сотрудник", constants.RoleEmployee, nil)

	role, err := svc.ResolveRole(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, role)

	// Роль закеширована и последующий вызов не ходит в БД.
	key := fmt.Sprintf(constants.CacheKeyUserRole, user.ID)
	cached, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, cached)

	store.users[user.ID].Role = constants.RoleAdmin
	role, err = svc.ResolveRole(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, role)
}

func TestResolveRoleIgnoresGarbageCacheValue(t *testing.T) {
	store, cache, svc := newUserFixture()
	user := store.addUser("Сотрудник", constants.RoleEmployee, nil)
	cache.data[fmt.Sprintf(constants.CacheKeyUserRole, user.ID)] = "not-a-role"

	role, err := svc.ResolveRole(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, role)
}

func TestCreateUserDefaultsToEmployee(t *testing.T) {
	store, _, svc := newUserFixture()
	dept := store.addDepartment("Департамент ИТ", nil)

	created, err := svc.CreateUser(context.Background(), dto.CreateUserDTO{
		Fio:          "Рахимов Далер",
		Email:        "d.rakhimov@test.local",
		Password:     "secret-password",
		DepartmentID: &dept.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.RoleEmployee, created.Role)

	stored := store.users[created.ID]
	require.NotNil(t, stored.DepartmentID)
	assert.Equal(t, dept.ID, *stored.DepartmentID)
	// Пароль хранится только в виде bcrypt-хеша.
	assert.True(t, stored.Password.Valid)
	assert.NotEqual(t, "secret-password", stored.Password.String)
}

func TestUpdateUserClearsHomeDepartment(t *testing.T) {
	store, _, svc := newUserFixture()
	dept := store.addDepartment("Департамент ИТ", nil)
	user := store.addUser("Сотрудник", constants.RoleEmployee, &dept.ID)

	// Пропущенное поле department_id ничего не меняет.
	_, err := svc.UpdateUser(context.Background(), user.ID, dto.UpdateUserDTO{})
	require.NoError(t, err)
	require.NotNil(t, store.users[user.ID].DepartmentID)

	// Явный null открепляет пользователя от департамента.
	_, err = svc.UpdateUser(context.Background(), user.ID, dto.UpdateUserDTO{DepartmentID: &null.Uint64{}})
	require.NoError(t, err)
	assert.Nil(t, store.users[user.ID].DepartmentID)
}

func TestCreateUserUnknownDepartment(t *testing.T) {
	_, _, svc := newUserFixture()

	_, err := svc.CreateUser(context.Background(), dto.CreateUserDTO{
		Fio:          "Рахимов Далер",
		Email:        "d.rakhimov@test.local",
		DepartmentID: ptrUint64(999),
	})
	require.Error(t, err)
}
