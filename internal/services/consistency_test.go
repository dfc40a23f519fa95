package services

import (
	"context"
	"fmt"
	"testing"

	"task-tracker/pkg/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConsistencyFixture() (*memStore, *fakeCache, ConsistencyServiceInterface) {
	store := newMemStore()
	cache := newFakeCache()
	svc := NewConsistencyService(store, store, cache, zap.NewNop())
	return store, cache, svc
}

func TestValidateRoleConsistencyCleanState(t *testing.T) {
	store, _, svc := newConsistencyFixture()
	manager := store.addUser("Руководитель", constants.RoleManager, nil)
	store.addDepartment("Департамент ИТ", &manager.ID)
	store.addUser("Сотрудник", constants.RoleEmployee, nil)

	report, err := svc.ValidateRoleConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsConsistent)
	assert.Empty(t, report.UsersWithoutDepartments)
	assert.Empty(t, report.DepartmentsWithStaleManagers)
}

func TestValidateRoleConsistencyDetectsDrift(t *testing.T) {
	store, _, svc := newConsistencyFixture()
	// Менеджер, у которого забрали департамент в обход координатора.
	orphan := store.addUser("Осиротевший", constants.RoleManager, nil)
	// Департамент, чей руководитель вручную понижен до employee.
	demoted := store.addUser("Пониженный", constants.RoleEmployee, nil)
	stale := store.addDepartment("Финансовый департамент", &demoted.ID)

	report, err := svc.ValidateRoleConsistency(context.Background())
	require.NoError(t, err)
	assert.False(t, report.IsConsistent)
	require.Len(t, report.UsersWithoutDepartments, 1)
	assert.Equal(t, orphan.ID, report.UsersWithoutDepartments[0].ID)
	require.Len(t, report.DepartmentsWithStaleManagers, 1)
	assert.Equal(t, stale.ID, report.DepartmentsWithStaleManagers[0].ID)

	// Проверка ничего не пишет.
	assert.Equal(t, constants.RoleManager, store.users[orphan.ID].Role)
	assert.Equal(t, constants.RoleEmployee, store.users[demoted.ID].Role)
}

func TestSyncRepairsBothDriftDirections(t *testing.T) {
	store, cache, svc := newConsistencyFixture()
	orphan := store.addUser("Осиротевший", constants.RoleManager, nil)
	demoted := store.addUser("Пониженный", constants.RoleEmployee, nil)
	store.addDepartment("Финансовый департамент", &demoted.ID)
	cache.data[fmt.Sprintf(constants.CacheKeyUserRole, orphan.ID)] = constants.RoleManager
	cache.data[fmt.Sprintf(constants.CacheKeyUserRole, demoted.ID)] = constants.RoleEmployee

	result, err := svc.SyncUserRolesWithDepartments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Demoted)
	assert.Equal(t, 1, result.Promoted)

	assert.Equal(t, constants.RoleEmployee, store.users[orphan.ID].Role)
	assert.Equal(t, constants.RoleManager, store.users[demoted.ID].Role)

	_, err = cache.Get(context.Background(), fmt.Sprintf(constants.CacheKeyUserRole, orphan.ID))
	assert.Error(t, err)
	_, err = cache.Get(context.Background(), fmt.Sprintf(constants.CacheKeyUserRole, demoted.ID))
	assert.Error(t, err)
}

func TestSyncSecondRunIsIdempotent(t *testing.T) {
	store, _, svc := newConsistencyFixture()
	store.addUser("Осиротевший", constants.RoleManager, nil)
	demoted := store.addUser("Пониженный", constants.RoleEmployee, nil)
	store.addDepartment("Финансовый департамент", &demoted.ID)

	first, err := svc.SyncUserRolesWithDepartments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Demoted)
	assert.Equal(t, 1, first.Promoted)

	second, err := svc.SyncUserRolesWithDepartments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Demoted)
	assert.Equal(t, 0, second.Promoted)
}

func TestSyncNoDriftIsNoop(t *testing.T) {
	store, _, svc := newConsistencyFixture()
	manager := store.addUser("Руководитель", constants.RoleManager, nil)
	store.addDepartment("Департамент ИТ", &manager.ID)

	result, err := svc.SyncUserRolesWithDepartments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Demoted)
	assert.Equal(t, 0, result.Promoted)
	assert.Equal(t, constants.RoleManager, store.users[manager.ID].Role)
}
