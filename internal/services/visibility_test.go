package services

import (
	"testing"

	"task-tracker/pkg/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityAdminSeesEverything(t *testing.T) {
	assert.Nil(t, BuildTaskVisibility(constants.RoleAdmin, 1, nil))
}

func TestVisibilityManagerScopedToHomeDepartment(t *testing.T) {
	home := uint64(7)
	pred := BuildTaskVisibility(constants.RoleManager, 1, &home)
	require.NotNil(t, pred)

	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "t.department_id = ?", sql)
	assert.Equal(t, []interface{}{home}, args)
}

// Менеджер без домашнего департамента не видит ни одной задачи,
// а не все подряд.
func TestVisibilityManagerWithoutHomeDepartment(t *testing.T) {
	pred := BuildTaskVisibility(constants.RoleManager, 1, nil)
	require.NotNil(t, pred)

	sql, _, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
}

func TestVisibilityEmployeeOwnTasksOnly(t *testing.T) {
	pred := BuildTaskVisibility(constants.RoleEmployee, 42, nil)
	require.NotNil(t, pred)

	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "t.created_by_id = ?", sql)
	assert.Equal(t, []interface{}{uint64(42)}, args)

	// Домашний департамент сотрудника на видимость не влияет.
	home := uint64(7)
	pred = BuildTaskVisibility(constants.RoleEmployee, 42, &home)
	sql, args, err = pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "t.created_by_id = ?", sql)
	assert.Equal(t, []interface{}{uint64(42)}, args)
}
