package dto

// RoleConsistencyReportDTO - результат проверки двустороннего
// инварианта "роль manager <-> назначен руководителем департамента".
type RoleConsistencyReportDTO struct {
	IsConsistent bool `json:"is_consistent"`

	// Пользователи с ролью manager, не руководящие ни одним департаментом.
	UsersWithoutDepartments []ShortUserDTO `json:"users_without_departments"`

	// Департаменты, чей manager_id указывает на пользователя без роли manager.
	DepartmentsWithStaleManagers []ShortDepartmentDTO `json:"departments_with_stale_managers"`
}

// RoleSyncResultDTO - итог восстановительного прогона.
type RoleSyncResultDTO struct {
	Demoted  int `json:"demoted"`
	Promoted int `json:"promoted"`
}
