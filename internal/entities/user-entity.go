// Файл: internal/entities/user-entity.go
package entities

import (
	"task-tracker/pkg/types"

	"github.com/aarondl/null/v8"
)

type User struct {
	ID          uint64 `json:"id" db:"id"`
	Fio         string `json:"fio" db:"fio"`
	Email       string `json:"email" db:"email"`
	PhoneNumber *string `json:"phone_number,omitempty" db:"phone_number"`

	// Пароль хранится только для локальных учеток; LDAP-пользователи
	// аутентифицируются bind-ом и пароля в БД не имеют.
	Password null.String `json:"-" db:"password"`

	// LdapUID - внешний идентификатор в корпоративном каталоге.
	LdapUID null.String `json:"ldap_uid,omitempty" db:"ldap_uid"`

	// Role: admin | manager | employee. Роль manager выставляется и
	// снимается только через назначение руководителем департамента.
	Role string `json:"role" db:"role"`

	// DepartmentID - "домашний" департамент, в котором пользователь
	// числится сотрудником. Не путать с департаментом, которым он руководит.
	DepartmentID *uint64 `json:"department_id" db:"department_id"`

	types.BaseEntity
}
