package dto

import "github.com/aarondl/null/v8"

type CreateUserDTO struct {
	Fio          string  `json:"fio" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"omitempty,min=8"`
	PhoneNumber  *string `json:"phone_number"`
	DepartmentID *uint64 `json:"department_id" validate:"omitempty,gt=0"`
}

// UpdateUserDTO. Поле department_id трехзначное: отсутствует в JSON -
// без изменений, явный null - открепить от департамента, число - установить.
type UpdateUserDTO struct {
	Fio          *string      `json:"fio" validate:"omitempty,min=1"`
	Email        *string      `json:"email" validate:"omitempty,email"`
	PhoneNumber  *string      `json:"phone_number"`
	DepartmentID *null.Uint64 `json:"department_id"`
}

// SetUserRoleDTO - прямая смена роли администратором.
type SetUserRoleDTO struct {
	Role string `json:"role" validate:"required,oneof=admin manager employee"`
}

type UserDTO struct {
	ID           uint64              `json:"id"`
	Fio          string              `json:"fio"`
	Email        string              `json:"email"`
	PhoneNumber  *string             `json:"phone_number,omitempty"`
	Role         string              `json:"role"`
	LdapUID      *string             `json:"ldap_uid,omitempty"`
	Department   *ShortDepartmentDTO `json:"department,omitempty"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
}

type ShortUserDTO struct {
	ID   uint64 `json:"id"`
	Fio  string `json:"fio"`
	Role string `json:"role"`
}
