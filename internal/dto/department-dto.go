package dto

import "github.com/aarondl/null/v8"

type CreateDepartmentDTO struct {
	Name      string  `json:"name" validate:"required,min=1"`
	ParentID  *uint64 `json:"parent_id" validate:"omitempty,gt=0"`
	ManagerID *uint64 `json:"manager_id" validate:"omitempty,gt=0"`
}

// UpdateDepartmentDTO. Поля manager_id и parent_id трехзначные:
// отсутствует в JSON (nil указатель) - без изменений, явный null
// (Valid=false) - снять значение, число - установить.
type UpdateDepartmentDTO struct {
	Name      *string      `json:"name" validate:"omitempty,min=1"`
	ParentID  *null.Uint64 `json:"parent_id"`
	ManagerID *null.Uint64 `json:"manager_id"`
}

type DepartmentDTO struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *uint64 `json:"parent_id"`
	ManagerID *uint64 `json:"manager_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ShortDepartmentDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
