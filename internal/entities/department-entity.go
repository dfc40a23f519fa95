package entities

import "task-tracker/pkg/types"

type Department struct {
	ID   uint64 `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// ParentID образует дерево департаментов.
	ParentID *uint64 `json:"parent_id" db:"parent_id"`

	// ManagerID - назначенный руководитель. Один пользователь не может
	// руководить двумя департаментами одновременно.
	ManagerID *uint64 `json:"manager_id" db:"manager_id"`

	types.BaseEntity
}
