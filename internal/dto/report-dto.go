package dto

import "time"

// TaskReportFilterDTO - параметры выборки для отчета по задачам.
type TaskReportFilterDTO struct {
	DateFrom      *time.Time
	DateTo        *time.Time
	DepartmentIDs []uint64
	Statuses      []string
}

type TaskReportRowDTO struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatorFio     *string    `json:"creator_fio,omitempty"`
	DepartmentName *string    `json:"department_name,omitempty"`
	ParentTitle    *string    `json:"parent_title,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
