package repositories

import (
	"context"
	"fmt"

	"task-tracker/internal/dto"
	apperrors "task-tracker/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepositoryInterface interface {
	GetTaskReport(ctx context.Context, filter dto.TaskReportFilterDTO, visibility sq.Sqlizer) ([]dto.TaskReportRowDTO, uint64, error)
}

type reportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) ReportRepositoryInterface {
	return &reportRepository{db: db}
}

func (r *reportRepository) GetTaskReport(ctx context.Context, filter dto.TaskReportFilterDTO, visibility sq.Sqlizer) ([]dto.TaskReportRowDTO, uint64, error) {
	// Общая база для COUNT и основного запроса.
	baseSelect := psql.Select().
		From("tasks t").
		LeftJoin("users creator ON t.created_by_id = creator.id").
		LeftJoin("departments d ON t.department_id = d.id").
		LeftJoin("tasks parent ON t.parent_id = parent.id")

	if visibility != nil {
		baseSelect = baseSelect.Where(visibility)
	}
	if filter.DateFrom != nil {
		baseSelect = baseSelect.Where(sq.GtOrEq{"t.created_at": filter.DateFrom})
	}
	if filter.DateTo != nil {
		baseSelect = baseSelect.Where(sq.LtOrEq{"t.created_at": filter.DateTo})
	}
	if len(filter.DepartmentIDs) > 0 {
		baseSelect = baseSelect.Where(sq.Eq{"t.department_id": filter.DepartmentIDs})
	}
	if len(filter.Statuses) > 0 {
		baseSelect = baseSelect.Where(sq.Eq{"t.status": filter.Statuses})
	}

	countBuilder := baseSelect.Columns("COUNT(t.id)")
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки COUNT-запроса: %w", err)
	}
	var totalCount uint64
	if err = r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	if totalCount == 0 {
		return []dto.TaskReportRowDTO{}, 0, nil
	}

	mainBuilder := baseSelect.Columns(
		"t.id", "t.title", "t.status", "t.priority", "t.deadline",
		"creator.fio", "d.name", "parent.title", "t.created_at",
	).OrderBy("t.id")

	query, args, err := mainBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса отчета: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	items := make([]dto.TaskReportRowDTO, 0)
	for rows.Next() {
		var item dto.TaskReportRowDTO
		err := rows.Scan(&item.ID, &item.Title, &item.Status, &item.Priority, &item.Deadline,
			&item.CreatorFio, &item.DepartmentName, &item.ParentTitle, &item.CreatedAt)
		if err != nil {
			return nil, 0, apperrors.NewStorageError(fmt.Errorf("ошибка сканирования строки отчета: %w", err))
		}
		items = append(items, item)
	}
	return items, totalCount, rows.Err()
}
