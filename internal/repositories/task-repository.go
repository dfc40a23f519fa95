package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskTable = "tasks"

const taskColumns = `id, title, description, status, priority, deadline, created_by_id, department_id, parent_id, created_at, updated_at`

var (
	taskAllowedFilterFields = map[string]string{
		"status":        "t.status",
		"priority":      "t.priority",
		"department_id": "t.department_id",
		"created_by_id": "t.created_by_id",
		"parent_id":     "t.parent_id",
	}
	taskAllowedSortFields = map[string]string{
		"id":         "t.id",
		"deadline":   "t.deadline",
		"priority":   "t.priority",
		"created_at": "t.created_at",
	}
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type TaskRepositoryInterface interface {
	GetTasks(ctx context.Context, filter types.Filter, visibility sq.Sqlizer) ([]entities.Task, uint64, error)
	GetTaskStats(ctx context.Context, visibility sq.Sqlizer) (*dto.TaskStatsDTO, error)
	FindTask(ctx context.Context, id uint64) (*entities.Task, error)
	FindTaskInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Task, error)
	CreateTaskInTx(ctx context.Context, tx pgx.Tx, entity entities.Task) (*entities.Task, error)
	UpdateTask(ctx context.Context, entity entities.Task) (*entities.Task, error)
	UpdateTaskStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error
	GetSubtasksInTx(ctx context.Context, tx pgx.Tx, parentID uint64) ([]entities.Task, error)
}

type TaskRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTaskRepository(storage *pgxpool.Pool, logger *zap.Logger) TaskRepositoryInterface {
	return &TaskRepository{storage: storage, logger: logger}
}

func scanTask(row pgx.Row) (*entities.Task, error) {
	var t entities.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Deadline,
		&t.CreatedByID, &t.DepartmentID, &t.ParentID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("ошибка сканирования task: %w", err))
	}
	return &t, nil
}

// applyFilter добавляет к запросу клиентские фильтры и предикат видимости.
// Предикат соединяется через AND и не может быть ослаблен фильтрами.
func (r *TaskRepository) applyFilter(builder sq.SelectBuilder, filter types.Filter, visibility sq.Sqlizer) sq.SelectBuilder {
	if visibility != nil {
		builder = builder.Where(visibility)
	}
	if filter.Search != "" {
		builder = builder.Where(sq.Or{
			sq.ILike{"t.title": "%" + filter.Search + "%"},
			sq.ILike{"t.description": "%" + filter.Search + "%"},
		})
	}
	for key, value := range filter.Filter {
		dbColumn, ok := taskAllowedFilterFields[key]
		if !ok {
			continue
		}
		items := strings.Split(fmt.Sprintf("%v", value), ",")
		if len(items) > 1 {
			builder = builder.Where(sq.Eq{dbColumn: items})
		} else {
			builder = builder.Where(sq.Eq{dbColumn: value})
		}
	}
	return builder
}

func (r *TaskRepository) GetTasks(ctx context.Context, filter types.Filter, visibility sq.Sqlizer) ([]entities.Task, uint64, error) {
	countBuilder := r.applyFilter(psql.Select("COUNT(*)").From(taskTable+" t"), filter, visibility)
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса count: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	if total == 0 {
		return []entities.Task{}, 0, nil
	}

	builder := r.applyFilter(psql.Select(
		"t.id", "t.title", "t.description", "t.status", "t.priority", "t.deadline",
		"t.created_by_id", "t.department_id", "t.parent_id", "t.created_at", "t.updated_at",
	).From(taskTable+" t"), filter, visibility)

	orderBy := []string{"t.id DESC"}
	if len(filter.Sort) > 0 {
		sorts := []string{}
		for field, direction := range filter.Sort {
			if dbField, ok := taskAllowedSortFields[field]; ok {
				order := "ASC"
				if strings.ToLower(direction) == "desc" {
					order = "DESC"
				}
				sorts = append(sorts, fmt.Sprintf("%s %s", dbField, order))
			}
		}
		if len(sorts) > 0 {
			orderBy = sorts
		}
	}
	builder = builder.OrderBy(orderBy...)

	if filter.WithPagination {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса tasks: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	tasks := make([]entities.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepository) GetTaskStats(ctx context.Context, visibility sq.Sqlizer) (*dto.TaskStatsDTO, error) {
	builder := psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE t.status = 'todo')",
		"COUNT(*) FILTER (WHERE t.status = 'in_progress')",
		"COUNT(*) FILTER (WHERE t.status = 'completed')",
		"COUNT(*) FILTER (WHERE t.status = 'blocker')",
	).From(taskTable + " t")
	if visibility != nil {
		builder = builder.Where(visibility)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса статистики: %w", err)
	}

	var stats dto.TaskStatsDTO
	err = r.storage.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Todo, &stats.InProgress, &stats.Completed, &stats.Blocker)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return &stats, nil
}

func (r *TaskRepository) findTaskBy(ctx context.Context, q querier, id uint64) (*entities.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, taskColumns, taskTable)
	return scanTask(q.QueryRow(ctx, query, id))
}

func (r *TaskRepository) FindTask(ctx context.Context, id uint64) (*entities.Task, error) {
	return r.findTaskBy(ctx, r.storage, id)
}

func (r *TaskRepository) FindTaskInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Task, error) {
	return r.findTaskBy(ctx, tx, id)
}

func (r *TaskRepository) CreateTaskInTx(ctx context.Context, tx pgx.Tx, entity entities.Task) (*entities.Task, error) {
	query := fmt.Sprintf(`INSERT INTO %s (title, description, status, priority, deadline, created_by_id, department_id, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, taskTable, taskColumns)
	return scanTask(tx.QueryRow(ctx, query,
		entity.Title, entity.Description, entity.Status, entity.Priority, entity.Deadline,
		entity.CreatedByID, entity.DepartmentID, entity.ParentID))
}

func (r *TaskRepository) UpdateTask(ctx context.Context, entity entities.Task) (*entities.Task, error) {
	query := fmt.Sprintf(`UPDATE %s SET title = $1, description = $2, priority = $3, deadline = $4, department_id = $5, updated_at = now()
		WHERE id = $6 RETURNING %s`, taskTable, taskColumns)
	return scanTask(r.storage.QueryRow(ctx, query,
		entity.Title, entity.Description, entity.Priority, entity.Deadline, entity.DepartmentID, entity.ID))
}

func (r *TaskRepository) UpdateTaskStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, taskTable), status, id)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) GetSubtasksInTx(ctx context.Context, tx pgx.Tx, parentID uint64) ([]entities.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 ORDER BY id`, taskColumns, taskTable)
	rows, err := tx.Query(ctx, query, parentID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	tasks := make([]entities.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
