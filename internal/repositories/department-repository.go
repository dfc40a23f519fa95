package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-tracker/internal/entities"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const departmentTable = "departments"

const departmentColumns = `id, name, parent_id, manager_id, created_at, updated_at`

var (
	departmentAllowedFilterFields = map[string]string{"parent_id": "d.parent_id", "manager_id": "d.manager_id"}
	departmentAllowedSortFields   = map[string]string{"id": "d.id", "name": "d.name", "created_at": "d.created_at"}
)

type DepartmentRepositoryInterface interface {
	GetDepartments(ctx context.Context, filter types.Filter) ([]entities.Department, uint64, error)
	FindDepartment(ctx context.Context, id uint64) (*entities.Department, error)
	FindDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error)
	FindDepartmentByManagerInTx(ctx context.Context, tx pgx.Tx, managerID uint64) (*entities.Department, error)
	CreateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error)
	UpdateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error)
	DeleteDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) error
	CountChildrenInTx(ctx context.Context, tx pgx.Tx, id uint64) (uint64, error)
	ClearManagerForUserInTx(ctx context.Context, tx pgx.Tx, userID uint64) (int64, error)
	GetDepartmentsWithStaleManagers(ctx context.Context) ([]entities.Department, error)
}

type DepartmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDepartmentRepository(storage *pgxpool.Pool, logger *zap.Logger) DepartmentRepositoryInterface {
	return &DepartmentRepository{storage: storage, logger: logger}
}

func scanDepartment(row pgx.Row) (*entities.Department, error) {
	var d entities.Department
	err := row.Scan(&d.ID, &d.Name, &d.ParentID, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("ошибка сканирования department: %w", err))
	}
	return &d, nil
}

func (r *DepartmentRepository) buildFilterQuery(filter types.Filter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argCounter := 1
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("d.name ILIKE $%d", argCounter))
		args = append(args, "%"+filter.Search+"%")
		argCounter++
	}
	for key, value := range filter.Filter {
		if dbColumn, ok := departmentAllowedFilterFields[key]; ok {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", dbColumn, argCounter))
			args = append(args, value)
			argCounter++
		}
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *DepartmentRepository) GetDepartments(ctx context.Context, filter types.Filter) ([]entities.Department, uint64, error) {
	whereClause, args := r.buildFilterQuery(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s AS d %s", departmentTable, whereClause)
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	if total == 0 {
		return []entities.Department{}, 0, nil
	}

	orderByClause := "ORDER BY d.id DESC"
	if len(filter.Sort) > 0 {
		sorts := []string{}
		for field, direction := range filter.Sort {
			if dbField, ok := departmentAllowedSortFields[field]; ok {
				order := "ASC"
				if strings.ToLower(direction) == "desc" {
					order = "DESC"
				}
				sorts = append(sorts, fmt.Sprintf("%s %s", dbField, order))
			}
		}
		if len(sorts) > 0 {
			orderByClause = "ORDER BY " + strings.Join(sorts, ", ")
		}
	}

	limitClause := ""
	argCounter := len(args) + 1
	if filter.WithPagination {
		limitClause = fmt.Sprintf("LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	query := fmt.Sprintf(`SELECT d.id, d.name, d.parent_id, d.manager_id, d.created_at, d.updated_at FROM %s d %s %s %s`,
		departmentTable, whereClause, orderByClause, limitClause)
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	departments := make([]entities.Department, 0)
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		departments = append(departments, *dept)
	}
	return departments, total, rows.Err()
}

func (r *DepartmentRepository) findDepartmentBy(ctx context.Context, q querier, column string, value interface{}) (*entities.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, departmentColumns, departmentTable, column)
	return scanDepartment(q.QueryRow(ctx, query, value))
}

func (r *DepartmentRepository) FindDepartment(ctx context.Context, id uint64) (*entities.Department, error) {
	return r.findDepartmentBy(ctx, r.storage, "id", id)
}

func (r *DepartmentRepository) FindDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error) {
	return r.findDepartmentBy(ctx, tx, "id", id)
}

// FindDepartmentByManagerInTx - проверка конфликта назначения:
// руководит ли пользователь каким-либо департаментом прямо сейчас.
func (r *DepartmentRepository) FindDepartmentByManagerInTx(ctx context.Context, tx pgx.Tx, managerID uint64) (*entities.Department, error) {
	return r.findDepartmentBy(ctx, tx, "manager_id", managerID)
}

func (r *DepartmentRepository) CreateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error) {
	query := fmt.Sprintf(`INSERT INTO %s (name, parent_id, manager_id) VALUES ($1, $2, $3) RETURNING %s`,
		departmentTable, departmentColumns)
	return scanDepartment(tx.QueryRow(ctx, query, entity.Name, entity.ParentID, entity.ManagerID))
}

func (r *DepartmentRepository) UpdateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error) {
	query := fmt.Sprintf(`UPDATE %s SET name = $1, parent_id = $2, manager_id = $3, updated_at = now()
		WHERE id = $4 RETURNING %s`, departmentTable, departmentColumns)
	return scanDepartment(tx.QueryRow(ctx, query, entity.Name, entity.ParentID, entity.ManagerID, entity.ID))
}

func (r *DepartmentRepository) DeleteDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, departmentTable), id)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *DepartmentRepository) CountChildrenInTx(ctx context.Context, tx pgx.Tx, id uint64) (uint64, error) {
	var count uint64
	err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id = $1`, departmentTable), id).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	return count, nil
}

// ClearManagerForUserInTx снимает пользователя с руководства всеми
// департаментами. Возвращает число затронутых строк.
func (r *DepartmentRepository) ClearManagerForUserInTx(ctx context.Context, tx pgx.Tx, userID uint64) (int64, error) {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET manager_id = NULL, updated_at = now() WHERE manager_id = $1`, departmentTable), userID)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	return tag.RowsAffected(), nil
}

// GetDepartmentsWithStaleManagers возвращает департаменты, чей manager_id
// указывает на пользователя, у которого роль уже не manager.
func (r *DepartmentRepository) GetDepartmentsWithStaleManagers(ctx context.Context) ([]entities.Department, error) {
	query := fmt.Sprintf(`SELECT d.id, d.name, d.parent_id, d.manager_id, d.created_at, d.updated_at
		FROM %s d
		JOIN users u ON u.id = d.manager_id
		WHERE d.manager_id IS NOT NULL AND u.role <> 'manager'
		ORDER BY d.id`, departmentTable)
	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	departments := make([]entities.Department, 0)
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, *dept)
	}
	return departments, rows.Err()
}
