package repositories

import (
	"errors"
	"fmt"
	"strings"

	"context"

	"task-tracker/internal/entities"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userTable = "users"

const userColumns = `id, fio, email, ldap_uid, password, role, department_id, phone_number, created_at, updated_at`

var (
	userAllowedFilterFields = map[string]string{"role": "u.role", "department_id": "u.department_id"}
	userAllowedSortFields   = map[string]string{"id": "u.id", "fio": "u.fio", "created_at": "u.created_at"}
)

type UserRepositoryInterface interface {
	GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error)
	FindUser(ctx context.Context, id uint64) (*entities.User, error)
	FindUserInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error)
	FindUserByEmail(ctx context.Context, email string) (*entities.User, error)
	FindUserByLdapUID(ctx context.Context, ldapUID string) (*entities.User, error)
	CreateUser(ctx context.Context, entity *entities.User) (*entities.User, error)
	UpdateUser(ctx context.Context, entity *entities.User) (*entities.User, error)
	UpdateUserRole(ctx context.Context, userID uint64, role string) error
	UpdateUserRoleInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string) error
	UpdateUserRoleAndDepartmentInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string, departmentID uint64) error
	CountUsersByDepartmentInTx(ctx context.Context, tx pgx.Tx, departmentID uint64) (uint64, error)
	GetManagersWithoutDepartments(ctx context.Context) ([]entities.User, error)
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Fio, &u.Email, &u.LdapUID, &u.Password, &u.Role,
		&u.DepartmentID, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("ошибка сканирования user: %w", err))
	}
	return &u, nil
}

func (r *UserRepository) buildFilterQuery(filter types.Filter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argCounter := 1
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.fio ILIKE $%d OR u.email ILIKE $%d)", argCounter, argCounter))
		args = append(args, "%"+filter.Search+"%")
		argCounter++
	}
	for key, value := range filter.Filter {
		if dbColumn, ok := userAllowedFilterFields[key]; ok {
			items := strings.Split(fmt.Sprintf("%v", value), ",")
			if len(items) > 1 {
				placeholders := []string{}
				for _, item := range items {
					placeholders = append(placeholders, fmt.Sprintf("$%d", argCounter))
					args = append(args, item)
					argCounter++
				}
				conditions = append(conditions, fmt.Sprintf("%s IN (%s)", dbColumn, strings.Join(placeholders, ",")))
			} else {
				conditions = append(conditions, fmt.Sprintf("%s = $%d", dbColumn, argCounter))
				args = append(args, value)
				argCounter++
			}
		}
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *UserRepository) GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	whereClause, args := r.buildFilterQuery(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s AS u %s", userTable, whereClause)
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	if total == 0 {
		return []entities.User{}, 0, nil
	}

	orderByClause := "ORDER BY u.id DESC"
	if len(filter.Sort) > 0 {
		sorts := []string{}
		for field, direction := range filter.Sort {
			if dbField, ok := userAllowedSortFields[field]; ok {
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

	query := fmt.Sprintf(`SELECT u.id, u.fio, u.email, u.ldap_uid, u.password, u.role, u.department_id, u.phone_number, u.created_at, u.updated_at FROM %s u %s %s %s`,
		userTable, whereClause, orderByClause, limitClause)
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) findUserBy(ctx context.Context, q querier, column string, value interface{}) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, userColumns, userTable, column)
	return scanUser(q.QueryRow(ctx, query, value))
}

func (r *UserRepository) FindUser(ctx context.Context, id uint64) (*entities.User, error) {
	return r.findUserBy(ctx, r.storage, "id", id)
}

func (r *UserRepository) FindUserInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error) {
	return r.findUserBy(ctx, tx, "id", id)
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findUserBy(ctx, r.storage, "email", email)
}

func (r *UserRepository) FindUserByLdapUID(ctx context.Context, ldapUID string) (*entities.User, error) {
	return r.findUserBy(ctx, r.storage, "ldap_uid", ldapUID)
}

func (r *UserRepository) CreateUser(ctx context.Context, entity *entities.User) (*entities.User, error) {
	query := fmt.Sprintf(`INSERT INTO %s (fio, email, ldap_uid, password, role, department_id, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, userTable, userColumns)
	return scanUser(r.storage.QueryRow(ctx, query,
		entity.Fio, entity.Email, entity.LdapUID, entity.Password,
		entity.Role, entity.DepartmentID, entity.PhoneNumber))
}

func (r *UserRepository) UpdateUser(ctx context.Context, entity *entities.User) (*entities.User, error) {
	query := fmt.Sprintf(`UPDATE %s SET fio = $1, email = $2, department_id = $3, phone_number = $4, updated_at = now()
		WHERE id = $5
		RETURNING %s`, userTable, userColumns)
	return scanUser(r.storage.QueryRow(ctx, query,
		entity.Fio, entity.Email, entity.DepartmentID, entity.PhoneNumber, entity.ID))
}

func (r *UserRepository) updateRole(ctx context.Context, q querier, userID uint64, role string) error {
	tag, err := q.Exec(ctx, fmt.Sprintf(`UPDATE %s SET role = $1, updated_at = now() WHERE id = $2`, userTable), role, userID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateUserRole(ctx context.Context, userID uint64, role string) error {
	return r.updateRole(ctx, r.storage, userID, role)
}

func (r *UserRepository) UpdateUserRoleInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string) error {
	return r.updateRole(ctx, tx, userID, role)
}

// UpdateUserRoleAndDepartmentInTx используется координатором при назначении
// руководителя: роль и домашний департамент меняются одним запросом.
func (r *UserRepository) UpdateUserRoleAndDepartmentInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string, departmentID uint64) error {
	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET role = $1, department_id = $2, updated_at = now() WHERE id = $3`, userTable),
		role, departmentID, userID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountUsersByDepartmentInTx(ctx context.Context, tx pgx.Tx, departmentID uint64) (uint64, error) {
	var count uint64
	err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE department_id = $1`, userTable), departmentID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	return count, nil
}

// GetManagersWithoutDepartments возвращает пользователей с ролью manager,
// не назначенных руководителем ни одного департамента.
func (r *UserRepository) GetManagersWithoutDepartments(ctx context.Context) ([]entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s u
		WHERE u.role = 'manager'
		  AND NOT EXISTS (SELECT 1 FROM departments d WHERE d.manager_id = u.id)
		ORDER BY u.id`, userColumns, userTable)
	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
