package services

import (
	"context"
	"time"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	"task-tracker/pkg/constants"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// fakeTxManager выполняет fn без настоящей транзакции: репозитории в
// памяти игнорируют tx, атомарность в юнит-тестах не проверяется.
type fakeTxManager struct{}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.data[key] = value.(string)
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// memStore - общее хранилище в памяти, реализующее интерфейсы
// репозиториев пользователей, департаментов и задач.
type memStore struct {
	users       map[uint64]*entities.User
	departments map[uint64]*entities.Department
	tasks       map[uint64]*entities.Task
	nextID      uint64
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uint64]*entities.User),
		departments: make(map[uint64]*entities.Department),
		tasks:       make(map[uint64]*entities.Task),
		nextID:      1,
	}
}

func ptrUint64(v uint64) *uint64 {
	return &v
}

func (s *memStore) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memStore) addUser(fio, role string, departmentID *uint64) *entities.User {
	u := &entities.User{ID: s.id(), Fio: fio, Email: fio + "@test.local", Role: role, DepartmentID: departmentID}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addDepartment(name string, managerID *uint64) *entities.Department {
	d := &entities.Department{ID: s.id(), Name: name, ManagerID: managerID}
	s.departments[d.ID] = d
	return d
}

func (s *memStore) addTask(title, status string, createdByID uint64, departmentID, parentID *uint64) *entities.Task {
	t := &entities.Task{
		ID: s.id(), Title: title, Status: status, Priority: constants.TaskPriorityMedium,
		CreatedByID: createdByID, DepartmentID: departmentID, ParentID: parentID,
	}
	s.tasks[t.ID] = t
	return t
}

// --- UserRepositoryInterface ---

func (s *memStore) GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	out := make([]entities.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, uint64(len(out)), nil
}

func (s *memStore) FindUser(ctx context.Context, id uint64) (*entities.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindUserInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.User, error) {
	return s.FindUser(ctx, id)
}

func (s *memStore) FindUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) FindUserByLdapUID(ctx context.Context, ldapUID string) (*entities.User, error) {
	for _, u := range s.users {
		if u.LdapUID.Valid && u.LdapUID.String == ldapUID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) CreateUser(ctx context.Context, entity *entities.User) (*entities.User, error) {
	cp := *entity
	cp.ID = s.id()
	s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateUser(ctx context.Context, entity *entities.User) (*entities.User, error) {
	if _, ok := s.users[entity.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *entity
	s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateUserRole(ctx context.Context, userID uint64, role string) error {
	u, ok := s.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Role = role
	return nil
}

func (s *memStore) UpdateUserRoleInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string) error {
	return s.UpdateUserRole(ctx, userID, role)
}

func (s *memStore) UpdateUserRoleAndDepartmentInTx(ctx context.Context, tx pgx.Tx, userID uint64, role string, departmentID uint64) error {
	u, ok := s.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Role = role
	u.DepartmentID = &departmentID
	return nil
}

func (s *memStore) CountUsersByDepartmentInTx(ctx context.Context, tx pgx.Tx, departmentID uint64) (uint64, error) {
	var n uint64
	for _, u := range s.users {
		if u.DepartmentID != nil && *u.DepartmentID == departmentID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetManagersWithoutDepartments(ctx context.Context) ([]entities.User, error) {
	out := []entities.User{}
	for _, u := range s.users {
		if u.Role != constants.RoleManager {
			continue
		}
		manages := false
		for _, d := range s.departments {
			if d.ManagerID != nil && *d.ManagerID == u.ID {
				manages = true
				break
			}
		}
		if !manages {
			out = append(out, *u)
		}
	}
	return out, nil
}

// --- DepartmentRepositoryInterface ---

func (s *memStore) GetDepartments(ctx context.Context, filter types.Filter) ([]entities.Department, uint64, error) {
	out := make([]entities.Department, 0, len(s.departments))
	for _, d := range s.departments {
		out = append(out, *d)
	}
	return out, uint64(len(out)), nil
}

func (s *memStore) FindDepartment(ctx context.Context, id uint64) (*entities.Department, error) {
	d, ok := s.departments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) FindDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error) {
	return s.FindDepartment(ctx, id)
}

func (s *memStore) FindDepartmentByManagerInTx(ctx context.Context, tx pgx.Tx, managerID uint64) (*entities.Department, error) {
	for _, d := range s.departments {
		if d.ManagerID != nil && *d.ManagerID == managerID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) CreateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error) {
	cp := entity
	cp.ID = s.id()
	s.departments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateDepartmentInTx(ctx context.Context, tx pgx.Tx, entity entities.Department) (*entities.Department, error) {
	if _, ok := s.departments[entity.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := entity
	s.departments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) DeleteDepartmentInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	if _, ok := s.departments[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.departments, id)
	return nil
}

func (s *memStore) CountChildrenInTx(ctx context.Context, tx pgx.Tx, id uint64) (uint64, error) {
	var n uint64
	for _, d := range s.departments {
		if d.ParentID != nil && *d.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ClearManagerForUserInTx(ctx context.Context, tx pgx.Tx, userID uint64) (int64, error) {
	var n int64
	for _, d := range s.departments {
		if d.ManagerID != nil && *d.ManagerID == userID {
			d.ManagerID = nil
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetDepartmentsWithStaleManagers(ctx context.Context) ([]entities.Department, error) {
	out := []entities.Department{}
	for _, d := range s.departments {
		if d.ManagerID == nil {
			continue
		}
		u, ok := s.users[*d.ManagerID]
		if !ok || u.Role != constants.RoleManager {
			out = append(out, *d)
		}
	}
	return out, nil
}

// --- TaskRepositoryInterface ---

func (s *memStore) GetTasks(ctx context.Context, filter types.Filter, visibility sq.Sqlizer) ([]entities.Task, uint64, error) {
	out := make([]entities.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out, uint64(len(out)), nil
}

func (s *memStore) GetTaskStats(ctx context.Context, visibility sq.Sqlizer) (*dto.TaskStatsDTO, error) {
	stats := &dto.TaskStatsDTO{}
	for _, t := range s.tasks {
		stats.Total++
		switch t.Status {
		case constants.TaskStatusTodo:
			stats.Todo++
		case constants.TaskStatusInProgress:
			stats.InProgress++
		case constants.TaskStatusCompleted:
			stats.Completed++
		case constants.TaskStatusBlocker:
			stats.Blocker++
		}
	}
	return stats, nil
}

func (s *memStore) FindTask(ctx context.Context, id uint64) (*entities.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) FindTaskInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Task, error) {
	return s.FindTask(ctx, id)
}

func (s *memStore) CreateTaskInTx(ctx context.Context, tx pgx.Tx, entity entities.Task) (*entities.Task, error) {
	cp := entity
	cp.ID = s.id()
	s.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateTask(ctx context.Context, entity entities.Task) (*entities.Task, error) {
	if _, ok := s.tasks[entity.ID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := entity
	s.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) UpdateTaskStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error {
	t, ok := s.tasks[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *memStore) GetSubtasksInTx(ctx context.Context, tx pgx.Tx, parentID uint64) ([]entities.Task, error) {
	out := []entities.Task{}
	for _, t := range s.tasks {
		if t.ParentID != nil && *t.ParentID == parentID {
			out = append(out, *t)
		}
	}
	return out, nil
}
