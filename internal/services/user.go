package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/constants"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"
	"task-tracker/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// roleCacheTTL ограничивает время жизни кешированной роли. Мутации роли
// сбрасывают ключ сразу, TTL страхует от потерянной инвалидации.
const roleCacheTTL = 15 * time.Minute

type UserServiceInterface interface {
	GetUsers(ctx context.Context, filter types.Filter) ([]dto.UserDTO, uint64, error)
	FindUser(ctx context.Context, id uint64) (*dto.UserDTO, error)
	CreateUser(ctx context.Context, payload dto.CreateUserDTO) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, id uint64, payload dto.UpdateUserDTO) (*dto.UserDTO, error)
	SetUserRole(ctx context.Context, id uint64, payload dto.SetUserRoleDTO) (*dto.UserDTO, error)
	ResolveRole(ctx context.Context, userID uint64) (string, error)
}

type UserService struct {
	txManager      repositories.TxManagerInterface
	userRepo       repositories.UserRepositoryInterface
	departmentRepo repositories.DepartmentRepositoryInterface
	cacheRepo      repositories.CacheRepositoryInterface
	logger         *zap.Logger
}

func NewUserService(
	txManager repositories.TxManagerInterface,
	userRepo repositories.UserRepositoryInterface,
	departmentRepo repositories.DepartmentRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) UserServiceInterface {
	return &UserService{
		txManager:      txManager,
		userRepo:       userRepo,
		departmentRepo: departmentRepo,
		cacheRepo:      cacheRepo,
		logger:         logger,
	}
}

func mapUserToDTO(u *entities.User) *dto.UserDTO {
	out := &dto.UserDTO{
		ID:          u.ID,
		Fio:         u.Fio,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
	if u.LdapUID.Valid {
		out.LdapUID = &u.LdapUID.String
	}
	if u.CreatedAt != nil {
		out.CreatedAt = u.CreatedAt.Format(timeFormat)
	}
	if u.UpdatedAt != nil {
		out.UpdatedAt = u.UpdatedAt.Format(timeFormat)
	}
	return out
}

func (s *UserService) GetUsers(ctx context.Context, filter types.Filter) ([]dto.UserDTO, uint64, error) {
	users, total, err := s.userRepo.GetUsers(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка при получении списка пользователей", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.UserDTO, 0, len(users))
	for i := range users {
		result = append(result, *mapUserToDTO(&users[i]))
	}
	return result, total, nil
}

func (s *UserService) FindUser(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	out := mapUserToDTO(user)
	if user.DepartmentID != nil {
		department, err := s.departmentRepo.FindDepartment(ctx, *user.DepartmentID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if department != nil {
			out.Department = &dto.ShortDepartmentDTO{ID: department.ID, Name: department.Name}
		}
	}
	return out, nil
}

func (s *UserService) CreateUser(ctx context.Context, payload dto.CreateUserDTO) (*dto.UserDTO, error) {
	if payload.DepartmentID != nil {
		if _, err := s.departmentRepo.FindDepartment(ctx, *payload.DepartmentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewNotFoundError("департамент не найден")
			}
			return nil, err
		}
	}

	entity := entities.User{
		Fio:          payload.Fio,
		Email:        payload.Email,
		PhoneNumber:  payload.PhoneNumber,
		Role:         constants.RoleEmployee,
		DepartmentID: payload.DepartmentID,
	}
	if payload.Password != "" {
		hash, err := utils.HashPassword(payload.Password)
		if err != nil {
			return nil, err
		}
		entity.Password = null.StringFrom(hash)
	}

	user, err := s.userRepo.CreateUser(ctx, &entity)
	if err != nil {
		s.logger.Error("Ошибка при создании пользователя", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Пользователь создан", zap.Uint64("id", user.ID), zap.String("email", user.Email))
	return mapUserToDTO(user), nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint64, payload dto.UpdateUserDTO) (*dto.UserDTO, error) {
	current, err := s.userRepo.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}

	entity := *current
	if payload.Fio != nil {
		entity.Fio = *payload.Fio
	}
	if payload.Email != nil {
		entity.Email = *payload.Email
	}
	if payload.PhoneNumber != nil {
		entity.PhoneNumber = payload.PhoneNumber
	}
	if payload.DepartmentID != nil {
		if !payload.DepartmentID.Valid {
			entity.DepartmentID = nil
		} else {
			if _, err := s.departmentRepo.FindDepartment(ctx, payload.DepartmentID.Uint64); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return nil, apperrors.NewNotFoundError("департамент не найден")
				}
				return nil, err
			}
			departmentID := payload.DepartmentID.Uint64
			entity.DepartmentID = &departmentID
		}
	}

	user, err := s.userRepo.UpdateUser(ctx, &entity)
	if err != nil {
		s.logger.Error("Ошибка при обновлении пользователя", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return mapUserToDTO(user), nil
}

// SetUserRole - прямая смена роли в обход назначения руководителем.
// Снятие роли manager одновременно очищает manager_id всех департаментов,
// которыми пользователь руководил. Прямое назначение роли manager без
// департамента оставляет переходное состояние: его отмечает проверка
// консистентности, а восстановительный прогон понижает роль обратно.
func (s *UserService) SetUserRole(ctx context.Context, id uint64, payload dto.SetUserRoleDTO) (*dto.UserDTO, error) {
	if !constants.IsValidRole(payload.Role) {
		return nil, apperrors.NewHttpError(400, "недопустимая роль", nil, nil)
	}

	var updated *entities.User
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.userRepo.FindUserInTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("пользователь не найден")
			}
			return err
		}

		if current.Role == constants.RoleManager && payload.Role != constants.RoleManager {
			cleared, err := s.departmentRepo.ClearManagerForUserInTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if cleared > 0 {
				s.logger.Info("Снято руководство департаментами при смене роли",
					zap.Uint64("userID", id), zap.Int64("departments", cleared))
			}
		}

		if err := s.userRepo.UpdateUserRoleInTx(ctx, tx, id, payload.Role); err != nil {
			return err
		}

		entity := *current
		entity.Role = payload.Role
		updated = &entity
		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка при смене роли пользователя", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	if err := s.cacheRepo.Del(ctx, fmt.Sprintf(constants.CacheKeyUserRole, id)); err != nil {
		s.logger.Warn("Не удалось сбросить кеш роли", zap.Uint64("userID", id), zap.Error(err))
	}
	return mapUserToDTO(updated), nil
}

// ResolveRole возвращает актуальную роль пользователя для middleware:
// роль берется из кеша или из БД, а не из токена, чтобы смена роли
// действовала до истечения уже выданных токенов.
func (s *UserService) ResolveRole(ctx context.Context, userID uint64) (string, error) {
	key := fmt.Sprintf(constants.CacheKeyUserRole, userID)
	if cached, err := s.cacheRepo.Get(ctx, key); err == nil && constants.IsValidRole(cached) {
		return cached, nil
	}

	user, err := s.userRepo.FindUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.cacheRepo.Set(ctx, key, user.Role, roleCacheTTL); err != nil {
		s.logger.Warn("Не удалось записать роль в кеш", zap.Uint64("userID", userID), zap.Error(err))
	}
	return user.Role, nil
}
