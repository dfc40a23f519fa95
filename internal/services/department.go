package services

import (
	"context"
	"errors"
	"fmt"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/constants"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/types"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const timeFormat = "2006-01-02 15:04:05"

type DepartmentServiceInterface interface {
	GetDepartments(ctx context.Context, filter types.Filter) ([]dto.DepartmentDTO, uint64, error)
	FindDepartment(ctx context.Context, id uint64) (*dto.DepartmentDTO, error)
	CreateDepartment(ctx context.Context, payload dto.CreateDepartmentDTO) (*dto.DepartmentDTO, error)
	UpdateDepartment(ctx context.Context, id uint64, payload dto.UpdateDepartmentDTO) (*dto.DepartmentDTO, error)
	DeleteDepartment(ctx context.Context, id uint64) error
}

// DepartmentService - координатор связки "департамент <-> руководитель".
// Все пути с несколькими записями выполняются в одной транзакции, проверки
// конфликтов делаются до первой записи, так что частичных мутаций не бывает.
type DepartmentService struct {
	txManager      repositories.TxManagerInterface
	departmentRepo repositories.DepartmentRepositoryInterface
	userRepo       repositories.UserRepositoryInterface
	cacheRepo      repositories.CacheRepositoryInterface
	logger         *zap.Logger
}

func NewDepartmentService(
	txManager repositories.TxManagerInterface,
	departmentRepo repositories.DepartmentRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) DepartmentServiceInterface {
	return &DepartmentService{
		txManager:      txManager,
		departmentRepo: departmentRepo,
		userRepo:       userRepo,
		cacheRepo:      cacheRepo,
		logger:         logger,
	}
}

func mapDepartmentToDTO(d *entities.Department) *dto.DepartmentDTO {
	out := &dto.DepartmentDTO{
		ID:        d.ID,
		Name:      d.Name,
		ParentID:  d.ParentID,
		ManagerID: d.ManagerID,
	}
	if d.CreatedAt != nil {
		out.CreatedAt = d.CreatedAt.Format(timeFormat)
	}
	if d.UpdatedAt != nil {
		out.UpdatedAt = d.UpdatedAt.Format(timeFormat)
	}
	return out
}

// invalidateRoleCache сбрасывает кеш ролей для затронутых пользователей.
// Вызывается после коммита; ошибка кеша не откатывает уже примененные
// изменения и только логируется.
func (s *DepartmentService) invalidateRoleCache(ctx context.Context, userIDs ...uint64) {
	for _, id := range userIDs {
		key := fmt.Sprintf(constants.CacheKeyUserRole, id)
		if err := s.cacheRepo.Del(ctx, key); err != nil {
			s.logger.Warn("Не удалось сбросить кеш роли", zap.Uint64("userID", id), zap.Error(err))
		}
	}
}

func (s *DepartmentService) GetDepartments(ctx context.Context, filter types.Filter) ([]dto.DepartmentDTO, uint64, error) {
	departments, total, err := s.departmentRepo.GetDepartments(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка при получении списка департаментов", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.DepartmentDTO, 0, len(departments))
	for i := range departments {
		result = append(result, *mapDepartmentToDTO(&departments[i]))
	}
	return result, total, nil
}

func (s *DepartmentService) FindDepartment(ctx context.Context, id uint64) (*dto.DepartmentDTO, error) {
	department, err := s.departmentRepo.FindDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapDepartmentToDTO(department), nil
}

// checkManagerAssignable проверяет, что пользователь существует и не
// руководит другим департаментом. excludeDepartmentID исключает из проверки
// сам обновляемый департамент (переназначение того же руководителя).
func (s *DepartmentService) checkManagerAssignable(ctx context.Context, tx pgx.Tx, managerID uint64, excludeDepartmentID uint64) error {
	if _, err := s.userRepo.FindUserInTx(ctx, tx, managerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("пользователь для назначения руководителем не найден")
		}
		return err
	}
	existing, err := s.departmentRepo.FindDepartmentByManagerInTx(ctx, tx, managerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != excludeDepartmentID {
		return apperrors.NewConflictError("пользователь уже руководит другим департаментом")
	}
	return nil
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, payload dto.CreateDepartmentDTO) (*dto.DepartmentDTO, error) {
	var created *entities.Department
	var affected []uint64

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if payload.ParentID != nil {
			if _, err := s.departmentRepo.FindDepartmentInTx(ctx, tx, *payload.ParentID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewNotFoundError("родительский департамент не найден")
				}
				return err
			}
		}
		if payload.ManagerID != nil {
			if err := s.checkManagerAssignable(ctx, tx, *payload.ManagerID, 0); err != nil {
				return err
			}
		}

		department, err := s.departmentRepo.CreateDepartmentInTx(ctx, tx, entities.Department{
			Name:      payload.Name,
			ParentID:  payload.ParentID,
			ManagerID: payload.ManagerID,
		})
		if err != nil {
			return err
		}

		// Назначение руководителем дает роль manager и делает новый
		// департамент домашним для этого пользователя.
		if payload.ManagerID != nil {
			if err := s.userRepo.UpdateUserRoleAndDepartmentInTx(ctx, tx, *payload.ManagerID, constants.RoleManager, department.ID); err != nil {
				return err
			}
			affected = append(affected, *payload.ManagerID)
		}

		created = department
		return nil
	})
	if err != nil {
		s.logger.Error("Ошибка при создании департамента", zap.Error(err))
		return nil, err
	}

	s.invalidateRoleCache(ctx, affected...)
	s.logger.Info("Департамент создан", zap.Uint64("id", created.ID), zap.String("name", created.Name))
	return mapDepartmentToDTO(created), nil
}

func (s *DepartmentService) UpdateDepartment(ctx context.Context, id uint64, payload dto.UpdateDepartmentDTO) (*dto.DepartmentDTO, error) {
	var updated *entities.Department
	var affected []uint64

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.departmentRepo.FindDepartmentInTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("департамент не найден")
			}
			return err
		}

		entity := *current
		if payload.Name != nil {
			entity.Name = *payload.Name
		}
		if payload.ParentID != nil {
			if payload.ParentID.Valid {
				parentID := payload.ParentID.Uint64
				if parentID == id {
					return apperrors.NewPreconditionError("департамент не может быть родителем самого себя")
				}
				if _, err := s.departmentRepo.FindDepartmentInTx(ctx, tx, parentID); err != nil {
					if errors.Is(err, apperrors.ErrNotFound) {
						return apperrors.NewNotFoundError("родительский департамент не найден")
					}
					return err
				}
				entity.ParentID = &parentID
			} else {
				entity.ParentID = nil
			}
		}

		var demote *uint64
		var promote *uint64
		if payload.ManagerID != nil {
			switch {
			case !payload.ManagerID.Valid:
				// Явный null: снять руководителя.
				if current.ManagerID != nil {
					demote = current.ManagerID
				}
				entity.ManagerID = nil
			case current.ManagerID != nil && *current.ManagerID == payload.ManagerID.Uint64:
				// Тот же руководитель, без изменений.
			default:
				newManagerID := payload.ManagerID.Uint64
				if err := s.checkManagerAssignable(ctx, tx, newManagerID, id); err != nil {
					return err
				}
				if current.ManagerID != nil {
					demote = current.ManagerID
				}
				promote = &newManagerID
				entity.ManagerID = &newManagerID
			}
		}

		if demote != nil {
			if err := s.userRepo.UpdateUserRoleInTx(ctx, tx, *demote, constants.RoleEmployee); err != nil {
				return err
			}
			affected = append(affected, *demote)
		}
		if promote != nil {
			if err := s.userRepo.UpdateUserRoleAndDepartmentInTx(ctx, tx, *promote, constants.RoleManager, id); err != nil {
				return err
			}
			affected = append(affected, *promote)
		}

		updated, err = s.departmentRepo.UpdateDepartmentInTx(ctx, tx, entity)
		return err
	})
	if err != nil {
		s.logger.Error("Ошибка при обновлении департамента", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	s.invalidateRoleCache(ctx, affected...)
	s.logger.Info("Департамент обновлен", zap.Uint64("id", id))
	return mapDepartmentToDTO(updated), nil
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, id uint64) error {
	var affected []uint64

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		department, err := s.departmentRepo.FindDepartmentInTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("департамент не найден")
			}
			return err
		}

		children, err := s.departmentRepo.CountChildrenInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperrors.NewPreconditionError("нельзя удалить департамент с дочерними департаментами")
		}

		members, err := s.userRepo.CountUsersByDepartmentInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if members > 0 {
			return apperrors.NewPreconditionError("нельзя удалить департамент, в котором числятся сотрудники")
		}

		if department.ManagerID != nil {
			if err := s.userRepo.UpdateUserRoleInTx(ctx, tx, *department.ManagerID, constants.RoleEmployee); err != nil {
				return err
			}
			affected = append(affected, *department.ManagerID)
		}

		return s.departmentRepo.DeleteDepartmentInTx(ctx, tx, id)
	})
	if err != nil {
		s.logger.Error("Ошибка при удалении департамента", zap.Uint64("id", id), zap.Error(err))
		return err
	}

	s.invalidateRoleCache(ctx, affected...)
	s.logger.Info("Департамент удален", zap.Uint64("id", id))
	return nil
}
