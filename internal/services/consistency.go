package services

import (
	"context"
	"fmt"

	"task-tracker/internal/dto"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/constants"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

type ConsistencyServiceInterface interface {
	ValidateRoleConsistency(ctx context.Context) (*dto.RoleConsistencyReportDTO, error)
	SyncUserRolesWithDepartments(ctx context.Context) (*dto.RoleSyncResultDTO, error)
}

// ConsistencyService проверяет и восстанавливает соответствие
// "роль manager <-> руководство департаментом". Дрейф возможен при
// правках данных в обход координатора, прогон безопасно запускать повторно.
type ConsistencyService struct {
	userRepo       repositories.UserRepositoryInterface
	departmentRepo repositories.DepartmentRepositoryInterface
	cacheRepo      repositories.CacheRepositoryInterface
	logger         *zap.Logger
}

func NewConsistencyService(
	userRepo repositories.UserRepositoryInterface,
	departmentRepo repositories.DepartmentRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) ConsistencyServiceInterface {
	return &ConsistencyService{
		userRepo:       userRepo,
		departmentRepo: departmentRepo,
		cacheRepo:      cacheRepo,
		logger:         logger,
	}
}

// ValidateRoleConsistency собирает отчет без записей в БД.
func (s *ConsistencyService) ValidateRoleConsistency(ctx context.Context) (*dto.RoleConsistencyReportDTO, error) {
	orphanManagers, err := s.userRepo.GetManagersWithoutDepartments(ctx)
	if err != nil {
		s.logger.Error("Не удалось прочитать менеджеров без департаментов", zap.Error(err))
		return nil, err
	}
	staleDepartments, err := s.departmentRepo.GetDepartmentsWithStaleManagers(ctx)
	if err != nil {
		s.logger.Error("Не удалось прочитать департаменты с устаревшими руководителями", zap.Error(err))
		return nil, err
	}

	report := &dto.RoleConsistencyReportDTO{
		IsConsistent:                 len(orphanManagers) == 0 && len(staleDepartments) == 0,
		UsersWithoutDepartments:      make([]dto.ShortUserDTO, 0, len(orphanManagers)),
		DepartmentsWithStaleManagers: make([]dto.ShortDepartmentDTO, 0, len(staleDepartments)),
	}
	for i := range orphanManagers {
		u := &orphanManagers[i]
		report.UsersWithoutDepartments = append(report.UsersWithoutDepartments,
			dto.ShortUserDTO{ID: u.ID, Fio: u.Fio, Role: u.Role})
	}
	for i := range staleDepartments {
		d := &staleDepartments[i]
		report.DepartmentsWithStaleManagers = append(report.DepartmentsWithStaleManagers,
			dto.ShortDepartmentDTO{ID: d.ID, Name: d.Name})
	}
	return report, nil
}

// SyncUserRolesWithDepartments восстанавливает двусторонний инвариант:
// менеджеры без департамента понижаются до employee, назначенные
// руководители без роли manager повышаются. Оба множества независимы,
// порядок проходов значения не имеет. Каждая запись атомарна сама по
// себе, весь прогон одной транзакцией не оборачивается и потому
// идемпотентен: повторный запуск на неизменных данных делает ноль записей.
func (s *ConsistencyService) SyncUserRolesWithDepartments(ctx context.Context) (*dto.RoleSyncResultDTO, error) {
	runID := uuid.New().String()
	log := s.logger.With(zap.String("runID", runID))

	orphanManagers, err := s.userRepo.GetManagersWithoutDepartments(ctx)
	if err != nil {
		log.Error("Не удалось прочитать кандидатов на понижение", zap.Error(err))
		return nil, err
	}
	staleDepartments, err := s.departmentRepo.GetDepartmentsWithStaleManagers(ctx)
	if err != nil {
		log.Error("Не удалось прочитать кандидатов на повышение", zap.Error(err))
		return nil, err
	}

	result := &dto.RoleSyncResultDTO{}
	for i := range orphanManagers {
		u := &orphanManagers[i]
		if err := s.userRepo.UpdateUserRole(ctx, u.ID, constants.RoleEmployee); err != nil {
			log.Error("Не удалось понизить роль", zap.Uint64("userID", u.ID), zap.Error(err))
			continue
		}
		s.dropRoleCache(ctx, log, u.ID)
		result.Demoted++
	}
	for i := range staleDepartments {
		d := &staleDepartments[i]
		if d.ManagerID == nil {
			continue
		}
		if err := s.userRepo.UpdateUserRole(ctx, *d.ManagerID, constants.RoleManager); err != nil {
			log.Error("Не удалось повысить роль", zap.Uint64("userID", *d.ManagerID), zap.Error(err))
			continue
		}
		s.dropRoleCache(ctx, log, *d.ManagerID)
		result.Promoted++
	}

	log.Info("Прогон синхронизации ролей завершен",
		zap.Int("demoted", result.Demoted),
		zap.Int("promoted", result.Promoted))
	return result, nil
}

func (s *ConsistencyService) dropRoleCache(ctx context.Context, log *zap.Logger, userID uint64) {
	if err := s.cacheRepo.Del(ctx, fmt.Sprintf(constants.CacheKeyUserRole, userID)); err != nil {
		log.Warn("Не удалось сбросить кеш роли", zap.Uint64("userID", userID), zap.Error(err))
	}
}
