package services

import (
	"context"

	"task-tracker/internal/dto"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/constants"
	"task-tracker/pkg/utils"

	"go.uber.org/zap"
)

type ReportServiceInterface interface {
	GetTaskReport(ctx context.Context, filter dto.TaskReportFilterDTO) ([]dto.TaskReportRowDTO, uint64, error)
}

// ReportService формирует табличный отчет по задачам. Выборка проходит
// через тот же предикат видимости, что и списки задач.
type ReportService struct {
	reportRepo repositories.ReportRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	logger     *zap.Logger
}

func NewReportService(
	reportRepo repositories.ReportRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) ReportServiceInterface {
	return &ReportService{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

func (s *ReportService) GetTaskReport(ctx context.Context, filter dto.TaskReportFilterDTO) ([]dto.TaskReportRowDTO, uint64, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}
	role, err := utils.GetUserRoleFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}

	var homeDepartmentID *uint64
	if role == constants.RoleManager {
		user, err := s.userRepo.FindUser(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		homeDepartmentID = user.DepartmentID
	}
	visibility := BuildTaskVisibility(role, userID, homeDepartmentID)

	rows, total, err := s.reportRepo.GetTaskReport(ctx, filter, visibility)
	if err != nil {
		s.logger.Error("Ошибка при формировании отчета", zap.Error(err))
		return nil, 0, err
	}
	return rows, total, nil
}
