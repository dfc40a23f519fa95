package controllers

import (
	"net/http"

	"task-tracker/internal/services"
	"task-tracker/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ConsistencyController - административная поверхность проверки и
// восстановления связки "роль <-> руководство департаментом".
type ConsistencyController struct {
	consistencyService services.ConsistencyServiceInterface
	logger             *zap.Logger
}

func NewConsistencyController(service services.ConsistencyServiceInterface, logger *zap.Logger) *ConsistencyController {
	return &ConsistencyController{consistencyService: service, logger: logger}
}

func (c *ConsistencyController) ValidateRoles(ctx echo.Context) error {
	report, err := c.consistencyService.ValidateRoleConsistency(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, report, "Проверка консистентности выполнена", http.StatusOK)
}

func (c *ConsistencyController) SyncRoles(ctx echo.Context) error {
	result, err := c.consistencyService.SyncUserRolesWithDepartments(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Синхронизация ролей выполнена", http.StatusOK)
}
