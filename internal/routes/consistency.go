package routes

import (
	"task-tracker/internal/controllers"
	"task-tracker/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runConsistencyRouter(secure *echo.Group, ctrl *controllers.ConsistencyController, authMW *middleware.AuthMiddleware) {
	secure.GET("/consistency/roles", ctrl.ValidateRoles, authMW.RequireAdmin)
	secure.POST("/consistency/roles/sync", ctrl.SyncRoles, authMW.RequireAdmin)
}
