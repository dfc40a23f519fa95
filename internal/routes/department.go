package routes

import (
	"task-tracker/internal/controllers"
	"task-tracker/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runDepartmentRouter(secure *echo.Group, ctrl *controllers.DepartmentController, authMW *middleware.AuthMiddleware) {
	secure.GET("/departments", ctrl.GetDepartments)
	secure.GET("/department/:id", ctrl.FindDepartment)
	secure.POST("/department", ctrl.CreateDepartment, authMW.RequireAdmin)
	secure.PUT("/department/:id", ctrl.UpdateDepartment, authMW.RequireAdmin)
	secure.DELETE("/department/:id", ctrl.DeleteDepartment, authMW.RequireAdmin)
}
