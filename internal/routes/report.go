package routes

import (
	"task-tracker/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runReportRouter(secure *echo.Group, ctrl *controllers.ReportController) {
	secure.GET("/reports/tasks", ctrl.GetTaskReport)
}
