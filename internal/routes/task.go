package routes

import (
	"task-tracker/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runTaskRouter(secure *echo.Group, ctrl *controllers.TaskController) {
	secure.GET("/tasks", ctrl.GetTasks)
	secure.GET("/tasks/stats", ctrl.GetTaskStats)
	secure.GET("/task/:id", ctrl.FindTask)
	secure.POST("/task", ctrl.CreateTask)
	secure.PUT("/task/:id", ctrl.UpdateTask)
	secure.PATCH("/task/:id/status", ctrl.UpdateTaskStatus)
}
