package routes

import (
	"task-tracker/internal/controllers"
	"task-tracker/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runUserRouter(secure *echo.Group, ctrl *controllers.UserController, authMW *middleware.AuthMiddleware) {
	secure.GET("/users", ctrl.GetUsers)
	secure.GET("/user/:id", ctrl.FindUser)
	secure.POST("/user", ctrl.CreateUser, authMW.RequireAdmin)
	secure.PUT("/user/:id", ctrl.UpdateUser, authMW.RequireAdmin)
	secure.PATCH("/user/:id/role", ctrl.SetUserRole, authMW.RequireAdmin)
}
