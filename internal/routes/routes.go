package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"task-tracker/internal/controllers"
	"task-tracker/internal/listeners"
	"task-tracker/internal/repositories"
	"task-tracker/internal/services"
	"task-tracker/pkg/config"
	"task-tracker/pkg/eventbus"
	"task-tracker/pkg/middleware"
	"task-tracker/pkg/service"
)

type Loggers struct {
	Main *zap.Logger
	Auth *zap.Logger
	Task *zap.Logger
	User *zap.Logger
}

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, loggers *Loggers, cfg *config.Config) {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	txManager := repositories.NewTxManager(dbConn)
	bus := eventbus.New(loggers.Main)

	// --- РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn, loggers.User)
	departmentRepo := repositories.NewDepartmentRepository(dbConn, loggers.Main)
	taskRepo := repositories.NewTaskRepository(dbConn, loggers.Task)
	reportRepo := repositories.NewReportRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- СЕРВИСЫ ---
	userService := services.NewUserService(txManager, userRepo, departmentRepo, cacheRepo, loggers.User)
	departmentService := services.NewDepartmentService(txManager, departmentRepo, userRepo, cacheRepo, loggers.Main)
	taskService := services.NewTaskService(txManager, taskRepo, userRepo, bus, loggers.Task)
	consistencyService := services.NewConsistencyService(userRepo, departmentRepo, cacheRepo, loggers.Main)
	authService := services.NewAuthService(userRepo, jwtSvc, cfg.LDAP, loggers.Auth)
	reportService := services.NewReportService(reportRepo, userRepo, loggers.Main)

	// Роль в middleware разрешается через кеш и БД, а не из токена.
	authMW := middleware.NewAuthMiddleware(jwtSvc, userService, loggers.Auth)

	notificationListener := listeners.NewNotificationListener(loggers.Main)
	notificationListener.Register(bus)

	// --- КОНТРОЛЛЕРЫ ---
	authController := controllers.NewAuthController(authService, loggers.Auth)
	userController := controllers.NewUserController(userService, loggers.User)
	departmentController := controllers.NewDepartmentController(departmentService, loggers.Main)
	taskController := controllers.NewTaskController(taskService, loggers.Task)
	consistencyController := controllers.NewConsistencyController(consistencyService, loggers.Main)
	reportController := controllers.NewReportController(reportService, loggers.Main)

	// --- РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, authController)
	runUserRouter(secureGroup, userController, authMW)
	runDepartmentRouter(secureGroup, departmentController, authMW)
	runTaskRouter(secureGroup, taskController)
	runConsistencyRouter(secureGroup, consistencyController, authMW)
	runReportRouter(secureGroup, reportController)

	loggers.Main.Info("InitRouter: Создание маршрутов завершено")
}
