package middleware

import (
	"context"
	"strings"

	"task-tracker/pkg/constants"
	"task-tracker/pkg/contextkeys"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/service"
	"task-tracker/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RoleResolverInterface отдает актуальную роль пользователя (кеш + БД).
// Роль из токена не используется напрямую: после переназначения
// руководителя старый токен не должен сохранять старые права.
type RoleResolverInterface interface {
	ResolveRole(ctx context.Context, userID uint64) (string, error)
}

type AuthMiddleware struct {
	jwtService   service.JWTService
	roleResolver RoleResolverInterface
	logger       *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, roleResolver RoleResolverInterface, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:   jwtSvc,
		roleResolver: roleResolver,
		logger:       logger,
	}
}

// Auth - основная функция middleware.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: Пустой заголовок Authorization")
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: Неверный формат заголовка Authorization")
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: Ошибка валидации токена", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		if claims.IsRefreshToken {
			m.logger.Warn("AuthMiddleware: Попытка доступа с refresh токеном")
			return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess, m.logger)
		}

		ctx := c.Request().Context()
		role, err := m.roleResolver.ResolveRole(ctx, claims.UserID)
		if err != nil {
			m.logger.Warn("AuthMiddleware: Не удалось определить роль пользователя",
				zap.Uint64("userID", claims.UserID), zap.Error(err))
			return utils.ErrorResponse(c, apperrors.ErrUnauthorized, m.logger)
		}

		newCtx := context.WithValue(ctx, contextkeys.UserIDKey, claims.UserID)
		newCtx = context.WithValue(newCtx, contextkeys.UserRoleKey, role)
		c.SetRequest(c.Request().WithContext(newCtx))

		return next(c)
	}
}

// RequireAdmin пускает дальше только администраторов.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, err := utils.GetUserRoleFromCtx(c.Request().Context())
		if err != nil {
			return utils.ErrorResponse(c, apperrors.ErrForbidden, m.logger)
		}
		if role != constants.RoleAdmin {
			m.logger.Warn("RequireAdmin: Доступ запрещен",
				zap.String("role", role), zap.String("uri", c.Request().RequestURI))
			return utils.ErrorResponse(c, apperrors.NewAuthorizationError("Операция доступна только администратору"), m.logger)
		}
		return next(c)
	}
}
