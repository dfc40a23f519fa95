package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-tracker/internal/dto"
	"task-tracker/internal/entities"
	"task-tracker/internal/repositories"
	"task-tracker/pkg/config"
	"task-tracker/pkg/constants"
	apperrors "task-tracker/pkg/errors"
	"task-tracker/pkg/service"
	"task-tracker/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.LoginResponseDTO, error)
	Refresh(ctx context.Context, payload dto.RefreshDTO) (*dto.TokenPairDTO, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	jwtService service.JWTService
	ldapCfg    config.LDAPConfig
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	jwtService service.JWTService,
	ldapCfg config.LDAPConfig,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		ldapCfg:    ldapCfg,
		logger:     logger,
	}
}

// Login выполняет вход по каталогу LDAP или по локальному паролю.
// При включенном LDAP пользователь создается в БД при первом успешном
// bind-е с ролью employee.
func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.LoginResponseDTO, error) {
	var user *entities.User
	var err error

	if s.ldapCfg.Enabled {
		user, err = s.loginLDAP(ctx, payload)
	} else {
		user, err = s.loginLocal(ctx, payload)
	}
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.jwtService.GenerateTokens(user.ID, user.Role)
	if err != nil {
		s.logger.Error("Не удалось выпустить токены", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, apperrors.NewHttpError(500, "не удалось выпустить токены", err, nil)
	}

	s.logger.Info("Пользователь вошел в систему", zap.Uint64("userID", user.ID), zap.String("role", user.Role))
	return &dto.LoginResponseDTO{
		User:   *mapUserToDTO(user),
		Tokens: dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh},
	}, nil
}

func (s *AuthService) loginLocal(ctx context.Context, payload dto.LoginDTO) (*entities.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, payload.Login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Password.Valid {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(user.Password.String, payload.Password); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) loginLDAP(ctx context.Context, payload dto.LoginDTO) (*entities.User, error) {
	conn, err := ldap.DialURL(fmt.Sprintf("ldap://%s:%d", s.ldapCfg.Host, s.ldapCfg.Port))
	if err != nil {
		s.logger.Error("Не удалось подключиться к LDAP", zap.Error(err))
		return nil, apperrors.NewHttpError(502, "каталог недоступен", err, nil)
	}
	defer conn.Close()

	// Сервисный bind для поиска DN пользователя.
	if s.ldapCfg.BindDN != "" {
		if err := conn.Bind(s.ldapCfg.BindDN, s.ldapCfg.BindPassword); err != nil {
			s.logger.Error("Сервисный bind в LDAP не прошел", zap.Error(err))
			return nil, apperrors.NewHttpError(502, "каталог недоступен", err, nil)
		}
	}

	uid := strings.TrimSpace(payload.Login)
	searchRequest := ldap.NewSearchRequest(
		s.ldapCfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf("(%s=%s)", s.ldapCfg.UIDAttribute, ldap.EscapeFilter(uid)),
		[]string{"dn", "cn", "mail"},
		nil,
	)
	result, err := conn.Search(searchRequest)
	if err != nil || len(result.Entries) == 0 {
		return nil, apperrors.ErrInvalidCredentials
	}
	entry := result.Entries[0]

	if err := conn.Bind(entry.DN, payload.Password); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindUserByLdapUID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// Первый вход: заводим учетку по данным каталога.
	created, err := s.userRepo.CreateUser(ctx, &entities.User{
		Fio:     entry.GetAttributeValue("cn"),
		Email:   entry.GetAttributeValue("mail"),
		LdapUID: null.StringFrom(uid),
		Role:    constants.RoleEmployee,
	})
	if err != nil {
		s.logger.Error("Не удалось создать пользователя после bind-а", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Создан пользователь из каталога", zap.Uint64("userID", created.ID), zap.String("uid", uid))
	return created, nil
}

// Refresh обменивает действительный refresh-токен на новую пару.
// Роль перечитывается из БД, а не из токена.
func (s *AuthService) Refresh(ctx context.Context, payload dto.RefreshDTO) (*dto.TokenPairDTO, error) {
	claims, err := s.jwtService.ValidateToken(payload.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}

	user, err := s.userRepo.FindUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}

	access, refresh, err := s.jwtService.GenerateTokens(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewHttpError(500, "не удалось выпустить токены", err, nil)
	}
	return &dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh}, nil
}
