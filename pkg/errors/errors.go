package errors

import (
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenIsNotRefresh    = fmt.Errorf("токен не является refresh-токеном")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader    = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader  = fmt.Errorf("неверный формат заголовка авторизации")
	ErrInvalidCredentials = fmt.Errorf("неверные учётные данные")
	ErrUnauthorized       = fmt.Errorf("неавторизован")
	ErrForbidden          = fmt.Errorf("доступ запрещён")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")

	// Общие
	ErrNotFound       = fmt.Errorf("запись не найдена")
	ErrBadRequest     = fmt.Errorf("неверный запрос")
	ErrInternalServer = fmt.Errorf("внутренняя ошибка сервера")
)

// HttpError - основная ошибка уровня API. Сервисы возвращают её,
// utils.ErrorResponse превращает её в JSON-ответ с нужным статусом.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error {
	return e.Err
}

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// Нарушение уникальности назначения руководителя (один руководитель -
// один департамент).
func NewConflictError(message string) *HttpError {
	return &HttpError{Code: http.StatusConflict, Message: message}
}

// Невыполненное предусловие операции (например, удаление департамента
// с дочерними департаментами или сотрудниками).
func NewPreconditionError(message string) *HttpError {
	return &HttpError{Code: http.StatusPreconditionFailed, Message: message}
}

func NewNotFoundError(message string) *HttpError {
	return &HttpError{Code: http.StatusNotFound, Message: message}
}

func NewAuthorizationError(message string) *HttpError {
	return &HttpError{Code: http.StatusForbidden, Message: message}
}

// Ошибка хранилища. Оборачивает исходную ошибку pgx без изменений,
// повторных попыток на этом уровне нет.
func NewStorageError(err error) *HttpError {
	return &HttpError{Code: http.StatusInternalServerError, Message: "ошибка при обращении к базе данных", Err: err}
}

func IsConflict(err error) bool {
	return hasCode(err, http.StatusConflict)
}

func IsPrecondition(err error) bool {
	return hasCode(err, http.StatusPreconditionFailed)
}

func hasCode(err error, code int) bool {
	httpErr, ok := err.(*HttpError)
	return ok && httpErr.Code == code
}
