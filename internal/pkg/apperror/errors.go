package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeAmountMismatch     ErrorCode = "AMOUNT_MISMATCH"
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrCodeExternalCall       ErrorCode = "EXTERNAL_CALL_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidTransition, ErrCodeAmountMismatch:
		return http.StatusUnprocessableEntity
	case ErrCodeGatewayUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeExternalCall:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку, если это не AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode проверяет код ошибки по всей цепочке.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return HasCode(err, ErrCodeConflict)
}

func IsInvalidTransition(err error) bool {
	return HasCode(err, ErrCodeInvalidTransition)
}

// Validation оборачивает ошибку проверки входных данных.
func Validation(err error) *AppError {
	return Wrap(err, ErrCodeValidation, err.Error())
}

var (
	ErrUnauthorized = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden    = New(ErrCodeForbidden, "недостаточно прав")

	ErrPostingNotFound  = New(ErrCodeNotFound, "публикация не найдена")
	ErrProviderNotFound = New(ErrCodeNotFound, "исполнитель не найден")
	ErrOfferNotFound    = New(ErrCodeNotFound, "предложение не найдено")
	ErrEscrowNotFound   = New(ErrCodeNotFound, "платёж по предложению не найден")

	ErrOfferExists      = New(ErrCodeConflict, "вы уже откликнулись на эту публикацию")
	ErrAlreadyAccepted  = New(ErrCodeConflict, "вы уже приняли это предложение")
	ErrFeedbackGiven    = New(ErrCodeConflict, "отзыв уже оставлен")
	ErrAlreadyPaid      = New(ErrCodeConflict, "оплата по предложению уже внесена")
	ErrStaleOffer       = New(ErrCodeConflict, "предложение было изменено, повторите запрос")
	ErrOwnPosting       = New(ErrCodeValidation, "нельзя откликнуться на собственную публикацию")
	ErrUnknownRail      = New(ErrCodeValidation, "неизвестный способ оплаты")
	ErrAmountMismatch   = New(ErrCodeAmountMismatch, "сумма оплаты не совпадает с текущей суммой предложения")
	ErrNegotiationEnded = New(ErrCodeInvalidTransition, "сумму больше нельзя изменить")
	ErrOfferRejected    = New(ErrCodeInvalidTransition, "предложение отклонено")
	ErrOfferClosed      = New(ErrCodeInvalidTransition, "работа по предложению уже сдана")
	ErrNotPayable       = New(ErrCodeInvalidTransition, "предложение нельзя оплатить в текущем статусе")
	ErrNotReady         = New(ErrCodeInvalidTransition, "предложение не принято обеими сторонами и не оплачено")
	ErrDeadlinePassed   = New(ErrCodeInvalidTransition, "срок сдачи истёк, предложение отклонено")
	ErrNotDelivered     = New(ErrCodeInvalidTransition, "работа ещё не сдана")
	ErrNotCompleted     = New(ErrCodeInvalidTransition, "отзыв можно оставить только после завершения")
	ErrNoHold           = New(ErrCodeInvalidTransition, "нет удержанного платежа")

	ErrGatewayUnavailable = New(ErrCodeGatewayUnavailable, "платёжный шлюз не настроен")
	ErrHoldCanceled       = New(ErrCodeExternalCall, "платёж отменён платёжным шлюзом")
)
