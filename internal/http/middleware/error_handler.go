package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/offer-escrow/internal/dto"
	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
)

// ErrorHandler превращает ошибки из c.Errors в JSON ответ.
// Внутренние ошибки маскируются, причина пишется только в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := Describe(err)

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("Request error")
		} else {
			entry.Debug("Request rejected")
		}

		c.JSON(status, body)
	}
}

// Describe возвращает HTTP статус и тело ответа для ошибки.
func Describe(err error) (int, dto.ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
			Code:  string(apperror.ErrCodeInternal),
		}
	}

	message := appErr.Message
	switch appErr.Code {
	case apperror.ErrCodeInternal, apperror.ErrCodeDatabaseError:
		message = "внутренняя ошибка сервера"
	}

	return appErr.HTTPStatus, dto.ErrorResponse{
		Error: message,
		Code:  string(appErr.Code),
	}
}
