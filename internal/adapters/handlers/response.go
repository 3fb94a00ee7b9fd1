package handlers

import (
	goerrors "errors"
	"net/http"

	"github.com/iwtcode/railmon/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse возвращает стандартизированный ответ с ошибкой
func (h *Handler) ErrorResponse(c *gin.Context, err error, statusCode int, message string, showError bool) {
	errorMessage := message
	if showError && err != nil {
		errorMessage = message + ": " + err.Error()
	}

	h.logger.Error(message, "error", err, "statusCode", statusCode)
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    statusCode,
			"message": errorMessage,
		},
	})
}

// BadRequest возвращает ошибку 400
func (h *Handler) BadRequest(c *gin.Context, err error, message string) {
	if message == "" {
		message = errors.BadRequest
	}
	h.ErrorResponse(c, err, http.StatusBadRequest, message, true)
}

// InternalError возвращает ошибку 500
func (h *Handler) InternalError(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusInternalServerError, errors.InternalServerError, false)
}

// NotFound возвращает ошибку 404
func (h *Handler) NotFound(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusNotFound, errors.NotFound, true)
}

// HandleError разбирает ошибку по таксономии и возвращает подходящий код:
// валидация - 400, занятый порт - 409, недоступный датчик - 503,
// отсутствие данных - 404, остальное - 500.
func (h *Handler) HandleError(c *gin.Context, err error) {
	var validationErr *errors.ValidationError
	if goerrors.As(err, &validationErr) {
		h.BadRequest(c, err, "Validation failed")
		return
	}

	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		h.ErrorResponse(c, appErr.Err, appErr.Code, appErr.Message, appErr.IsUserFacing)
		return
	}

	if goerrors.Is(err, errors.ErrDataNotFound) {
		h.NotFound(c, err)
		return
	}
	if goerrors.Is(err, errors.ErrNotInitialized) {
		h.ErrorResponse(c, err, http.StatusServiceUnavailable, errors.DeviceUnreachable, true)
		return
	}

	h.InternalError(c, err)
}
