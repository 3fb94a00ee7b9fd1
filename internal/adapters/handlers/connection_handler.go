package handlers

import (
	"net/http"

	"github.com/iwtcode/railmon/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetConnection возвращает настройки подключения и здоровье соединения.
// @Summary Параметры подключения
// @Description Возвращает текущие настройки последовательного порта и статистику связи.
// @Tags Connection
// @Produce json
// @Success 200 {object} models.MessageResponse "Настройки и здоровье соединения"
// @Router /connection [get]
func (h *Handler) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"connection": h.usecase.Connection(),
		"health":     h.usecase.Health(),
	})
}

// SetConnection применяет новые настройки подключения к датчику.
// @Summary Изменить подключение
// @Description Проверяет и применяет новые настройки последовательного порта.
// @Tags Connection
// @Accept json
// @Produce json
// @Param input body models.ConnectionSettings true "Новые настройки подключения"
// @Success 200 {object} models.MessageResponse "Подключение переконфигурировано"
// @Failure 400 {object} models.ErrorResponse "Неверные параметры подключения"
// @Router /connection [post]
func (h *Handler) SetConnection(c *gin.Context) {
	var settings models.ConnectionSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.BadRequest(c, err, "Invalid connection payload")
		return
	}

	h.logger.Info("Attempting to reconfigure sensor connection", "port", settings.Port)

	if err := h.usecase.Configure(settings); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "connection": h.usecase.Connection()})
}
