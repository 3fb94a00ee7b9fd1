package handlers

import (
	"net/http"
	"strconv"

	"github.com/iwtcode/railmon/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetAlerts возвращает список тревог с опциональными фильтрами.
// @Summary Список тревог
// @Description Возвращает тревоги за период с опциональным фильтром по статусу.
// @Tags Alerts
// @Produce json
// @Param since_seconds query int false "Период в секундах (0 - все)"
// @Param status query string false "Фильтр по статусу: active, acknowledged, cleared"
// @Success 200 {object} models.MessageResponse "Список тревог"
// @Failure 400 {object} models.ErrorResponse "Неверные параметры запроса"
// @Router /alerts [get]
func (h *Handler) GetAlerts(c *gin.Context) {
	sinceSeconds, err := strconv.Atoi(c.DefaultQuery("since_seconds", "0"))
	if err != nil || sinceSeconds < 0 {
		h.BadRequest(c, err, "Invalid 'since_seconds' query parameter")
		return
	}

	status := c.Query("status")
	switch status {
	case "", models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusCleared:
	default:
		h.BadRequest(c, nil, "Invalid 'status' query parameter")
		return
	}

	alerts := h.usecase.Alerts(sinceSeconds, status)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "count": len(alerts), "alerts": alerts})
}

// ExportAlertsCSV выгружает тревоги в формате CSV.
// @Summary Экспорт тревог в CSV
// @Description Возвращает тревоги за период одним CSV-файлом.
// @Tags Alerts
// @Produce text/csv
// @Param since_seconds query int false "Период в секундах (0 - все)"
// @Success 200 {string} string "CSV с тревогами"
// @Router /alerts/csv [get]
func (h *Handler) ExportAlertsCSV(c *gin.Context) {
	sinceSeconds, err := strconv.Atoi(c.DefaultQuery("since_seconds", "0"))
	if err != nil || sinceSeconds < 0 {
		h.BadRequest(c, err, "Invalid 'since_seconds' query parameter")
		return
	}

	data, err := h.usecase.AlertsCSV(sinceSeconds)
	if err != nil {
		h.InternalError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="alerts.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// AcknowledgeAlert подтверждает активную тревогу.
// @Summary Подтвердить тревогу
// @Description Переводит тревогу из active в acknowledged.
// @Tags Alerts
// @Produce json
// @Param id path string true "ID тревоги"
// @Success 200 {object} models.MessageResponse "Обновленная тревога"
// @Failure 400 {object} models.ErrorResponse "Тревога не в статусе active"
// @Failure 404 {object} models.ErrorResponse "Тревога не найдена"
// @Router /alerts/{id}/ack [post]
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.BadRequest(c, nil, "Missing alert id")
		return
	}

	alert, err := h.usecase.AcknowledgeAlert(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Alert acknowledged", "id", id)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "alert": alert})
}
