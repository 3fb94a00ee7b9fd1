package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iwtcode/railmon/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetLatest возвращает последнее показание датчика со сводным статусом.
// @Summary Последнее показание
// @Description Возвращает последнее показание, здоровье соединения и активные тревоги.
// @Tags Readings
// @Produce json
// @Success 200 {object} models.StatusResponse "Текущее состояние мониторинга"
// @Router /readings/latest [get]
func (h *Handler) GetLatest(c *gin.Context) {
	reading, cycleStatus := h.usecase.Latest()

	response := models.StatusResponse{
		Timestamp:    time.Now().UTC(),
		CycleStatus:  cycleStatus,
		Reading:      reading,
		Health:       h.usecase.Health(),
		ActiveAlerts: h.usecase.Alerts(0, models.AlertStatusActive),
		TrainState:   h.usecase.TrainState(),
		MachineClass: h.usecase.MachineClass(),
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": response})
}

// GetHistory возвращает историю показаний за указанный период.
// @Summary История показаний
// @Description Возвращает сохраненные показания за последние N секунд.
// @Tags Readings
// @Produce json
// @Param seconds query int false "Глубина истории в секундах (по умолчанию 3600)"
// @Success 200 {object} models.MessageResponse "Список показаний"
// @Failure 400 {object} models.ErrorResponse "Неверный параметр seconds"
// @Router /readings/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	seconds, err := strconv.Atoi(c.DefaultQuery("seconds", "3600"))
	if err != nil || seconds < 0 {
		h.BadRequest(c, err, "Invalid 'seconds' query parameter")
		return
	}

	readings, err := h.usecase.History(seconds)
	if err != nil {
		h.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "count": len(readings), "readings": readings})
}

// ReadNow выполняет внеочередное чтение датчика.
// @Summary Прочитать сейчас
// @Description Выполняет немедленный цикл чтения вне расписания опроса.
// @Tags Readings
// @Produce json
// @Success 200 {object} models.MessageResponse "Свежее показание"
// @Failure 409 {object} models.ErrorResponse "Порт занят другим процессом"
// @Failure 503 {object} models.ErrorResponse "Датчик недоступен"
// @Router /readings/now [post]
func (h *Handler) ReadNow(c *gin.Context) {
	reading, err := h.usecase.ReadNow(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reading": reading})
}

// GetDiagnostics возвращает диагностический отчет по последнему показанию.
// @Summary Диагностика
// @Description Возвращает классификацию ISO 10816, подшипниковую диагностику и качество данных.
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} models.DiagnosticsResponse "Диагностический отчет"
// @Failure 404 {object} models.ErrorResponse "Показаний еще нет"
// @Router /diagnostics [get]
func (h *Handler) GetDiagnostics(c *gin.Context) {
	diag, err := h.usecase.Diagnostics()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "diagnostics": diag})
}
