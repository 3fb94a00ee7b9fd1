package handlers

import (
	"net/http"

	"github.com/iwtcode/railmon/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetThresholds возвращает текущий набор порогов.
// @Summary Получить пороги
// @Description Возвращает полный набор порогов по параметрам.
// @Tags Thresholds
// @Produce json
// @Success 200 {object} models.MessageResponse "Набор порогов"
// @Router /thresholds [get]
func (h *Handler) GetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "thresholds": h.usecase.Thresholds()})
}

// SetThresholds заменяет набор порогов.
// @Summary Обновить пороги
// @Description Заменяет набор порогов. Отклоняет пары, где alarm_limit < warning_limit.
// @Tags Thresholds
// @Accept json
// @Produce json
// @Param input body models.ThresholdSet true "Новый набор порогов"
// @Success 200 {object} models.MessageResponse "Пороги обновлены"
// @Failure 400 {object} models.ErrorResponse "Нарушен инвариант alarm >= warning"
// @Router /thresholds [post]
func (h *Handler) SetThresholds(c *gin.Context) {
	var set models.ThresholdSet
	if err := c.ShouldBindJSON(&set); err != nil {
		h.BadRequest(c, err, "Invalid threshold payload")
		return
	}

	if err := h.usecase.SetThresholds(set); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Thresholds replaced", "parameters", len(set))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "thresholds updated"})
}

type machineClassRequest struct {
	MachineClass string `json:"machine_class" binding:"required"`
}

// GetMachineClass возвращает текущий класс машины ISO 10816.
// @Summary Класс машины
// @Description Возвращает класс машины, используемый классификатором ISO 10816.
// @Tags Config
// @Produce json
// @Success 200 {object} models.MessageResponse "Текущий класс машины"
// @Router /config/machine-class [get]
func (h *Handler) GetMachineClass(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "machine_class": h.usecase.MachineClass()})
}

// SetMachineClass переключает класс машины ISO 10816.
// @Summary Сменить класс машины
// @Description Устанавливает класс машины I-IV для классификатора ISO 10816.
// @Tags Config
// @Accept json
// @Produce json
// @Param input body machineClassRequest true "Новый класс машины"
// @Success 200 {object} models.MessageResponse "Класс машины обновлен"
// @Failure 400 {object} models.ErrorResponse "Неизвестный класс машины"
// @Router /config/machine-class [post]
func (h *Handler) SetMachineClass(c *gin.Context) {
	var req machineClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid machine class payload")
		return
	}

	if err := h.usecase.SetMachineClass(req.MachineClass); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Machine class updated", "class", req.MachineClass)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "machine_class": req.MachineClass})
}
