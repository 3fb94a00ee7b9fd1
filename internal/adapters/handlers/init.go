package handlers

import (
	"net/http"

	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.Default()

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		readings := v1.Group("/readings")
		{
			readings.GET("/latest", h.GetLatest)
			readings.GET("/history", h.GetHistory)
			readings.POST("/now", h.ReadNow)
		}

		v1.GET("/diagnostics", h.GetDiagnostics)

		thresholds := v1.Group("/thresholds")
		{
			thresholds.GET("", h.GetThresholds)
			thresholds.POST("", h.SetThresholds)
		}

		connection := v1.Group("/connection")
		{
			connection.GET("", h.GetConnection)
			connection.POST("", h.SetConnection)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", h.GetAlerts)
			alerts.GET("/csv", h.ExportAlertsCSV)
			alerts.POST("/:id/ack", h.AcknowledgeAlert)
		}

		v1.GET("/config/machine-class", h.GetMachineClass)
		v1.POST("/config/machine-class", h.SetMachineClass)
	}

	return router
}
