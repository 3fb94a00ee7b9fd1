package interfaces

import (
	"context"

	"github.com/iwtcode/railmon/internal/domain/models"
)

// SensorService - это агрегирующий интерфейс для всей бизнес-логики мониторинга.
type SensorService interface {
	ConnectionManager
	MonitoringManager
}

// ConnectionManager определяет контракт для управления подключением к датчику.
type ConnectionManager interface {
	Configure(settings models.ConnectionSettings) error
	Connection() models.ConnectionSettings
	Health() models.HealthSnapshot
}

// MonitoringManager определяет контракт для цикла опроса и доступа к данным.
type MonitoringManager interface {
	Start(ctx context.Context) error
	Stop()
	ReadNow(ctx context.Context) (*models.Reading, error)
	Latest() (*models.Reading, string)
	Diagnostics() (*models.DiagnosticsResponse, error)
	Thresholds() models.ThresholdSet
	SetThresholds(set models.ThresholdSet) error
	Alerts(sinceSeconds int, status string) []models.Alert
	AcknowledgeAlert(id string) (*models.Alert, error)
	MachineClass() string
	SetMachineClass(class string) error
	TrainState() string
}

// AlertNotifier определяет контракт для внешнего канала уведомлений о тревогах.
type AlertNotifier interface {
	NotifyAlert(alert models.Alert) error
}

// MLScorer определяет контракт для внешнего сервиса скоринга признаков.
type MLScorer interface {
	Score(ctx context.Context, features []float64) (*models.MLPrediction, error)
}
