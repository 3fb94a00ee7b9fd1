package interfaces

import (
	"context"

	"github.com/iwtcode/railmon/internal/domain/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	Configure(settings models.ConnectionSettings) error
	Connection() models.ConnectionSettings
	Health() models.HealthSnapshot
	ReadNow(ctx context.Context) (*models.Reading, error)
	Latest() (*models.Reading, string)
	History(seconds int) ([]models.Reading, error)
	Diagnostics() (*models.DiagnosticsResponse, error)
	Thresholds() models.ThresholdSet
	SetThresholds(set models.ThresholdSet) error
	Alerts(sinceSeconds int, status string) []models.Alert
	AlertsCSV(sinceSeconds int) ([]byte, error)
	AcknowledgeAlert(id string) (*models.Alert, error)
	MachineClass() string
	SetMachineClass(class string) error
	TrainState() string
}
