package interfaces

import (
	"github.com/iwtcode/railmon/internal/domain/entities"
)

// MonitoringRepository определяет контракт для работы с сохраненными чтениями и тревогами в БД
type MonitoringRepository interface {
	UpsertLatest(record *entities.ReadingRecord) error
	AppendHistory(record *entities.ReadingRecord) error
	GetLatest() (*entities.ReadingRecord, error)
	GetHistory(seconds int) ([]entities.ReadingRecord, error)
	InsertAlert(alert *entities.AlertRecord) error
	UpdateAlertStatus(id, status string) error
	GetAlerts(sinceSeconds int, status string) ([]entities.AlertRecord, error)
}
