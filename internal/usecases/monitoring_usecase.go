package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/interfaces"
)

type Usecase struct {
	sensorSvc interfaces.SensorService
	repo      interfaces.MonitoringRepository
}

func NewUsecase(sensorSvc interfaces.SensorService, repo interfaces.MonitoringRepository) interfaces.Usecases {
	return &Usecase{
		sensorSvc: sensorSvc,
		repo:      repo,
	}
}

func (u *Usecase) Configure(settings models.ConnectionSettings) error {
	return u.sensorSvc.Configure(settings)
}

func (u *Usecase) Connection() models.ConnectionSettings {
	return u.sensorSvc.Connection()
}

func (u *Usecase) Health() models.HealthSnapshot {
	return u.sensorSvc.Health()
}

func (u *Usecase) ReadNow(ctx context.Context) (*models.Reading, error) {
	return u.sensorSvc.ReadNow(ctx)
}

// Latest отдает показание из памяти сервиса, а до первого удачного цикла
// после рестарта поднимает последнее сохраненное показание из БД.
func (u *Usecase) Latest() (*models.Reading, string) {
	reading, status := u.sensorSvc.Latest()
	if reading != nil || u.repo == nil {
		return reading, status
	}
	record, err := u.repo.GetLatest()
	if err != nil || record == nil {
		return nil, status
	}
	var restored models.Reading
	if err := json.Unmarshal([]byte(record.Payload), &restored); err != nil {
		return nil, status
	}
	return &restored, status
}

// History поднимает показания из БД и разбирает их обратно в модели.
func (u *Usecase) History(seconds int) ([]models.Reading, error) {
	if u.repo == nil {
		return []models.Reading{}, nil
	}
	records, err := u.repo.GetHistory(seconds)
	if err != nil {
		return nil, err
	}
	readings := make([]models.Reading, 0, len(records))
	for _, record := range records {
		var reading models.Reading
		if err := json.Unmarshal([]byte(record.Payload), &reading); err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func (u *Usecase) Diagnostics() (*models.DiagnosticsResponse, error) {
	return u.sensorSvc.Diagnostics()
}

func (u *Usecase) Thresholds() models.ThresholdSet {
	return u.sensorSvc.Thresholds()
}

func (u *Usecase) SetThresholds(set models.ThresholdSet) error {
	return u.sensorSvc.SetThresholds(set)
}

// Alerts объединяет тревоги движка с сохраненными в БД: после рестарта
// история тревог не теряется. При совпадении идентификаторов состояние
// движка считается более свежим.
func (u *Usecase) Alerts(sinceSeconds int, status string) []models.Alert {
	engineAlerts := u.sensorSvc.Alerts(sinceSeconds, status)
	if u.repo == nil {
		return engineAlerts
	}
	records, err := u.repo.GetAlerts(sinceSeconds, status)
	if err != nil {
		return engineAlerts
	}

	seen := make(map[string]struct{}, len(engineAlerts))
	for _, alert := range engineAlerts {
		seen[alert.ID] = struct{}{}
	}
	merged := make([]models.Alert, 0, len(engineAlerts)+len(records))
	merged = append(merged, engineAlerts...)
	for _, record := range records {
		if _, ok := seen[record.ID]; ok {
			continue
		}
		merged = append(merged, models.Alert{
			ID:        record.ID,
			Timestamp: record.Timestamp,
			Severity:  record.Severity,
			Parameter: record.Parameter,
			Value:     record.Value,
			Threshold: record.Threshold,
			Message:   record.Message,
			Status:    record.Status,
		})
	}
	return merged
}

// AlertsCSV выгружает тревоги в CSV для внешнего анализа.
func (u *Usecase) AlertsCSV(sinceSeconds int) ([]byte, error) {
	alerts := u.Alerts(sinceSeconds, "")

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"id", "timestamp", "severity", "parameter", "value", "threshold", "message", "status"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, alert := range alerts {
		row := []string{
			alert.ID,
			alert.Timestamp.UTC().Format(time.RFC3339),
			alert.Severity,
			alert.Parameter,
			fmt.Sprintf("%.3f", alert.Value),
			fmt.Sprintf("%.3f", alert.Threshold),
			alert.Message,
			alert.Status,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (u *Usecase) AcknowledgeAlert(id string) (*models.Alert, error) {
	return u.sensorSvc.AcknowledgeAlert(id)
}

func (u *Usecase) MachineClass() string {
	return u.sensorSvc.MachineClass()
}

func (u *Usecase) SetMachineClass(class string) error {
	return u.sensorSvc.SetMachineClass(class)
}

func (u *Usecase) TrainState() string {
	return u.sensorSvc.TrainState()
}
