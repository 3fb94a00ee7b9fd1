package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/railmon/internal/domain/entities"
	"github.com/iwtcode/railmon/internal/domain/models"
)

// stubSensorService отдает заранее подготовленные данные из памяти сервиса.
type stubSensorService struct {
	latest       *models.Reading
	latestStatus string
	alerts       []models.Alert
}

func (s *stubSensorService) Configure(settings models.ConnectionSettings) error { return nil }
func (s *stubSensorService) Connection() models.ConnectionSettings {
	return models.ConnectionSettings{}
}
func (s *stubSensorService) Health() models.HealthSnapshot   { return models.HealthSnapshot{} }
func (s *stubSensorService) Start(ctx context.Context) error { return nil }
func (s *stubSensorService) Stop()                           {}
func (s *stubSensorService) ReadNow(ctx context.Context) (*models.Reading, error) {
	return s.latest, nil
}
func (s *stubSensorService) Latest() (*models.Reading, string) { return s.latest, s.latestStatus }
func (s *stubSensorService) Diagnostics() (*models.DiagnosticsResponse, error) {
	return nil, nil
}
func (s *stubSensorService) Thresholds() models.ThresholdSet             { return nil }
func (s *stubSensorService) SetThresholds(set models.ThresholdSet) error { return nil }
func (s *stubSensorService) Alerts(sinceSeconds int, status string) []models.Alert {
	return s.alerts
}
func (s *stubSensorService) AcknowledgeAlert(id string) (*models.Alert, error) { return nil, nil }
func (s *stubSensorService) MachineClass() string                              { return "" }
func (s *stubSensorService) SetMachineClass(class string) error                { return nil }
func (s *stubSensorService) TrainState() string                                { return "" }

// storeRepo отдает заранее сохраненные записи, имитируя БД после рестарта.
type storeRepo struct {
	latest *entities.ReadingRecord
	alerts []entities.AlertRecord
}

func (r *storeRepo) UpsertLatest(record *entities.ReadingRecord) error  { return nil }
func (r *storeRepo) AppendHistory(record *entities.ReadingRecord) error { return nil }
func (r *storeRepo) GetLatest() (*entities.ReadingRecord, error)        { return r.latest, nil }
func (r *storeRepo) GetHistory(seconds int) ([]entities.ReadingRecord, error) {
	return nil, nil
}
func (r *storeRepo) InsertAlert(alert *entities.AlertRecord) error { return nil }
func (r *storeRepo) UpdateAlertStatus(id, status string) error     { return nil }
func (r *storeRepo) GetAlerts(sinceSeconds int, status string) ([]entities.AlertRecord, error) {
	return r.alerts, nil
}

func TestLatestRestoredFromStore(t *testing.T) {
	// После рестарта сервис еще не делал ни одного цикла, но последнее
	// показание поднимается из БД.
	repo := &storeRepo{latest: &entities.ReadingRecord{
		Timestamp: time.Now().UTC(),
		Payload:   `{"timestamp":"2026-08-29T10:00:00Z","ok":true,"temp_c":42.37}`,
	}}
	u := NewUsecase(&stubSensorService{latestStatus: "not_initialized"}, repo)

	reading, status := u.Latest()
	require.Equal(t, "not_initialized", status)
	require.NotNil(t, reading, "Сохраненное показание должно подниматься из БД")
	require.True(t, reading.OK)
	require.InDelta(t, 42.37, reading.TempC, 1e-9)
}

func TestLatestPrefersServiceReading(t *testing.T) {
	inMemory := &models.Reading{Timestamp: "2026-08-29T11:00:00Z", OK: true, TempC: 10}
	repo := &storeRepo{latest: &entities.ReadingRecord{
		Timestamp: time.Now().UTC(),
		Payload:   `{"timestamp":"2026-08-29T10:00:00Z","ok":true,"temp_c":42.37}`,
	}}
	u := NewUsecase(&stubSensorService{latest: inMemory, latestStatus: "ok"}, repo)

	reading, _ := u.Latest()
	require.InDelta(t, 10, reading.TempC, 1e-9, "Показание сервиса важнее сохраненного")
}

func TestAlertsMergedWithStore(t *testing.T) {
	ts := time.Now().UTC()
	engineAlert := models.Alert{
		ID: "shared", Timestamp: ts, Severity: models.SeverityAlarm,
		Parameter: models.ParamZRms, Status: models.AlertStatusActive,
	}
	repo := &storeRepo{alerts: []entities.AlertRecord{
		{ID: "shared", Timestamp: ts, Severity: models.SeverityAlarm,
			Parameter: models.ParamZRms, Status: models.AlertStatusCleared},
		{ID: "persisted-only", Timestamp: ts.Add(-time.Hour), Severity: models.SeverityWarning,
			Parameter: models.ParamTempC, Message: "temp_c warning", Status: models.AlertStatusCleared},
	}}
	u := NewUsecase(&stubSensorService{alerts: []models.Alert{engineAlert}}, repo)

	alerts := u.Alerts(0, "")
	require.Len(t, alerts, 2, "Сохраненные тревоги дополняют тревоги движка")

	byID := make(map[string]models.Alert, len(alerts))
	for _, alert := range alerts {
		byID[alert.ID] = alert
	}
	require.Equal(t, models.AlertStatusActive, byID["shared"].Status,
		"При совпадении ID состояние движка важнее сохраненного")
	require.Equal(t, models.ParamTempC, byID["persisted-only"].Parameter)
}

func TestAlertsCSVIncludesStoredAlerts(t *testing.T) {
	repo := &storeRepo{alerts: []entities.AlertRecord{
		{ID: "a-1", Timestamp: time.Now().UTC(), Severity: models.SeverityWarning,
			Parameter: models.ParamTempC, Value: 81.5, Threshold: 80,
			Message: "temp_c warning", Status: models.AlertStatusCleared},
	}}
	u := NewUsecase(&stubSensorService{}, repo)

	data, err := u.AlertsCSV(0)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "a-1"),
		"CSV должен включать сохраненные тревоги")
	require.True(t, strings.Contains(string(data), "temp_c"))
}
