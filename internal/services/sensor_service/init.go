package sensor_service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/iwtcode/railmon/internal/alerting"
	"github.com/iwtcode/railmon/internal/diagnostics"
	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"
	"github.com/iwtcode/railmon/internal/modbus"
	"github.com/iwtcode/railmon/pkg/errors"
)

// Options - параметры создания сервиса мониторинга.
type Options struct {
	Settings     models.ConnectionSettings
	RegisterMap  modbus.RegisterMap
	Interval     time.Duration
	MachineClass string
	Thresholds   models.ThresholdSet
}

type sensorService struct {
	mu sync.Mutex

	log     *logging.Logger
	rootLog *logging.Logger

	repo     interfaces.MonitoringRepository
	producer interfaces.KafkaService
	notifier interfaces.AlertNotifier
	scorer   interfaces.MLScorer

	settings models.ConnectionSettings
	regmap   modbus.RegisterMap
	interval time.Duration

	reader *Reader
	engine *alerting.Engine
	suite  *diagnostics.Suite
	iso    *diagnostics.ISOClassifier

	thresholds models.ThresholdSet

	latest       *models.Reading
	latestStatus string
	trainState   string

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSensorService собирает сервис мониторинга. Репозиторий, продюсер,
// нотификатор и скорер допускают nil: их отказ или отсутствие не должны
// останавливать опрос.
func NewSensorService(
	opts Options,
	repo interfaces.MonitoringRepository,
	producer interfaces.KafkaService,
	notifier interfaces.AlertNotifier,
	scorer interfaces.MLScorer,
	logger *logging.Logger,
) (interfaces.SensorService, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Interval <= 0 {
		return nil, errors.NewValidationError("interval", "poll interval must be positive, got %v", opts.Interval)
	}
	iso, err := diagnostics.NewISOClassifier(opts.MachineClass)
	if err != nil {
		return nil, err
	}
	thresholds := opts.Thresholds
	if thresholds == nil {
		thresholds = models.DefaultThresholdSet()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	svcLog := logger.WithPrefix("SENSOR")
	transport := modbus.NewTransport(opts.Settings, logger)

	return &sensorService{
		log:          svcLog,
		rootLog:      logger,
		repo:         repo,
		producer:     producer,
		notifier:     notifier,
		scorer:       scorer,
		settings:     opts.Settings,
		regmap:       opts.RegisterMap,
		interval:     opts.Interval,
		reader:       NewReader(transport, opts.RegisterMap, logger),
		engine:       alerting.NewEngine(logger),
		suite:        diagnostics.NewSuite(),
		iso:          iso,
		thresholds:   thresholds,
		latestStatus: CycleNotInitialized,
		trainState:   models.TrainStateMoving,
	}, nil
}

// --- ConnectionManager ---

func (s *sensorService) Configure(settings models.ConnectionSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader != nil && s.reader.Transport() != nil {
		if err := s.reader.Transport().Close(); err != nil {
			s.log.Warn("Failed to close previous transport", "error", err.Error())
		}
	}
	s.settings = settings
	s.reader = NewReader(modbus.NewTransport(settings, s.rootLog), s.regmap, s.rootLog)
	s.latestStatus = CycleNotInitialized
	s.log.Info("Sensor connection reconfigured", "port", settings.Port, "baudrate", settings.BaudRate)
	return nil
}

func (s *sensorService) Connection() models.ConnectionSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *sensorService) Health() models.HealthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return models.HealthSnapshot{}
	}
	return s.reader.Health()
}

// --- MonitoringManager: управление циклом ---

func (s *sensorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.NewAppError(http.StatusConflict, "polling already started", nil, true)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(runCtx)
	s.log.Info("Polling started", "interval", s.interval.String())
	return nil
}

func (s *sensorService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("Polling stopped")
}

// --- MonitoringManager: доступ к данным ---

func (s *sensorService) Latest() (*models.Reading, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, s.latestStatus
	}
	copied := *s.latest
	return &copied, s.latestStatus
}

func (s *sensorService) Diagnostics() (*models.DiagnosticsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || !s.latest.OK {
		return nil, errors.ErrDataNotFound
	}
	ts, _ := time.Parse(time.RFC3339, s.latest.Timestamp)
	return &models.DiagnosticsResponse{
		Timestamp: ts,
		ISO:       s.latest.ISO10816,
		Bearing:   s.latest.Bearing,
		Quality:   s.latest.DataQuality,
		ML:        s.latest.MLPrediction,
	}, nil
}

func (s *sensorService) Thresholds() models.ThresholdSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholds.Clone()
}

func (s *sensorService) SetThresholds(set models.ThresholdSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = set.Clone()
	s.log.Info("Thresholds updated", "parameters", len(set))
	return nil
}

func (s *sensorService) Alerts(sinceSeconds int, status string) []models.Alert {
	return s.engine.List(sinceSeconds, status)
}

func (s *sensorService) AcknowledgeAlert(id string) (*models.Alert, error) {
	alert, err := s.engine.Acknowledge(id)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		if repoErr := s.repo.UpdateAlertStatus(alert.ID, alert.Status); repoErr != nil {
			s.log.Error("Failed to persist alert acknowledgment", "id", alert.ID, "error", repoErr.Error())
		}
	}
	return alert, nil
}

func (s *sensorService) MachineClass() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iso.MachineClass()
}

func (s *sensorService) SetMachineClass(class string) error {
	iso, err := diagnostics.NewISOClassifier(class)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iso = iso
	s.log.Info("Machine class changed", "class", class)
	return nil
}

func (s *sensorService) TrainState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainState
}
