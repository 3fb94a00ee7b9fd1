package app

import (
	"context"
	"net/http"
	"time"

	"github.com/iwtcode/railmon/internal/adapters/handlers"
	"github.com/iwtcode/railmon/internal/adapters/repositories/sqlite"
	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"
	"github.com/iwtcode/railmon/internal/ml"
	"github.com/iwtcode/railmon/internal/modbus"
	"github.com/iwtcode/railmon/internal/services/kafka"
	"github.com/iwtcode/railmon/internal/services/sensor_service"
	"github.com/iwtcode/railmon/internal/services/telegram"
	"github.com/iwtcode/railmon/internal/usecases"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(
		ConfigModule,
		LoggingModule,
		RepositoryModule,
		ProducerModule,
		NotifierModule,
		ScorerModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Invoke-функции для запуска фоновых задач и хуков жизненного цикла
		fx.Invoke(InvokeStartPolling),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	return logging.NewLogger(loggerCfg, "RailMonApp")
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

var RepositoryModule = fx.Module("repository_module",
	fx.Provide(sqlite.NewRepository),
)

var ProducerModule = fx.Module("producer_module",
	fx.Provide(kafka.NewKafkaProducer),
)

var NotifierModule = fx.Module("notifier_module",
	fx.Provide(telegram.NewTelegramNotifier),
)

var ScorerModule = fx.Module("scorer_module",
	fx.Provide(ml.NewHTTPScorer),
)

// ProvideSensorService собирает сервис мониторинга из конфигурации.
func ProvideSensorService(
	cfg *config.AppConfig,
	repo interfaces.MonitoringRepository,
	producer interfaces.KafkaService,
	notifier interfaces.AlertNotifier,
	scorer interfaces.MLScorer,
	logger *logging.Logger,
) (interfaces.SensorService, error) {
	opts := sensor_service.Options{
		Settings: models.ConnectionSettings{
			Port:        cfg.Sensor.Port,
			BaudRate:    cfg.Sensor.BaudRate,
			DataBits:    cfg.Sensor.DataBits,
			Parity:      cfg.Sensor.Parity,
			StopBits:    cfg.Sensor.StopBits,
			SlaveID:     cfg.Sensor.SlaveID,
			TimeoutMS:   cfg.Sensor.TimeoutMS,
			RetryCount:  cfg.Sensor.RetryCount,
			RetryDelay:  cfg.Sensor.RetryDelay,
			FailCeiling: cfg.Sensor.FailCeiling,
			FrequencyHz: cfg.Sensor.FrequencyHz,
		},
		RegisterMap:  modbus.DefaultRegisterMap(),
		Interval:     time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		MachineClass: cfg.MachineClass,
	}
	return sensor_service.NewSensorService(opts, repo, producer, notifier, scorer, logger)
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(ProvideSensorService),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(usecases.NewUsecases),
)

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
	fx.Invoke(InvokeHttpServer),
)

// InvokeStartPolling запускает цикл опроса датчика и останавливает его
// вместе с продюсером при завершении приложения.
func InvokeStartPolling(lc fx.Lifecycle, svc interfaces.SensorService, producer interfaces.KafkaService, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting sensor polling loop...")
			return svc.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping sensor polling loop...")
			svc.Stop()
			if producer != nil {
				if err := producer.Close(); err != nil {
					logger.Error("Failed to close Kafka producer", "error", err)
				}
			}
			return nil
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
