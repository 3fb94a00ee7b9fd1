package sqlite

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iwtcode/railmon/internal/adapters/repositories/sqlite/monitoring"
	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/domain/entities"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository struct {
	interfaces.MonitoringRepository
}

func NewRepository(cfg *config.AppConfig, appLogger *logging.Logger) (interfaces.MonitoringRepository, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных '%s': %w", cfg.DatabasePath, err)
	}

	// SQLite не умеет конкурентную запись, одного соединения достаточно.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("ошибка выполнения автомиграций: %w", err)
	}

	appLogger.Info("Database ready", "path", cfg.DatabasePath)

	return &Repository{
		MonitoringRepository: monitoring.NewMonitoringRepository(db),
	}, nil
}

func autoMigrate(db *gorm.DB) error {
	// AutoMigrate безопасно создает таблицы, если их нет,
	// и добавляет новые колонки, если они появились в модели.
	return db.AutoMigrate(&entities.LatestReading{}, &entities.ReadingRecord{}, &entities.AlertRecord{})
}
