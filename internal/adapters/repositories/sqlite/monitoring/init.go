package monitoring

import (
	"github.com/iwtcode/railmon/internal/interfaces"
	"gorm.io/gorm"
)

type MonitoringRepositoryImpl struct {
	db *gorm.DB
}

func NewMonitoringRepository(db *gorm.DB) interfaces.MonitoringRepository {
	return &MonitoringRepositoryImpl{db: db}
}
