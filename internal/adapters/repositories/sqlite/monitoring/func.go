package monitoring

import (
	"time"

	"github.com/iwtcode/railmon/internal/domain/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertLatest перезаписывает единственную строку последнего показания
func (r *MonitoringRepositoryImpl) UpsertLatest(record *entities.ReadingRecord) error {
	latest := entities.LatestReading{
		ID:        entities.LatestReadingID,
		Timestamp: record.Timestamp,
		Payload:   record.Payload,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp", "payload"}),
	}).Create(&latest).Error
}

func (r *MonitoringRepositoryImpl) AppendHistory(record *entities.ReadingRecord) error {
	return r.db.Create(record).Error
}

func (r *MonitoringRepositoryImpl) GetLatest() (*entities.ReadingRecord, error) {
	var latest entities.LatestReading
	err := r.db.Where("id = ?", entities.LatestReadingID).First(&latest).Error
	if err != nil {
		return nil, err
	}
	return &entities.ReadingRecord{
		ID:        latest.ID,
		Timestamp: latest.Timestamp,
		Payload:   latest.Payload,
	}, nil
}

// GetHistory возвращает показания за последние seconds секунд,
// от новых к старым
func (r *MonitoringRepositoryImpl) GetHistory(seconds int) ([]entities.ReadingRecord, error) {
	var records []entities.ReadingRecord
	query := r.db.Order("timestamp DESC")
	if seconds > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(seconds) * time.Second)
		query = query.Where("timestamp >= ?", cutoff)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MonitoringRepositoryImpl) InsertAlert(alert *entities.AlertRecord) error {
	return r.db.Create(alert).Error
}

// UpdateAlertStatus обновляет статус тревоги
func (r *MonitoringRepositoryImpl) UpdateAlertStatus(id, status string) error {
	result := r.db.Model(&entities.AlertRecord{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAlerts возвращает тревоги за последние sinceSeconds секунд (0 - все),
// опционально отфильтрованные по статусу
func (r *MonitoringRepositoryImpl) GetAlerts(sinceSeconds int, status string) ([]entities.AlertRecord, error) {
	var alerts []entities.AlertRecord
	query := r.db.Order("timestamp DESC")
	if sinceSeconds > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(sinceSeconds) * time.Second)
		query = query.Where("timestamp >= ?", cutoff)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
