package entities

import "time"

// Фиксированный ID единственной строки последнего чтения.
const LatestReadingID = 1

// LatestReading - таблица из одной строки с последним показанием.
type LatestReading struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Payload   string    `gorm:"not null" json:"payload"` // Reading в JSON
}

// ReadingRecord - строка истории показаний.
type ReadingRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Payload   string    `gorm:"not null" json:"payload"` // Reading в JSON
}

type AlertRecord struct {
	ID        string    `gorm:"primaryKey;not null" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Severity  string    `gorm:"not null" json:"severity"` // warning / alarm
	Parameter string    `gorm:"index;not null" json:"parameter"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Status    string    `gorm:"index;not null" json:"status"` // active / acknowledged / cleared
	UpdatedAt time.Time `json:"updated_at"`
}
