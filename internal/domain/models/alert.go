package models

import "time"

// Уровни серьезности тревог.
const (
	SeverityWarning = "warning"
	SeverityAlarm   = "alarm"
)

// Статусы жизненного цикла тревоги.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusCleared      = "cleared"
)

// Alert - событие превышения порога по одному параметру.
type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
}
