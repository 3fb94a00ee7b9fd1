package models

import (
	"time"

	"github.com/iwtcode/railmon/pkg/errors"
)

// ConnectionSettings - неизменяемый снимок параметров последовательного
// подключения к датчику. Используется для (пере)создания транспорта.
type ConnectionSettings struct {
	Port        string  `json:"port" binding:"required"`
	BaudRate    int     `json:"baudrate"`
	DataBits    int     `json:"bytesize"`
	Parity      string  `json:"parity"`
	StopBits    int     `json:"stopbits"`
	SlaveID     int     `json:"slave_id"`
	TimeoutMS   int     `json:"timeout_ms"`
	RetryCount  int     `json:"retry_count"`
	RetryDelay  int     `json:"retry_delay_ms"`
	FailCeiling int     `json:"fail_ceiling"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// Timeout возвращает таймаут одного протокольного вызова.
func (c ConnectionSettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryBackoff возвращает базовую задержку между повторами чтения.
func (c ConnectionSettings) RetryBackoff() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

// Validate проверяет снимок подключения до того, как он попадет в транспорт.
func (c ConnectionSettings) Validate() error {
	if c.Port == "" {
		return errors.NewValidationError("port", "serial port must not be empty")
	}
	if c.BaudRate <= 0 {
		return errors.NewValidationError("baudrate", "must be positive, got %d", c.BaudRate)
	}
	if c.DataBits != 7 && c.DataBits != 8 {
		return errors.NewValidationError("bytesize", "must be 7 or 8, got %d", c.DataBits)
	}
	switch c.Parity {
	case "N", "E", "O":
	default:
		return errors.NewValidationError("parity", "must be one of N, E, O, got %q", c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return errors.NewValidationError("stopbits", "must be 1 or 2, got %d", c.StopBits)
	}
	if c.SlaveID < 1 || c.SlaveID > 247 {
		return errors.NewValidationError("slave_id", "must be in range 1..247, got %d", c.SlaveID)
	}
	if c.TimeoutMS <= 0 {
		return errors.NewValidationError("timeout_ms", "must be positive, got %d", c.TimeoutMS)
	}
	if c.FrequencyHz < 0 {
		return errors.NewValidationError("frequency_hz", "must not be negative, got %v", c.FrequencyHz)
	}
	return nil
}

// ConnectionHealth - накопительная статистика связи с датчиком. Изменяется
// только слоем опроса под его собственной блокировкой.
type ConnectionHealth struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalReads          int        `json:"total_reads"`
	FailedReads         int        `json:"failed_reads"`
	LastSuccessTime     *time.Time `json:"last_success_time,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorTime       *time.Time `json:"last_error_time,omitempty"`
}

// RecordSuccess регистрирует успешное чтение.
func (h *ConnectionHealth) RecordSuccess() {
	now := time.Now().UTC()
	h.ConsecutiveFailures = 0
	h.TotalReads++
	h.LastSuccessTime = &now
}

// RecordFailure регистрирует неудачное чтение с причиной.
func (h *ConnectionHealth) RecordFailure(reason string) {
	now := time.Now().UTC()
	h.ConsecutiveFailures++
	h.TotalReads++
	h.FailedReads++
	h.LastError = reason
	h.LastErrorTime = &now
}

// SuccessRate возвращает долю успешных чтений (0.0 при отсутствии чтений).
func (h *ConnectionHealth) SuccessRate() float64 {
	if h.TotalReads == 0 {
		return 0.0
	}
	return float64(h.TotalReads-h.FailedReads) / float64(h.TotalReads)
}

// HealthSnapshot - сериализуемый срез ConnectionHealth для API.
type HealthSnapshot struct {
	ConnectionHealth
	SuccessRate float64 `json:"success_rate"`
}

// Snapshot возвращает копию статистики с вычисленной долей успеха.
func (h *ConnectionHealth) Snapshot() HealthSnapshot {
	return HealthSnapshot{
		ConnectionHealth: *h,
		SuccessRate:      h.SuccessRate(),
	}
}
