package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/middleware/logging"
	"github.com/iwtcode/railmon/pkg/errors"
)

// Уровни превышения параметра.
const (
	levelNormal  = "normal"
	levelWarning = "warning"
	levelAlarm   = "alarm"
)

// Engine - детерминированный пороговый движок с гистерезисом. Хранит
// последний уровень каждого параметра и создает тревогу только при
// эскалации: спад alarm -> warning новой тревоги не порождает, полный
// возврат в норму закрывает все тревоги параметра.
type Engine struct {
	mu     sync.Mutex
	levels map[string]string
	alerts map[string]*models.Alert
	order  []string
	log    *logging.Logger
}

// NewEngine создает движок без истории уровней.
func NewEngine(log *logging.Logger) *Engine {
	return &Engine{
		levels: make(map[string]string),
		alerts: make(map[string]*models.Alert),
		log:    log.WithPrefix("ALERTS"),
	}
}

func levelOf(value, warn, alarm float64) string {
	switch {
	case value >= alarm:
		return levelAlarm
	case value >= warn:
		return levelWarning
	default:
		return levelNormal
	}
}

// Evaluate сравнивает значение параметра с порогами и применяет правила
// гистерезиса. Возвращает созданную тревогу (или nil) и список тревог,
// закрытых этим переходом.
func (e *Engine) Evaluate(ts time.Time, parameter string, value float64, def models.ThresholdDefinition) (*models.Alert, []models.Alert) {
	if !def.Enabled {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.levels[parameter]
	if !ok {
		prev = levelNormal
	}
	level := levelOf(value, def.WarningLimit, def.AlarmLimit)
	e.levels[parameter] = level

	switch {
	case level == levelNormal:
		if prev != levelNormal {
			return nil, e.clearParameterLocked(parameter)
		}
		return nil, nil
	case level == prev:
		return nil, nil
	case prev == levelAlarm && level == levelWarning:
		// Спад alarm -> warning закрывает тревоги параметра, но новой
		// тревоги уровня warning не порождает.
		return nil, e.clearParameterLocked(parameter)
	}

	severity := models.SeverityWarning
	limit := def.WarningLimit
	if level == levelAlarm {
		severity = models.SeverityAlarm
		limit = def.AlarmLimit
	}
	alert := &models.Alert{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Severity:  severity,
		Parameter: parameter,
		Value:     value,
		Threshold: limit,
		Message:   fmt.Sprintf("%s %s: %.3f >= %.3f", parameter, severity, value, limit),
		Status:    models.AlertStatusActive,
	}
	e.alerts[alert.ID] = alert
	e.order = append(e.order, alert.ID)
	e.log.Warn("Alert raised", "parameter", parameter, "severity", severity, "value", value, "threshold", limit)
	return alert, nil
}

// Raise создает тревогу вне порогового сравнения, например о переходе
// поезда в стоянку. Повторный вызов при уже активной тревоге параметра
// ничего не делает.
func (e *Engine) Raise(ts time.Time, parameter, severity string, value, threshold float64, message string) *models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.order {
		a := e.alerts[id]
		if a.Parameter == parameter && a.Status != models.AlertStatusCleared {
			return nil
		}
	}

	alert := &models.Alert{
		ID:        uuid.New().String(),
		Timestamp: ts,
		Severity:  severity,
		Parameter: parameter,
		Value:     value,
		Threshold: threshold,
		Message:   message,
		Status:    models.AlertStatusActive,
	}
	e.alerts[alert.ID] = alert
	e.order = append(e.order, alert.ID)
	e.log.Warn("Alert raised", "parameter", parameter, "severity", severity)
	return alert
}

// ClearParameter закрывает все незакрытые тревоги параметра. Идемпотентна.
func (e *Engine) ClearParameter(parameter string) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.levels[parameter] = levelNormal
	return e.clearParameterLocked(parameter)
}

func (e *Engine) clearParameterLocked(parameter string) []models.Alert {
	cleared := make([]models.Alert, 0)
	for _, id := range e.order {
		a := e.alerts[id]
		if a.Parameter == parameter && a.Status != models.AlertStatusCleared {
			a.Status = models.AlertStatusCleared
			cleared = append(cleared, *a)
		}
	}
	if len(cleared) > 0 {
		e.log.Info("Alerts cleared", "parameter", parameter, "count", len(cleared))
	}
	return cleared
}

// Acknowledge переводит тревогу из active в acknowledged. Любой другой
// исходный статус - ошибка.
func (e *Engine) Acknowledge(id string) (*models.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.alerts[id]
	if !ok {
		return nil, errors.ErrDataNotFound
	}
	if alert.Status != models.AlertStatusActive {
		return nil, errors.NewValidationError("status", "alert %s is %s, only active alerts can be acknowledged", id, alert.Status)
	}
	alert.Status = models.AlertStatusAcknowledged
	copied := *alert
	return &copied, nil
}

// List возвращает тревоги не старше sinceSeconds (0 - без ограничения),
// отфильтрованные по статусу (пустая строка - все), в порядке создания.
func (e *Engine) List(sinceSeconds int, status string) []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var cutoff time.Time
	if sinceSeconds > 0 {
		cutoff = time.Now().Add(-time.Duration(sinceSeconds) * time.Second)
	}

	out := make([]models.Alert, 0, len(e.order))
	for _, id := range e.order {
		a := e.alerts[id]
		if sinceSeconds > 0 && a.Timestamp.Before(cutoff) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Active возвращает тревоги в статусе active.
func (e *Engine) Active() []models.Alert {
	return e.List(0, models.AlertStatusActive)
}
