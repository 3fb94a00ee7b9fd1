package sensor_service

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/iwtcode/railmon/internal/diagnostics"
	"github.com/iwtcode/railmon/internal/domain/entities"
	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/modbus"
	"github.com/iwtcode/railmon/pkg/errors"
)

// Параметр тревоги состояния поезда.
const trainStateParameter = "train_state"

type cycleResult struct {
	status  string
	reading *models.Reading
}

// run - цикл планировщика с коррекцией дрейфа: next_tick сдвигается на
// интервал, при отставании привязывается к текущему моменту без попыток
// наверстать пропущенные циклы. Отмена проверяется на границе сна, блок
// регистров либо полностью попадает в показание, либо отбрасывается целиком.
func (s *sensorService) run(ctx context.Context) {
	defer close(s.done)

	next := time.Now()
	for {
		s.cycle(ctx)

		next = next.Add(s.interval)
		if now := time.Now(); now.After(next) {
			next = now
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}
	}
}

// cycle выполняет чтение в отдельной горутине, чтобы блокирующий ввод-вывод
// не съедал точность тика, и дожидается результата перед сном.
func (s *sensorService) cycle(ctx context.Context) {
	ch := make(chan cycleResult, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		status, reading := s.reader.ReadOnce()
		ch <- cycleResult{status: status, reading: reading}
	}()

	res := <-ch

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processCycleLocked(ctx, res.status, res.reading)
}

// processCycleLocked обрабатывает итог цикла. Неудачный цикл оставляет
// последнее хорошее показание видимым наружу, но не запускает ни
// диагностику, ни пороги по устаревшим данным.
func (s *sensorService) processCycleLocked(ctx context.Context, status string, reading *models.Reading) {
	s.latestStatus = status
	if status != CycleOK || reading == nil {
		s.log.Warn("Acquisition cycle failed", "status", status, "consecutive_failures", s.reader.Health().ConsecutiveFailures)
		// До первого удачного цикла наружу видна причина сбоя, после -
		// последнее хорошее показание.
		if s.latest == nil && reading != nil {
			s.latest = reading
		}
		return
	}

	s.annotateLocked(reading)
	s.evaluateThresholdsLocked(ctx, reading)
	s.updateTrainStateLocked(ctx, reading)
	s.scoreLocked(ctx, reading)

	s.latest = reading
	s.sinkLocked(ctx, reading)
}

// annotateLocked прикрепляет к показанию диагностику и оценку качества данных.
func (s *sensorService) annotateLocked(reading *models.Reading) {
	zZone, zErr := s.iso.Classify(reading.ZRmsMmS)
	xZone, xErr := s.iso.Classify(reading.XRmsMmS)
	if zErr == nil && xErr == nil {
		limits := s.iso.Limits()
		reading.ISO10816 = &models.ISOAnnotation{
			ZAxis:        zZone,
			XAxis:        xZone,
			MachineClass: s.iso.MachineClass(),
			Limits: map[string]float64{
				"zone_a_max": limits.ZoneAMax,
				"zone_b_max": limits.ZoneBMax,
				"zone_c_max": limits.ZoneCMax,
			},
		}
	}

	hfAvailable := reading.ZHfRmsG > 0 || reading.XHfRmsG > 0
	reading.Bearing = s.suite.AnalyzeFull(
		reading.ZCrestFactor, reading.XCrestFactor,
		reading.ZKurtosis, reading.XKurtosis,
		reading.ZHfRmsG, reading.XHfRmsG,
		hfAvailable,
	)

	quality := &models.DataQuality{MissingBands: reading.BandWarning != ""}
	if prev := s.latest; prev != nil && prev.OK {
		quality.Frozen = reading.ZRmsMmS == prev.ZRmsMmS &&
			reading.XRmsMmS == prev.XRmsMmS &&
			reading.TempC == prev.TempC
		quality.StepChange = isStepChange(reading.ZRmsMmS, prev.ZRmsMmS) ||
			isStepChange(reading.XRmsMmS, prev.XRmsMmS)
	}
	reading.DataQuality = quality

	confidence := s.reader.Health().SuccessRate
	if quality.Frozen || quality.StepChange {
		confidence -= 0.2
	}
	if quality.MissingBands {
		confidence -= 0.1
	}
	reading.Confidence = clamp01(confidence)

	reading.FaultLabel = faultLabel(reading)
}

// isStepChange отмечает скачок RMS: изменение больше 1 мм/с и больше
// чем в три раза относительно предыдущего значения.
func isStepChange(current, previous float64) bool {
	delta := math.Abs(current - previous)
	if delta <= 1.0 {
		return false
	}
	if previous == 0 {
		return true
	}
	return delta/previous > 3.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// faultLabel дает грубую эвристическую метку вероятного дефекта по
// диагностике и доминирующей гармонике.
func faultLabel(reading *models.Reading) string {
	if reading.Bearing != nil && reading.Bearing.OverallStatus == diagnostics.StatusCritical {
		return "bearing_fault"
	}

	zoneD := reading.ISO10816 != nil &&
		(reading.ISO10816.ZAxis == diagnostics.ZoneUnacceptable || reading.ISO10816.XAxis == diagnostics.ZoneUnacceptable)
	if zoneD {
		switch dominantHarmonic(reading) {
		case 1:
			return "imbalance"
		case 2:
			return "misalignment"
		default:
			return "looseness"
		}
	}

	if reading.Bearing != nil && reading.Bearing.OverallStatus == diagnostics.StatusWarning {
		return "bearing_wear"
	}
	return ""
}

func dominantHarmonic(reading *models.Reading) int {
	harmonics := []struct {
		n     int
		value float64
	}{
		{1, reading.Band1X},
		{2, reading.Band2X},
		{3, reading.Band3X},
		{5, reading.Band5X},
		{7, reading.Band7X},
	}
	best := 0
	bestValue := 0.0
	for _, h := range harmonics {
		if h.value > bestValue {
			best = h.n
			bestValue = h.value
		}
	}
	return best
}

// evaluateThresholdsLocked прогоняет через пороговый движок скаляры и
// полосные параметры. Полоса без определенного порога пропускается.
func (s *sensorService) evaluateThresholdsLocked(ctx context.Context, reading *models.Reading) {
	ts := time.Now().UTC()

	evalOne := func(parameter string, value float64) {
		def, ok := s.thresholds[parameter]
		if !ok {
			return
		}
		created, cleared := s.engine.Evaluate(ts, parameter, value, def)
		s.handleAlertEventsLocked(ctx, created, cleared)
	}

	evalOne(models.ParamTempC, reading.TempC)
	evalOne(models.ParamZRms, reading.ZRmsMmS)
	evalOne(models.ParamXRms, reading.XRmsMmS)
	evalOne(models.ParamZKurtosis, reading.ZKurtosis)
	evalOne(models.ParamXKurtosis, reading.XKurtosis)

	for _, bands := range [][]models.BandMeasurement{reading.BandsZ, reading.BandsX} {
		for _, band := range bands {
			evalOne(models.BandParameterKey(band.Axis, band.BandNumber, "total_rms"), band.TotalRMS)
			evalOne(models.BandParameterKey(band.Axis, band.BandNumber, "peak_rms"), band.PeakRMS)
		}
	}
}

// updateTrainStateLocked отслеживает переходы стоянка/движение. Переход в
// стоянку порождает информирующую тревогу уровня warning, выход из стоянки
// закрывает ее.
func (s *sensorService) updateTrainStateLocked(ctx context.Context, reading *models.Reading) {
	prev := s.trainState
	s.trainState = reading.TrainState

	switch {
	case prev != models.TrainStateIdle && reading.TrainState == models.TrainStateIdle:
		value := math.Max(reading.ZRmsMmS, reading.XRmsMmS)
		message := fmt.Sprintf("%s warning: train idle, vibration below %.1f mm/s", trainStateParameter, idleRmsThreshold)
		created := s.engine.Raise(time.Now().UTC(), trainStateParameter, models.SeverityWarning, value, idleRmsThreshold, message)
		s.handleAlertEventsLocked(ctx, created, nil)
	case prev == models.TrainStateIdle && reading.TrainState == models.TrainStateMoving:
		cleared := s.engine.ClearParameter(trainStateParameter)
		s.handleAlertEventsLocked(ctx, nil, cleared)
	}
}

// handleAlertEventsLocked доводит события тревог до внешних потребителей.
// Отказ любого из них логируется и не прерывает цикл.
func (s *sensorService) handleAlertEventsLocked(ctx context.Context, created *models.Alert, cleared []models.Alert) {
	if created != nil {
		if s.repo != nil {
			record := &entities.AlertRecord{
				ID:        created.ID,
				Timestamp: created.Timestamp,
				Severity:  created.Severity,
				Parameter: created.Parameter,
				Value:     created.Value,
				Threshold: created.Threshold,
				Message:   created.Message,
				Status:    created.Status,
			}
			if err := s.repo.InsertAlert(record); err != nil {
				s.log.Error("Failed to persist alert", "id", created.ID, "error", err.Error())
			}
		}
		if s.producer != nil {
			if payload, err := json.Marshal(created); err == nil {
				if err := s.producer.ProduceAlert(ctx, []byte(created.Parameter), payload); err != nil {
					s.log.Error("Failed to send alert to Kafka", "id", created.ID, "error", err.Error())
				}
			}
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyAlert(*created); err != nil {
				s.log.Error("Failed to send alert notification", "id", created.ID, "error", err.Error())
			}
		}
	}

	if s.repo != nil {
		for _, alert := range cleared {
			if err := s.repo.UpdateAlertStatus(alert.ID, alert.Status); err != nil {
				s.log.Error("Failed to persist alert clearing", "id", alert.ID, "error", err.Error())
			}
		}
	}
}

// scoreLocked запрашивает внешний ML-скорер. Отказ не фатален: показание
// остается без предсказания, причина сохраняется в ml_error.
func (s *sensorService) scoreLocked(ctx context.Context, reading *models.Reading) {
	if s.scorer == nil {
		return
	}
	prediction, err := s.scorer.Score(ctx, reading.Features())
	if err != nil {
		reading.MLError = err.Error()
		s.log.Warn("ML scoring failed", "error", err.Error())
		return
	}
	reading.MLPrediction = prediction
}

// sinkLocked раздает готовое показание внешним стокам: БД и Kafka.
func (s *sensorService) sinkLocked(ctx context.Context, reading *models.Reading) {
	payload, err := json.Marshal(reading)
	if err != nil {
		s.log.Error("Failed to serialize reading", "error", err.Error())
		return
	}
	ts, tsErr := time.Parse(time.RFC3339, reading.Timestamp)
	if tsErr != nil {
		ts = time.Now().UTC()
	}

	if s.repo != nil {
		latest := &entities.ReadingRecord{Timestamp: ts, Payload: string(payload)}
		if err := s.repo.UpsertLatest(latest); err != nil {
			s.log.Error("Failed to upsert latest reading", "error", err.Error())
		}
		history := &entities.ReadingRecord{Timestamp: ts, Payload: string(payload)}
		if err := s.repo.AppendHistory(history); err != nil {
			s.log.Error("Failed to append reading history", "error", err.Error())
		}
	}

	if s.producer != nil {
		if err := s.producer.Produce(ctx, []byte(reading.Timestamp), payload); err != nil {
			s.log.Error("Failed to send reading to Kafka", "error", err.Error())
		}
	}
}

// ReadNow выполняет внеочередной цикл под той же блокировкой, что и
// периодический опрос: второго пути к транспорту нет.
func (s *sensorService) ReadNow(ctx context.Context) (*models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, reading := s.reader.ReadOnce()
	s.processCycleLocked(ctx, status, reading)

	switch status {
	case CycleOK:
		copied := *reading
		return &copied, nil
	case CycleNotInitialized:
		return nil, errors.ErrNotInitialized
	default:
		health := s.reader.Health()
		if strings.Contains(health.LastError, string(modbus.ErrKindPortBusy)) {
			return nil, errors.NewAppError(http.StatusConflict, errors.PortBusy, goerrors.New(health.LastError), true)
		}
		return nil, errors.NewAppError(http.StatusServiceUnavailable, errors.DeviceUnreachable, goerrors.New(health.LastError), true)
	}
}
