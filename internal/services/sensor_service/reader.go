package sensor_service

import (
	"math"
	"time"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/middleware/logging"
	"github.com/iwtcode/railmon/internal/modbus"
)

// Статус цикла чтения.
const (
	CycleOK             = "ok"
	CycleError          = "error"
	CycleNotInitialized = "not_initialized"
)

// CapabilityState - состояние автоопределения опционального диапазона
// регистров. Переход из Unknown происходит один раз, после чего известный
// результат не перепроверяется и не перелогируется.
type CapabilityState int

const (
	CapUnknown CapabilityState = iota
	CapSupported
	CapUnsupported
)

// Порог стоянки поезда: RMS обеих осей ниже этого значения, мм/с.
const idleRmsThreshold = 0.5

// Reader собирает полное показание датчика за один цикл: скалярные блоки,
// опциональные полосные спектры и признаки для ML. Ведет учет здоровья
// соединения.
type Reader struct {
	transport *modbus.Transport
	regmap    modbus.RegisterMap
	log       *logging.Logger

	capExtended CapabilityState
	capSimple   CapabilityState
	capRPM      CapabilityState

	health *models.ConnectionHealth
}

// NewReader создает считыватель поверх транспорта.
func NewReader(transport *modbus.Transport, regmap modbus.RegisterMap, log *logging.Logger) *Reader {
	return &Reader{
		transport: transport,
		regmap:    regmap,
		log:       log.WithPrefix("READER"),
		health:    &models.ConnectionHealth{},
	}
}

// Health возвращает снимок здоровья соединения.
func (r *Reader) Health() models.HealthSnapshot {
	return r.health.Snapshot()
}

// Transport возвращает используемый транспорт.
func (r *Reader) Transport() *modbus.Transport {
	return r.transport
}

// ReadOnce выполняет один полный цикл чтения. При ошибке возвращается
// показание с OK=false и описанием сбоя: подстановка устаревших данных -
// политика планировщика, а не уровня сбора.
func (r *Reader) ReadOnce() (string, *models.Reading) {
	if r.transport == nil {
		return CycleNotInitialized, nil
	}

	// Проба живости: канонический скалярный регистр. Неудача сразу
	// попадает в учет здоровья, затем дается право на переподключение
	// и повторную пробу; вторая неудача - отказ цикла.
	temp, err := r.transport.ReadRegister(r.regmap.TempRegister, modbus.ScaleTemp, true)
	if err != nil {
		r.health.RecordFailure(err.Error())
		r.log.Warn("Liveness check failed, reconnecting", "error", err.Error())
		if rcErr := r.transport.Reconnect(); rcErr != nil {
			return CycleError, errorReading(rcErr.Error())
		}
		temp, err = r.transport.ReadRegister(r.regmap.TempRegister, modbus.ScaleTemp, true)
		if err != nil {
			return CycleError, errorReading(err.Error())
		}
	}

	reading := &models.Reading{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		OK:        true,
		TempC:     temp,
	}

	if err := r.readScalars(reading); err != nil {
		r.health.RecordFailure(err.Error())
		return CycleError, errorReading(err.Error())
	}

	r.readRPM(reading)
	r.readBands(reading)
	r.deriveTrainState(reading)

	r.health.RecordSuccess()
	return CycleOK, reading
}

// errorReading описывает неудачный цикл: метка времени и причина сбоя.
func errorReading(reason string) *models.Reading {
	return &models.Reading{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		OK:        false,
		Error:     reason,
	}
}

// readScalars читает оба осевых блока одним непрерывным чтением на ось.
func (r *Reader) readScalars(reading *models.Reading) error {
	zRegs, err := r.transport.ReadBlock(r.regmap.ZBlockStart, r.regmap.BlockCount)
	if err != nil {
		return err
	}
	xRegs, err := r.transport.ReadBlock(r.regmap.XBlockStart, r.regmap.BlockCount)
	if err != nil {
		return err
	}

	scale := func(regs []uint16, offset uint16) float64 {
		return float64(regs[offset]) * modbus.ScaleScalar
	}

	reading.ZRmsMmS = scale(zRegs, r.regmap.OffsetRms)
	reading.ZPeakMmS = scale(zRegs, r.regmap.OffsetPeak)
	reading.ZRmsG = scale(zRegs, r.regmap.OffsetRmsG)
	reading.ZCrestFactor = scale(zRegs, r.regmap.OffsetCrestFactor)
	reading.ZKurtosis = scale(zRegs, r.regmap.OffsetKurtosis)
	reading.ZHfRmsG = scale(zRegs, r.regmap.OffsetHfRms)

	reading.XRmsMmS = scale(xRegs, r.regmap.OffsetRms)
	reading.XPeakMmS = scale(xRegs, r.regmap.OffsetPeak)
	reading.XRmsG = scale(xRegs, r.regmap.OffsetRmsG)
	reading.XCrestFactor = scale(xRegs, r.regmap.OffsetCrestFactor)
	reading.XKurtosis = scale(xRegs, r.regmap.OffsetKurtosis)
	reading.XHfRmsG = scale(xRegs, r.regmap.OffsetHfRms)

	return nil
}

// readRPM читает опциональный регистр оборотов. Первый определенный отказ
// помечает регистр как неподдерживаемый.
func (r *Reader) readRPM(reading *models.Reading) {
	if r.capRPM == CapUnsupported || r.regmap.RPMRegister == 0 {
		return
	}
	rpm, err := r.transport.ReadRegister(r.regmap.RPMRegister, modbus.ScaleRPM, false)
	if err != nil {
		if r.capRPM == CapUnknown {
			r.capRPM = CapUnsupported
			r.log.Info("RPM register not supported by sensor", "register", r.regmap.RPMRegister)
		}
		return
	}
	r.capRPM = CapSupported
	reading.RPM = &rpm
}

// readBands получает полосные спектры по приоритету: расширенный блок,
// затем упрощенный, затем пустые полосы с предупреждением.
func (r *Reader) readBands(reading *models.Reading) {
	if r.capExtended != CapUnsupported {
		if r.readExtendedBands(reading) {
			r.extractFeaturesExtended(reading)
			return
		}
	}
	if r.capSimple != CapUnsupported {
		if r.readSimpleBands(reading) {
			return
		}
	}
	reading.BandsZ = []models.BandMeasurement{}
	reading.BandsX = []models.BandMeasurement{}
	reading.BandWarning = "spectral band registers unavailable, band features default to zero"
}

// readExtendedBands читает 20 полос по 5 float32 BE на ось. Отказ оси X
// сам по себе не обесценивает удачное чтение оси Z.
func (r *Reader) readExtendedBands(reading *models.Reading) bool {
	count := uint16(modbus.ExtendedBandCount * modbus.BandFieldCount * 2)

	zRegs, err := r.transport.ReadBlock(r.regmap.ExtendedBandsZ, count)
	if err != nil {
		if r.capExtended == CapUnknown {
			r.capExtended = CapUnsupported
			r.log.Info("Extended band block not supported by sensor", "register", r.regmap.ExtendedBandsZ)
		}
		return false
	}
	r.capExtended = CapSupported
	reading.BandsZ = r.decodeBands(zRegs, models.AxisZ)

	xRegs, err := r.transport.ReadBlock(r.regmap.ExtendedBandsX, count)
	if err != nil {
		r.log.Warn("X-axis band block read failed", "error", err.Error())
		reading.BandsX = []models.BandMeasurement{}
		return true
	}
	reading.BandsX = r.decodeBands(xRegs, models.AxisX)
	return true
}

func (r *Reader) decodeBands(regs []uint16, axis string) []models.BandMeasurement {
	bands := make([]models.BandMeasurement, 0, modbus.ExtendedBandCount)
	for i := 0; i < modbus.ExtendedBandCount; i++ {
		base := i * modbus.BandFieldCount * 2
		field := func(n int) float64 {
			off := base + n*2
			return modbus.RegsToFloat32BE(regs[off], regs[off+1], r.regmap.WordSwap)
		}
		bands = append(bands, models.BandMeasurement{
			BandNumber: i + 1,
			Axis:       axis,
			TotalRMS:   field(0),
			PeakRMS:    field(1),
			PeakFreqHz: field(2),
			PeakRPM:    field(3),
			BinIndex:   int(math.Round(field(4))),
		})
	}
	return bands
}

// readSimpleBands читает упрощенный блок из 5 float32 и кладет значения
// напрямую в признаки band_1x..band_7x.
func (r *Reader) readSimpleBands(reading *models.Reading) bool {
	regs, err := r.transport.ReadBlock(r.regmap.SimpleBands, modbus.SimpleBandRegCount)
	if err != nil {
		if r.capSimple == CapUnknown {
			r.capSimple = CapUnsupported
			r.log.Info("Simple band block not supported by sensor", "register", r.regmap.SimpleBands)
		}
		return false
	}
	r.capSimple = CapSupported

	field := func(n int) float64 {
		return modbus.RegsToFloat32BE(regs[n*2], regs[n*2+1], r.regmap.WordSwap)
	}
	reading.Band1X = field(0)
	reading.Band2X = field(1)
	reading.Band3X = field(2)
	reading.Band5X = field(3)
	reading.Band7X = field(4)
	reading.BandsZ = []models.BandMeasurement{}
	reading.BandsX = []models.BandMeasurement{}
	return true
}

// extractFeaturesExtended берет total_rms полос 1/2/3/5/7 оси Z.
func (r *Reader) extractFeaturesExtended(reading *models.Reading) {
	pick := func(bandNumber int) float64 {
		for _, b := range reading.BandsZ {
			if b.BandNumber == bandNumber {
				return b.TotalRMS
			}
		}
		return 0.0
	}
	reading.Band1X = pick(1)
	reading.Band2X = pick(2)
	reading.Band3X = pick(3)
	reading.Band5X = pick(5)
	reading.Band7X = pick(7)
}

func (r *Reader) deriveTrainState(reading *models.Reading) {
	if reading.ZRmsMmS < idleRmsThreshold && reading.XRmsMmS < idleRmsThreshold {
		reading.TrainState = models.TrainStateIdle
	} else {
		reading.TrainState = models.TrainStateMoving
	}
}
