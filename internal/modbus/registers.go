package modbus

import (
	"encoding/binary"
	"math"
)

// Предел количества регистров в одном запросе функции 03.
const MaxRegistersPerRead = 125

// Количество полос расширенного блока и полей в описании одной полосы.
const (
	ExtendedBandCount  = 20
	BandFieldCount     = 5
	SimpleBandRegCount = 10
)

// RegisterMap описывает раскладку регистров датчика в нотации 4xxxx.
// Значения по умолчанию соответствуют виброметру с блоками скалярных
// величин по осям Z и X и опциональными полосными спектрами.
type RegisterMap struct {
	// Температура корпуса, знаковая, два десятичных знака.
	TempRegister uint16 `json:"temp_register"`

	// Скалярные блоки по осям: 8 подряд идущих регистров на ось.
	ZBlockStart uint16 `json:"z_block_start"`
	XBlockStart uint16 `json:"x_block_start"`
	BlockCount  uint16 `json:"block_count"`

	// Смещения полей внутри скалярного блока.
	OffsetRms         uint16 `json:"offset_rms"`
	OffsetPeak        uint16 `json:"offset_peak"`
	OffsetRmsG        uint16 `json:"offset_rms_g"`
	OffsetCrestFactor uint16 `json:"offset_crest_factor"`
	OffsetKurtosis    uint16 `json:"offset_kurtosis"`
	OffsetHfRms       uint16 `json:"offset_hf_rms"`

	// Обороты, опциональный регистр.
	RPMRegister uint16 `json:"rpm_register"`

	// Расширенные полосные блоки: 20 полос по 5 float32 BE на ось.
	ExtendedBandsZ uint16 `json:"extended_bands_z"`
	ExtendedBandsX uint16 `json:"extended_bands_x"`

	// Упрощенный полосный блок: 5 float32 BE, общий для датчика.
	SimpleBands uint16 `json:"simple_bands"`

	// Порядок слов float32: true - младшее слово первым.
	WordSwap bool `json:"word_swap"`
}

// DefaultRegisterMap возвращает раскладку по умолчанию.
func DefaultRegisterMap() RegisterMap {
	return RegisterMap{
		TempRegister: 40043,

		ZBlockStart: 42403,
		XBlockStart: 42453,
		BlockCount:  8,

		OffsetRms:         0, // 42403: RMS скорость, мм/с
		OffsetPeak:        1, // 42404: пиковая скорость, мм/с
		OffsetRmsG:        3, // 42406: RMS ускорение, g
		OffsetCrestFactor: 5, // 42408: крест-фактор
		OffsetKurtosis:    6, // 42409: куртозис
		OffsetHfRms:       7, // 42410: ВЧ RMS ускорение, g

		RPMRegister: 40204,

		ExtendedBandsZ: 43501,
		ExtendedBandsX: 43701,
		SimpleBands:    40004,
	}
}

// Масштабные коэффициенты сырых значений регистров.
const (
	ScaleTemp   = 0.01  // два десятичных знака
	ScaleScalar = 0.001 // три десятичных знака
	ScaleRPM    = 1.0
)

// toProtocolAddress переводит адрес нотации 4xxxx в протокольный (0-базный).
// Адреса ниже 40001 не существуют в пространстве holding-регистров,
// попытка трансляции такого адреса означает ошибку в раскладке.
func toProtocolAddress(register uint16) uint16 {
	if register < 40001 {
		panic("modbus: register address below 40001")
	}
	return register - 40001
}

// RegsToFloat32BE собирает float32 из двух регистров в порядке big-endian.
// При wordSwap слова меняются местами (младшее слово первым).
func RegsToFloat32BE(hi, lo uint16, wordSwap bool) float64 {
	if wordSwap {
		hi, lo = lo, hi
	}
	bits := uint32(hi)<<16 | uint32(lo)
	f := math.Float32frombits(bits)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0.0
	}
	return float64(f)
}

// bytesToRegisters раскладывает ответ функции 03 на 16-битные регистры.
func bytesToRegisters(data []byte) []uint16 {
	regs := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		regs = append(regs, binary.BigEndian.Uint16(data[i:i+2]))
	}
	return regs
}

// decodeScaled переводит сырое значение регистра в инженерные единицы.
func decodeScaled(raw uint16, scale float64, signed bool) float64 {
	if signed {
		return float64(int16(raw)) * scale
	}
	return float64(raw) * scale
}
