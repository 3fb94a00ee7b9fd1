package sensor_service

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/middleware/logging"
	"github.com/iwtcode/railmon/internal/modbus"
)

// mapClient отдает значения регистров из карты по протокольным адресам.
// Адреса из fail отвечают ошибкой, calls считает обращения к каждому адресу.
type mapClient struct {
	regs     map[uint16]uint16
	fail     map[uint16]error
	failOnce map[uint16]error
	calls    map[uint16]int
}

func newMapClient() *mapClient {
	return &mapClient{
		regs:     make(map[uint16]uint16),
		fail:     make(map[uint16]error),
		failOnce: make(map[uint16]error),
		calls:    make(map[uint16]int),
	}
}

func (c *mapClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	c.calls[address]++
	if err, ok := c.failOnce[address]; ok {
		delete(c.failOnce, address)
		return nil, err
	}
	if err, ok := c.fail[address]; ok {
		return nil, err
	}
	data := make([]byte, 0, quantity*2)
	for i := uint16(0); i < quantity; i++ {
		v := c.regs[address+i]
		data = append(data, byte(v>>8), byte(v))
	}
	return data, nil
}

// putFloat раскладывает float32 BE по двум регистрам начиная с addr.
func (c *mapClient) putFloat(addr uint16, f float64) {
	bits := math.Float32bits(float32(f))
	c.regs[addr] = uint16(bits >> 16)
	c.regs[addr+1] = uint16(bits)
}

func readerSettings() models.ConnectionSettings {
	return models.ConnectionSettings{
		Port:      "/dev/ttyUSB0",
		BaudRate:  9600,
		DataBits:  8,
		Parity:    "N",
		StopBits:  1,
		SlaveID:   1,
		TimeoutMS: 50,
	}
}

func newTestReader(t *testing.T, client *mapClient) (*Reader, *int) {
	t.Helper()
	dials := 0
	dial := func(cfg models.ConnectionSettings) (modbus.Client, func() error, error) {
		dials++
		return client, func() error { return nil }, nil
	}
	log := logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
	transport := modbus.NewTransportWithDial(readerSettings(), log, dial)
	return NewReader(transport, modbus.DefaultRegisterMap(), log), &dials
}

// populateScalars заполняет температуру и осевые скалярные блоки.
// Протокольные адреса: температура 42, блок Z 2402, блок X 2452.
func populateScalars(c *mapClient) {
	c.regs[42] = 4237 // 42.37 C

	// Ось Z: rms=1.2, peak=2.4, rms_g=0.3, cf=3.5, kurt=3.0, hf=0.02.
	c.regs[2402] = 1200
	c.regs[2403] = 2400
	c.regs[2405] = 300
	c.regs[2407] = 3500
	c.regs[2408] = 3000
	c.regs[2409] = 20

	// Ось X: rms=0.8, peak=1.6.
	c.regs[2452] = 800
	c.regs[2453] = 1600
	c.regs[2455] = 250
	c.regs[2457] = 3200
	c.regs[2458] = 2900
	c.regs[2459] = 15

	c.regs[203] = 1500 // RPM
}

// populateExtendedBands заполняет total_rms полос оси Z.
// Полоса n занимает 10 регистров начиная с 3500 + (n-1)*10.
func populateExtendedBands(c *mapClient, totals map[int]float64) {
	for band, total := range totals {
		c.putFloat(uint16(3500+(band-1)*10), total)
	}
}

func TestReadOnceFullCycle(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	populateExtendedBands(c, map[int]float64{1: 0.11, 2: 0.22, 3: 0.33, 5: 0.55, 7: 0.77})

	r, _ := newTestReader(t, c)
	status, reading := r.ReadOnce()
	require.Equal(t, CycleOK, status)
	require.NotNil(t, reading)

	require.InDelta(t, 42.37, reading.TempC, 1e-9, "Температура масштабируется с двумя знаками")
	require.InDelta(t, 1.2, reading.ZRmsMmS, 1e-9)
	require.InDelta(t, 2.4, reading.ZPeakMmS, 1e-9)
	require.InDelta(t, 3.5, reading.ZCrestFactor, 1e-9)
	require.InDelta(t, 3.0, reading.ZKurtosis, 1e-9)
	require.InDelta(t, 0.02, reading.ZHfRmsG, 1e-9)
	require.InDelta(t, 0.8, reading.XRmsMmS, 1e-9)

	require.NotNil(t, reading.RPM, "Регистр оборотов поддерживается")
	require.InDelta(t, 1500, *reading.RPM, 1e-9)

	require.Len(t, reading.BandsZ, modbus.ExtendedBandCount)
	require.InDelta(t, 0.11, reading.Band1X, 1e-6, "Признаки берутся из total_rms полос")
	require.InDelta(t, 0.33, reading.Band3X, 1e-6)
	require.InDelta(t, 0.77, reading.Band7X, 1e-6)

	require.Equal(t, models.TrainStateMoving, reading.TrainState)
	require.Empty(t, reading.BandWarning)
}

func TestReadOnceSimpleBandFallback(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.fail[3500] = errors.New("illegal data address")
	c.putFloat(3, 0.5) // упрощенный блок, протокольный адрес 3
	c.putFloat(5, 0.4)
	c.putFloat(7, 0.3)
	c.putFloat(9, 0.2)
	c.putFloat(11, 0.1)

	r, _ := newTestReader(t, c)
	status, reading := r.ReadOnce()
	require.Equal(t, CycleOK, status)

	require.InDelta(t, 0.5, reading.Band1X, 1e-6, "При отказе расширенного блока признаки берутся из упрощенного")
	require.InDelta(t, 0.1, reading.Band7X, 1e-6)
	require.Empty(t, reading.BandsZ)
}

func TestReadOnceBandWarningWhenNoBands(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.fail[3500] = errors.New("illegal data address")
	c.fail[3] = errors.New("illegal data address")

	r, _ := newTestReader(t, c)
	status, reading := r.ReadOnce()
	require.Equal(t, CycleOK, status, "Недоступность полос не валит цикл")
	require.NotEmpty(t, reading.BandWarning)
	require.Empty(t, reading.BandsZ)
	require.Empty(t, reading.BandsX)
}

func TestCapabilityDetectedOnce(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.fail[3500] = errors.New("illegal data address")
	c.fail[3] = errors.New("illegal data address")

	r, _ := newTestReader(t, c)
	r.ReadOnce()
	require.Equal(t, 1, c.calls[3500])
	require.Equal(t, 1, c.calls[3])

	// Второй цикл не перепроверяет неподдерживаемые блоки.
	r.ReadOnce()
	require.Equal(t, 1, c.calls[3500], "Неподдерживаемый блок не перечитывается")
	require.Equal(t, 1, c.calls[3])
}

func TestXAxisBandFailureDoesNotInvalidateZ(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	populateExtendedBands(c, map[int]float64{1: 0.11})
	c.fail[3700] = errors.New("illegal data address") // блок оси X

	r, _ := newTestReader(t, c)
	status, reading := r.ReadOnce()
	require.Equal(t, CycleOK, status)
	require.Len(t, reading.BandsZ, modbus.ExtendedBandCount, "Отказ оси X не обесценивает ось Z")
	require.Empty(t, reading.BandsX)
	require.InDelta(t, 0.11, reading.Band1X, 1e-6)
}

func TestRPMUnsupported(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	populateExtendedBands(c, nil)
	c.fail[203] = errors.New("illegal data address")

	r, _ := newTestReader(t, c)
	_, reading := r.ReadOnce()
	require.Nil(t, reading.RPM, "Отказ регистра оборотов оставляет поле пустым")

	r.ReadOnce()
	require.Equal(t, 1, c.calls[203], "Неподдерживаемый регистр оборотов не перечитывается")
}

func TestLivenessFailureReconnects(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.fail[42] = errors.New("read timeout")

	r, dials := newTestReader(t, c)

	// Первый цикл: проба падает, переподключение, повторная проба тоже падает.
	status, reading := r.ReadOnce()
	require.Equal(t, CycleError, status)
	require.NotNil(t, reading, "Неудачный цикл описывается показанием с причиной сбоя")
	require.False(t, reading.OK)
	require.NotEmpty(t, reading.Error)
	require.Equal(t, 2, *dials, "Неудачная проба живости должна вызвать переподключение")

	// После восстановления датчика цикл проходит.
	delete(c.fail, 42)
	status, reading = r.ReadOnce()
	require.Equal(t, CycleOK, status)
	require.NotNil(t, reading)
	require.True(t, reading.OK)
	require.Empty(t, reading.Error)
}

func TestLivenessFailureRecordedOnRecovery(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.failOnce[42] = errors.New("read timeout")

	r, dials := newTestReader(t, c)

	// Проба падает один раз, после переподключения цикл завершается успехом,
	// но сбой все равно попадает в учет здоровья соединения.
	status, reading := r.ReadOnce()
	require.Equal(t, CycleOK, status)
	require.NotNil(t, reading)
	require.Equal(t, 2, *dials)

	h := r.Health()
	require.Equal(t, 2, h.TotalReads, "Сбой пробы и удачный цикл считаются отдельно")
	require.Equal(t, 1, h.FailedReads)
	require.Equal(t, 0, h.ConsecutiveFailures)
	require.InDelta(t, 0.5, h.SuccessRate, 1e-9)
	require.NotEmpty(t, h.LastError)
}

func TestHealthCounters(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.fail[42] = errors.New("read timeout")

	r, _ := newTestReader(t, c)
	r.ReadOnce()

	h := r.Health()
	require.Equal(t, 1, h.TotalReads)
	require.Equal(t, 1, h.FailedReads)
	require.Equal(t, 1, h.ConsecutiveFailures)
	require.NotEmpty(t, h.LastError)
	require.Equal(t, 0.0, h.SuccessRate)

	delete(c.fail, 42)
	r.ReadOnce()

	h = r.Health()
	require.Equal(t, 2, h.TotalReads)
	require.Equal(t, 0, h.ConsecutiveFailures)
	require.InDelta(t, 0.5, h.SuccessRate, 1e-9)
	require.NotNil(t, h.LastSuccessTime)
}

func TestTrainStateIdle(t *testing.T) {
	c := newMapClient()
	populateScalars(c)
	c.regs[2402] = 100 // 0.1 мм/с по обеим осям
	c.regs[2452] = 200 // 0.2 мм/с

	r, _ := newTestReader(t, c)
	_, reading := r.ReadOnce()
	require.Equal(t, models.TrainStateIdle, reading.TrainState, "RMS ниже порога по обеим осям означает стоянку")
}
