package modbus

import (
	"fmt"
	"sync"
	"time"

	gomodbus "github.com/goburrow/modbus"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/middleware/logging"
)

// Client - минимальный контракт клиента Modbus: чтение holding-регистров
// (функция 03). В тестах подменяется фальшивой реализацией.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// DialFunc открывает канал к датчику и возвращает клиента вместе с
// функцией закрытия порта.
type DialFunc func(cfg models.ConnectionSettings) (Client, func() error, error)

// Задержка перед повтором после ошибки контрольной суммы. Искажение кадра
// помехой на линии проходит быстро, полный интервал повтора не нужен.
const checksumRetryDelay = 100 * time.Millisecond

// Transport владеет последовательным портом и выполняет чтения с повторами,
// разбиением больших блоков и переподключением после серии отказов.
// Линия RS-485 полудуплексная, поэтому все операции сериализованы мьютексом.
type Transport struct {
	mu   sync.Mutex
	cfg  models.ConnectionSettings
	log  *logging.Logger
	dial DialFunc

	client Client
	closer func() error

	consecutiveFailures int
}

// NewTransport создает транспорт поверх штатного RTU-клиента.
func NewTransport(cfg models.ConnectionSettings, log *logging.Logger) *Transport {
	return NewTransportWithDial(cfg, log, dialRTU)
}

// NewTransportWithDial создает транспорт с внешней функцией подключения.
func NewTransportWithDial(cfg models.ConnectionSettings, log *logging.Logger, dial DialFunc) *Transport {
	return &Transport{
		cfg:  cfg,
		log:  log.WithPrefix("MODBUS"),
		dial: dial,
	}
}

func dialRTU(cfg models.ConnectionSettings) (Client, func() error, error) {
	handler := gomodbus.NewRTUClientHandler(cfg.Port)
	handler.BaudRate = cfg.BaudRate
	handler.DataBits = cfg.DataBits
	handler.Parity = cfg.Parity
	handler.StopBits = cfg.StopBits
	handler.SlaveId = byte(cfg.SlaveID)
	handler.Timeout = cfg.Timeout()
	if err := handler.Connect(); err != nil {
		return nil, nil, err
	}
	return gomodbus.NewClient(handler), handler.Close, nil
}

// Settings возвращает текущие настройки подключения.
func (t *Transport) Settings() models.ConnectionSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Open открывает последовательный порт. Повторный вызов на открытом
// транспорте ничего не делает.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openLocked()
}

func (t *Transport) openLocked() error {
	if t.client != nil {
		return nil
	}
	client, closer, err := t.dial(t.cfg)
	if err != nil {
		return wrap("open", err)
	}
	t.client = client
	t.closer = closer
	t.consecutiveFailures = 0
	t.log.Info("Serial port opened", "port", t.cfg.Port, "baudrate", t.cfg.BaudRate, "slave_id", t.cfg.SlaveID)
	return nil
}

// Close закрывает порт. Идемпотентен.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Transport) closeLocked() error {
	if t.client == nil {
		return nil
	}
	var err error
	if t.closer != nil {
		err = t.closer()
	}
	t.client = nil
	t.closer = nil
	if err != nil {
		return wrap("close", err)
	}
	t.log.Info("Serial port closed", "port", t.cfg.Port)
	return nil
}

// IsOpen сообщает, открыт ли порт.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// Reconnect закрывает и заново открывает порт.
func (t *Transport) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconnectLocked()
}

func (t *Transport) reconnectLocked() error {
	t.log.Warn("Reconnecting serial port", "port", t.cfg.Port, "consecutive_failures", t.consecutiveFailures)
	_ = t.closeLocked()
	return t.openLocked()
}

// readOnceRaw выполняет ровно одно протокольное чтение.
func (t *Transport) readOnceRaw(address, quantity uint16) ([]uint16, *TransportError) {
	data, err := t.client.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, wrap("read", err)
	}
	if len(data) != int(quantity)*2 {
		return nil, &TransportError{Kind: ErrKindMalformedFrame, Op: "read", Err: errShortFrame(len(data), int(quantity)*2)}
	}
	return bytesToRegisters(data), nil
}

// attemptRead выполняет одну попытку чтения. Ошибка контрольной суммы
// получает один выделенный короткий повтор, который не расходует общий
// бюджет повторов: искажение кадра помехой проходит быстро.
func (t *Transport) attemptRead(address, quantity uint16) ([]uint16, *TransportError) {
	regs, rErr := t.readOnceRaw(address, quantity)
	if rErr == nil || rErr.Kind != ErrKindChecksum {
		return regs, rErr
	}
	t.log.Warn("Checksum error, quick retry", "address", address)
	time.Sleep(checksumRetryDelay)
	return t.readOnceRaw(address, quantity)
}

// readRaw выполняет чтение блока с повторами: retry_count повторов с линейно
// растущей задержкой retry_delay * attempt поверх выделенного повтора
// контрольной суммы внутри каждой попытки.
func (t *Transport) readRaw(address, quantity uint16) ([]uint16, error) {
	if err := t.openLocked(); err != nil {
		return nil, err
	}

	var lastErr *TransportError
	attempts := t.cfg.RetryCount + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		regs, rErr := t.attemptRead(address, quantity)
		if rErr == nil {
			t.consecutiveFailures = 0
			return regs, nil
		}
		lastErr = rErr

		if attempt == attempts {
			break
		}
		time.Sleep(t.cfg.RetryBackoff() * time.Duration(attempt))
	}

	t.consecutiveFailures++
	if t.cfg.FailCeiling > 0 && t.consecutiveFailures >= t.cfg.FailCeiling {
		t.log.Error("Failure ceiling reached, forcing reconnect", "failures", t.consecutiveFailures)
		if err := t.reconnectLocked(); err != nil {
			t.log.Error("Reconnect failed", "error", err.Error())
		}
		t.consecutiveFailures = 0
	}
	return nil, lastErr
}

type shortFrameError struct {
	got, want int
}

func (e shortFrameError) Error() string {
	return fmt.Sprintf("unexpected response length %d, want %d", e.got, e.want)
}

func errShortFrame(got, want int) error {
	return shortFrameError{got: got, want: want}
}

// ReadRegister читает один регистр в нотации 4xxxx и масштабирует значение.
func (t *Transport) ReadRegister(register uint16, scale float64, signed bool) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	regs, err := t.readRaw(toProtocolAddress(register), 1)
	if err != nil {
		return 0, err
	}
	return decodeScaled(regs[0], scale, signed), nil
}

// ReadBlock читает блок регистров начиная с адреса нотации 4xxxx, при
// необходимости разбивая его на запросы не больше 125 регистров. Порядок
// регистров в результате сохраняется, частичный отказ прерывает весь блок.
func (t *Transport) ReadBlock(register uint16, count uint16) ([]uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint16, 0, count)
	addr := toProtocolAddress(register)
	remaining := count
	for remaining > 0 {
		chunk := remaining
		if chunk > MaxRegistersPerRead {
			chunk = MaxRegistersPerRead
		}
		regs, err := t.readRaw(addr, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, regs...)
		addr += chunk
		remaining -= chunk
	}
	return out, nil
}
