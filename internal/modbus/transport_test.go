package modbus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/middleware/logging"
)

type readCall struct {
	address  uint16
	quantity uint16
}

// fakeClient отвечает значением регистра, равным его протокольному адресу,
// и записывает все обращения.
type fakeClient struct {
	calls    []readCall
	failures []error // очередь ошибок, отдается до успешных ответов
}

func (f *fakeClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	f.calls = append(f.calls, readCall{address: address, quantity: quantity})
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return nil, err
		}
	}
	data := make([]byte, 0, quantity*2)
	for i := uint16(0); i < quantity; i++ {
		reg := address + i
		data = append(data, byte(reg>>8), byte(reg))
	}
	return data, nil
}

func testSettings() models.ConnectionSettings {
	return models.ConnectionSettings{
		Port:        "/dev/ttyUSB0",
		BaudRate:    9600,
		DataBits:    8,
		Parity:      "N",
		StopBits:    1,
		SlaveID:     1,
		TimeoutMS:   50,
		RetryCount:  2,
		RetryDelay:  1,
		FailCeiling: 3,
	}
}

func newFakeTransport(t *testing.T, client *fakeClient) (*Transport, *int) {
	t.Helper()
	return newFakeTransportWithSettings(t, client, testSettings())
}

func newFakeTransportWithSettings(t *testing.T, client *fakeClient, cfg models.ConnectionSettings) (*Transport, *int) {
	t.Helper()
	dials := 0
	dial := func(settings models.ConnectionSettings) (Client, func() error, error) {
		dials++
		return client, func() error { return nil }, nil
	}
	log := logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
	return NewTransportWithDial(cfg, log, dial), &dials
}

func TestReadRegisterTranslatesAddress(t *testing.T) {
	client := &fakeClient{}
	tr, _ := newFakeTransport(t, client)

	// Регистр 40001 транслируется в протокольный адрес 0.
	_, err := tr.ReadRegister(40001, 1.0, false)
	require.NoError(t, err)
	require.Equal(t, uint16(0), client.calls[0].address)

	_, err = tr.ReadRegister(45201, 1.0, false)
	require.NoError(t, err)
	require.Equal(t, uint16(5200), client.calls[1].address)
}

func TestReadRegisterPanicsBelowHoldingSpace(t *testing.T) {
	client := &fakeClient{}
	tr, _ := newFakeTransport(t, client)

	require.Panics(t, func() {
		_, _ = tr.ReadRegister(30001, 1.0, false)
	}, "Адрес ниже 40001 означает ошибку раскладки")
}

func TestReadRegisterScaling(t *testing.T) {
	client := &fakeClient{}
	tr, _ := newFakeTransport(t, client)

	// Протокольный адрес 2402, значение = адресу, масштаб 0.001.
	v, err := tr.ReadRegister(42403, ScaleScalar, false)
	require.NoError(t, err)
	require.InDelta(t, 2.402, v, 1e-9)
}

func TestReadRegisterSignedDecoding(t *testing.T) {
	// decodeScaled интерпретирует сырое значение как int16 при signed.
	require.InDelta(t, -0.01, decodeScaled(0xFFFF, ScaleTemp, true), 1e-9)
	require.InDelta(t, 655.35, decodeScaled(0xFFFF, ScaleTemp, false), 1e-9)
}

func TestReadBlockChunking(t *testing.T) {
	client := &fakeClient{}
	tr, _ := newFakeTransport(t, client)

	regs, err := tr.ReadBlock(43501, 200)
	require.NoError(t, err)
	require.Len(t, regs, 200)

	// Блок в 200 регистров разбивается ровно на два запроса: 125 и 75.
	require.Len(t, client.calls, 2)
	require.Equal(t, readCall{address: 3500, quantity: 125}, client.calls[0])
	require.Equal(t, readCall{address: 3625, quantity: 75}, client.calls[1])

	// Порядок регистров сохраняется сквозь границу чанка.
	require.Equal(t, uint16(3500), regs[0])
	require.Equal(t, uint16(3624), regs[124])
	require.Equal(t, uint16(3625), regs[125])
	require.Equal(t, uint16(3699), regs[199])
}

func TestReadBlockPartialFailureAborts(t *testing.T) {
	// Первый чанк проходит, второй исчерпывает все повторы.
	client := &fakeClient{failures: []error{nil, errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	tr, _ := newFakeTransport(t, client)

	_, err := tr.ReadBlock(43501, 200)
	require.Error(t, err, "Отказ второго чанка должен прервать весь блок")

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, ErrKindTimeout, tErr.Kind)
}

func TestReadRetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{failures: []error{errors.New("read timeout"), errors.New("read timeout")}}
	tr, _ := newFakeTransport(t, client)

	// RetryCount=2 дает три попытки, третья успешна.
	v, err := tr.ReadRegister(40043, ScaleTemp, true)
	require.NoError(t, err, "Третья попытка должна пройти")
	require.Len(t, client.calls, 3)
	require.InDelta(t, 0.42, v, 1e-9)
}

func TestChecksumErrorClassification(t *testing.T) {
	client := &fakeClient{failures: []error{fmt.Errorf("modbus: response crc check failed")}}
	tr, _ := newFakeTransport(t, client)

	_, err := tr.ReadRegister(40043, ScaleTemp, true)
	require.NoError(t, err, "Ошибка CRC должна уйти после короткого повтора")
	require.Len(t, client.calls, 2)
}

func TestChecksumRetryWithoutGenericBudget(t *testing.T) {
	// Короткий повтор CRC не расходует общий бюджет попыток:
	// даже при retry_count=0 чтение после одной ошибки CRC завершается успехом.
	client := &fakeClient{failures: []error{fmt.Errorf("modbus: response crc check failed")}}
	cfg := testSettings()
	cfg.RetryCount = 0
	tr, _ := newFakeTransportWithSettings(t, client, cfg)

	_, err := tr.ReadRegister(40043, ScaleTemp, true)
	require.NoError(t, err, "Ошибка CRC должна уйти после выделенного короткого повтора")
	require.Len(t, client.calls, 2)
}

func TestChecksumRetryOnFinalAttempt(t *testing.T) {
	// Ошибка CRC на последней общей попытке все равно получает свой короткий повтор.
	client := &fakeClient{failures: []error{
		errors.New("timeout"),
		errors.New("timeout"),
		fmt.Errorf("modbus: response crc check failed"),
	}}
	tr, _ := newFakeTransport(t, client)

	_, err := tr.ReadRegister(40043, ScaleTemp, true)
	require.NoError(t, err, "Короткий повтор должен сработать и на последней попытке")
	require.Len(t, client.calls, 4)
}

func TestFailCeilingForcesReconnect(t *testing.T) {
	client := &fakeClient{}
	tr, dials := newFakeTransport(t, client)

	// Каждое чтение: 3 попытки, все с таймаутом.
	fail := func() {
		client.failures = []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}
		_, err := tr.ReadRegister(40043, ScaleTemp, true)
		require.Error(t, err)
	}

	fail()
	fail()
	require.Equal(t, 1, *dials, "До потолка отказов переподключения нет")

	fail()
	require.Equal(t, 2, *dials, "Третий подряд отказ должен вызвать переподключение")
}

func TestShortFrameIsMalformed(t *testing.T) {
	short := &shortClient{}
	dial := func(cfg models.ConnectionSettings) (Client, func() error, error) {
		return short, func() error { return nil }, nil
	}
	log := logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
	tr := NewTransportWithDial(testSettings(), log, dial)

	_, err := tr.ReadRegister(40043, ScaleTemp, true)
	require.Error(t, err)

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, ErrKindMalformedFrame, tErr.Kind, "Укороченный кадр классифицируется как malformed")
}

type shortClient struct{}

func (shortClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	return []byte{0x00}, nil
}

func TestRegsToFloat32BE(t *testing.T) {
	// 1.5 в IEEE 754: 0x3FC00000.
	require.InDelta(t, 1.5, RegsToFloat32BE(0x3FC0, 0x0000, false), 1e-9)
	require.InDelta(t, 1.5, RegsToFloat32BE(0x0000, 0x3FC0, true), 1e-9)

	// NaN и Inf заменяются нулем.
	require.Equal(t, 0.0, RegsToFloat32BE(0x7FC0, 0x0000, false))
	require.Equal(t, 0.0, RegsToFloat32BE(0x7F80, 0x0000, false))
}

func TestOpenIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	tr, dials := newFakeTransport(t, client)

	require.NoError(t, tr.Open())
	require.NoError(t, tr.Open())
	require.Equal(t, 1, *dials, "Повторный Open не должен переоткрывать порт")
	require.True(t, tr.IsOpen())

	require.NoError(t, tr.Close())
	require.False(t, tr.IsOpen())
	require.NoError(t, tr.Close(), "Повторный Close идемпотентен")
}
