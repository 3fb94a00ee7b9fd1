package modbus

import (
	"fmt"
	"strings"
)

// Разновидности транспортных ошибок Modbus RTU.
type ErrorKind string

const (
	ErrKindTimeout        ErrorKind = "timeout"
	ErrKindNoResponse     ErrorKind = "no-response"
	ErrKindChecksum       ErrorKind = "checksum"
	ErrKindPortBusy       ErrorKind = "port-busy"
	ErrKindMalformedFrame ErrorKind = "malformed-frame"
)

// TransportError - ошибка канального уровня с классификацией причины.
// Классификация нужна выше по стеку: ошибки контрольной суммы получают
// короткий повтор, занятый порт отображается в HTTP 409.
type TransportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("modbus %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AcquisitionError - ошибка уровня цикла чтения (после исчерпания повторов).
type AcquisitionError struct {
	Message string
	Err     error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquisition: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("acquisition: %s", e.Message)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// classify определяет разновидность транспортной ошибки по ее тексту.
// Драйвер последовательного порта не дает типизированных ошибок, поэтому
// сопоставление идет по подстрокам без учета регистра.
func classify(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "checksum"), strings.Contains(msg, "crc"), strings.Contains(msg, "check failed"):
		return ErrKindChecksum
	case strings.Contains(msg, "busy"), strings.Contains(msg, "access denied"), strings.Contains(msg, "permission denied"):
		return ErrKindPortBusy
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return ErrKindTimeout
	case strings.Contains(msg, "length"), strings.Contains(msg, "malformed"), strings.Contains(msg, "unexpected"):
		return ErrKindMalformedFrame
	default:
		return ErrKindNoResponse
	}
}

func wrap(op string, err error) *TransportError {
	return &TransportError{Kind: classify(err), Op: op, Err: err}
}

// IsChecksum сообщает, является ли ошибка ошибкой контрольной суммы кадра.
func IsChecksum(err error) bool {
	te, ok := err.(*TransportError)
	return ok && te.Kind == ErrKindChecksum
}

// IsPortBusy сообщает, занят ли последовательный порт другим процессом.
func IsPortBusy(err error) bool {
	te, ok := err.(*TransportError)
	return ok && te.Kind == ErrKindPortBusy
}
