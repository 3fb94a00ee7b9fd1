package diagnostics

import (
	"github.com/iwtcode/railmon/pkg/errors"
)

// Классы машин по ISO 10816-1.
const (
	ClassI   = "class_I"
	ClassII  = "class_II"
	ClassIII = "class_III"
	ClassIV  = "class_IV"
)

// Зоны вибрационной серьезности.
const (
	ZoneGood           = "good"           // зона A
	ZoneSatisfactory   = "satisfactory"   // зона B
	ZoneUnsatisfactory = "unsatisfactory" // зона C
	ZoneUnacceptable   = "unacceptable"   // зона D
)

// ISOLimits - границы зон A/B/C для класса машины, мм/с RMS.
// Зона D - все, что выше ZoneCMax.
type ISOLimits struct {
	ZoneAMax float64 `json:"zone_a_max"`
	ZoneBMax float64 `json:"zone_b_max"`
	ZoneCMax float64 `json:"zone_c_max"`
}

var machineLimits = map[string]ISOLimits{
	ClassI:   {ZoneAMax: 0.71, ZoneBMax: 1.8, ZoneCMax: 4.5},
	ClassII:  {ZoneAMax: 1.12, ZoneBMax: 2.8, ZoneCMax: 7.1},
	ClassIII: {ZoneAMax: 1.8, ZoneBMax: 4.5, ZoneCMax: 11.2},
	ClassIV:  {ZoneAMax: 2.8, ZoneBMax: 7.1, ZoneCMax: 18.0},
}

// ISOClassifier относит RMS скорость к зоне серьезности для заданного
// класса машины.
type ISOClassifier struct {
	machineClass string
	limits       ISOLimits
}

// NewISOClassifier создает классификатор. Неизвестный класс машины - ошибка
// валидации.
func NewISOClassifier(machineClass string) (*ISOClassifier, error) {
	limits, ok := machineLimits[machineClass]
	if !ok {
		return nil, errors.NewValidationError("machine_class", "unknown machine class %q", machineClass)
	}
	return &ISOClassifier{machineClass: machineClass, limits: limits}, nil
}

// MachineClass возвращает текущий класс машины.
func (c *ISOClassifier) MachineClass() string {
	return c.machineClass
}

// Limits возвращает границы зон текущего класса.
func (c *ISOClassifier) Limits() ISOLimits {
	return c.limits
}

// Classify относит RMS скорость (мм/с) к зоне. Отрицательная скорость
// физически невозможна и отклоняется.
func (c *ISOClassifier) Classify(rmsMmS float64) (string, error) {
	if rmsMmS < 0 {
		return "", errors.NewValidationError("rms_mm_s", "rms velocity cannot be negative: %v", rmsMmS)
	}
	switch {
	case rmsMmS < c.limits.ZoneAMax:
		return ZoneGood, nil
	case rmsMmS < c.limits.ZoneBMax:
		return ZoneSatisfactory, nil
	case rmsMmS < c.limits.ZoneCMax:
		return ZoneUnsatisfactory, nil
	default:
		return ZoneUnacceptable, nil
	}
}

// KnownMachineClasses возвращает список поддерживаемых классов.
func KnownMachineClasses() []string {
	return []string{ClassI, ClassII, ClassIII, ClassIV}
}
