package models

import (
	"fmt"

	"github.com/iwtcode/railmon/pkg/errors"
)

// Фиксированные ключи скалярных параметров.
const (
	ParamZRms      = "z_rms_mm_s"
	ParamXRms      = "x_rms_mm_s"
	ParamTempC     = "temp_c"
	ParamZKurtosis = "z_kurtosis"
	ParamXKurtosis = "x_kurtosis"
)

// ThresholdDefinition - пара порогов одного параметра. Инвариант
// alarm >= warning проверяется при любом обновлении набора.
type ThresholdDefinition struct {
	WarningLimit float64 `json:"warning_limit"`
	AlarmLimit   float64 `json:"alarm_limit"`
	Enabled      bool    `json:"enabled"`
}

// ThresholdSet - набор порогов: ключ параметра -> определение. Полосные
// параметры используют составной ключ band_{axis}_{n}_{total_rms|peak_rms}.
type ThresholdSet map[string]ThresholdDefinition

// BandParameterKey строит составной ключ полосного параметра.
func BandParameterKey(axis string, bandNumber int, metric string) string {
	return fmt.Sprintf("band_%s_%d_%s", axis, bandNumber, metric)
}

// Validate проверяет инвариант alarm >= warning для каждого параметра.
func (s ThresholdSet) Validate() error {
	for key, def := range s {
		if def.AlarmLimit < def.WarningLimit {
			return errors.NewValidationError(key, "alarm_limit %v must be >= warning_limit %v", def.AlarmLimit, def.WarningLimit)
		}
	}
	return nil
}

// Clone возвращает независимую копию набора.
func (s ThresholdSet) Clone() ThresholdSet {
	out := make(ThresholdSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DefaultThresholdSet возвращает набор по умолчанию: температура и RMS обеих
// осей включены (якоря ISO 10816 класс II), куртозис присутствует, но выключен.
func DefaultThresholdSet() ThresholdSet {
	return ThresholdSet{
		ParamTempC: {WarningLimit: 70.0, AlarmLimit: 80.0, Enabled: true},
		ParamZRms:  {WarningLimit: 2.3, AlarmLimit: 7.1, Enabled: true},
		ParamXRms:  {WarningLimit: 2.3, AlarmLimit: 7.1, Enabled: true},

		ParamZKurtosis: {WarningLimit: 4.0, AlarmLimit: 6.0, Enabled: false},
		ParamXKurtosis: {WarningLimit: 4.0, AlarmLimit: 6.0, Enabled: false},
	}
}
