package modbus

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeScaledRoundTrip(t *testing.T) {
	// Обратное масштабирование восстанавливает сырое значение регистра:
	// round(decoded/scale) == raw для всех масштабов, включая знаковые.
	signedRaws := []uint16{0, 1, 4237, 0x7FFF, 0x8000, 0xFFF0, 0xFFFF}
	for _, raw := range signedRaws {
		t.Run(fmt.Sprintf("temp_%#04x", raw), func(t *testing.T) {
			decoded := decodeScaled(raw, ScaleTemp, true)
			back := int64(math.Round(decoded / ScaleTemp))
			require.Equal(t, int64(int16(raw)), back,
				"Знаковое значение должно восстанавливаться без потерь")
			require.Equal(t, raw, uint16(int16(back)),
				"Обратное преобразование должно давать исходный регистр")
		})
	}

	unsignedRaws := []uint16{0, 1, 800, 1200, 3500, 0x7FFF, 0x8000, 0xFFFF}
	for _, scale := range []float64{ScaleScalar, ScaleRPM} {
		for _, raw := range unsignedRaws {
			t.Run(fmt.Sprintf("scale_%g_%d", scale, raw), func(t *testing.T) {
				decoded := decodeScaled(raw, scale, false)
				back := int64(math.Round(decoded / scale))
				require.Equal(t, int64(raw), back,
					"Беззнаковое значение должно восстанавливаться без потерь")
			})
		}
	}
}
