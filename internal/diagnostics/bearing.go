package diagnostics

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/iwtcode/railmon/internal/domain/models"
)

// Статусы анализаторов в порядке возрастания серьезности.
const (
	StatusNormal     = "normal"
	StatusAcceptable = "acceptable"
	StatusWarning    = "warning"
	StatusCritical   = "critical"
)

var statusRank = map[string]int{
	StatusNormal:     0,
	StatusAcceptable: 1,
	StatusWarning:    2,
	StatusCritical:   3,
}

// Пороги крест-фактора. Нормальный подшипник дает 2.5..4.0, рост выше 5
// указывает на начало выкрашивания, выше 8 - развитый локальный дефект.
const (
	crestNormalMax   = 4.0
	crestWarningMin  = 5.0
	crestCriticalMin = 8.0
)

// AnalyzeCrestFactor оценивает крест-фактор обеих осей по худшей из них.
func AnalyzeCrestFactor(cfZ, cfX float64) *models.AnalyzerResult {
	maxCf := math.Max(cfZ, cfX)

	var status, message string
	var alert bool
	switch {
	case maxCf >= crestCriticalMin:
		status, alert = StatusCritical, true
		message = "CRITICAL: High crest factor - inspect bearing immediately"
	case maxCf >= crestWarningMin:
		status, alert = StatusWarning, true
		message = "WARNING: Elevated crest factor - early bearing wear suspected"
	case maxCf <= crestNormalMax:
		status = StatusNormal
		message = "Crest factor within normal range"
	default:
		status = StatusAcceptable
		message = "Crest factor slightly elevated but acceptable"
	}

	classify := func(cf float64) string {
		switch {
		case cf >= crestCriticalMin:
			return StatusCritical
		case cf >= crestWarningMin:
			return StatusWarning
		case cf <= crestNormalMax:
			return StatusNormal
		default:
			return StatusAcceptable
		}
	}

	return &models.AnalyzerResult{
		Status:  status,
		Alert:   alert,
		Message: message,
		Details: map[string]interface{}{
			"z_axis_cf":          cfZ,
			"x_axis_cf":          cfX,
			"z_axis_status":      classify(cfZ),
			"x_axis_status":      classify(cfX),
			"warning_threshold":  crestWarningMin,
			"critical_threshold": crestCriticalMin,
		},
	}
}

// Пороги куртозиса. Гауссов сигнал дает 2.8..3.2, низкий куртозис -
// равномерный износ, высокий - импульсные дефекты.
const (
	kurtNormalMin    = 2.8
	kurtNormalMax    = 3.2
	kurtLowThreshold = 2.0
	kurtWarningMin   = 4.0
	kurtCriticalMin  = 8.0
)

// AnalyzeKurtosis оценивает куртозис обеих осей.
func AnalyzeKurtosis(kurtZ, kurtX float64) *models.AnalyzerResult {
	maxKurt := math.Max(kurtZ, kurtX)
	minKurt := math.Min(kurtZ, kurtX)

	var status, message string
	var alert bool
	switch {
	case maxKurt >= kurtCriticalMin:
		status, alert = StatusCritical, true
		message = "CRITICAL: Extremely high kurtosis - severe bearing defect"
	case maxKurt >= kurtWarningMin:
		status, alert = StatusWarning, true
		message = "WARNING: Elevated kurtosis - inspect for bearing faults"
	case minKurt < kurtLowThreshold:
		status, alert = StatusWarning, true
		message = "WARNING: Low kurtosis - possible uniform bearing wear"
	case kurtZ >= kurtNormalMin && kurtZ <= kurtNormalMax && kurtX >= kurtNormalMin && kurtX <= kurtNormalMax:
		status = StatusNormal
		message = "Kurtosis within normal Gaussian range"
	default:
		status = StatusAcceptable
		message = "Kurtosis slightly outside normal range but acceptable"
	}

	classify := func(k float64) string {
		switch {
		case k >= kurtCriticalMin:
			return StatusCritical
		case k >= kurtWarningMin:
			return StatusWarning
		case k < kurtLowThreshold:
			return StatusWarning
		case k >= kurtNormalMin && k <= kurtNormalMax:
			return StatusNormal
		default:
			return StatusAcceptable
		}
	}

	return &models.AnalyzerResult{
		Status:  status,
		Alert:   alert,
		Message: message,
		Details: map[string]interface{}{
			"z_axis_kurtosis":    kurtZ,
			"x_axis_kurtosis":    kurtX,
			"z_axis_status":      classify(kurtZ),
			"x_axis_status":      classify(kurtX),
			"warning_threshold":  kurtWarningMin,
			"critical_threshold": kurtCriticalMin,
		},
	}
}

// Пороги тренда ВЧ RMS относительно базовой линии, проценты.
const (
	hfWarningIncrease  = 50.0
	hfCriticalIncrease = 100.0
)

// HFTrendAnalyzer отслеживает рост высокочастотного RMS ускорения
// относительно базовой линии. Базовая линия устанавливается лениво
// первым наблюдением.
type HFTrendAnalyzer struct {
	mu           sync.Mutex
	baselineZ    float64
	baselineX    float64
	baselineSet  bool
	baselineTime time.Time
}

// NewHFTrendAnalyzer создает анализатор без базовой линии.
func NewHFTrendAnalyzer() *HFTrendAnalyzer {
	return &HFTrendAnalyzer{}
}

// SetBaseline фиксирует базовую линию вручную.
func (a *HFTrendAnalyzer) SetBaseline(hfZ, hfX float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baselineZ = hfZ
	a.baselineX = hfX
	a.baselineSet = true
	a.baselineTime = time.Now()
}

// ResetBaseline сбрасывает базовую линию. Следующее наблюдение станет новой базой.
func (a *HFTrendAnalyzer) ResetBaseline() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baselineSet = false
}

// Analyze сравнивает текущие значения с базовой линией.
func (a *HFTrendAnalyzer) Analyze(hfZ, hfX float64) *models.AnalyzerResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.baselineSet {
		a.baselineZ = hfZ
		a.baselineX = hfX
		a.baselineSet = true
		a.baselineTime = time.Now()
		return &models.AnalyzerResult{
			Status:  StatusNormal,
			Alert:   false,
			Message: "HF RMS baseline established",
			Details: map[string]interface{}{
				"baseline_set": true,
				"z_baseline":   hfZ,
				"x_baseline":   hfX,
			},
		}
	}

	increase := func(current, baseline float64) float64 {
		if baseline <= 0 {
			return 0
		}
		return (current - baseline) / baseline * 100
	}
	zIncrease := increase(hfZ, a.baselineZ)
	xIncrease := increase(hfX, a.baselineX)
	maxIncrease := math.Max(zIncrease, xIncrease)

	var status, message string
	var alert bool
	switch {
	case maxIncrease >= hfCriticalIncrease:
		status, alert = StatusCritical, true
		message = fmt.Sprintf("CRITICAL: HF RMS doubled - Z=%.1f%%, X=%.1f%%", zIncrease, xIncrease)
	case maxIncrease >= hfWarningIncrease:
		status, alert = StatusWarning, true
		message = fmt.Sprintf("WARNING: HF RMS increase - Z=%.1f%%, X=%.1f%%", zIncrease, xIncrease)
	case maxIncrease < -hfWarningIncrease:
		status = StatusAcceptable
		message = "NOTE: HF RMS decreased significantly (may indicate sensor issue)"
	default:
		status = StatusNormal
		message = "HF RMS stable within normal variation"
	}

	return &models.AnalyzerResult{
		Status:  status,
		Alert:   alert,
		Message: message,
		Details: map[string]interface{}{
			"z_axis_hf":      hfZ,
			"x_axis_hf":      hfX,
			"z_baseline":     a.baselineZ,
			"x_baseline":     a.baselineX,
			"z_increase_pct": zIncrease,
			"x_increase_pct": xIncrease,
			"baseline_age_h": time.Since(a.baselineTime).Hours(),
		},
	}
}

// Suite объединяет все методы подшипниковой диагностики.
type Suite struct {
	hfTrend *HFTrendAnalyzer
}

// NewSuite создает полный диагностический набор.
func NewSuite() *Suite {
	return &Suite{hfTrend: NewHFTrendAnalyzer()}
}

// HFTrend возвращает анализатор тренда для управления базовой линией.
func (s *Suite) HFTrend() *HFTrendAnalyzer {
	return s.hfTrend
}

// AnalyzeFull выполняет полный анализ. hfAvailable выключает трендовый
// анализ, когда датчик не отдает ВЧ RMS.
func (s *Suite) AnalyzeFull(cfZ, cfX, kurtZ, kurtX, hfZ, hfX float64, hfAvailable bool) *models.BearingReport {
	cfResult := AnalyzeCrestFactor(cfZ, cfX)
	kurtResult := AnalyzeKurtosis(kurtZ, kurtX)

	var hfResult *models.AnalyzerResult
	if hfAvailable {
		hfResult = s.hfTrend.Analyze(hfZ, hfX)
	}

	overall := cfResult.Status
	for _, res := range []*models.AnalyzerResult{kurtResult, hfResult} {
		if res != nil && statusRank[res.Status] > statusRank[overall] {
			overall = res.Status
		}
	}

	alerts := make([]string, 0, 3)
	for _, res := range []*models.AnalyzerResult{cfResult, kurtResult, hfResult} {
		if res != nil && res.Alert {
			alerts = append(alerts, res.Message)
		}
	}

	return &models.BearingReport{
		OverallStatus: overall,
		Alerts:        alerts,
		AlertCount:    len(alerts),
		CrestFactor:   cfResult,
		Kurtosis:      kurtResult,
		HFTrend:       hfResult,
	}
}
