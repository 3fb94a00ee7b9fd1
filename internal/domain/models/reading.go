package models

// Axis обозначает измерительную ось датчика.
const (
	AxisZ = "z"
	AxisX = "x"
)

// Состояние поезда, выведенное из уровня вибрации.
const (
	TrainStateIdle   = "idle"
	TrainStateMoving = "moving"
)

// BandMeasurement - одна частотная полоса спектрального блока датчика.
type BandMeasurement struct {
	BandNumber int     `json:"band_number"` // 1..20
	Axis       string  `json:"axis"`        // z | x
	TotalRMS   float64 `json:"total_rms"`
	PeakRMS    float64 `json:"peak_rms"`
	PeakFreqHz float64 `json:"peak_freq_hz"`
	PeakRPM    float64 `json:"peak_rpm"`
	BinIndex   int     `json:"bin_index"`
}

// ISOAnnotation - результат классификации ISO 10816 по обеим осям.
type ISOAnnotation struct {
	ZAxis        string             `json:"z_axis"`
	XAxis        string             `json:"x_axis"`
	MachineClass string             `json:"machine_class"`
	Limits       map[string]float64 `json:"limits,omitempty"`
}

// AnalyzerResult - результат одного анализатора подшипниковой диагностики.
type AnalyzerResult struct {
	Status  string                 `json:"status"`
	Alert   bool                   `json:"alert"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// BearingReport - сводный отчет подшипниковой диагностики.
type BearingReport struct {
	OverallStatus string          `json:"overall_status"`
	Alerts        []string        `json:"alerts"`
	AlertCount    int             `json:"alert_count"`
	CrestFactor   *AnalyzerResult `json:"crest_factor,omitempty"`
	Kurtosis      *AnalyzerResult `json:"kurtosis,omitempty"`
	HFTrend       *AnalyzerResult `json:"hf_trend,omitempty"`
}

// DataQuality - признаки деградации сигнала, вычисляемые планировщиком
// относительно предыдущего показания.
type DataQuality struct {
	Frozen       bool `json:"frozen"`
	StepChange   bool `json:"step_change"`
	MissingBands bool `json:"missing_bands"`
}

// MLPrediction - результат внешнего ML-скорера, прикрепляемый к показанию.
type MLPrediction struct {
	Label         string    `json:"label"`
	ClassIndex    int       `json:"class_index"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

// Reading - одно полное показание датчика за цикл опроса. Создается один раз
// и после заполнения конвейером (диагностика, пороги, ML) не изменяется.
type Reading struct {
	Timestamp string `json:"timestamp"` // ISO-8601, UTC
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`

	TempC        float64  `json:"temp_c"`
	ZRmsMmS      float64  `json:"z_rms_mm_s"`
	XRmsMmS      float64  `json:"x_rms_mm_s"`
	ZPeakMmS     float64  `json:"z_peak_mm_s"`
	XPeakMmS     float64  `json:"x_peak_mm_s"`
	ZRmsG        float64  `json:"z_rms_g"`
	XRmsG        float64  `json:"x_rms_g"`
	ZHfRmsG      float64  `json:"z_hf_rms_g"`
	XHfRmsG      float64  `json:"x_hf_rms_g"`
	ZKurtosis    float64  `json:"z_kurtosis"`
	XKurtosis    float64  `json:"x_kurtosis"`
	ZCrestFactor float64  `json:"z_crest_factor"`
	XCrestFactor float64  `json:"x_crest_factor"`
	FrequencyHz  float64  `json:"frequency_hz"`
	RPM          *float64 `json:"rpm,omitempty"`

	BandsZ []BandMeasurement `json:"bands_z"`
	BandsX []BandMeasurement `json:"bands_x"`

	// Признаки для ML: total_rms полос 1/2/3/5/7 либо значения простого
	// блока; 0.0 если полосы недоступны.
	Band1X float64 `json:"band_1x"`
	Band2X float64 `json:"band_2x"`
	Band3X float64 `json:"band_3x"`
	Band5X float64 `json:"band_5x"`
	Band7X float64 `json:"band_7x"`

	BandWarning string `json:"band_warning,omitempty"`
	TrainState  string `json:"train_state,omitempty"`

	ISO10816     *ISOAnnotation `json:"iso10816,omitempty"`
	Bearing      *BearingReport `json:"bearing_diagnostics,omitempty"`
	DataQuality  *DataQuality   `json:"data_quality,omitempty"`
	Confidence   float64        `json:"confidence,omitempty"`
	FaultLabel   string         `json:"fault_label,omitempty"`
	MLPrediction *MLPrediction  `json:"ml_prediction,omitempty"`
	MLError      string         `json:"ml_error,omitempty"`
}

// Features возвращает вектор признаков для ML-скорера в фиксированном порядке.
func (r *Reading) Features() []float64 {
	return []float64{
		r.ZRmsMmS,
		r.ZPeakMmS,
		r.Band1X,
		r.Band2X,
		r.Band3X,
		r.Band5X,
		r.Band7X,
		r.TempC,
	}
}
