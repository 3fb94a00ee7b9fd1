package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeCrestFactor(t *testing.T) {
	cases := []struct {
		name   string
		cfZ    float64
		cfX    float64
		status string
		alert  bool
	}{
		{"normal", 3.2, 3.9, StatusNormal, false},
		{"acceptable", 4.5, 3.0, StatusAcceptable, false},
		{"warning", 5.0, 3.0, StatusWarning, true},
		{"critical", 8.0, 3.0, StatusCritical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := AnalyzeCrestFactor(tc.cfZ, tc.cfX)
			require.Equal(t, tc.status, res.Status, "Неверный статус крест-фактора")
			require.Equal(t, tc.alert, res.Alert, "Неверный флаг тревоги")
		})
	}
}

func TestAnalyzeCrestFactorWorstAxisWins(t *testing.T) {
	res := AnalyzeCrestFactor(3.0, 9.5)
	require.Equal(t, StatusCritical, res.Status, "Худшая ось должна определять общий статус")
	require.Equal(t, StatusNormal, res.Details["z_axis_status"], "Ось Z должна оцениваться отдельно")
	require.Equal(t, StatusCritical, res.Details["x_axis_status"])
}

func TestAnalyzeKurtosis(t *testing.T) {
	cases := []struct {
		name   string
		kurtZ  float64
		kurtX  float64
		status string
		alert  bool
	}{
		{"gaussian", 3.0, 3.1, StatusNormal, false},
		{"slightly_off", 3.5, 3.0, StatusAcceptable, false},
		{"elevated", 4.0, 3.0, StatusWarning, true},
		{"low_uniform_wear", 1.5, 3.0, StatusWarning, true},
		{"critical", 9.0, 3.0, StatusCritical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := AnalyzeKurtosis(tc.kurtZ, tc.kurtX)
			require.Equal(t, tc.status, res.Status, "Неверный статус куртозиса")
			require.Equal(t, tc.alert, res.Alert, "Неверный флаг тревоги")
		})
	}
}

func TestHFTrendBaselineAndGrowth(t *testing.T) {
	a := NewHFTrendAnalyzer()

	// Первое наблюдение фиксирует базовую линию.
	res := a.Analyze(0.02, 0.02)
	require.Equal(t, StatusNormal, res.Status)
	require.Equal(t, true, res.Details["baseline_set"], "Первое наблюдение должно стать базой")

	// Рост на 55% относительно базы.
	res = a.Analyze(0.031, 0.02)
	require.Equal(t, StatusWarning, res.Status, "Рост более 50%% должен давать предупреждение")
	require.True(t, res.Alert)

	// Рост на 125% относительно базы.
	res = a.Analyze(0.045, 0.02)
	require.Equal(t, StatusCritical, res.Status, "Удвоение ВЧ RMS должно давать критический статус")
}

func TestHFTrendReset(t *testing.T) {
	a := NewHFTrendAnalyzer()
	a.SetBaseline(0.02, 0.02)

	res := a.Analyze(0.05, 0.05)
	require.Equal(t, StatusCritical, res.Status)

	a.ResetBaseline()
	res = a.Analyze(0.05, 0.05)
	require.Equal(t, StatusNormal, res.Status, "После сброса первое наблюдение становится новой базой")
}

func TestSuiteWorstOfAggregation(t *testing.T) {
	s := NewSuite()
	s.HFTrend().SetBaseline(0.02, 0.02)

	report := s.AnalyzeFull(3.0, 3.0, 9.0, 3.0, 0.02, 0.02, true)
	require.Equal(t, StatusCritical, report.OverallStatus, "Общий статус определяется худшим анализатором")
	require.Equal(t, 1, report.AlertCount)
	require.Len(t, report.Alerts, 1)
}

func TestSuiteWithoutHFData(t *testing.T) {
	s := NewSuite()

	report := s.AnalyzeFull(3.0, 3.0, 3.0, 3.0, 0, 0, false)
	require.Nil(t, report.HFTrend, "Без данных ВЧ RMS трендовый анализ пропускается")
	require.Equal(t, StatusNormal, report.OverallStatus)
	require.Equal(t, 0, report.AlertCount)
}
