package models

import "time"

// ErrorResponse - стандартный ответ об ошибке API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse - стандартный информационный ответ API.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse - сводный статус сервиса для /api/v1/readings/latest.
type StatusResponse struct {
	Timestamp    time.Time      `json:"timestamp"`
	CycleStatus  string         `json:"cycle_status"`
	Reading      *Reading       `json:"reading,omitempty"`
	Health       HealthSnapshot `json:"health"`
	ActiveAlerts []Alert        `json:"active_alerts"`
	TrainState   string         `json:"train_state"`
	MachineClass string         `json:"machine_class"`
}

// DiagnosticsResponse - агрегат диагностики для /api/v1/diagnostics.
type DiagnosticsResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	ISO       *ISOAnnotation `json:"iso10816,omitempty"`
	Bearing   *BearingReport `json:"bearing,omitempty"`
	Quality   *DataQuality   `json:"data_quality,omitempty"`
	ML        *MLPrediction  `json:"ml,omitempty"`
}
