package usecases

import "github.com/iwtcode/railmon/internal/interfaces"

// UseCases - агрегатор всех use case интерфейсов
type UseCases struct {
	interfaces.Usecases
}

// NewUsecases - конструктор для UseCases
func NewUsecases(
	sensorSvc interfaces.SensorService,
	repo interfaces.MonitoringRepository,
) interfaces.Usecases {
	return NewUsecase(sensorSvc, repo)
}
