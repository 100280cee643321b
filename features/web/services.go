package web

import (
	"provwatch/features/coordinator"
	"provwatch/features/coordinator/repository"
	"provwatch/features/coordinator/services"
)

type Services struct {
	Status *services.StatusService
}

func NewServices(coord *coordinator.Coordinator, repo repository.ScanHistoryRepository) *Services {
	return &Services{
		Status: services.NewStatusService(coord, repo),
	}
}
