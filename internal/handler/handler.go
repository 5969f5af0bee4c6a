package handler

import (
	"github.com/kgbold/bold/internal/repository"
	"github.com/kgbold/bold/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Dataset *DatasetHandler
	LODC    *LODCHandler
	Task    *TaskHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Dataset: NewDatasetHandler(svc.Dataset),
		LODC:    NewLODCHandler(svc.LODC),
		Task:    NewTaskHandler(repos.Task, svc.Runner),
		System:  NewSystemHandler(svc.Config),
	}
}
