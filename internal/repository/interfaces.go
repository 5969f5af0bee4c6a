package repository

import "github.com/kgbold/bold/internal/model"

// DatasetRepository 数据集仓库接口，便于测试时替换
type DatasetRepository interface {
	Create(dataset *model.Dataset) error
	GetByID(id string) (*model.Dataset, error)
	List(offset, limit int, search string) ([]*model.Dataset, int64, error)
	Update(dataset *model.Dataset) error
	UpdateFields(id string, fields map[string]interface{}) error
	Delete(id string) error
	FindBySparqlEndpoint(endpoint string) (*model.Dataset, error)
}

// TaskRepository 任务仓库接口
type TaskRepository interface {
	Create(task *model.Task) error
	GetByID(taskID string) (*model.Task, error)
	List(offset, limit int) ([]*model.Task, int64, error)
	ListByOwner(ownerKind, ownerID string) ([]*model.Task, error)
	UpdateState(taskID string, state model.TaskState, errMsg string) error
	Delete(taskID string) error
	HasRunning(ownerKind, ownerID string) (bool, error)
}
