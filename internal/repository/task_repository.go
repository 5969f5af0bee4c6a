package repository

import (
	"github.com/kgbold/bold/internal/model"
	"gorm.io/gorm"
)

// taskRepository 任务仓库
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 创建任务记录
func (r *taskRepository) Create(task *model.Task) error {
	return r.db.Create(task).Error
}

// GetByID 根据任务ID获取任务
func (r *taskRepository) GetByID(taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List 列出任务
func (r *taskRepository) List(offset, limit int) ([]*model.Task, int64, error) {
	var tasks []*model.Task
	var total int64

	if err := r.db.Model(&model.Task{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, total, err
}

// ListByOwner 列出某个所有者的任务
func (r *taskRepository) ListByOwner(ownerKind, ownerID string) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerID).
		Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// UpdateState 更新任务状态
func (r *taskRepository) UpdateState(taskID string, state model.TaskState, errMsg string) error {
	return r.db.Model(&model.Task{}).Where("task_id = ?", taskID).Updates(map[string]interface{}{
		"state": state,
		"error": errMsg,
	}).Error
}

// Delete 删除任务记录
func (r *taskRepository) Delete(taskID string) error {
	return r.db.Delete(&model.Task{}, "task_id = ?", taskID).Error
}

// HasRunning 所有者是否有进行中的任务
func (r *taskRepository) HasRunning(ownerKind, ownerID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Task{}).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerID).
		Where("state IN ?", []model.TaskState{model.TaskPending, model.TaskStarted, model.TaskRetry}).
		Count(&count).Error
	return count > 0, err
}
