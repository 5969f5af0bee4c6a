package model

import "time"

// TaskState 后台任务状态
type TaskState string

const (
	TaskPending TaskState = "PENDING" // 已提交未开始
	TaskStarted TaskState = "STARTED" // 执行中
	TaskSuccess TaskState = "SUCCESS" // 成功结束
	TaskFailure TaskState = "FAILURE" // 失败结束
	TaskRetry   TaskState = "RETRY"   // 等待重试
)

// IsTerminal 是否为终止状态
func (s TaskState) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// Task 后台任务记录，通过 (owner_kind, owner_id) 关联到任意所有者
type Task struct {
	TaskID    string    `json:"task_id" gorm:"primaryKey;size:36"`
	OwnerKind string    `json:"owner_kind" gorm:"size:50;index:idx_task_owner"`
	OwnerID   string    `json:"owner_id" gorm:"size:36;index:idx_task_owner"`
	Name      string    `json:"name" gorm:"size:255"`
	State     TaskState `json:"state" gorm:"size:20;index;default:PENDING"`
	Error     string    `json:"error" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}
