package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kgbold/bold/internal/repository"
	"github.com/kgbold/bold/internal/service/task"
)

// TaskHandler 后台任务处理器
type TaskHandler struct {
	tasks  repository.TaskRepository
	runner *task.Runner
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(tasks repository.TaskRepository, runner *task.Runner) *TaskHandler {
	return &TaskHandler{tasks: tasks, runner: runner}
}

// ListTasks 分页列出任务
func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if ownerKind, ownerID := c.Query("owner_kind"), c.Query("owner_id"); ownerKind != "" && ownerID != "" {
		items, err := h.tasks.ListByOwner(ownerKind, ownerID)
		if err != nil {
			Error(c, err)
			return
		}
		Success(c, items)
		return
	}

	items, total, err := h.tasks.List((page-1)*pageSize, pageSize)
	if err != nil {
		Error(c, err)
		return
	}
	SuccessWithPagination(c, items, total, page, pageSize)
}

// GetTask 获取任务
func (h *TaskHandler) GetTask(c *gin.Context) {
	item, err := h.tasks.GetByID(c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, item)
}

// RevokeTask 撤销任务
func (h *TaskHandler) RevokeTask(c *gin.Context) {
	if err := h.runner.Revoke(c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}
