// Package task 提供进程内的后台任务执行
// 任务状态落库，状态变化通过 redis 发布到 tasks 频道
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kgbold/bold/internal/model"
	"github.com/kgbold/bold/internal/repository"
)

// EventChannel 状态变化发布的 redis 频道
const EventChannel = "tasks"

// Func 任务体，返回错误时任务记为 FAILURE
type Func func(ctx context.Context) error

type job struct {
	taskID string
	fn     Func
}

// Runner 固定大小的任务执行池
type Runner struct {
	repo  repository.TaskRepository
	redis *redis.Client

	jobs chan job
	wg   sync.WaitGroup

	mu      sync.Mutex
	revoked map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner 创建执行池并启动 workers 个工作协程
func NewRunner(repo repository.TaskRepository, redisClient *redis.Client, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		repo:    repo,
		redis:   redisClient,
		jobs:    make(chan job, 256),
		revoked: make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit 提交任务，返回任务 ID
func (r *Runner) Submit(ownerKind, ownerID, name string, fn Func) (string, error) {
	taskID := uuid.New().String()
	record := &model.Task{
		TaskID:    taskID,
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		Name:      name,
		State:     model.TaskPending,
	}
	if err := r.repo.Create(record); err != nil {
		return "", fmt.Errorf("failed to create task record: %w", err)
	}
	r.publish(taskID, model.TaskPending)

	select {
	case r.jobs <- job{taskID: taskID, fn: fn}:
	default:
		return "", fmt.Errorf("task queue is full")
	}
	return taskID, nil
}

// Revoke 撤销任务
// 未开始执行的任务直接删除记录，执行中的任务无法中断
func (r *Runner) Revoke(taskID string) error {
	record, err := r.repo.GetByID(taskID)
	if err != nil {
		return err
	}
	if record.State != model.TaskPending {
		return fmt.Errorf("task %s is already %s", taskID, record.State)
	}

	r.mu.Lock()
	r.revoked[taskID] = struct{}{}
	r.mu.Unlock()

	return r.repo.Delete(taskID)
}

// Shutdown 停止接收新任务并等待在执行的任务结束
func (r *Runner) Shutdown() {
	r.cancel()
	close(r.jobs)
	r.wg.Wait()
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	r.mu.Lock()
	_, isRevoked := r.revoked[j.taskID]
	delete(r.revoked, j.taskID)
	r.mu.Unlock()
	if isRevoked {
		return
	}

	r.setState(j.taskID, model.TaskStarted, "")

	if err := j.fn(r.ctx); err != nil {
		log.Printf("task %s failed: %v", j.taskID, err)
		r.setState(j.taskID, model.TaskFailure, err.Error())
		return
	}
	r.setState(j.taskID, model.TaskSuccess, "")
}

func (r *Runner) setState(taskID string, state model.TaskState, errMsg string) {
	if err := r.repo.UpdateState(taskID, state, errMsg); err != nil {
		log.Printf("failed to update task %s state: %v", taskID, err)
	}
	r.publish(taskID, state)
}

// publish 尽力而为地广播状态变化
func (r *Runner) publish(taskID string, state model.TaskState) {
	if r.redis == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"task_id": taskID,
		"state":   state,
	})
	if err != nil {
		return
	}
	if err := r.redis.Publish(context.Background(), EventChannel, payload).Err(); err != nil {
		log.Printf("failed to publish task event: %v", err)
	}
}
