package query

import (
	"context"
	"errors"

	"github.com/kgbold/bold/internal/service/stardog"
)

// storeQuerier 本地查询依赖的最小 Stardog 接口，便于测试
type storeQuerier interface {
	Query(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error)
}

// LocalService 针对本地 Stardog 数据库的查询服务
type LocalService struct {
	database string
	store    storeQuerier
}

// NewLocalService 创建本地查询服务
func NewLocalService(database string, store storeQuerier) *LocalService {
	return &LocalService{database: database, store: store}
}

// Query 执行查询
// 查询文本自带 LIMIT 时不再叠加调用方的结果上限
func (s *LocalService) Query(ctx context.Context, text string, opts Options) (*Result, error) {
	var limit *int
	if opts.Limit > 0 && !HasLimit(text) {
		limit = &opts.Limit
	}

	accept := acceptFor(text)
	data, err := s.store.Query(ctx, s.database, text, accept, limit, opts.TimeoutMs)
	if err != nil {
		var storeErr *stardog.Error
		if errors.As(err, &storeErr) {
			return nil, &ExecutionError{Status: storeErr.Status, Message: storeErr.Message}
		}
		return nil, &ExecutionError{Message: err.Error()}
	}

	return &Result{ContentType: accept, Data: data}, nil
}
