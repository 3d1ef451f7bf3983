package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// VisitRecorder 有界的访问记录队列。跳转路径只负责投递，固定数量的
// worker 在后台消费；队列满时丢弃记录而不是阻塞请求。
type VisitRecorder struct {
	service *VisitService
	queue   chan RecordVisitInput
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewVisitRecorder 启动 workers 个消费协程。
// Close 之后不得再调用 Enqueue。
func NewVisitRecorder(service *VisitService, workers, queueSize int, logger *zap.Logger) *VisitRecorder {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	r := &VisitRecorder{
		service: service,
		queue:   make(chan RecordVisitInput, queueSize),
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue 非阻塞投递，返回 false 表示队列已满、该条记录被丢弃
func (r *VisitRecorder) Enqueue(in RecordVisitInput) bool {
	select {
	case r.queue <- in:
		return true
	default:
		r.logger.Warn("Visit record dropped, queue full",
			zap.String("slug", in.Slug),
			zap.Int("status_code", in.StatusCode))
		return false
	}
}

func (r *VisitRecorder) worker() {
	defer r.wg.Done()
	for in := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r.service.Record(ctx, in)
		cancel()
	}
}

// Close 停止接收并等待已入队的记录全部写完
func (r *VisitRecorder) Close() {
	close(r.queue)
	r.wg.Wait()
}
