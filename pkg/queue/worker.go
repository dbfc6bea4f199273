package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medical/pkg/logger"
)

// Dispatcher 将指令报文发布到终端主题
type Dispatcher interface {
	Publish(ctx context.Context, topic string, qos int, payload []byte) error
}

// WorkerConfig 工作器配置
type WorkerConfig struct {
	WorkerCount     int           // 并发工作器数量
	MaxRetries      int           // 发布失败后的重试次数
	RetryInterval   time.Duration // 重试间隔
	SendTimeout     time.Duration // 单次发布超时
	ShutdownTimeout time.Duration // 关闭超时时间
}

// Worker 从队列取出指令并发布
type Worker struct {
	queue      *QueueService
	dispatcher Dispatcher
	config     WorkerConfig

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWorker 创建工作器组
func NewWorker(q *QueueService, d Dispatcher, config WorkerConfig) *Worker {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = time.Second
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		queue:      q,
		dispatcher: d,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动工作器组，立即返回
func (w *Worker) Start() {
	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.startWorker(i)
	}
}

func (w *Worker) startWorker(id int) {
	defer w.wg.Done()

	logger.InfoString("Worker", "Start", fmt.Sprintf("Worker %d started", id))
	for {
		if w.ctx.Err() != nil {
			logger.InfoString("Worker", "Stop", fmt.Sprintf("Worker %d stopping", id))
			return
		}

		if err := w.processNext(); err != nil {
			logger.ErrorString("Worker", "Error", fmt.Sprintf("Worker %d error: %v", id, err))
			w.sleep(time.Second)
		}
	}
}

// processNext 处理一条指令，队列为空时直接返回
func (w *Worker) processNext() error {
	cmd, err := w.queue.PopCommand(w.ctx)
	if errors.Is(err, ErrEmpty) || w.ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		w.queue.metrics.RecordLatency(OpProcess, time.Since(start))
	}()
	return w.handle(cmd)
}

// handle 发布指令，失败按配置重试，最终结果写回状态
func (w *Worker) handle(cmd *Command) error {
	w.setStatus(cmd.ID, CommandRunning)

	payload, err := cmd.Payload()
	if err != nil {
		w.queue.metrics.RecordError(OpProcess)
		w.setStatus(cmd.ID, CommandFailed)
		return fmt.Errorf("command %s payload: %w", cmd.ID, err)
	}

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			w.queue.metrics.RecordRetry()
			if !w.sleep(w.config.RetryInterval) {
				break
			}
		}

		ctx, cancel := context.WithTimeout(w.ctx, w.config.SendTimeout)
		err = w.dispatcher.Publish(ctx, cmd.Topic, cmd.QoS, payload)
		cancel()
		if err == nil {
			w.queue.metrics.RecordSuccess(OpProcess)
			w.setStatus(cmd.ID, CommandSent)
			return nil
		}
		logger.WarnString("Worker", "Publish",
			fmt.Sprintf("command %s topic %s attempt %d: %v", cmd.ID, cmd.Topic, attempt+1, err))
	}

	w.queue.metrics.RecordError(OpProcess)
	w.setStatus(cmd.ID, CommandFailed)
	return fmt.Errorf("command %s publish failed: %w", cmd.ID, err)
}

// setStatus 工作器停止后仍要写回最终状态
func (w *Worker) setStatus(id string, status CommandStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := w.queue.UpdateStatus(ctx, id, status); err != nil {
		logger.ErrorString("Worker", "UpdateStatus", err.Error())
	}
}

// sleep 可被 Stop 打断，被打断时返回 false
func (w *Worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-w.ctx.Done():
		return false
	}
}

// Stop 优雅关闭工作器组，可重复调用
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()

		done := make(chan struct{})
		go func() {
			w.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			logger.InfoString("Worker", "Stop", "All workers stopped gracefully")
		case <-time.After(w.config.ShutdownTimeout):
			logger.WarnString("Worker", "Stop", "Worker shutdown timed out")
		}
	})
}
