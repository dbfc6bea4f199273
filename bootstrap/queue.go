package bootstrap

import (
	"fmt"
	"time"

	"medical/pkg/config"
	"medical/pkg/gateway"
	"medical/pkg/logger"
	"medical/pkg/queue"
	"medical/pkg/redis"
)

// SetupQueue 启动终端指令队列与发布工作器
// 未启用或初始化失败时返回 nil，收退费流程不受影响，只是不再通知窗口终端
func SetupQueue() *queue.Worker {
	if !config.GetBool("queue.enabled") {
		logger.InfoString("Queue", "Setup", "终端指令队列未启用")
		return nil
	}
	if redis.Manager == nil {
		logger.ErrorString("Queue", "Setup", "Redis manager not initialized")
		return nil
	}

	queueService, err := queue.NewQueueService()
	if err != nil {
		logger.ErrorString("Queue", "Setup", err.Error())
		return nil
	}

	gw, err := gateway.NewGateway(&gateway.Config{
		URLs:       gateway.GetConfig("gateway.urls"),
		APIKeys:    gateway.GetConfig("gateway.api_keys"),
		APISecrets: gateway.GetConfig("gateway.api_secrets"),
		Timeout:    config.GetDuration("gateway.timeout", 10),
		MaxRetries: config.GetInt("gateway.max_retries", 3),
	})
	if err != nil {
		logger.ErrorString("Queue", "Setup", "发布网关初始化失败: "+err.Error())
		return nil
	}

	worker := queue.NewWorker(queueService, gw, queue.WorkerConfig{
		WorkerCount:     config.GetInt("queue.worker_count", 4),
		MaxRetries:      config.GetInt("queue.retry_times", 3),
		RetryInterval:   config.GetDuration("queue.retry_delay", 1),
		SendTimeout:     config.GetDuration("gateway.timeout", 10),
		ShutdownTimeout: 30 * time.Second,
	})
	worker.Start()

	queue.Default = queueService
	logger.InfoString("Queue", "Setup", fmt.Sprintf("队列服务启动成功 [Broker: %d]", len(gw.GetInstances())))
	return worker
}
