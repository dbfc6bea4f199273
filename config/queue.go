package config

import "medical/pkg/config"

func init() {
	config.Add("queue", func() map[string]interface{} {
		return map[string]interface{}{
			// 是否启用终端指令队列，关闭后收退费不再通知窗口终端
			"enabled":      config.Env("QUEUE_ENABLED", true),
			"rate_limit":   config.Env("QUEUE_RATE_LIMIT", 50),
			"rate_burst":   config.Env("QUEUE_RATE_BURST", 100),
			"worker_count": config.Env("QUEUE_WORKER_COUNT", 4),
			"retry_times":  config.Env("QUEUE_RETRY_TIMES", 3),
			"retry_delay":  config.Env("QUEUE_RETRY_DELAY", 1),
			"pop_timeout":  config.Env("QUEUE_POP_TIMEOUT", 1),
		}
	})
}
