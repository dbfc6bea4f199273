package bootstrap

import (
	"fmt"

	"medical/pkg/config"
	"medical/pkg/redis"
)

// SetupRedis 初始化 Redis 主库（限流）与队列库
func SetupRedis() {
	redis.InitRedis(
		fmt.Sprintf("%v:%v", config.GetString("redis.host"), config.GetString("redis.port")),
		config.GetString("redis.username"),
		config.GetString("redis.password"),
		config.GetInt("redis.database"),
		config.GetInt("redis.queue_database"),
	)
}
