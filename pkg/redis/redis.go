/*
Package redis 管理 Redis 连接

	主库：限流计数
	队列库：终端指令队列
*/
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medical/pkg/logger"

	redis "github.com/redis/go-redis/v9"
)

// 连接池配置
const (
	DefaultPoolSize     = 100
	DefaultMinIdleConns = 10
	DefaultTimeout      = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultIdleTimeout  = 5 * time.Minute
)

// RedisInstance Redis 实例类型
type RedisInstance string

const (
	MainDB  RedisInstance = "main"  // 主数据库实例（用于限流）
	QueueDB RedisInstance = "queue" // 队列数据库实例
)

// RedisClient Redis 客户端封装
type RedisClient struct {
	Client  *redis.Client
	Context context.Context
}

// RedisConfig Redis 配置结构
type RedisConfig struct {
	Address      string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Timeout      time.Duration
}

// RedisManager 按用途管理多个 Redis 实例
type RedisManager struct {
	instances map[RedisInstance]*RedisClient
	mutex     sync.RWMutex
}

var (
	once    sync.Once
	Manager *RedisManager
	Redis   *RedisClient // 主实例
)

// NewClient 创建 Redis 客户端并检查连通性
func NewClient(config RedisConfig) (*RedisClient, error) {
	rds := &RedisClient{
		Context: context.Background(),
	}

	rds.Client = redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,

		PoolTimeout:     config.Timeout,
		ConnMaxIdleTime: DefaultIdleTimeout,
		ConnMaxLifetime: 24 * time.Hour,

		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      DefaultMaxRetries,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	if err := rds.Ping(); err != nil {
		_ = rds.Client.Close()
		return nil, fmt.Errorf("redis 连接失败 %s/%d: %w", config.Address, config.DB, err)
	}
	return rds, nil
}

// Ping 测试 Redis 连接
func (rds *RedisClient) Ping() error {
	ctx, cancel := context.WithTimeout(rds.Context, DefaultTimeout)
	defer cancel()

	return rds.Client.Ping(ctx).Err()
}

// InitRedis 初始化主库与队列库，任一连接失败直接 panic
func InitRedis(address, username, password string, mainDB, queueDB int) {
	once.Do(func() {
		Manager = &RedisManager{
			instances: make(map[RedisInstance]*RedisClient),
		}

		for instance, db := range map[RedisInstance]int{MainDB: mainDB, QueueDB: queueDB} {
			client, err := NewClient(RedisConfig{
				Address:      address,
				Username:     username,
				Password:     password,
				DB:           db,
				PoolSize:     DefaultPoolSize,
				MinIdleConns: DefaultMinIdleConns,
				Timeout:      DefaultTimeout,
			})
			if err != nil {
				logger.ErrorString("Redis", "Init", err.Error())
				panic(err)
			}
			Manager.instances[instance] = client
		}

		Redis = Manager.instances[MainDB]
	})
}

// GetRedis 获取指定的 Redis 实例，不存在时返回主实例
func GetRedis(instance RedisInstance) *RedisClient {
	if Manager == nil {
		return nil
	}

	Manager.mutex.RLock()
	defer Manager.mutex.RUnlock()

	if client, ok := Manager.instances[instance]; ok {
		return client
	}
	return Redis
}

// Close 关闭所有实例
func Close() {
	if Manager == nil {
		return
	}

	Manager.mutex.Lock()
	defer Manager.mutex.Unlock()

	for name, client := range Manager.instances {
		if err := client.Client.Close(); err != nil {
			logger.WarnString("Redis", "Close", string(name)+": "+err.Error())
		}
	}
}
