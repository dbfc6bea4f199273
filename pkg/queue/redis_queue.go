package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"medical/pkg/config"
	"medical/pkg/redis"
)

// CommandStatus 指令状态
type CommandStatus string

const (
	CommandPending CommandStatus = "pending"
	CommandRunning CommandStatus = "running"
	CommandSent    CommandStatus = "sent"
	CommandFailed  CommandStatus = "failed"
)

// ErrEmpty 等待超时，队列中没有指令
var ErrEmpty = errors.New("queue: empty")

// Command 下发给窗口终端的指令
type Command struct {
	ID        string                 `json:"id"`
	Service   string                 `json:"service"`
	Operation string                 `json:"operation"`
	Params    map[string]interface{} `json:"params,omitempty"`

	// 投递信息，不进入报文
	Topic string `json:"topic"`
	QoS   int    `json:"qos"`
	// Content 非空时原样下发，忽略 Service/Operation/Params
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCommand 创建结构化指令
func NewCommand(topic string, qos int, service, operation string, params map[string]interface{}) *Command {
	return &Command{
		ID:        uuid.NewString(),
		Service:   service,
		Operation: operation,
		Params:    params,
		Topic:     topic,
		QoS:       qos,
		CreatedAt: time.Now(),
	}
}

// NewRawCommand 创建原样下发的指令
func NewRawCommand(topic string, qos int, content string) *Command {
	return &Command{
		ID:        uuid.NewString(),
		Topic:     topic,
		QoS:       qos,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Payload 终端收到的报文
func (c *Command) Payload() ([]byte, error) {
	if c.Content != "" {
		return []byte(c.Content), nil
	}
	return json.Marshal(struct {
		ID        string                 `json:"id"`
		Service   string                 `json:"service"`
		Operation string                 `json:"operation"`
		Params    map[string]interface{} `json:"params"`
	}{c.ID, c.Service, c.Operation, c.Params})
}

// Options 队列配置
type Options struct {
	Prefix     string
	StatusTTL  time.Duration
	PopTimeout time.Duration
	RateLimit  int
	RateBurst  int
}

// QueueService 基于 redis list 的指令队列，LPUSH 入队、BRPOP 出队
type QueueService struct {
	client      *goredis.Client
	prefix      string
	ttl         time.Duration
	popTimeout  time.Duration
	rateLimiter *rate.Limiter
	metrics     *QueueMetrics
}

// Default 全局队列，未启用时为 nil
var Default *QueueService

// NewQueueService 使用队列库实例和配置创建队列
func NewQueueService() (*QueueService, error) {
	rds := redis.GetRedis(redis.QueueDB)
	if rds == nil {
		return nil, errors.New("queue: redis 未初始化")
	}

	return New(rds.Client, Options{
		Prefix:     config.GetString("redis.queue_prefix", "medical:terminal"),
		StatusTTL:  config.GetDuration("redis.queue_timeout", 300),
		PopTimeout: config.GetDuration("queue.pop_timeout", 1),
		RateLimit:  config.GetInt("queue.rate_limit", 50),
		RateBurst:  config.GetInt("queue.rate_burst", 100),
	}), nil
}

// New 使用指定客户端创建队列
func New(client *goredis.Client, opts Options) *QueueService {
	if opts.Prefix == "" {
		opts.Prefix = "medical:terminal"
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = 5 * time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst < opts.RateLimit {
		opts.RateBurst = opts.RateLimit
	}

	return &QueueService{
		client:      client,
		prefix:      opts.Prefix,
		ttl:         opts.StatusTTL,
		popTimeout:  opts.PopTimeout,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		metrics:     NewQueueMetrics(),
	}
}

func (q *QueueService) listKey() string {
	return q.prefix + ":commands"
}

func (q *QueueService) statusKey(id string) string {
	return fmt.Sprintf("%s:status:%s", q.prefix, id)
}

// PushCommand 指令入队，状态置为 pending
func (q *QueueService) PushCommand(ctx context.Context, cmd *Command) error {
	if err := q.rateLimiter.Wait(ctx); err != nil {
		q.metrics.RecordError(OpPush)
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	start := time.Now()
	defer func() {
		q.metrics.RecordLatency(OpPush, time.Since(start))
	}()

	body, err := json.Marshal(cmd)
	if err != nil {
		q.metrics.RecordError(OpPush)
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.listKey(), body)
	pipe.Set(ctx, q.statusKey(cmd.ID), string(CommandPending), q.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		q.metrics.RecordError(OpPush)
		return fmt.Errorf("failed to push command: %w", err)
	}

	q.metrics.RecordSuccess(OpPush)
	return nil
}

// PopCommand 阻塞等待一条指令，超时返回 ErrEmpty
func (q *QueueService) PopCommand(ctx context.Context) (*Command, error) {
	start := time.Now()
	result, err := q.client.BRPop(ctx, q.popTimeout, q.listKey()).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		q.metrics.RecordError(OpPop)
		return nil, fmt.Errorf("failed to pop command: %w", err)
	}
	q.metrics.RecordLatency(OpPop, time.Since(start))

	if len(result) != 2 {
		return nil, fmt.Errorf("invalid result from queue: %v", result)
	}

	var cmd Command
	if err := json.Unmarshal([]byte(result[1]), &cmd); err != nil {
		q.metrics.RecordError(OpPop)
		return nil, fmt.Errorf("failed to unmarshal command: %w", err)
	}
	return &cmd, nil
}

// UpdateStatus 更新指令状态
func (q *QueueService) UpdateStatus(ctx context.Context, id string, status CommandStatus) error {
	if err := q.client.Set(ctx, q.statusKey(id), string(status), q.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update command status: %w", err)
	}
	return nil
}

// GetStatus 查询指令状态，不存在或已过期时返回空字符串
func (q *QueueService) GetStatus(ctx context.Context, id string) (CommandStatus, error) {
	status, err := q.client.Get(ctx, q.statusKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get command status: %w", err)
	}
	return CommandStatus(status), nil
}

// Len 队列中等待的指令数
func (q *QueueService) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.listKey()).Result()
}

// Metrics 队列指标
func (q *QueueService) Metrics() *QueueMetrics {
	return q.metrics
}

// Ping 检查队列服务健康状态
func (q *QueueService) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
