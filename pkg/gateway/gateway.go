// Package gateway 通过 MQTT Broker 的 HTTP 发布接口向窗口终端下发指令
// 支持多实例负载均衡、故障转移和自动恢复
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"medical/pkg/config"
	"medical/pkg/logger"
)

const (
	publishPath = "/api/v5/publish"
	// unhealthyThreshold 连续失败次数达到后标记为不健康
	unhealthyThreshold = 3
)

// ErrNoInstance 没有配置任何 Broker 实例
var ErrNoInstance = errors.New("gateway: no broker instance configured")

// Gateway Broker 发布网关
type Gateway struct {
	instances  []*Instance
	numRetries int
	mu         sync.RWMutex
}

// Instance Broker 实例
type Instance struct {
	URL          string
	APIKey       string
	APISecret    string
	Health       bool
	Client       *resty.Client
	LastErr      error
	LastUsed     time.Time
	ErrorCount   int
	RequestCount *RequestCounter
}

// RequestCounter 最近一小时的成功请求计数
type RequestCounter struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewRequestCounter 创建请求计数器
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{
		requests: make([]time.Time, 0, 256),
	}
}

// AddRequest 记录新请求
func (rc *RequestCounter) AddRequest() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	i := 0
	for i < len(rc.requests) && now.Sub(rc.requests[i]) > time.Hour {
		i++
	}
	rc.requests = append(rc.requests[i:], now)
}

// GetRecentCount 获取最近时间段内的请求数
func (rc *RequestCounter) GetRecentCount(duration time.Duration) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	count := 0
	for i := len(rc.requests) - 1; i >= 0; i-- {
		if now.Sub(rc.requests[i]) > duration {
			break
		}
		count++
	}
	return count
}

// GetConfig 读取逗号分隔的配置项
func GetConfig(key string) []string {
	value := strings.TrimSpace(config.GetString(key))
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// NewGateway 创建发布网关
func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg == nil || len(cfg.URLs) == 0 {
		return nil, ErrNoInstance
	}

	g := &Gateway{
		instances:  make([]*Instance, 0, len(cfg.URLs)),
		numRetries: cfg.MaxRetries,
	}
	if g.numRetries <= 0 {
		g.numRetries = 1
	}

	for i, url := range cfg.URLs {
		if instance := NewInstance(url, pick(cfg.APIKeys, i), pick(cfg.APISecrets, i), cfg.Timeout); instance != nil {
			g.instances = append(g.instances, instance)
		}
	}
	if len(g.instances) == 0 {
		return nil, ErrNoInstance
	}
	return g, nil
}

// pick 凭据数量少于地址时复用最后一个
func pick(values []string, i int) string {
	if len(values) == 0 {
		return ""
	}
	if i >= len(values) {
		i = len(values) - 1
	}
	return values[i]
}

// NewInstance 创建 Broker 实例，url 为空时返回 nil
func NewInstance(url, apiKey, apiSecret string, timeout time.Duration) *Instance {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetBasicAuth(apiKey, apiSecret)
	}

	return &Instance{
		URL:          url,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		Health:       true,
		Client:       client,
		LastUsed:     time.Now(),
		RequestCount: NewRequestCounter(),
	}
}

// Publish 向主题发布报文，失败时换一个实例重试
func (g *Gateway) Publish(ctx context.Context, topic string, qos int, payload []byte) error {
	tried := make(map[*Instance]bool)
	var lastErr error

	for i := 0; i < g.numRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		instance := g.getAvailableInstance(tried)
		tried[instance] = true

		start := time.Now()
		id, err := g.callPublishAPI(ctx, instance, topic, qos, payload)
		if err != nil {
			g.handleAPIError(instance, err)
			lastErr = err
			continue
		}

		instance.RequestCount.AddRequest()
		g.handleAPISuccess(instance)
		logger.DebugString("Gateway", "Publish", fmt.Sprintf(
			"发布成功 实例:%s 主题:%s 消息:%s 耗时:%v", shortenURL(instance.URL), topic, id, time.Since(start)))
		return nil
	}

	return fmt.Errorf("all publish attempts failed: %w", lastErr)
}

// callPublishAPI 调用发布接口，返回 Broker 分配的消息 id
func (g *Gateway) callPublishAPI(ctx context.Context, instance *Instance, topic string, qos int, payload []byte) (string, error) {
	var (
		result PublishResponse
		failed ErrorResponse
	)

	resp, err := instance.Client.R().
		SetContext(ctx).
		SetBody(PublishRequest{
			Topic:           topic,
			QoS:             qos,
			Payload:         string(payload),
			PayloadEncoding: "plain",
		}).
		SetResult(&result).
		SetError(&failed).
		Post(instance.URL + publishPath)
	if err != nil {
		return "", fmt.Errorf("call broker %s: %w", shortenURL(instance.URL), err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("broker %s returned %d: %s %s",
			shortenURL(instance.URL), resp.StatusCode(), failed.Code, failed.Message)
	}
	return result.ID, nil
}

// getAvailableInstance 选择本次调用未尝试过、最近负载最低的健康实例
func (g *Gateway) getAvailableInstance(tried map[*Instance]bool) *Instance {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		selected *Instance
		minLoad  int
	)
	for _, instance := range g.instances {
		if !instance.Health || tried[instance] {
			continue
		}
		load := instance.RequestCount.GetRecentCount(5 * time.Minute)
		if selected == nil || load < minLoad {
			selected = instance
			minLoad = load
		}
	}
	if selected != nil {
		return selected
	}

	// 健康实例都已尝试过，再用其中第一个
	for _, instance := range g.instances {
		if instance.Health {
			return instance
		}
	}

	// 没有健康实例时重置状态，从头再试
	for _, instance := range g.instances {
		instance.Health = true
		instance.ErrorCount = 0
	}
	logger.WarnString("Gateway", "Reset", "没有可用实例，已重置所有实例状态")
	return g.instances[0]
}

// GetInstances 获取所有实例列表
func (g *Gateway) GetInstances() []*Instance {
	g.mu.RLock()
	defer g.mu.RUnlock()

	instances := make([]*Instance, len(g.instances))
	copy(instances, g.instances)
	return instances
}

// GetHealthyInstanceCount 获取健康实例数量
func (g *Gateway) GetHealthyInstanceCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, instance := range g.instances {
		if instance.Health {
			count++
		}
	}
	return count
}

// HealthCheck 至少有一个健康实例时返回 nil
func (g *Gateway) HealthCheck(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var lastErr error
	for _, instance := range g.instances {
		if instance.Health {
			return nil
		}
		if instance.LastErr != nil {
			lastErr = instance.LastErr
		}
	}
	if lastErr != nil {
		return fmt.Errorf("no healthy broker instance available: %w", lastErr)
	}
	return errors.New("no healthy broker instance available")
}

func (g *Gateway) handleAPISuccess(instance *Instance) {
	g.mu.Lock()
	defer g.mu.Unlock()

	instance.Health = true
	instance.ErrorCount = 0
	instance.LastUsed = time.Now()
	instance.LastErr = nil
}

func (g *Gateway) handleAPIError(instance *Instance, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	instance.ErrorCount++
	instance.LastErr = err
	logger.ErrorString("Gateway", "Publish", err.Error())

	if instance.ErrorCount >= unhealthyThreshold {
		instance.Health = false
		logger.WarnString("Gateway", "Instance", fmt.Sprintf(
			"实例 %s 被标记为不健康: 连续 %d 次错误", shortenURL(instance.URL), instance.ErrorCount))
	}
}

// shortenURL 缩短 URL 用于日志
func shortenURL(url string) string {
	if len(url) > 30 {
		return url[:15] + "..." + url[len(url)-12:]
	}
	return url
}
