package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricOperation 指标操作类型
type MetricOperation string

const (
	OpPush    MetricOperation = "push"
	OpPop     MetricOperation = "pop"
	OpProcess MetricOperation = "process"
)

// LatencyStats 延迟统计
type LatencyStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

func (s *LatencyStats) record(d time.Duration) {
	s.Count++
	s.Total += d
	if s.Min == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// Average 平均延迟
func (s LatencyStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// QueueMetrics 队列与工作器的运行指标，并发安全
type QueueMetrics struct {
	succeeded atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64

	mu      sync.Mutex
	latency map[MetricOperation]*LatencyStats
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	Succeeded int64                            `json:"succeeded"`
	Failed    int64                            `json:"failed"`
	Retried   int64                            `json:"retried"`
	Latency   map[MetricOperation]LatencyStats `json:"latency"`
}

// NewQueueMetrics 创建指标收集器
func NewQueueMetrics() *QueueMetrics {
	return &QueueMetrics{
		latency: make(map[MetricOperation]*LatencyStats),
	}
}

// RecordSuccess 记录成功操作
func (m *QueueMetrics) RecordSuccess(MetricOperation) {
	m.succeeded.Add(1)
}

// RecordError 记录失败操作
func (m *QueueMetrics) RecordError(MetricOperation) {
	m.failed.Add(1)
}

// RecordRetry 记录一次重试
func (m *QueueMetrics) RecordRetry() {
	m.retried.Add(1)
}

// RecordLatency 记录操作耗时
func (m *QueueMetrics) RecordLatency(op MetricOperation, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.latency[op]
	if !ok {
		stats = &LatencyStats{}
		m.latency[op] = stats
	}
	stats.record(d)
}

// Snapshot 返回当前指标的拷贝
func (m *QueueMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := make(map[MetricOperation]LatencyStats, len(m.latency))
	for op, stats := range m.latency {
		latency[op] = *stats
	}
	return MetricsSnapshot{
		Succeeded: m.succeeded.Load(),
		Failed:    m.failed.Load(),
		Retried:   m.retried.Load(),
		Latency:   latency,
	}
}
