package gateway

import "time"

// Config Broker HTTP 接口配置，URLs 与 APIKeys/APISecrets 按下标对应
type Config struct {
	URLs       []string
	APIKeys    []string
	APISecrets []string
	Timeout    time.Duration
	MaxRetries int
}

// PublishRequest Broker 发布接口请求体
type PublishRequest struct {
	Topic           string `json:"topic"`
	QoS             int    `json:"qos"`
	Payload         string `json:"payload"`
	PayloadEncoding string `json:"payload_encoding"`
	Retain          bool   `json:"retain"`
}

// PublishResponse 发布成功时返回的消息 id
type PublishResponse struct {
	ID string `json:"id"`
}

// ErrorResponse Broker 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
