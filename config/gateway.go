package config

import (
	"medical/pkg/config"
)

func init() {
	config.Add("gateway", func() map[string]interface{} {
		return map[string]interface{}{
			// MQTT Broker HTTP 发布接口，多个地址用逗号分隔
			"urls":        config.Env("MQTT_API_URLS", "http://127.0.0.1:18083"),
			"api_keys":    config.Env("MQTT_API_KEYS", ""),
			"api_secrets": config.Env("MQTT_API_SECRETS", ""),
			"timeout":     config.Env("MQTT_API_TIMEOUT", 10),
			"max_retries": config.Env("MQTT_API_MAX_RETRIES", 3),

			// 默认 QoS 与终端主题前缀
			"qos":          config.Env("MQTT_QOS", 1),
			"topic_prefix": config.Env("MQTT_TOPIC_PREFIX", "bt_client/"),
		}
	})
}
