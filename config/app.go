// Package config 站点配置信息
package config

import "medical/pkg/config"

func init() {
	config.Add("app", func() map[string]interface{} {
		return map[string]interface{}{

			// 应用名称
			"name": config.Env("APP_NAME", "Medical"),

			// 当前环境，用以区分多环境，一般为 local, stage, production, testing
			"env": config.Env("APP_ENV", "production"),

			// 是否进入调试模式
			"debug": config.Env("APP_DEBUG", false),

			// 应用服务端口
			"port": config.Env("APP_PORT", "8080"),

			// 设置时区，日志记录里会使用到
			"timezone": config.Env("TIMEZONE", "Asia/Shanghai"),

			// 全局限流，每小时每 IP 请求数
			"api_rate_limit": config.Env("API_RATE_LIMIT", "30000-H"),

			// 收退费写接口限流（redis 存储，多实例共享）
			"write_rate_limit": config.Env("WRITE_RATE_LIMIT", "600-M"),
		}
	})
}

// Initialize 触发本包内各配置文件的 init 方法
func Initialize() {}
