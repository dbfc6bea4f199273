// Package app 提供应用程序相关的辅助函数
package app

import (
	"time"

	"medical/pkg/config"
)

// IsLocal 判断当前是否运行在本地环境
func IsLocal() bool {
	return config.Get("app.env") == "local"
}

// IsProduction 判断当前是否运行在生产环境
func IsProduction() bool {
	return config.Get("app.env") == "production"
}

// IsTesting 判断当前是否运行在测试环境
func IsTesting() bool {
	return config.Get("app.env") == "testing"
}

// TimenowInTimezone 获取配置时区的当前时间，时区无效时使用本地时区
func TimenowInTimezone() time.Time {
	loc, err := time.LoadLocation(config.GetString("app.timezone"))
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}

// OperateTimeNow 终端指令与日志中使用的操作时间格式
func OperateTimeNow() string {
	return TimenowInTimezone().Format("2006-01-02 15:04:05")
}
