package bootstrap

import (
	"medical/pkg/config"
	"medical/pkg/logger"
)

// SetupLogger 按 log.* 配置初始化 zap 日志
// type 可选 daily（按天）或 single（单文件），level 可选 debug, info, warn, error
func SetupLogger() {
	logger.InitLogger(
		config.GetString("log.filename"),
		config.GetInt("log.max_size"),
		config.GetInt("log.max_backup"),
		config.GetInt("log.max_age"),
		config.GetBool("log.compress"),
		config.GetString("log.type"),
		config.GetString("log.level"),
	)
}
