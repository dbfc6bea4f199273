package config

import "medical/pkg/config"

func init() {
	config.Add("lifecycle", func() map[string]interface{} {
		return map[string]interface{}{
			// 单次点击/确认操作访问数据库的超时时间，单位：秒
			"store_timeout": config.Env("LIFECYCLE_STORE_TIMEOUT", 5),

			// 写入成功后通知窗口终端的超时时间，单位：秒，超时不影响接口结果
			"notify_timeout": config.Env("LIFECYCLE_NOTIFY_TIMEOUT", 2),
		}
	})
}
