// Package limiter 处理限流逻辑
package limiter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"medical/pkg/config"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	limiterlib "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Rate 每秒速率
type Rate struct {
	Rate float64
}

// ParseLimit 解析限流配置字符串
// 支持的格式: "5-S"、"10-M"、"1000-H"、"2000-D"
func ParseLimit(limit string) (*Rate, error) {
	if _, err := limiterlib.NewRateFromFormatted(limit); err != nil {
		return nil, fmt.Errorf("invalid limit format: %w", err)
	}

	parts := strings.Split(limit, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid limit format: %s", limit)
	}

	value, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate value: %s", parts[0])
	}

	var seconds float64
	switch strings.ToUpper(parts[1]) {
	case "S":
		seconds = 1
	case "M":
		seconds = 60
	case "H":
		seconds = 3600
	case "D":
		seconds = 86400
	default:
		return nil, fmt.Errorf("invalid time unit: %s", parts[1])
	}

	return &Rate{Rate: value / seconds}, nil
}

// GetKeyIP 以 IP 作为限流键
func GetKeyIP(c *gin.Context) string {
	return c.ClientIP()
}

// GetKeyRouteWithIP 路由+IP，针对单个路由做限流
func GetKeyRouteWithIP(c *gin.Context) string {
	return routeToKeyString(c.FullPath()) + c.ClientIP()
}

// 相同 redis 客户端与速率共用一个 limiter
var instances sync.Map

type instanceKey struct {
	client    *goredis.Client
	formatted string
}

// CheckRate 检测请求是否超额，计数保存在 redis 中，多实例部署共享
func CheckRate(c *gin.Context, client *goredis.Client, key string, formatted string) (limiterlib.Context, error) {
	lim, err := getInstance(client, formatted)
	if err != nil {
		return limiterlib.Context{}, err
	}

	// 同一请求经过多个限流中间件时只计数一次
	if c.GetBool("limiter-once") {
		return lim.Peek(c, key)
	}
	c.Set("limiter-once", true)
	return lim.Get(c, key)
}

func getInstance(client *goredis.Client, formatted string) (*limiterlib.Limiter, error) {
	k := instanceKey{client: client, formatted: formatted}
	if lim, ok := instances.Load(k); ok {
		return lim.(*limiterlib.Limiter), nil
	}

	rate, err := limiterlib.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}

	store, err := sredis.NewStoreWithOptions(client, limiterlib.StoreOptions{
		Prefix: config.GetString("app.name", "medical") + ":limiter",
	})
	if err != nil {
		return nil, err
	}

	actual, _ := instances.LoadOrStore(k, limiterlib.New(store, rate))
	return actual.(*limiterlib.Limiter), nil
}

// routeToKeyString 将 URL 中的 / 格式为 -
func routeToKeyString(routeName string) string {
	routeName = strings.ReplaceAll(routeName, "/", "-")
	routeName = strings.ReplaceAll(routeName, ":", "_")
	return routeName
}
