package middlewares

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"medical/pkg/app"
	"medical/pkg/limiter"
	"medical/pkg/logger"
	"medical/pkg/redis"
	"medical/pkg/response"
)

// DefaultBurst 默认突发请求数量
const DefaultBurst = 100

var (
	// 进程内的令牌桶，按 IP 缓存
	limiters    sync.Map
	lastAccess  sync.Map
	cleanupOnce sync.Once
)

// LimitIP 进程内按 IP 限流
//
// 支持的限流格式:
// - 5 reqs/second:   "5-S"
// - 10 reqs/minute:  "10-M"
// - 1000 reqs/hour:  "1000-H"
// - 2000 reqs/day:   "2000-D"
func LimitIP(limit string) gin.HandlerFunc {
	if app.IsTesting() {
		limit = "1000000-H"
	}
	cleanupOnce.Do(func() {
		go cleanupLimiters()
	})

	return func(c *gin.Context) {
		key := limit + ":" + limiter.GetKeyIP(c)

		lim, err := getLimiter(key, limit)
		if err != nil {
			logger.ErrorString("限流器", "创建失败", err.Error())
			// 降级处理：允许请求通过
			c.Next()
			return
		}

		if !lim.Allow() {
			response.Abort429(c)
			return
		}

		c.Header("X-RateLimit-Limit", cast.ToString(lim.Limit()))
		c.Header("X-RateLimit-Remaining", cast.ToString(int(lim.Tokens())))
		c.Next()
	}
}

// LimitWrite 按路由+IP 限流，计数保存在 redis 中，多实例部署共享额度
// client 为 nil 时使用全局主库，redis 不可用时放行
func LimitWrite(limit string, client *goredis.Client) gin.HandlerFunc {
	if app.IsTesting() {
		limit = "1000000-H"
	}

	return func(c *gin.Context) {
		rc := client
		if rc == nil && redis.Redis != nil {
			rc = redis.Redis.Client
		}
		if rc == nil {
			c.Next()
			return
		}

		res, err := limiter.CheckRate(c, rc, limiter.GetKeyRouteWithIP(c), limit)
		if err != nil {
			logger.LogIf(err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if res.Reached {
			response.Abort429(c)
			return
		}
		c.Next()
	}
}

func getLimiter(key string, limit string) (*rate.Limiter, error) {
	lastAccess.Store(key, time.Now())

	if lim, ok := limiters.Load(key); ok {
		return lim.(*rate.Limiter), nil
	}

	r, err := limiter.ParseLimit(limit)
	if err != nil {
		return nil, err
	}

	actual, _ := limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(r.Rate), DefaultBurst))
	return actual.(*rate.Limiter), nil
}

// cleanupLimiters 清理超过 24 小时未访问的限流器
func cleanupLimiters() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		lastAccess.Range(func(key, value interface{}) bool {
			if now.Sub(value.(time.Time)) > 24*time.Hour {
				limiters.Delete(key)
				lastAccess.Delete(key)
			}
			return true
		})
	}
}
