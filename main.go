package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"medical/bootstrap"
	btsConfig "medical/config"
	"medical/pkg/app"
	"medical/pkg/config"
	"medical/pkg/queue"
	"medical/pkg/redis"
)

// 加载应用程序的基础配置
func init() {
	btsConfig.Initialize()
}

var env string

// App 应用程序上下文，用于优雅关闭
type App struct {
	server *http.Server
	worker *queue.Worker
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medical",
		Short: "医院窗口收费、退费服务",
		// 不带子命令时启动服务
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "加载 .env 文件，例如 --env=testing 将加载 .env.testing 文件")

	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与终端指令工作器",
		RunE:  runServe,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "迁移收费、退费与终端数据表",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.InitConfig(env)
			bootstrap.SetupLogger()
			bootstrap.SetupDB()
			return bootstrap.Migrate()
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// 先初始化配置，然后初始化日志
	config.InitConfig(env)
	bootstrap.SetupLogger()

	bootstrap.SetupDB()
	if err := bootstrap.Migrate(); err != nil {
		return err
	}
	bootstrap.SetupRedis()

	a := &App{
		worker: bootstrap.SetupQueue(),
		server: &http.Server{
			Addr:    ":" + config.Get("app.port"),
			Handler: setupServer(),
		},
	}
	return a.start()
}

// setupServer 配置并返回 Gin 服务器实例
func setupServer() *gin.Engine {
	if !app.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	bootstrap.SetupRoute(router)

	return router
}

// start 启动服务器并处理优雅关闭
func (a *App) start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("服务器正在启动，监听端口 %s\n", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("服务器启动失败: %w", err)
	case <-quit:
	}
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭异常: %w", err)
	}

	// 先停止工作器，再关闭 redis
	if a.worker != nil {
		a.worker.Stop()
	}
	redis.Close()

	log.Println("服务器已成功关闭")
	return nil
}
