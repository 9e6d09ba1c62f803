package main

import (
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/config"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/database"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/gateway"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logger"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/router"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	setupLogger(cfg)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化支付网关客户端
	gw := gateway.New(cfg.Payment.WebhookSecret)

	// 初始化通知投递
	notifier := logic.NewNotificationLogic(db)
	defer notifier.Release()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, gw, notifier, cfg)

	// 启动定时任务
	task.Start(db, cfg)

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// setupLogger 按配置初始化默认日志器
func setupLogger(cfg *config.Config) {
	level := logger.ParseLogLevel(cfg.Log.Level)

	if cfg.Log.Output == "file" {
		l, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
		return
	}

	l, err := logger.New(level)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
