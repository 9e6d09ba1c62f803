package task

import (
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/config"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, cfg *config.Config) {
	manager := NewManager(db, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 注册待支付投资过期任务
	m.RegisterInvestmentExpiryJob()
}

// RegisterInvestmentExpiryJob 注册待支付投资过期任务
func (m *Manager) RegisterInvestmentExpiryJob() {
	if m.config.Payment.PendingTTLHours <= 0 {
		logger.Info("Pending investment expiry disabled (ttl is 0)")
		return
	}

	job := NewInvestmentExpiryJob(m.db, m.config)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
		return
	}

	logger.Info("Registered job: %s", job.GetName())
}
