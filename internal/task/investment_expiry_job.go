package task

import (
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/config"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logger"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// InvestmentExpiryJob 待支付投资过期任务
// 超过保留时长仍未支付的投资会被取消，预留份额归还可售库存。
type InvestmentExpiryJob struct {
	db     *gorm.DB
	config *config.Config
	logic  *logic.InvestmentLogic
}

// NewInvestmentExpiryJob 创建待支付投资过期任务
func NewInvestmentExpiryJob(db *gorm.DB, cfg *config.Config) *InvestmentExpiryJob {
	return &InvestmentExpiryJob{
		db:     db,
		config: cfg,
		logic:  logic.NewInvestmentLogic(db, nil),
	}
}

// GetName 获取任务名称
func (j *InvestmentExpiryJob) GetName() string {
	return "investment_expiry"
}

// GetSchedule 获取调度配置
func (j *InvestmentExpiryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *InvestmentExpiryJob) Execute() {
	logger.Info("Starting investment expiry task")

	ttl := time.Duration(j.config.Payment.PendingTTLHours) * time.Hour
	cutoff := time.Now().Add(-ttl)

	expired, err := j.logic.ExpireStalePending(cutoff)
	if err != nil {
		logger.Error("Investment expiry task failed: %v", err)
		return
	}

	logger.Info("Investment expiry task completed. Cancelled %d investments", expired)
}
