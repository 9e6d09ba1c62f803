package logic

import (
	"fmt"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logger"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// NotificationLogic 通知业务逻辑
// 通知投递是尽力而为：写库或投递失败只记录日志，绝不影响触发它的资金操作。
type NotificationLogic struct {
	db   *gorm.DB
	pool *ants.Pool
}

// NewNotificationLogic 创建通知业务逻辑
func NewNotificationLogic(db *gorm.DB) *NotificationLogic {
	pool, err := ants.NewPool(4)
	if err != nil {
		logger.Error("Failed to create notification pool: %v", err)
	}

	return &NotificationLogic{db: db, pool: pool}
}

// Release 关闭投递协程池
func (n *NotificationLogic) Release() {
	if n.pool != nil {
		n.pool.Release()
	}
}

// NotifyInvestmentConfirmed 投资确认通知（投资人与发起人各一条）
func (n *NotificationLogic) NotifyInvestmentConfirmed(investment *model.InvestmentModel) {
	project, err := n.loadProject(investment.ProjectId)
	if err != nil {
		logger.Error("Failed to load project %d for notification: %v", investment.ProjectId, err)
		return
	}

	n.dispatch(&model.NotificationModel{
		RecipientId:  investment.InvestorId,
		Title:        "Investissement confirmé",
		Content:      fmt.Sprintf("Votre investissement %s de %d FCFA dans le projet « %s » a été confirmé.", investment.Reference, investment.Amount, project.Title),
		Kind:         model.NotificationInvestmentConfirmed,
		InvestmentId: investment.Id,
		ProjectId:    project.Id,
	})
	n.dispatch(&model.NotificationModel{
		RecipientId:  project.PromoterId,
		Title:        "Investissement confirmé",
		Content:      fmt.Sprintf("L'investissement %s de %d FCFA dans votre projet « %s » a été confirmé.", investment.Reference, investment.Amount, project.Title),
		Kind:         model.NotificationInvestmentReceived,
		InvestmentId: investment.Id,
		ProjectId:    project.Id,
	})
}

// NotifyInvestmentRejected 投资拒绝或退款通知
func (n *NotificationLogic) NotifyInvestmentRejected(investment *model.InvestmentModel, reason string) {
	n.dispatch(&model.NotificationModel{
		RecipientId:  investment.InvestorId,
		Title:        "Investissement rejeté",
		Content:      fmt.Sprintf("Votre investissement %s a été rejeté. %s", investment.Reference, reason),
		Kind:         model.NotificationInvestmentRejected,
		InvestmentId: investment.Id,
		ProjectId:    investment.ProjectId,
	})
}

// NotifyNewInvestment 新投资通知（发给发起人）
func (n *NotificationLogic) NotifyNewInvestment(investment *model.InvestmentModel) {
	project, err := n.loadProject(investment.ProjectId)
	if err != nil {
		logger.Error("Failed to load project %d for notification: %v", investment.ProjectId, err)
		return
	}

	n.dispatch(&model.NotificationModel{
		RecipientId:  project.PromoterId,
		Title:        "Nouvel investissement reçu",
		Content:      fmt.Sprintf("Votre projet « %s » a reçu un nouvel investissement de %d FCFA.", project.Title, investment.Amount),
		Kind:         model.NotificationInvestmentReceived,
		InvestmentId: investment.Id,
		ProjectId:    project.Id,
	})
}

// NotifyProjectFunded 项目募集完成通知
func (n *NotificationLogic) NotifyProjectFunded(projectId int64) {
	project, err := n.loadProject(projectId)
	if err != nil {
		logger.Error("Failed to load project %d for notification: %v", projectId, err)
		return
	}

	n.dispatch(&model.NotificationModel{
		RecipientId: project.PromoterId,
		Title:       "Projet entièrement financé !",
		Content:     fmt.Sprintf("Votre projet « %s » a atteint 100%% de son objectif de financement.", project.Title),
		Kind:        model.NotificationProjectFunded,
		ProjectId:   project.Id,
	})
}

// GetRecipientNotifications 获取接收人的通知列表
func (n *NotificationLogic) GetRecipientNotifications(recipientId int64, page, pageSize int) ([]model.NotificationModel, int64, error) {
	var notifications []model.NotificationModel
	var total int64

	if err := n.db.Model(&model.NotificationModel{}).
		Where("recipient_id = ?", recipientId).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取通知总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := n.db.Where("recipient_id = ?", recipientId).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("获取通知列表失败: %w", err)
	}

	return notifications, total, nil
}

// dispatch 落库并异步投递单条通知
func (n *NotificationLogic) dispatch(notification *model.NotificationModel) {
	if err := n.db.Create(notification).Error; err != nil {
		logger.Error("Failed to create notification for recipient %d: %v",
			notification.RecipientId, err)
		return
	}

	deliver := func() {
		// 实际投递渠道（邮件、短信）由外部协作方承接，这里记录投递完成
		if err := n.db.Model(notification).Update("sent", true).Error; err != nil {
			logger.Error("Failed to mark notification %d as sent: %v", notification.Id, err)
			return
		}
		logger.Info("Delivered notification %d (%s) to recipient %d",
			notification.Id, notification.Kind, notification.RecipientId)
	}

	if n.pool == nil {
		deliver()
		return
	}
	if err := n.pool.Submit(deliver); err != nil {
		logger.Error("Failed to submit notification delivery: %v", err)
	}
}

// loadProject 读取通知上下文所需的项目信息
func (n *NotificationLogic) loadProject(projectId int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := n.db.First(&project, projectId).Error; err != nil {
		return nil, err
	}
	return &project, nil
}
