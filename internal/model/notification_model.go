package model

import (
	"time"
)

// NotificationModel 通知记录
type NotificationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecipientId int64            `json:"recipient_id" gorm:"not null;index"`
	Title       string           `json:"title" gorm:"not null"`
	Content     string           `json:"content" gorm:"type:text"`
	Kind        NotificationKind `json:"kind" gorm:"size:30"`

	InvestmentId int64 `json:"investment_id"`
	ProjectId    int64 `json:"project_id"`

	Sent bool `json:"sent" gorm:"default:false"`
}

// TableName 自定义表名
func (NotificationModel) TableName() string {
	return "notification"
}

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationInvestmentConfirmed NotificationKind = "INVESTMENT_CONFIRMED" // 投资已确认
	NotificationInvestmentRejected  NotificationKind = "INVESTMENT_REJECTED"  // 投资被拒绝
	NotificationInvestmentReceived  NotificationKind = "INVESTMENT_RECEIVED"  // 收到新投资
	NotificationProjectFunded       NotificationKind = "PROJECT_FUNDED"       // 项目募集完成
)
