package model

import (
	"time"
)

// ProjectModel 房地产众筹项目模型
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	Location    string `json:"location"`
	Category    string `json:"category"`

	// 发起人信息
	PromoterId   int64  `json:"promoter_id" gorm:"not null"`
	PromoterName string `json:"promoter_name"`

	// 份额信息（单价固定，金额单位为 FCFA，无小数位）
	UnitPrice     int64 `json:"unit_price" gorm:"not null"`
	TotalParts    int   `json:"total_parts" gorm:"not null"`
	MinParts      int   `json:"min_parts" gorm:"default:1"`
	PartsSold     int   `json:"parts_sold" gorm:"default:0"`
	PartsReserved int   `json:"parts_reserved" gorm:"default:0"`

	// 募集信息
	TargetAmount    int64 `json:"target_amount" gorm:"not null"`
	CollectedAmount int64 `json:"collected_amount" gorm:"default:0"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'pending'"`
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}

// PartsRemaining 剩余可购份额（已售与在途预留均占用库存）
func (p *ProjectModel) PartsRemaining() int {
	return p.TotalParts - p.PartsSold - p.PartsReserved
}

// IsFullyFunded 是否已达到募集目标
func (p *ProjectModel) IsFullyFunded() bool {
	return p.CollectedAmount >= p.TargetAmount
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"   // 待开始
	ProjectStatusActive    ProjectStatus = "active"    // 募集中
	ProjectStatusFunded    ProjectStatus = "funded"    // 募集完成
	ProjectStatusFailed    ProjectStatus = "failed"    // 募集失败
	ProjectStatusCancelled ProjectStatus = "cancelled" // 已取消
)
