package model

import (
	"time"
)

// InvestmentModel 投资记录
// 同一投资人在同一项目下只保留一条在途记录，追加购买在待支付状态下合并累加。
// 投资记录永不删除，终态记录作为审计存档保留。
type InvestmentModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 部分唯一索引兜底“同一投资人同一项目至多一条待支付记录”，并发首购只有一方能建档
	Reference  string `json:"reference" gorm:"uniqueIndex;size:20;not null"`
	InvestorId int64  `json:"investor_id" gorm:"not null;index:idx_investor_project;uniqueIndex:idx_pending_investor_project,where:status = 'PENDING_PAYMENT'"`
	ProjectId  int64  `json:"project_id" gorm:"not null;index:idx_investor_project;uniqueIndex:idx_pending_investor_project"`

	// 持有份额与投资金额（金额按下单时单价累加）
	Parts  int   `json:"parts" gorm:"not null"`
	Amount int64 `json:"amount" gorm:"not null"`

	Status InvestmentStatus `json:"status" gorm:"default:'PENDING_PAYMENT'"`

	// 合规信息
	FundsOrigin      FundsOrigin `json:"funds_origin" gorm:"size:30"`
	ContractAccepted bool        `json:"contract_accepted" gorm:"default:false"`
	ContractTime     *time.Time  `json:"contract_time"`

	// 管理操作信息
	ConfirmedBy  string `json:"confirmed_by"`
	RejectReason string `json:"reject_reason" gorm:"type:text"`
}

// TableName 自定义表名
func (InvestmentModel) TableName() string {
	return "investment"
}

// InvestmentStatus 投资状态
type InvestmentStatus string

const (
	InvestmentStatusPendingPayment  InvestmentStatus = "PENDING_PAYMENT"  // 待支付
	InvestmentStatusPaymentReceived InvestmentStatus = "PAYMENT_RECEIVED" // 已到账
	InvestmentStatusConfirmed       InvestmentStatus = "CONFIRMED"        // 已确认（终态）
	InvestmentStatusRejected        InvestmentStatus = "REJECTED"         // 已拒绝（终态）
	InvestmentStatusRefunded        InvestmentStatus = "REFUNDED"         // 已退款（终态）
	InvestmentStatusCancelled       InvestmentStatus = "CANCELLED"        // 已取消（终态）
)

// IsTerminal 是否为终态
func (s InvestmentStatus) IsTerminal() bool {
	switch s {
	case InvestmentStatusConfirmed, InvestmentStatusRejected,
		InvestmentStatusRefunded, InvestmentStatusCancelled:
		return true
	}
	return false
}

// FundsOrigin 资金来源
type FundsOrigin string

const (
	FundsOriginSalary      FundsOrigin = "SALARY"      // 工资收入
	FundsOriginBusiness    FundsOrigin = "BUSINESS"    // 经营收入
	FundsOriginInheritance FundsOrigin = "INHERITANCE" // 继承
	FundsOriginSavings     FundsOrigin = "SAVINGS"     // 储蓄
	FundsOriginDiaspora    FundsOrigin = "DIASPORA"    // 侨汇
	FundsOriginOther       FundsOrigin = "OTHER"       // 其他
)

// IsValid 校验资金来源取值
func (f FundsOrigin) IsValid() bool {
	switch f {
	case FundsOriginSalary, FundsOriginBusiness, FundsOriginInheritance,
		FundsOriginSavings, FundsOriginDiaspora, FundsOriginOther:
		return true
	}
	return false
}
