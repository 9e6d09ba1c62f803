package model

import (
	"time"
)

// TransactionModel 资金流水记录
// 按投资记录追加写入，永不删除；退款是一条新流水而不是对原流水的修改。
type TransactionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Reference    string `json:"reference" gorm:"uniqueIndex;size:20;not null"`
	InvestmentId int64  `json:"investment_id" gorm:"not null;index"`
	Amount       int64  `json:"amount" gorm:"not null"`

	Kind   TransactionKind   `json:"kind" gorm:"not null"`
	Status TransactionStatus `json:"status" gorm:"default:'PENDING'"`

	// 支付渠道信息
	Channel     PaymentChannel `json:"channel" gorm:"size:20"`
	ProviderRef string         `json:"provider_ref"`
	Description string         `json:"description" gorm:"type:text"`
}

// TableName 自定义表名
func (TransactionModel) TableName() string {
	return "transaction"
}

// TransactionKind 流水类型
type TransactionKind string

const (
	TransactionKindInvestment TransactionKind = "INVESTMENT" // 投资入金
	TransactionKindRefund     TransactionKind = "REFUND"     // 退款出金
)

// TransactionStatus 流水状态
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"   // 待支付
	TransactionStatusValidated TransactionStatus = "VALIDATED" // 已验证（终态）
	TransactionStatusFailed    TransactionStatus = "FAILED"    // 支付失败（终态）
	TransactionStatusCancelled TransactionStatus = "CANCELLED" // 已取消（终态）
)

// IsTerminal 是否为终态
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusValidated || s == TransactionStatusFailed ||
		s == TransactionStatusCancelled
}

// PaymentChannel 支付渠道
type PaymentChannel string

const (
	ChannelOrangeMoney  PaymentChannel = "ORANGE_MONEY"  // Orange Money
	ChannelMoovMoney    PaymentChannel = "MOOV_MONEY"    // Moov Money
	ChannelWave         PaymentChannel = "WAVE"          // Wave
	ChannelBankCard     PaymentChannel = "BANK_CARD"     // 银行卡
	ChannelBankTransfer PaymentChannel = "BANK_TRANSFER" // 银行转账
	ChannelMock         PaymentChannel = "MOCK"          // 模拟渠道
)

// IsValid 校验支付渠道取值
func (c PaymentChannel) IsValid() bool {
	switch c {
	case ChannelOrangeMoney, ChannelMoovMoney, ChannelWave,
		ChannelBankCard, ChannelBankTransfer, ChannelMock:
		return true
	}
	return false
}
