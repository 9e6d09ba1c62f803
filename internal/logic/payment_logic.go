package logic

import (
	"errors"
	"fmt"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"gorm.io/gorm"
)

// PaymentOutcome 支付网关回调结果
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "SUCCESS" // 支付成功
	PaymentOutcomeFailed  PaymentOutcome = "FAILED"  // 支付失败
)

// PaymentLogic 支付对账业务逻辑
type PaymentLogic struct {
	db *gorm.DB
}

// NewPaymentLogic 创建支付对账业务逻辑
func NewPaymentLogic(db *gorm.DB) *PaymentLogic {
	return &PaymentLogic{db: db}
}

// ReconcilePayment 对账支付回调
// 幂等：同一结果的重复回调是无操作；已验证流水再收到 SUCCESS 不会二次推进投资状态。
// SUCCESS 将流水置为已验证并把投资推进到已到账；FAILED 仅将流水置为失败，投资保持待支付可重试。
// 流水是推进投资状态的唯一触发点，对账与状态推进在同一事务内完成。
func (l *PaymentLogic) ReconcilePayment(reference string, outcome PaymentOutcome) error {
	if outcome != PaymentOutcomeSuccess && outcome != PaymentOutcomeFailed {
		return fmt.Errorf("%w: 未知支付结果 %q", ErrInvalidInput, outcome)
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		var transaction model.TransactionModel
		if err := tx.Where("reference = ?", reference).First(&transaction).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 流水 %s", ErrNotFound, reference)
			}
			return fmt.Errorf("获取流水失败: %w", err)
		}

		if transaction.Kind != model.TransactionKindInvestment {
			return fmt.Errorf("%w: 流水 %s 不是入金流水", ErrStateConflict, reference)
		}

		// 终态流水不再变更：同结果重放为无操作，异结果重放为状态冲突
		if transaction.Status.IsTerminal() {
			if (transaction.Status == model.TransactionStatusValidated && outcome == PaymentOutcomeSuccess) ||
				(transaction.Status == model.TransactionStatusFailed && outcome == PaymentOutcomeFailed) {
				return nil
			}
			return fmt.Errorf("%w: 流水 %s 已处于终态 %s", ErrStateConflict, reference, transaction.Status)
		}

		if outcome == PaymentOutcomeFailed {
			moved, err := transitionTransaction(tx, transaction.Id,
				model.TransactionStatusPending, model.TransactionStatusFailed)
			if err != nil {
				return err
			}
			if !moved {
				return fmt.Errorf("%w: 流水已被并发回调变更", ErrConcurrencyConflict)
			}
			return nil
		}

		var investment model.InvestmentModel
		if err := tx.First(&investment, transaction.InvestmentId).Error; err != nil {
			return fmt.Errorf("获取投资记录失败: %w", err)
		}

		// 防二次结算：只有待支付的投资才能被推进到已到账
		if investment.Status != model.InvestmentStatusPendingPayment {
			return fmt.Errorf("%w: 投资状态为 %s，无法验证支付",
				ErrStateConflict, investment.Status)
		}

		// 两次迁移都带前置状态守卫，并发回调只有一方能推进
		moved, err := transitionTransaction(tx, transaction.Id,
			model.TransactionStatusPending, model.TransactionStatusValidated)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: 流水已被并发回调变更", ErrConcurrencyConflict)
		}

		moved, err = transitionInvestment(tx, investment.Id,
			model.InvestmentStatusPendingPayment, map[string]interface{}{
				"status": model.InvestmentStatusPaymentReceived,
			})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: 投资已被并发操作变更", ErrConcurrencyConflict)
		}

		return nil
	})
}

// MarkSubmitted 记录流水已提交到支付渠道
func (l *PaymentLogic) MarkSubmitted(transactionId int64, providerRef string) (*model.TransactionModel, error) {
	var transaction model.TransactionModel

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&transaction, transactionId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 流水 %d", ErrNotFound, transactionId)
			}
			return fmt.Errorf("获取流水失败: %w", err)
		}

		if transaction.Status != model.TransactionStatusPending {
			return fmt.Errorf("%w: 流水状态为 %s，无法提交支付",
				ErrStateConflict, transaction.Status)
		}

		res := tx.Model(&model.TransactionModel{}).
			Where("id = ? AND status = ?", transaction.Id, model.TransactionStatusPending).
			Update("provider_ref", providerRef)
		if res.Error != nil {
			return fmt.Errorf("更新流水失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: 流水已被并发操作变更", ErrConcurrencyConflict)
		}
		transaction.ProviderRef = providerRef
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &transaction, nil
}

// transitionTransaction 以带状态守卫的单条 UPDATE 完成流水状态迁移
func transitionTransaction(tx *gorm.DB, transactionId int64, from, to model.TransactionStatus) (bool, error) {
	res := tx.Model(&model.TransactionModel{}).
		Where("id = ? AND status = ?", transactionId, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("更新流水状态失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetTransactionByReference 根据编号获取流水
func (l *PaymentLogic) GetTransactionByReference(reference string) (*model.TransactionModel, error) {
	var transaction model.TransactionModel
	if err := l.db.Where("reference = ?", reference).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 流水 %s", ErrNotFound, reference)
		}
		return nil, fmt.Errorf("获取流水失败: %w", err)
	}

	return &transaction, nil
}
