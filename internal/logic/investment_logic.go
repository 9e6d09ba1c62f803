package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"gorm.io/gorm"
)

// InvestmentLogic 投资台账业务逻辑
// 所有资金状态迁移都在单个数据库事务内完成，任何一步失败整体回滚。
type InvestmentLogic struct {
	db       *gorm.DB
	notifier *NotificationLogic
}

// NewInvestmentLogic 创建投资台账业务逻辑
func NewInvestmentLogic(db *gorm.DB, notifier *NotificationLogic) *InvestmentLogic {
	return &InvestmentLogic{db: db, notifier: notifier}
}

// RequestInvestmentInput 投资请求参数
type RequestInvestmentInput struct {
	InvestorId       int64                `json:"investor_id"`
	ProjectId        int64                `json:"project_id"`
	Parts            int                  `json:"parts"`
	FundsOrigin      model.FundsOrigin    `json:"funds_origin"`
	Channel          model.PaymentChannel `json:"channel"`
	ContractAccepted bool                 `json:"contract_accepted"`
}

// RequestInvestment 发起投资购买
// 同一投资人在同一项目下的待支付投资会被合并累加；每次购买生成一条独立的待支付入金流水。
// 份额预留通过带守卫条件的单条 UPDATE 完成，并发抢购最后几份时不会超卖。
func (l *InvestmentLogic) RequestInvestment(input *RequestInvestmentInput) (*model.InvestmentModel, *model.TransactionModel, error) {
	if err := l.validateRequest(input); err != nil {
		return nil, nil, err
	}

	var investment model.InvestmentModel
	var transaction model.TransactionModel

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var project model.ProjectModel
		if err := tx.First(&project, input.ProjectId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 项目 %d", ErrNotFound, input.ProjectId)
			}
			return fmt.Errorf("获取项目失败: %w", err)
		}

		if project.Status != model.ProjectStatusActive {
			return fmt.Errorf("%w: 项目不在募集中，无法投资", ErrStateConflict)
		}

		// 查找同一投资人在该项目下的待支付投资
		var existing *model.InvestmentModel
		var found model.InvestmentModel
		err := tx.Where("investor_id = ? AND project_id = ? AND status = ?",
			input.InvestorId, input.ProjectId, model.InvestmentStatusPendingPayment).
			First(&found).Error
		switch {
		case err == nil:
			existing = &found
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 首次购买
		default:
			return fmt.Errorf("查询已有投资失败: %w", err)
		}

		// 最低份额为累计校验，追加购买计入已持有份额
		heldParts := 0
		if existing != nil {
			heldParts = existing.Parts
		}
		if input.Parts+heldParts < project.MinParts {
			return fmt.Errorf("%w: 最低需购买 %d 份", ErrBelowMinimumParts, project.MinParts)
		}

		// 预留份额：守卫条件与递增在同一条语句内，防止并发超卖
		res := tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status = ? AND parts_sold + parts_reserved + ? <= total_parts",
				project.Id, model.ProjectStatusActive, input.Parts).
			Update("parts_reserved", gorm.Expr("parts_reserved + ?", input.Parts))
		if res.Error != nil {
			return fmt.Errorf("预留份额失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: 剩余 %d 份", ErrInsufficientParts, project.PartsRemaining())
		}

		// 金额按下单时单价计算，追加购买在原投资上累加
		amount := int64(input.Parts) * project.UnitPrice
		now := time.Now()

		if existing != nil {
			updates := map[string]interface{}{
				"parts":  gorm.Expr("parts + ?", input.Parts),
				"amount": gorm.Expr("amount + ?", amount),
			}
			if err := tx.Model(existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("追加投资失败: %w", err)
			}
			if err := tx.First(&investment, existing.Id).Error; err != nil {
				return fmt.Errorf("获取投资记录失败: %w", err)
			}
		} else {
			reference, err := NextReference(tx, ReferencePrefixInvestment, now)
			if err != nil {
				return err
			}
			investment = model.InvestmentModel{
				Reference:        reference,
				InvestorId:       input.InvestorId,
				ProjectId:        input.ProjectId,
				Parts:            input.Parts,
				Amount:           amount,
				Status:           model.InvestmentStatusPendingPayment,
				FundsOrigin:      input.FundsOrigin,
				ContractAccepted: true,
				ContractTime:     &now,
			}
			if err := tx.Create(&investment).Error; err != nil {
				// 唯一索引兜底：并发首购撞上索引时让客户端重试，由重试走合并分支
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%w: 该项目下已有一笔处理中的投资请求", ErrConcurrencyConflict)
				}
				return fmt.Errorf("创建投资记录失败: %w", err)
			}
		}

		txnRef, err := NextReference(tx, ReferencePrefixTransaction, now)
		if err != nil {
			return err
		}
		transaction = model.TransactionModel{
			Reference:    txnRef,
			InvestmentId: investment.Id,
			Amount:       amount,
			Kind:         model.TransactionKindInvestment,
			Status:       model.TransactionStatusPending,
			Channel:      input.Channel,
			Description:  fmt.Sprintf("Capital-in for investment %s", investment.Reference),
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return fmt.Errorf("创建入金流水失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if l.notifier != nil {
		l.notifier.NotifyNewInvestment(&investment)
	}

	return &investment, &transaction, nil
}

// ConfirmByAdmin 管理员确认投资
// 仅允许从已到账状态确认；确认后在同一事务内把金额与份额累加到项目募集总额。
func (l *InvestmentLogic) ConfirmByAdmin(investmentId int64, operator model.Operator) (*model.InvestmentModel, error) {
	if !operator.IsAdministrator() {
		return nil, fmt.Errorf("%w: 需要管理员身份", ErrInvalidInput)
	}

	var investment model.InvestmentModel
	funded := false

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&investment, investmentId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 投资 %d", ErrNotFound, investmentId)
			}
			return fmt.Errorf("获取投资记录失败: %w", err)
		}

		if investment.Status != model.InvestmentStatusPaymentReceived {
			return fmt.Errorf("%w: 投资状态为 %s，必须先到账才能确认",
				ErrStateConflict, investment.Status)
		}

		// 迁移守卫写在 WHERE 里，并发确认只有一方能入账
		moved, err := transitionInvestment(tx, investment.Id, model.InvestmentStatusPaymentReceived, map[string]interface{}{
			"status":       model.InvestmentStatusConfirmed,
			"confirmed_by": operator.Name,
		})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: 投资已被并发操作变更", ErrConcurrencyConflict)
		}
		investment.Status = model.InvestmentStatusConfirmed
		investment.ConfirmedBy = operator.Name

		funded, err = AddConfirmedInvestment(tx, investment.ProjectId, investment.Amount, investment.Parts)
		return err
	})
	if err != nil {
		return nil, err
	}

	if l.notifier != nil {
		l.notifier.NotifyInvestmentConfirmed(&investment)
		if funded {
			l.notifier.NotifyProjectFunded(investment.ProjectId)
		}
	}

	return &investment, nil
}

// RejectWithRefund 管理员拒绝投资
// 已到账的投资生成一条等额已验证退款流水并置为已退款；从未到账的直接置为已拒绝。
// 两种情况都释放预留份额，项目募集总额不受影响。
func (l *InvestmentLogic) RejectWithRefund(investmentId int64, reason string, operator model.Operator) (*model.InvestmentModel, error) {
	if !operator.IsAdministrator() {
		return nil, fmt.Errorf("%w: 需要管理员身份", ErrInvalidInput)
	}

	var investment model.InvestmentModel

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&investment, investmentId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 投资 %d", ErrNotFound, investmentId)
			}
			return fmt.Errorf("获取投资记录失败: %w", err)
		}

		fromStatus := investment.Status

		switch investment.Status {
		case model.InvestmentStatusPaymentReceived:
			// 资金已捕获，生成全额退款流水
			txnRef, err := NextReference(tx, ReferencePrefixTransaction, time.Now())
			if err != nil {
				return err
			}
			refund := model.TransactionModel{
				Reference:    txnRef,
				InvestmentId: investment.Id,
				Amount:       investment.Amount,
				Kind:         model.TransactionKindRefund,
				Status:       model.TransactionStatusValidated,
				Description:  fmt.Sprintf("Automatic refund after rejection: %s", reason),
			}
			if err := tx.Create(&refund).Error; err != nil {
				return fmt.Errorf("创建退款流水失败: %w", err)
			}
			investment.Status = model.InvestmentStatusRefunded

		case model.InvestmentStatusPendingPayment:
			// 资金从未捕获，直接拒绝，不产生退款
			investment.Status = model.InvestmentStatusRejected

		default:
			return fmt.Errorf("%w: 投资状态为 %s，无法拒绝", ErrStateConflict, investment.Status)
		}

		// 守卫原状态，与并发到达的确认或支付回调互斥
		moved, err := transitionInvestment(tx, investment.Id, fromStatus, map[string]interface{}{
			"status":        investment.Status,
			"reject_reason": reason,
		})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: 投资已被并发操作变更", ErrConcurrencyConflict)
		}

		if err := cancelPendingTransactions(tx, investment.Id); err != nil {
			return err
		}

		return releaseReservedParts(tx, investment.ProjectId, investment.Parts)
	})
	if err != nil {
		return nil, err
	}

	if l.notifier != nil {
		l.notifier.NotifyInvestmentRejected(&investment, reason)
	}

	return &investment, nil
}

// Cancel 投资人主动取消
// 仅允许取消本人处于待支付状态的投资，取消后释放预留份额。
func (l *InvestmentLogic) Cancel(investmentId int64, investorId int64) (*model.InvestmentModel, error) {
	var investment model.InvestmentModel

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND investor_id = ?", investmentId, investorId).
			First(&investment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 投资 %d", ErrNotFound, investmentId)
			}
			return fmt.Errorf("获取投资记录失败: %w", err)
		}

		if investment.Status != model.InvestmentStatusPendingPayment {
			return fmt.Errorf("%w: 投资状态为 %s，无法取消", ErrStateConflict, investment.Status)
		}

		moved, err := transitionInvestment(tx, investment.Id, model.InvestmentStatusPendingPayment, map[string]interface{}{
			"status": model.InvestmentStatusCancelled,
		})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: 投资已被并发操作变更", ErrConcurrencyConflict)
		}

		if err := cancelPendingTransactions(tx, investment.Id); err != nil {
			return err
		}

		return releaseReservedParts(tx, investment.ProjectId, investment.Parts)
	})
	if err != nil {
		return nil, err
	}

	investment.Status = model.InvestmentStatusCancelled
	return &investment, nil
}

// ExpireStalePending 取消超过期限仍未支付的投资并归还份额
// 返回本次取消的投资数量。每条投资独立事务处理，单条失败不影响其余。
func (l *InvestmentLogic) ExpireStalePending(olderThan time.Time) (int, error) {
	var stale []model.InvestmentModel
	if err := l.db.Where("status = ? AND created_at <= ?",
		model.InvestmentStatusPendingPayment, olderThan).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("查询过期投资失败: %w", err)
	}

	expired := 0
	for _, inv := range stale {
		err := l.db.Transaction(func(tx *gorm.DB) error {
			// 状态守卫写在 WHERE 里，避免与同时到达的支付回调竞争
			res := tx.Model(&model.InvestmentModel{}).
				Where("id = ? AND status = ?", inv.Id, model.InvestmentStatusPendingPayment).
				Update("status", model.InvestmentStatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}

			if err := cancelPendingTransactions(tx, inv.Id); err != nil {
				return err
			}
			if err := releaseReservedParts(tx, inv.ProjectId, inv.Parts); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, fmt.Errorf("取消过期投资 %d 失败: %w", inv.Id, err)
		}
	}

	return expired, nil
}

// GetInvestmentByReference 根据编号获取投资记录
func (l *InvestmentLogic) GetInvestmentByReference(reference string) (*model.InvestmentModel, error) {
	var investment model.InvestmentModel
	if err := l.db.Where("reference = ?", reference).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 投资 %s", ErrNotFound, reference)
		}
		return nil, fmt.Errorf("获取投资记录失败: %w", err)
	}

	return &investment, nil
}

// GetProjectInvestments 获取项目投资记录
func (l *InvestmentLogic) GetProjectInvestments(projectId int64, page, pageSize int) ([]model.InvestmentModel, int64, error) {
	var investments []model.InvestmentModel
	var total int64

	if err := l.db.Model(&model.InvestmentModel{}).
		Where("project_id = ?", projectId).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := l.db.Where("project_id = ?", projectId).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&investments).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资记录失败: %w", err)
	}

	return investments, total, nil
}

// GetInvestorInvestments 获取投资人的投资记录
func (l *InvestmentLogic) GetInvestorInvestments(investorId int64, page, pageSize int) ([]model.InvestmentModel, int64, error) {
	var investments []model.InvestmentModel
	var total int64

	if err := l.db.Model(&model.InvestmentModel{}).
		Where("investor_id = ?", investorId).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := l.db.Where("investor_id = ?", investorId).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&investments).Error; err != nil {
		return nil, 0, fmt.Errorf("获取投资记录失败: %w", err)
	}

	return investments, total, nil
}

// GetInvestmentTransactions 获取投资的资金流水
func (l *InvestmentLogic) GetInvestmentTransactions(investmentId int64) ([]model.TransactionModel, error) {
	var transactions []model.TransactionModel
	if err := l.db.Where("investment_id = ?", investmentId).
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("获取资金流水失败: %w", err)
	}

	return transactions, nil
}

// validateRequest 验证投资请求
func (l *InvestmentLogic) validateRequest(input *RequestInvestmentInput) error {
	if input.InvestorId == 0 {
		return fmt.Errorf("%w: 投资人不能为空", ErrInvalidInput)
	}
	if input.ProjectId == 0 {
		return fmt.Errorf("%w: 项目不能为空", ErrInvalidInput)
	}
	if input.Parts <= 0 {
		return fmt.Errorf("%w: 购买份额必须大于0", ErrInvalidInput)
	}
	if !input.FundsOrigin.IsValid() {
		return fmt.Errorf("%w: 资金来源无效", ErrInvalidInput)
	}
	if input.Channel != "" && !input.Channel.IsValid() {
		return fmt.Errorf("%w: 支付渠道无效", ErrInvalidInput)
	}
	if !input.ContractAccepted {
		return fmt.Errorf("%w: 必须接受投资合同", ErrInvalidInput)
	}
	return nil
}

// transitionInvestment 以带状态守卫的单条 UPDATE 完成投资状态迁移
// 前置状态写在 WHERE 里，READ COMMITTED 下凭过期状态读发出的写入会看到零行受影响。
func transitionInvestment(tx *gorm.DB, investmentId int64, from model.InvestmentStatus, updates map[string]interface{}) (bool, error) {
	res := tx.Model(&model.InvestmentModel{}).
		Where("id = ? AND status = ?", investmentId, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("更新投资状态失败: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// cancelPendingTransactions 取消投资下所有待支付流水
func cancelPendingTransactions(tx *gorm.DB, investmentId int64) error {
	if err := tx.Model(&model.TransactionModel{}).
		Where("investment_id = ? AND status = ?", investmentId, model.TransactionStatusPending).
		Update("status", model.TransactionStatusCancelled).Error; err != nil {
		return fmt.Errorf("取消待支付流水失败: %w", err)
	}
	return nil
}

// releaseReservedParts 归还预留份额
func releaseReservedParts(tx *gorm.DB, projectId int64, parts int) error {
	if err := tx.Model(&model.ProjectModel{}).
		Where("id = ? AND parts_reserved >= ?", projectId, parts).
		Update("parts_reserved", gorm.Expr("parts_reserved - ?", parts)).Error; err != nil {
		return fmt.Errorf("归还预留份额失败: %w", err)
	}
	return nil
}
