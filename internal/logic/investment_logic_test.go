package logic

import (
	"sync"
	"testing"
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 场景A：购买 → 支付成功回调 → 管理员确认 → 项目总额更新
func TestInvestmentFullLifecycle(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	investment, transaction := requestParts(t, investLogic, 1, project.Id, 5)

	assert.Equal(t, int64(50000), investment.Amount)
	assert.Equal(t, 5, investment.Parts)
	assert.Equal(t, model.InvestmentStatusPendingPayment, investment.Status)
	assert.Equal(t, model.TransactionStatusPending, transaction.Status)
	assert.Equal(t, model.TransactionKindInvestment, transaction.Kind)

	require.NoError(t, payLogic.ReconcilePayment(transaction.Reference, PaymentOutcomeSuccess))

	got, err := investLogic.GetInvestmentByReference(investment.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusPaymentReceived, got.Status)

	confirmed, err := investLogic.ConfirmByAdmin(investment.Id, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusConfirmed, confirmed.Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 5, updated.PartsSold)
	assert.Equal(t, 0, updated.PartsReserved)
	assert.Equal(t, int64(50000), updated.CollectedAmount)
}

// 场景B：请求超过剩余份额，不产生任何投资或流水
func TestRequestInvestmentInsufficientParts(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	// 投资人A先占用5份并走完确认流程
	investment, transaction := requestParts(t, investLogic, 1, project.Id, 5)
	require.NoError(t, payLogic.ReconcilePayment(transaction.Reference, PaymentOutcomeSuccess))
	_, err := investLogic.ConfirmByAdmin(investment.Id, testAdmin)
	require.NoError(t, err)

	// 剩余95份，投资人B请求96份
	_, _, err = investLogic.RequestInvestment(&RequestInvestmentInput{
		InvestorId:       2,
		ProjectId:        project.Id,
		Parts:            96,
		FundsOrigin:      model.FundsOriginSalary,
		ContractAccepted: true,
	})
	require.ErrorIs(t, err, ErrInsufficientParts)

	var investmentCount, transactionCount int64
	db.Model(&model.InvestmentModel{}).Where("investor_id = ?", 2).Count(&investmentCount)
	db.Model(&model.TransactionModel{}).Count(&transactionCount)
	assert.Equal(t, int64(0), investmentCount)
	assert.Equal(t, int64(1), transactionCount) // 仅A的入金流水
}

// 场景C：已到账投资被拒绝，生成一条等额退款流水，项目总额不受影响
func TestRejectWithRefundAfterPaymentReceived(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 3)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	investment, transaction := requestParts(t, investLogic, 7, project.Id, 3)
	assert.Equal(t, int64(30000), investment.Amount)
	require.NoError(t, payLogic.ReconcilePayment(transaction.Reference, PaymentOutcomeSuccess))

	rejected, err := investLogic.RejectWithRefund(investment.Id, "fraud suspected", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusRefunded, rejected.Status)

	var refunds []model.TransactionModel
	require.NoError(t, db.Where("investment_id = ? AND kind = ?",
		investment.Id, model.TransactionKindRefund).Find(&refunds).Error)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(30000), refunds[0].Amount)
	assert.Equal(t, model.TransactionStatusValidated, refunds[0].Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, int64(0), updated.CollectedAmount)
	assert.Equal(t, 0, updated.PartsSold)
	assert.Equal(t, 0, updated.PartsReserved)
}

// 从未到账的投资被拒绝：直接拒绝，不产生退款流水
func TestRejectPendingInvestmentNoRefund(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	investment, _ := requestParts(t, investLogic, 1, project.Id, 5)

	rejected, err := investLogic.RejectWithRefund(investment.Id, "documents manquants", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusRejected, rejected.Status)

	var refundCount int64
	db.Model(&model.TransactionModel{}).
		Where("investment_id = ? AND kind = ?", investment.Id, model.TransactionKindRefund).
		Count(&refundCount)
	assert.Equal(t, int64(0), refundCount)

	// 入金流水被取消，预留份额归还
	var capIn model.TransactionModel
	require.NoError(t, db.Where("investment_id = ? AND kind = ?",
		investment.Id, model.TransactionKindInvestment).First(&capIn).Error)
	assert.Equal(t, model.TransactionStatusCancelled, capIn.Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 0, updated.PartsReserved)
}

func TestConfirmByAdminRequiresPaymentReceived(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	investment, _ := requestParts(t, investLogic, 1, project.Id, 5)

	// 待支付状态不可确认
	_, err := investLogic.ConfirmByAdmin(investment.Id, testAdmin)
	require.ErrorIs(t, err, ErrStateConflict)

	// 所有状态保持不变
	got, err := investLogic.GetInvestmentByReference(investment.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusPendingPayment, got.Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 0, updated.PartsSold)
	assert.Equal(t, int64(0), updated.CollectedAmount)
}

func TestConfirmByAdminRequiresAdministratorRole(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	investment, _ := requestParts(t, investLogic, 1, project.Id, 5)

	_, err := investLogic.ConfirmByAdmin(investment.Id,
		model.Operator{Id: 9, Name: "promoter", Role: model.RolePromoter})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequestInvestmentBelowMinimumParts(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	_, _, err := investLogic.RequestInvestment(&RequestInvestmentInput{
		InvestorId:       1,
		ProjectId:        project.Id,
		Parts:            3,
		FundsOrigin:      model.FundsOriginSavings,
		ContractAccepted: true,
	})
	require.ErrorIs(t, err, ErrBelowMinimumParts)
}

// 最低份额为累计校验：已持有4份后追加2份即可达标
func TestRequestInvestmentCumulativeMinimum(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	// 首次必须至少5份
	investment, _ := requestParts(t, investLogic, 1, project.Id, 5)

	// 追加2份：累计7份，低于单次最低但累计达标
	merged, _, err := investLogic.RequestInvestment(&RequestInvestmentInput{
		InvestorId:       1,
		ProjectId:        project.Id,
		Parts:            2,
		FundsOrigin:      model.FundsOriginSavings,
		ContractAccepted: true,
	})
	require.NoError(t, err)

	// 合并进同一条投资记录
	assert.Equal(t, investment.Id, merged.Id)
	assert.Equal(t, investment.Reference, merged.Reference)
	assert.Equal(t, 7, merged.Parts)
	assert.Equal(t, int64(70000), merged.Amount)

	// 每次购买各自生成一条入金流水
	var transactionCount int64
	db.Model(&model.TransactionModel{}).Where("investment_id = ?", merged.Id).Count(&transactionCount)
	assert.Equal(t, int64(2), transactionCount)
}

func TestRequestInvestmentRejectsInactiveProject(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	require.NoError(t, db.Model(project).Update("status", model.ProjectStatusPending).Error)
	investLogic := NewInvestmentLogic(db, nil)

	_, _, err := investLogic.RequestInvestment(&RequestInvestmentInput{
		InvestorId:       1,
		ProjectId:        project.Id,
		Parts:            5,
		FundsOrigin:      model.FundsOriginSavings,
		ContractAccepted: true,
	})
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestRequestInvestmentValidation(t *testing.T) {
	db := newTestDB(t)
	investLogic := NewInvestmentLogic(db, nil)

	cases := []struct {
		name  string
		input RequestInvestmentInput
	}{
		{"missing investor", RequestInvestmentInput{ProjectId: 1, Parts: 5, FundsOrigin: model.FundsOriginSavings, ContractAccepted: true}},
		{"missing project", RequestInvestmentInput{InvestorId: 1, Parts: 5, FundsOrigin: model.FundsOriginSavings, ContractAccepted: true}},
		{"zero parts", RequestInvestmentInput{InvestorId: 1, ProjectId: 1, FundsOrigin: model.FundsOriginSavings, ContractAccepted: true}},
		{"bad funds origin", RequestInvestmentInput{InvestorId: 1, ProjectId: 1, Parts: 5, FundsOrigin: "LOTERIE", ContractAccepted: true}},
		{"contract not accepted", RequestInvestmentInput{InvestorId: 1, ProjectId: 1, Parts: 5, FundsOrigin: model.FundsOriginSavings}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := investLogic.RequestInvestment(&tc.input)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

// 并发抢购：总份额固定时，成功预留的份额之和不超过总份额
func TestConcurrentRequestsNeverOversell(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 12, 1)
	investLogic := NewInvestmentLogic(db, nil)

	const workers = 10
	const partsEach = 3

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		investorId := int64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := investLogic.RequestInvestment(&RequestInvestmentInput{
				InvestorId:       investorId,
				ProjectId:        project.Id,
				Parts:            partsEach,
				FundsOrigin:      model.FundsOriginSavings,
				ContractAccepted: true,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 12份库存最多容纳4笔3份的购买
	assert.Equal(t, 4, succeeded)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 12, updated.PartsReserved)
	assert.LessOrEqual(t, updated.PartsSold+updated.PartsReserved, updated.TotalParts)

	var totalParts int64
	db.Model(&model.InvestmentModel{}).
		Where("project_id = ?", project.Id).
		Select("COALESCE(SUM(parts), 0)").
		Scan(&totalParts)
	assert.Equal(t, int64(12), totalParts)
}

func TestCancelReleasesReservedParts(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	investment, _ := requestParts(t, investLogic, 1, project.Id, 5)

	// 非本人不可取消
	_, err := investLogic.Cancel(investment.Id, 99)
	require.ErrorIs(t, err, ErrNotFound)

	cancelled, err := investLogic.Cancel(investment.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusCancelled, cancelled.Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 0, updated.PartsReserved)

	// 终态投资不可再取消
	_, err = investLogic.Cancel(investment.Id, 1)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestExpireStalePending(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	stale, _ := requestParts(t, investLogic, 1, project.Id, 5)
	fresh, freshTxn := requestParts(t, investLogic, 2, project.Id, 5)

	// 到账的投资不会被过期清理
	require.NoError(t, payLogic.ReconcilePayment(freshTxn.Reference, PaymentOutcomeSuccess))

	// 把第一笔的创建时间拨回到过期线之前
	past := time.Now().Add(-96 * time.Hour)
	require.NoError(t, db.Model(&model.InvestmentModel{}).
		Where("id = ?", stale.Id).
		Update("created_at", past).Error)

	expired, err := investLogic.ExpireStalePending(time.Now().Add(-72 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := investLogic.GetInvestmentByReference(stale.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusCancelled, got.Status)

	got, err = investLogic.GetInvestmentByReference(fresh.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusPaymentReceived, got.Status)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, 5, updated.PartsReserved) // 仅第二笔仍占用
}

// 确认迁移的状态守卫：凭过期状态读发出的第二次确认写入不得生效，项目不得二次入账
func TestConfirmGuardBlocksStaleStatusWrite(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	investment, transaction := requestParts(t, investLogic, 1, project.Id, 5)
	require.NoError(t, payLogic.ReconcilePayment(transaction.Reference, PaymentOutcomeSuccess))

	_, err := investLogic.ConfirmByAdmin(investment.Id, testAdmin)
	require.NoError(t, err)

	// 重放一个竞争确认在读到旧状态之后会执行的迁移写入
	moved, err := transitionInvestment(db, investment.Id,
		model.InvestmentStatusPaymentReceived, map[string]interface{}{
			"status":       model.InvestmentStatusConfirmed,
			"confirmed_by": "admin-2",
		})
	require.NoError(t, err)
	assert.False(t, moved)

	var updated model.ProjectModel
	require.NoError(t, db.First(&updated, project.Id).Error)
	assert.Equal(t, int64(50000), updated.CollectedAmount)
	assert.Equal(t, 5, updated.PartsSold)
	assert.Equal(t, 0, updated.PartsReserved)

	got, err := investLogic.GetInvestmentByReference(investment.Reference)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.ConfirmedBy)
}

// 取消迁移同样带守卫，已到账的投资不会被过期的取消写入覆盖
func TestCancelGuardBlocksStaleStatusWrite(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)
	payLogic := NewPaymentLogic(db)

	investment, transaction := requestParts(t, investLogic, 1, project.Id, 5)
	require.NoError(t, payLogic.ReconcilePayment(transaction.Reference, PaymentOutcomeSuccess))

	moved, err := transitionInvestment(db, investment.Id,
		model.InvestmentStatusPendingPayment, map[string]interface{}{
			"status": model.InvestmentStatusCancelled,
		})
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := investLogic.GetInvestmentByReference(investment.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.InvestmentStatusPaymentReceived, got.Status)
}

// 部分唯一索引兜底：同一投资人同一项目不允许出现两条待支付记录
func TestPendingInvestmentUniquePerInvestorProject(t *testing.T) {
	db := newTestDB(t)
	project := createActiveProject(t, db, 10000, 100, 5)
	investLogic := NewInvestmentLogic(db, nil)

	requestParts(t, investLogic, 1, project.Id, 5)

	dup := model.InvestmentModel{
		Reference:  "INV-2024-9999",
		InvestorId: 1,
		ProjectId:  project.Id,
		Parts:      5,
		Amount:     50000,
		Status:     model.InvestmentStatusPendingPayment,
	}
	err := db.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var count int64
	require.NoError(t, db.Model(&model.InvestmentModel{}).
		Where("investor_id = ? AND project_id = ? AND status = ?",
			1, project.Id, model.InvestmentStatusPendingPayment).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// 终态存档记录不受索引限制
	archived := model.InvestmentModel{
		Reference:  "INV-2024-9998",
		InvestorId: 1,
		ProjectId:  project.Id,
		Parts:      5,
		Amount:     50000,
		Status:     model.InvestmentStatusCancelled,
	}
	require.NoError(t, db.Create(&archived).Error)
}
