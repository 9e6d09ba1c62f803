package logic

import (
	"testing"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 创建内存数据库
// 单连接串行化写入，模拟生产环境的行级互斥语义。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ProjectModel{},
		&model.InvestmentModel{},
		&model.TransactionModel{},
		&model.ReferenceSequenceModel{},
		&model.NotificationModel{},
	))

	return db
}

// createActiveProject 创建一个募集中的项目
func createActiveProject(t *testing.T, db *gorm.DB, unitPrice int64, totalParts, minParts int) *model.ProjectModel {
	t.Helper()

	project := &model.ProjectModel{
		Title:        "Résidence Les Palmiers",
		PromoterId:   100,
		PromoterName: "Aminata Ouédraogo",
		UnitPrice:    unitPrice,
		TotalParts:   totalParts,
		MinParts:     minParts,
		TargetAmount: unitPrice * int64(totalParts),
		Status:       model.ProjectStatusActive,
	}
	require.NoError(t, db.Create(project).Error)

	return project
}

// requestParts 发起一笔投资购买，断言成功
func requestParts(t *testing.T, l *InvestmentLogic, investorId, projectId int64, parts int) (*model.InvestmentModel, *model.TransactionModel) {
	t.Helper()

	investment, transaction, err := l.RequestInvestment(&RequestInvestmentInput{
		InvestorId:       investorId,
		ProjectId:        projectId,
		Parts:            parts,
		FundsOrigin:      model.FundsOriginSavings,
		Channel:          model.ChannelOrangeMoney,
		ContractAccepted: true,
	})
	require.NoError(t, err)

	return investment, transaction
}

var testAdmin = model.Operator{Id: 1, Name: "admin", Role: model.RoleAdministrator}
