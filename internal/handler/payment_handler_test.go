package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/gateway"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newWebhookTestEnv(t *testing.T) (*gorm.DB, *gateway.Client, *gin.Engine) {
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

	gw := gateway.New("test-secret")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	paymentHandler := NewPaymentHandler(logic.NewPaymentLogic(db), gw)
	r.POST("/api/v1/payments/webhook", paymentHandler.Webhook)

	return db, gw, r
}

func createPendingTransaction(t *testing.T, db *gorm.DB) (*model.InvestmentModel, *model.TransactionModel) {
	t.Helper()

	project := &model.ProjectModel{
		Title:      "Résidence Les Palmiers",
		PromoterId: 10,
		UnitPrice:  10000,
		TotalParts: 100,
		MinParts:   5,
		Status:     model.ProjectStatusActive,
	}
	require.NoError(t, db.Create(project).Error)

	investLogic := logic.NewInvestmentLogic(db, nil)
	investment, transaction, err := investLogic.RequestInvestment(&logic.RequestInvestmentInput{
		InvestorId:       1,
		ProjectId:        project.Id,
		Parts:            5,
		FundsOrigin:      model.FundsOriginSalary,
		ContractAccepted: true,
	})
	require.NoError(t, err)
	return investment, transaction
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(gateway.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookDrivesReconciliation(t *testing.T) {
	db, gw, r := newWebhookTestEnv(t)
	investment, transaction := createPendingTransaction(t, db)

	body, signature, err := gw.BuildCallback(transaction.Reference, "SUCCESS")
	require.NoError(t, err)

	w := postWebhook(r, body, signature)
	require.Equal(t, http.StatusOK, w.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	var txn model.TransactionModel
	require.NoError(t, db.First(&txn, transaction.Id).Error)
	assert.Equal(t, model.TransactionStatusValidated, txn.Status)

	var inv model.InvestmentModel
	require.NoError(t, db.First(&inv, investment.Id).Error)
	assert.Equal(t, model.InvestmentStatusPaymentReceived, inv.Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db, gw, r := newWebhookTestEnv(t)
	_, transaction := createPendingTransaction(t, db)

	body, _, err := gw.BuildCallback(transaction.Reference, "SUCCESS")
	require.NoError(t, err)

	// 错误签名与缺失签名都拒绝，且不推进任何状态
	w := postWebhook(r, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(r, body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var txn model.TransactionModel
	require.NoError(t, db.First(&txn, transaction.Id).Error)
	assert.Equal(t, model.TransactionStatusPending, txn.Status)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	db, gw, r := newWebhookTestEnv(t)
	_, transaction := createPendingTransaction(t, db)

	body, signature, err := gw.BuildCallback(transaction.Reference, "SUCCESS")
	require.NoError(t, err)

	w := postWebhook(r, body, signature)
	require.Equal(t, http.StatusOK, w.Code)

	// 网关重投递同一回调仍返回成功
	w = postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, w.Code)

	var txn model.TransactionModel
	require.NoError(t, db.First(&txn, transaction.Id).Error)
	assert.Equal(t, model.TransactionStatusValidated, txn.Status)
}

func TestWebhookUnknownReference(t *testing.T) {
	_, gw, r := newWebhookTestEnv(t)

	body, signature, err := gw.BuildCallback("TXN-2024-9999", "SUCCESS")
	require.NoError(t, err)

	w := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookMalformedPayload(t *testing.T) {
	_, gw, r := newWebhookTestEnv(t)

	body := []byte(`{"status":"SUCCESS"}`)
	w := postWebhook(r, body, gw.Sign(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = []byte(`not-json`)
	w = postWebhook(r, body, gw.Sign(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
