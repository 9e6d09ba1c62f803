package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/gateway"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logger"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/gin-gonic/gin"
)

// PaymentHandler 支付处理器
type PaymentHandler struct {
	paymentLogic *logic.PaymentLogic
	gateway      *gateway.Client
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(paymentLogic *logic.PaymentLogic, gw *gateway.Client) *PaymentHandler {
	return &PaymentHandler{
		paymentLogic: paymentLogic,
		gateway:      gw,
	}
}

// Webhook 支付网关回调
// 回调体必须携带有效的 HMAC 签名；网关按至少一次语义投递，重复回调由对账逻辑幂等吸收。
// 处理失败只返回失败标识，不做内部重试，重投递由网关负责。
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Success: false})
		return
	}

	signature := c.GetHeader(gateway.SignatureHeader)
	if !h.gateway.VerifySignature(body, signature) {
		logger.Warn("Webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, WebhookResponse{Success: false})
		return
	}

	var payload gateway.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Reference == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Success: false})
		return
	}

	if err := h.paymentLogic.ReconcilePayment(payload.Reference, logic.PaymentOutcome(payload.Status)); err != nil {
		logger.Error("Failed to reconcile payment %s: %v", payload.Reference, err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, logic.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, logic.ErrStateConflict), errors.Is(err, logic.ErrConcurrencyConflict):
			status = http.StatusConflict
		case errors.Is(err, logic.ErrInvalidInput):
			status = http.StatusBadRequest
		}
		c.JSON(status, WebhookResponse{Success: false})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Success: true})
}

// MockPay 模拟支付渠道提交
// 为流水分配渠道侧支付单号，并返回签好名的回调体，调用方可用它回传 webhook 驱动完整流程。
func (h *PaymentHandler) MockPay(c *gin.Context) {
	transactionId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的流水ID")
		return
	}

	var req struct {
		Outcome string `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}
	if req.Outcome != string(logic.PaymentOutcomeSuccess) && req.Outcome != string(logic.PaymentOutcomeFailed) {
		ErrorResponse(c, http.StatusBadRequest, "无效的支付结果")
		return
	}

	transaction, err := h.paymentLogic.MarkSubmitted(transactionId, h.gateway.NewProviderRef())
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	payload, signature, err := h.gateway.BuildCallback(transaction.Reference, req.Outcome)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "模拟支付提交成功", MockPayResponse{
		Transaction: ToTransactionResponse(transaction),
		Payload:     string(payload),
		Signature:   signature,
	})
}
