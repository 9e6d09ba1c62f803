package handler

import (
	"net/http"
	"strconv"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/gin-gonic/gin"
)

// InvestmentHandler 投资处理器
type InvestmentHandler struct {
	investmentLogic *logic.InvestmentLogic
}

// NewInvestmentHandler 创建投资处理器
func NewInvestmentHandler(investmentLogic *logic.InvestmentLogic) *InvestmentHandler {
	return &InvestmentHandler{
		investmentLogic: investmentLogic,
	}
}

// CreateInvestment 发起投资购买
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	var input logic.RequestInvestmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}

	investment, transaction, err := h.investmentLogic.RequestInvestment(&input)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "投资创建成功", CreateInvestmentResponse{
		Investment:  ToInvestmentResponse(investment),
		Transaction: ToTransactionResponse(transaction),
	})
}

// GetInvestment 根据编号获取投资详情
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	reference := c.Param("id")

	investment, err := h.investmentLogic.GetInvestmentByReference(reference)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	transactions, err := h.investmentLogic.GetInvestmentTransactions(investment.Id)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取投资详情成功", gin.H{
		"investment":   ToInvestmentResponse(investment),
		"transactions": ToTransactionResponseList(transactions),
	})
}

// GetInvestorInvestments 获取投资人的投资记录
func (h *InvestmentHandler) GetInvestorInvestments(c *gin.Context) {
	investorId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资人ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	investments, total, err := h.investmentLogic.GetInvestorInvestments(investorId, page, pageSize)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取投资记录成功", GetInvestmentsResponse{
		Investments: ToInvestmentResponseList(investments),
		Pagination:  makePagination(page, pageSize, total),
	})
}

// ConfirmInvestment 管理员确认投资
func (h *InvestmentHandler) ConfirmInvestment(c *gin.Context) {
	investmentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资ID")
		return
	}

	var req ConfirmInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}

	operator := model.Operator{
		Id:   req.OperatorId,
		Name: req.OperatorName,
		Role: model.Role(req.Role),
	}

	investment, err := h.investmentLogic.ConfirmByAdmin(investmentId, operator)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "投资确认成功", gin.H{
		"investment": ToInvestmentResponse(investment),
	})
}

// RejectInvestment 管理员拒绝投资
func (h *InvestmentHandler) RejectInvestment(c *gin.Context) {
	investmentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资ID")
		return
	}

	var req RejectInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}

	operator := model.Operator{
		Id:   req.OperatorId,
		Name: req.OperatorName,
		Role: model.Role(req.Role),
	}

	investment, err := h.investmentLogic.RejectWithRefund(investmentId, req.Reason, operator)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "投资拒绝成功", gin.H{
		"investment": ToInvestmentResponse(investment),
	})
}

// CancelInvestment 投资人取消投资
func (h *InvestmentHandler) CancelInvestment(c *gin.Context) {
	investmentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的投资ID")
		return
	}

	var req CancelInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}

	investment, err := h.investmentLogic.Cancel(investmentId, req.InvestorId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "投资取消成功", gin.H{
		"investment": ToInvestmentResponse(investment),
	})
}

// makePagination 组装分页信息
func makePagination(page, pageSize int, total int64) Pagination {
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
