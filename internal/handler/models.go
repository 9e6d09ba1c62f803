package handler

import (
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// 项目相关响应模型

// ProjectResponse 项目响应模型
type ProjectResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Category        string    `json:"category"`
	PromoterName    string    `json:"promoterName"`
	UnitPrice       int64     `json:"unitPrice"`
	TotalParts      int       `json:"totalParts"`
	MinParts        int       `json:"minParts"`
	PartsSold       int       `json:"partsSold"`
	PartsRemaining  int       `json:"partsRemaining"`
	TargetAmount    int64     `json:"targetAmount"`
	CollectedAmount int64     `json:"collectedAmount"`
	Status          string    `json:"status"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// GetProjectsResponse 获取项目列表响应
type GetProjectsResponse struct {
	Projects   []ProjectResponse `json:"projects"`
	Pagination Pagination        `json:"pagination"`
}

// 投资相关请求/响应模型

// ConfirmInvestmentRequest 管理员确认投资请求
type ConfirmInvestmentRequest struct {
	OperatorId   int64  `json:"operatorId" binding:"required"`
	OperatorName string `json:"operatorName" binding:"required"`
	Role         string `json:"role" binding:"required"`
}

// RejectInvestmentRequest 管理员拒绝投资请求
type RejectInvestmentRequest struct {
	OperatorId   int64  `json:"operatorId" binding:"required"`
	OperatorName string `json:"operatorName" binding:"required"`
	Role         string `json:"role" binding:"required"`
	Reason       string `json:"reason"`
}

// CancelInvestmentRequest 投资人取消投资请求
type CancelInvestmentRequest struct {
	InvestorId int64 `json:"investorId" binding:"required"`
}

// InvestmentResponse 投资记录响应模型
type InvestmentResponse struct {
	ID               int64     `json:"id"`
	Reference        string    `json:"reference"`
	InvestorId       int64     `json:"investorId"`
	ProjectId        int64     `json:"projectId"`
	Parts            int       `json:"parts"`
	Amount           int64     `json:"amount"`
	Status           string    `json:"status"`
	FundsOrigin      string    `json:"fundsOrigin"`
	ContractAccepted bool      `json:"contractAccepted"`
	ConfirmedBy      string    `json:"confirmedBy,omitempty"`
	RejectReason     string    `json:"rejectReason,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// GetInvestmentsResponse 获取投资记录列表响应
type GetInvestmentsResponse struct {
	Investments []InvestmentResponse `json:"investments"`
	Pagination  Pagination           `json:"pagination"`
}

// CreateInvestmentResponse 发起投资响应
type CreateInvestmentResponse struct {
	Investment  InvestmentResponse  `json:"investment"`
	Transaction TransactionResponse `json:"transaction"`
}

// 流水相关响应模型

// TransactionResponse 资金流水响应模型
type TransactionResponse struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	InvestmentId int64     `json:"investmentId"`
	Amount       int64     `json:"amount"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Channel      string    `json:"channel,omitempty"`
	ProviderRef  string    `json:"providerRef,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WebhookResponse 支付回调响应
type WebhookResponse struct {
	Success bool `json:"success"`
}

// MockPayResponse 模拟支付响应
type MockPayResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Payload     string              `json:"payload"`
	Signature   string              `json:"signature"`
}

// 转换函数

// ToProjectResponse 将数据库模型转换为响应模型
func ToProjectResponse(project *model.ProjectModel) ProjectResponse {
	return ProjectResponse{
		ID:              project.Id,
		Title:           project.Title,
		Description:     project.Description,
		Location:        project.Location,
		Category:        project.Category,
		PromoterName:    project.PromoterName,
		UnitPrice:       project.UnitPrice,
		TotalParts:      project.TotalParts,
		MinParts:        project.MinParts,
		PartsSold:       project.PartsSold,
		PartsRemaining:  project.PartsRemaining(),
		TargetAmount:    project.TargetAmount,
		CollectedAmount: project.CollectedAmount,
		Status:          string(project.Status),
		StartTime:       project.StartTime,
		EndTime:         project.EndTime,
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
	}
}

// ToProjectResponseList 将数据库模型列表转换为响应模型列表
func ToProjectResponseList(projects []model.ProjectModel) []ProjectResponse {
	result := make([]ProjectResponse, len(projects))
	for i, project := range projects {
		result[i] = ToProjectResponse(&project)
	}
	return result
}

// ToInvestmentResponse 将投资记录数据库模型转换为响应模型
func ToInvestmentResponse(investment *model.InvestmentModel) InvestmentResponse {
	return InvestmentResponse{
		ID:               investment.Id,
		Reference:        investment.Reference,
		InvestorId:       investment.InvestorId,
		ProjectId:        investment.ProjectId,
		Parts:            investment.Parts,
		Amount:           investment.Amount,
		Status:           string(investment.Status),
		FundsOrigin:      string(investment.FundsOrigin),
		ContractAccepted: investment.ContractAccepted,
		ConfirmedBy:      investment.ConfirmedBy,
		RejectReason:     investment.RejectReason,
		CreatedAt:        investment.CreatedAt,
		UpdatedAt:        investment.UpdatedAt,
	}
}

// ToInvestmentResponseList 将投资记录数据库模型列表转换为响应模型列表
func ToInvestmentResponseList(investments []model.InvestmentModel) []InvestmentResponse {
	result := make([]InvestmentResponse, len(investments))
	for i, investment := range investments {
		result[i] = ToInvestmentResponse(&investment)
	}
	return result
}

// ToTransactionResponse 将流水数据库模型转换为响应模型
func ToTransactionResponse(transaction *model.TransactionModel) TransactionResponse {
	return TransactionResponse{
		ID:           transaction.Id,
		Reference:    transaction.Reference,
		InvestmentId: transaction.InvestmentId,
		Amount:       transaction.Amount,
		Kind:         string(transaction.Kind),
		Status:       string(transaction.Status),
		Channel:      string(transaction.Channel),
		ProviderRef:  transaction.ProviderRef,
		CreatedAt:    transaction.CreatedAt,
	}
}

// ToTransactionResponseList 将流水数据库模型列表转换为响应模型列表
func ToTransactionResponseList(transactions []model.TransactionModel) []TransactionResponse {
	result := make([]TransactionResponse, len(transactions))
	for i, transaction := range transactions {
		result[i] = ToTransactionResponse(&transaction)
	}
	return result
}
