package handler

import (
	"net/http"
	"strconv"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/logic"
	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projectLogic    *logic.ProjectLogic
	investmentLogic *logic.InvestmentLogic
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projectLogic *logic.ProjectLogic, investmentLogic *logic.InvestmentLogic) *ProjectHandler {
	return &ProjectHandler{
		projectLogic:    projectLogic,
		investmentLogic: investmentLogic,
	}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var project model.ProjectModel
	if err := c.ShouldBindJSON(&project); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数")
		return
	}

	if err := h.projectLogic.CreateProject(&project); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", gin.H{
		"project": ToProjectResponse(&project),
	})
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(page, pageSize)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目列表成功", GetProjectsResponse{
		Projects:   ToProjectResponseList(projects),
		Pagination: makePagination(page, pageSize, total),
	})
}

// GetProject 获取项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	project, err := h.projectLogic.GetProject(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目详情成功", gin.H{
		"project": ToProjectResponse(project),
	})
}

// LaunchCampaign 启动募集
func (h *ProjectHandler) LaunchCampaign(c *gin.Context) {
	projectId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	if err := h.projectLogic.LaunchCampaign(projectId); err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "募集启动成功", nil)
}

// GetProjectStats 获取项目募集统计信息
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	projectId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	stats, err := h.projectLogic.GetProjectStats(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目统计信息成功", gin.H{"stats": stats})
}

// GetProjectInvestments 获取项目投资记录
func (h *ProjectHandler) GetProjectInvestments(c *gin.Context) {
	projectId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	investments, total, err := h.investmentLogic.GetProjectInvestments(projectId, page, pageSize)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目投资记录成功", GetInvestmentsResponse{
		Investments: ToInvestmentResponseList(investments),
		Pagination:  makePagination(page, pageSize, total),
	})
}
