package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"gorm.io/gorm"
)

// ProjectLogic 项目业务逻辑
type ProjectLogic struct {
	db *gorm.DB
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB) *ProjectLogic {
	return &ProjectLogic{db: db}
}

// CreateProject 创建项目
// 单价在整个募集周期内不可变更，目标金额缺省为 单价 × 总份额。
func (p *ProjectLogic) CreateProject(project *model.ProjectModel) error {
	if err := p.validateProject(project); err != nil {
		return err
	}

	project.Status = model.ProjectStatusPending
	project.PartsSold = 0
	project.PartsReserved = 0
	project.CollectedAmount = 0
	if project.TargetAmount == 0 {
		project.TargetAmount = project.UnitPrice * int64(project.TotalParts)
	}

	if err := p.db.Create(project).Error; err != nil {
		return fmt.Errorf("创建项目失败: %w", err)
	}

	return nil
}

// LaunchCampaign 启动募集
func (p *ProjectLogic) LaunchCampaign(id int64) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var project model.ProjectModel
		if err := tx.First(&project, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 项目 %d", ErrNotFound, id)
			}
			return fmt.Errorf("获取项目失败: %w", err)
		}

		if project.Status != model.ProjectStatusPending {
			return fmt.Errorf("%w: 项目状态为 %s，无法启动募集", ErrStateConflict, project.Status)
		}

		updates := map[string]interface{}{
			"status":     model.ProjectStatusActive,
			"start_time": time.Now(),
		}
		if err := tx.Model(&project).Updates(updates).Error; err != nil {
			return fmt.Errorf("启动募集失败: %w", err)
		}
		return nil
	})
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(id int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := p.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 项目 %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取项目详情失败: %w", err)
	}

	return &project, nil
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(page, pageSize int) ([]model.ProjectModel, int64, error) {
	var projects []model.ProjectModel
	var total int64

	if err := p.db.Model(&model.ProjectModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := p.db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// GetProjectStats 获取项目募集统计信息
func (p *ProjectLogic) GetProjectStats(id int64) (map[string]interface{}, error) {
	project, err := p.GetProject(id)
	if err != nil {
		return nil, err
	}

	var investorCount int64
	if err := p.db.Model(&model.InvestmentModel{}).
		Where("project_id = ? AND status = ?", id, model.InvestmentStatusConfirmed).
		Distinct("investor_id").
		Count(&investorCount).Error; err != nil {
		return nil, fmt.Errorf("获取投资人数失败: %w", err)
	}

	fundingRate := float64(0)
	if project.TargetAmount > 0 {
		fundingRate = float64(project.CollectedAmount) / float64(project.TargetAmount) * 100
	}

	return map[string]interface{}{
		"project_id":       project.Id,
		"status":           string(project.Status),
		"unit_price":       project.UnitPrice,
		"total_parts":      project.TotalParts,
		"parts_sold":       project.PartsSold,
		"parts_reserved":   project.PartsReserved,
		"parts_remaining":  project.PartsRemaining(),
		"target_amount":    project.TargetAmount,
		"collected_amount": project.CollectedAmount,
		"funding_rate":     fundingRate,
		"investor_count":   investorCount,
	}, nil
}

// AddConfirmedInvestment 将已确认投资累加到项目募集总额
// 必须与触发它的投资确认处于同一事务，计数增量为加法表达式以避免并发丢失更新。
// 返回项目是否在本次累加后达到募集目标。
func AddConfirmedInvestment(tx *gorm.DB, projectId int64, amount int64, parts int) (bool, error) {
	res := tx.Model(&model.ProjectModel{}).
		Where("id = ?", projectId).
		Updates(map[string]interface{}{
			"collected_amount": gorm.Expr("collected_amount + ?", amount),
			"parts_sold":       gorm.Expr("parts_sold + ?", parts),
			"parts_reserved":   gorm.Expr("parts_reserved - ?", parts),
		})
	if res.Error != nil {
		return false, fmt.Errorf("更新项目募集总额失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, fmt.Errorf("%w: 项目 %d", ErrNotFound, projectId)
	}

	return FinalizeIfComplete(tx, projectId)
}

// FinalizeIfComplete 达到募集目标时将项目置为募集完成
func FinalizeIfComplete(tx *gorm.DB, projectId int64) (bool, error) {
	var project model.ProjectModel
	if err := tx.First(&project, projectId).Error; err != nil {
		return false, fmt.Errorf("获取项目失败: %w", err)
	}

	if project.Status != model.ProjectStatusActive || !project.IsFullyFunded() {
		return false, nil
	}

	if err := tx.Model(&project).
		Update("status", model.ProjectStatusFunded).Error; err != nil {
		return false, fmt.Errorf("更新项目状态失败: %w", err)
	}

	return true, nil
}

// validateProject 验证项目数据
func (p *ProjectLogic) validateProject(project *model.ProjectModel) error {
	if project.Title == "" {
		return fmt.Errorf("%w: 项目标题不能为空", ErrInvalidInput)
	}
	if project.PromoterId == 0 {
		return fmt.Errorf("%w: 发起人不能为空", ErrInvalidInput)
	}
	if project.UnitPrice <= 0 {
		return fmt.Errorf("%w: 份额单价必须大于0", ErrInvalidInput)
	}
	if project.TotalParts <= 0 {
		return fmt.Errorf("%w: 总份额必须大于0", ErrInvalidInput)
	}
	if project.MinParts <= 0 || project.MinParts > project.TotalParts {
		return fmt.Errorf("%w: 最低购买份额配置无效", ErrInvalidInput)
	}
	return nil
}
