package logic

import (
	"fmt"
	"time"

	"github.com/Nabi-KONE/plateforme-crowdbuilding/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 编号前缀，投资与流水各自独立计数
const (
	ReferencePrefixInvestment  = "INV"
	ReferencePrefixTransaction = "TXN"
)

// NextReference 在调用方事务内生成下一个编号，格式 {PREFIX}-{年份}-{4位序号}
// 序号按前缀按年度独立递增，跨年自动从 1 重新开始。
// 递增通过单条 upsert + RETURNING 完成，不存在先读最大值再写入的竞争窗口。
func NextReference(tx *gorm.DB, prefix string, now time.Time) (string, error) {
	seq := model.ReferenceSequenceModel{Prefix: prefix, Year: now.Year(), Value: 1}

	err := tx.
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "prefix"}, {Name: "year"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value": gorm.Expr("reference_sequence.value + 1"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(&seq).Error
	if err != nil {
		return "", fmt.Errorf("生成编号失败: %w", err)
	}

	return fmt.Sprintf("%s-%d-%04d", prefix, now.Year(), seq.Value), nil
}
