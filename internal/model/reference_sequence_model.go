package model

// ReferenceSequenceModel 编号序列计数器
// 每个前缀每个年度一行，编号递增通过单条 upsert 语句完成，避免读后写竞争。
type ReferenceSequenceModel struct {
	Id     int64  `json:"id" gorm:"primaryKey"`
	Prefix string `json:"prefix" gorm:"size:10;not null;uniqueIndex:idx_prefix_year"`
	Year   int    `json:"year" gorm:"not null;uniqueIndex:idx_prefix_year"`
	Value  int64  `json:"value" gorm:"not null;default:0"`
}

// TableName 自定义表名
func (ReferenceSequenceModel) TableName() string {
	return "reference_sequence"
}
