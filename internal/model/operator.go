package model

// Role 操作者角色
type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR" // 管理员
	RolePromoter      Role = "PROMOTER"      // 项目发起人
	RoleInvestor      Role = "INVESTOR"      // 投资人
)

// Operator 管理操作者身份
// 管理类操作要求显式传入带角色标记的操作者，不在运行时拼装虚拟身份。
type Operator struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsAdministrator 是否具备管理员角色
func (o Operator) IsAdministrator() bool {
	return o.Role == RoleAdministrator
}
