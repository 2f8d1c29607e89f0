/**
 * 模型:Operator 运营人员模型
 * @author: sun977
 * @date: 2025.08.29
 * @description: 运营端登录账号，仅内部人员使用
 */
package system

import "neohq/internal/model/basemodel"

// Operator 运营人员模型
type Operator struct {
	basemodel.BaseModel
	Username     string `json:"username" gorm:"column:username;size:64;uniqueIndex;not null;comment:用户名"`
	PasswordHash string `json:"-" gorm:"column:password_hash;size:255;not null;comment:密码哈希"`
	IsActive     bool   `json:"is_active" gorm:"column:is_active;default:true;comment:是否启用"`
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}

// Info 转换为响应结构，剥离密码哈希
func (o *Operator) Info() *OperatorInfo {
	return &OperatorInfo{
		ID:       o.ID,
		Username: o.Username,
	}
}
