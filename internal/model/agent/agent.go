/**
 * 模型:Agent 核心模型
 * @description: 分布式扫描Agent的身份模型，证书即身份
 * @func: 定义 Agent 实体及其证书相关方法
 */
package agent

import (
	"strings"

	"github.com/google/uuid"

	"neohq/internal/model/basemodel"
)

// Agent 扫描Agent身份表
// UID 是全局唯一标识，同时作为客户端证书的 Subject CN(32位小写hex)。
// 证书/私钥对在注册落库时同步签发，之后对该身份永不变更。
// 证书材料不随身份序列化，只通过专门的凭据接口下发
type Agent struct {
	basemodel.BaseModel

	UID         string `json:"uid" gorm:"column:uid;size:32;uniqueIndex;not null;comment:Agent唯一标识(uuid hex)"`
	Name        string `json:"name" gorm:"size:64;not null;comment:Agent名称"`
	Description string `json:"description" gorm:"size:255;comment:描述"`
	X509Cert    string `json:"-" gorm:"column:x509_cert;type:text;comment:客户端证书PEM"`
	X509Key     string `json:"-" gorm:"column:x509_key;type:text;comment:客户端私钥PEM"`
}

// TableName 定义数据库表名
func (Agent) TableName() string {
	return "agents"
}

// HasCertificate 判断证书对是否已签发
func (a *Agent) HasCertificate() bool {
	return len(a.X509Cert) > 0
}

// ParseUID 将证书CN形式的标识解析为uuid
// 接受32位hex(证书CN形式)和标准带连字符两种写法
func ParseUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// FormatUID 将uuid渲染为证书CN形式(32位小写hex)
func FormatUID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
