/**
 * 模型:响应模型
 * @author: sun977
 * @date: 2025.08.29
 * @description: API响应数据模型，包含运营端各业务操作的响应结构体
 * @func: 各种Response结构体定义
 */
package system

// APIResponse 通用API响应结构
type APIResponse struct {
	Code    int         `json:"code,omitempty"`  // 响应状态码，可选
	Status  string      `json:"status"`          // 响应状态："success" 或 "error"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// PaginationResponse 分页响应结构
type PaginationResponse struct {
	Total       int64       `json:"total"`        // 总记录数
	Page        int         `json:"page"`         // 当前页码
	PageSize    int         `json:"page_size"`    // 每页大小
	TotalPages  int         `json:"total_pages"`  // 总页数
	HasNext     bool        `json:"has_next"`     // 是否有下一页
	HasPrevious bool        `json:"has_previous"` // 是否有上一页
	Data        interface{} `json:"data"`         // 分页数据
}

// LoginResponse 运营人员登录响应结构
type LoginResponse struct {
	Operator    *OperatorInfo `json:"operator"`     // 操作员信息
	AccessToken string        `json:"access_token"` // 访问令牌
	ExpiresIn   int64         `json:"expires_in"`   // 令牌过期时间（秒）
}

// OperatorInfo 操作员信息响应结构
type OperatorInfo struct {
	ID       uint64 `json:"id"`       // 操作员ID
	Username string `json:"username"` // 用户名
}
