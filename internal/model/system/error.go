/**
 * 模型:错误定义
 * @author: sun977
 * @date: 2025.08.29
 * @description: 系统错误常量定义
 * @func: 各种错误常量
 */
package system

import "errors"

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrOperatorDisabled   = errors.New("账号已被禁用")
	ErrOperatorNotFound   = errors.New("操作员不存在")
	ErrTokenExpired       = errors.New("令牌已过期")
	ErrTokenInvalid       = errors.New("令牌无效")
	ErrUnauthorized       = errors.New("未授权访问")
)

// Agent相关错误
var (
	ErrAgentNotFound     = errors.New("采集端不存在")
	ErrAgentNameRequired = errors.New("采集端名称不能为空")
)
