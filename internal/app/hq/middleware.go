/**
 * 应用层:中间件管理器
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端证书认证、运营端JWT认证和通用HTTP中间件
 * @func: GinAgentCertMiddleware 证书身份网关；GinStaffAuthMiddleware 运营端认证
 */
package hq

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"neohq/internal/config"
	"neohq/internal/model/system"
	"neohq/internal/pkg/auth"
	"neohq/internal/pkg/logger"
	"neohq/internal/pkg/utils"
	agentservice "neohq/internal/service/agent"
	authservice "neohq/internal/service/auth"
)

// MiddlewareManager 中间件管理器
type MiddlewareManager struct {
	sessionService *authservice.SessionService
	registry       *agentservice.RegistryService
	serverCfg      *config.ServerConfig
	agentAuthCfg   *config.AgentAuthConfig
	corsCfg        *config.CORSConfig
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager(sessionService *authservice.SessionService, registry *agentservice.RegistryService, cfg *config.Config) *MiddlewareManager {
	return &MiddlewareManager{
		sessionService: sessionService,
		registry:       registry,
		serverCfg:      &cfg.Server,
		agentAuthCfg:   &cfg.Security.AgentAuth,
		corsCfg:        &cfg.Security.CORS,
	}
}

// GinAgentCertMiddleware 采集端证书身份网关
// TLS双向认证由前置反向代理完成，这里只信任代理写入的两个请求头：
// 校验结果头必须等于哨兵值，DN头里的CN必须是已注册采集端的UID。
// debug模式整体旁路，方便本地起采集端联调
func (m *MiddlewareManager) GinAgentCertMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.serverCfg.IsDebug() {
			c.Next()
			return
		}

		verified := c.GetHeader(m.agentAuthCfg.VerifyHeader)
		if verified != m.agentAuthCfg.VerifySuccess {
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		dn := utils.ParseDN(c.GetHeader(m.agentAuthCfg.DNHeader))
		agent, err := m.registry.ResolveByCN(c.Request.Context(), dn["CN"])
		if err != nil {
			logger.LogBusinessOperation("agent_auth", dn["CN"], utils.GetClientIP(c), "failed", "证书CN无法解析为已注册采集端", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}

		c.Set("agent_uid", agent.UID)
		c.Next()
	}
}

// GinStaffAuthMiddleware 运营端JWT认证中间件
func (m *MiddlewareManager) GinStaffAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.JSON(http.StatusUnauthorized, system.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "Missing or invalid authorization header",
			})
			c.Abort()
			return
		}

		claims, err := m.sessionService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, system.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("operator_name", claims.Username)
		c.Next()
	}
}

// GinCORSMiddleware CORS中间件
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.corsCfg.Enabled {
			c.Next()
			return
		}

		origin := "*"
		if len(m.corsCfg.AllowOrigins) > 0 {
			origin = strings.Join(m.corsCfg.AllowOrigins, ", ")
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		// 处理预检请求
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// GinSecurityHeadersMiddleware 安全头中间件
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// GinLoggingMiddleware 访问日志中间件
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.LogAccessRequest(c, start)
	}
}
