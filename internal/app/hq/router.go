/**
 * 应用层:路由管理器
 * @author: sun977
 * @date: 2025.08.29
 * @description: 组装仓库、服务、处理器并注册路由
 * @func: NewRouter 依赖组装；SetupRoutes 路由注册
 */
package hq

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"neohq/internal/config"
	"neohq/internal/handler/agentapi"
	"neohq/internal/handler/portal"
	authPkg "neohq/internal/pkg/auth"
	"neohq/internal/pkg/logger"
	"neohq/internal/repository/mysql"
	redisRepo "neohq/internal/repository/redis"
	agentService "neohq/internal/service/agent"
	authService "neohq/internal/service/auth"
	ingestService "neohq/internal/service/ingest"
	searchService "neohq/internal/service/search"
)

// Router 路由管理器
type Router struct {
	engine            *gin.Engine
	middlewareManager *MiddlewareManager
	agentAPIHandler   *agentapi.Handler
	portalHandler     *portal.Handler
}

// NewRouter 创建路由管理器实例
// issuer 是CA签发适配器，测试场景可以注入桩实现
func NewRouter(db *gorm.DB, redisClient *redis.Client, issuer agentService.CertIssuer, cfg *config.Config) *Router {
	// 初始化工具包
	jwtManager := authPkg.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenExpire)
	passwordManager := authPkg.NewPasswordManager(nil)

	// 仓库层
	agentRepo := mysql.NewAgentRepository(db)
	inventoryRepo := mysql.NewInventoryRepository(db)
	alertRepo := mysql.NewAlertRepository(db)
	operatorRepo := mysql.NewOperatorRepository(db)

	var appsCache *redisRepo.AppsCacheRepository
	if redisClient != nil {
		appsCache = redisRepo.NewAppsCacheRepository(redisClient, cfg.Security.AgentAuth.AppsCacheExpire)
	}

	// 服务层
	registry := agentService.NewRegistryService(agentRepo, issuer)
	ingest := ingestService.NewService(inventoryRepo, alertRepo, appsCache)
	search := searchService.NewService(inventoryRepo, alertRepo, cfg.Search.PageSize, cfg.Search.AlertPageSize)
	session := authService.NewSessionService(operatorRepo, jwtManager, passwordManager)

	// 中间件和处理器
	middlewareManager := NewMiddlewareManager(session, registry, cfg)
	agentAPIHandler := agentapi.NewHandler(ingest)
	portalHandler := portal.NewHandler(session, search, registry)

	// 创建Gin引擎
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		engine:            engine,
		middlewareManager: middlewareManager,
		agentAPIHandler:   agentAPIHandler,
		portalHandler:     portalHandler,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes() {
	// 全局中间件
	r.engine.Use(r.middlewareManager.GinCORSMiddleware())
	r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
	r.engine.Use(r.middlewareManager.GinLoggingMiddleware())

	// 健康检查不走认证
	r.engine.GET("/health", r.healthCheck)

	r.setupAgentRoutes()
	r.setupPortalRoutes()
}

// healthCheck 健康检查处理器
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": logger.NowFormatted(),
	})
}

// setupAgentRoutes 采集端接口
// 整组走证书身份网关，TLS双向认证由前置反向代理完成
func (r *Router) setupAgentRoutes() {
	api := r.engine.Group("/api")
	api.Use(r.middlewareManager.GinAgentCertMiddleware())
	{
		api.GET("/ping", r.agentAPIHandler.Ping)
		api.POST("/index/host", r.agentAPIHandler.IndexHost)
		api.POST("/index/web", r.agentAPIHandler.IndexWeb)
		api.PUT("/index/feed", r.agentAPIHandler.Feed)
		api.GET("/apps", r.agentAPIHandler.Apps)
	}
}

// setupPortalRoutes 运营端接口
func (r *Router) setupPortalRoutes() {
	portalGroup := r.engine.Group("/portal")

	// 登录不需要认证
	portalGroup.POST("/login", r.portalHandler.Login)

	// 其余接口需要运营人员JWT
	authed := portalGroup.Group("")
	authed.Use(r.middlewareManager.GinStaffAuthMiddleware())
	{
		authed.GET("/search/home", r.portalHandler.SearchHome)
		authed.GET("/search", r.portalHandler.Search)
		authed.GET("/export", r.portalHandler.Export)
		authed.GET("/host/:ip", r.portalHandler.HostDetail)
		authed.GET("/web/:domain", r.portalHandler.WebDetail)
		authed.GET("/alerts", r.portalHandler.Alerts)

		authed.GET("/agents", r.portalHandler.ListAgents)
		authed.POST("/agents", r.portalHandler.RegisterAgent)
		authed.GET("/agents/:uid", r.portalHandler.GetAgent)
		authed.DELETE("/agents/:uid", r.portalHandler.DeleteAgent)
		authed.GET("/agents/:uid/credentials", r.portalHandler.AgentCredentials)
	}
}
