/**
 * 运营端接口层:检索与管理接口
 * @author: sun977
 * @date: 2025.08.29
 * @description: 内部运营人员使用的检索、导出、线索和采集端管理接口
 * @func: Login 登录；Search/Export 检索导出；HostDetail/WebDetail 详情；Alerts 线索；Agent管理
 */
package portal

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"neohq/internal/model/system"
	"neohq/internal/pkg/logger"
	"neohq/internal/pkg/utils"
	agentservice "neohq/internal/service/agent"
	authservice "neohq/internal/service/auth"
	searchservice "neohq/internal/service/search"
)

// Handler 运营端接口处理器
type Handler struct {
	sessionService *authservice.SessionService
	searchService  *searchservice.Service
	registry       *agentservice.RegistryService
}

// NewHandler 创建运营端接口处理器实例
func NewHandler(sessionService *authservice.SessionService, searchService *searchservice.Service, registry *agentservice.RegistryService) *Handler {
	return &Handler{
		sessionService: sessionService,
		searchService:  searchService,
		registry:       registry,
	}
}

// LoginRequest 登录请求结构
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 运营人员登录
func (h *Handler) Login(c *gin.Context) {
	clientIP := utils.GetClientIP(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	resp, err := h.sessionService.Login(c.Request.Context(), req.Username, req.Password, clientIP)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, system.ErrInvalidCredentials) && !errors.Is(err, system.ErrOperatorDisabled) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, system.APIResponse{
			Code:    status,
			Status:  "failed",
			Message: "Login failed",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Login successful",
		Data:    resp,
	})
}

// Search 资产检索
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Query is required",
		})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), query, c.Query("t"), c.Query("page"))
	if err != nil {
		if errors.Is(err, searchservice.ErrNoUsableQuery) {
			c.JSON(http.StatusBadRequest, system.APIResponse{
				Code:    http.StatusBadRequest,
				Status:  "failed",
				Message: "No usable query",
			})
			return
		}
		h.internalError(c, err, "search")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   result,
	})
}

// Export 检索结果导出CSV
func (h *Handler) Export(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Query is required",
		})
		return
	}

	result, err := h.searchService.Export(c.Request.Context(), query, c.Query("t"))
	if err != nil {
		if errors.Is(err, searchservice.ErrNoUsableQuery) {
			c.JSON(http.StatusBadRequest, system.APIResponse{
				Code:    http.StatusBadRequest,
				Status:  "failed",
				Message: "No usable query",
			})
			return
		}
		h.internalError(c, err, "export")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="export.csv"`)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if result.Topic == searchservice.TopicWeb {
		_ = writer.Write([]string{"url", "title"})
		for _, site := range result.Websites {
			_ = writer.Write([]string{site.URL, site.Title})
		}
	} else {
		_ = writer.Write([]string{"ip", "port", "service", "product", "version", "os"})
		for _, host := range result.Hosts {
			_ = writer.Write([]string{
				host.IP,
				strconv.Itoa(host.Port),
				host.Service,
				host.Product,
				host.Version,
				host.OS,
			})
		}
	}
}

// SearchHome 检索首页的字段取值聚合
func (h *Handler) SearchHome(c *gin.Context) {
	data, err := h.searchService.Home(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "search_home")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   data,
	})
}

// HostDetail 主机详情，每个端口的最新指纹
func (h *Handler) HostDetail(c *gin.Context) {
	ip := c.Param("ip")
	if !utils.IsValidIP(ip) {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid IP address",
		})
		return
	}

	ports, err := h.searchService.HostDetail(c.Request.Context(), ip)
	if err != nil {
		if errors.Is(err, searchservice.ErrNotFound) {
			c.JSON(http.StatusNotFound, system.APIResponse{
				Code:    http.StatusNotFound,
				Status:  "failed",
				Message: "Host not found",
			})
			return
		}
		h.internalError(c, err, "host_detail")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data: gin.H{
			"ip":    ip,
			"ports": ports,
		},
	})
}

// WebDetail 站点详情，每个URL的最新记录
func (h *Handler) WebDetail(c *gin.Context) {
	domain := c.Param("domain")

	pages, err := h.searchService.WebDetail(c.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, searchservice.ErrNotFound) {
			c.JSON(http.StatusNotFound, system.APIResponse{
				Code:    http.StatusNotFound,
				Status:  "failed",
				Message: "Domain not found",
			})
			return
		}
		h.internalError(c, err, "web_detail")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data: gin.H{
			"domain": domain,
			"pages":  pages,
		},
	})
}

// Alerts 敏感线索分页列表
func (h *Handler) Alerts(c *gin.Context) {
	alerts, total, page, pages, err := h.searchService.Alerts(c.Request.Context(), c.Query("page"))
	if err != nil {
		h.internalError(c, err, "alerts")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data: system.PaginationResponse{
			Total:       total,
			Page:        page,
			PageSize:    h.searchService.AlertPageSize(),
			TotalPages:  pages,
			HasNext:     page < pages,
			HasPrevious: page > 1,
			Data:        alerts,
		},
	})
}

// RegisterAgentRequest 采集端注册请求结构
type RegisterAgentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// RegisterAgent 注册新采集端
func (h *Handler) RegisterAgent(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, system.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	agent, err := h.registry.Register(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, system.ErrAgentNameRequired) {
			c.JSON(http.StatusBadRequest, system.APIResponse{
				Code:    http.StatusBadRequest,
				Status:  "failed",
				Message: "Agent name is required",
			})
			return
		}
		h.internalError(c, err, "register_agent")
		return
	}

	c.JSON(http.StatusCreated, system.APIResponse{
		Code:    http.StatusCreated,
		Status:  "success",
		Message: "Agent registered",
		Data:    agent,
	})
}

// ListAgents 采集端列表
func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "list_agents")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   gin.H{"agents": agents},
	})
}

// GetAgent 采集端详情
func (h *Handler) GetAgent(c *gin.Context) {
	agent, err := h.registry.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, system.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, system.APIResponse{
				Code:    http.StatusNotFound,
				Status:  "failed",
				Message: "Agent not found",
			})
			return
		}
		h.internalError(c, err, "get_agent")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   agent,
	})
}

// DeleteAgent 注销采集端
func (h *Handler) DeleteAgent(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("uid")); err != nil {
		if errors.Is(err, system.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, system.APIResponse{
				Code:    http.StatusNotFound,
				Status:  "failed",
				Message: "Agent not found",
			})
			return
		}
		h.internalError(c, err, "delete_agent")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Agent deleted",
	})
}

// AgentCredentials 下载采集端证书材料
// 证书在注册时已签发，这里只读取下发
func (h *Handler) AgentCredentials(c *gin.Context) {
	pair, err := h.registry.EnsureCertificate(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, system.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, system.APIResponse{
				Code:    http.StatusNotFound,
				Status:  "failed",
				Message: "Agent not found",
			})
			return
		}
		h.internalError(c, err, "agent_credentials")
		return
	}

	c.JSON(http.StatusOK, system.APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data: gin.H{
			"certificate": pair.CertPEM,
			"private_key": pair.KeyPEM,
		},
	})
}

// internalError 统一的500回包
func (h *Handler) internalError(c *gin.Context, err error, operation string) {
	logger.LogError(err, utils.GetClientIP(c), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
		"operation": operation,
	})
	c.JSON(http.StatusInternalServerError, system.APIResponse{
		Code:    http.StatusInternalServerError,
		Status:  "failed",
		Message: "Internal server error",
	})
}
