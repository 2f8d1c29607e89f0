/**
 * 采集端接口层:上报接口
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端通过反向代理双向认证后访问的上报与拉取接口
 * @func: Ping 连通性探测；IndexHost/IndexWeb 批量上报；Feed 线索上报；Apps 应用清单
 *
 * 这组接口的响应结构是采集端协议的一部分，保持扁平JSON，不套通用APIResponse
 */
package agentapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neohq/internal/pkg/utils"
	"neohq/internal/service/ingest"
)

// Handler 采集端接口处理器
type Handler struct {
	ingestService *ingest.Service
}

// NewHandler 创建采集端接口处理器实例
func NewHandler(ingestService *ingest.Service) *Handler {
	return &Handler{
		ingestService: ingestService,
	}
}

// Ping 连通性探测
// 回显请求头给采集端排查代理链路用
func (h *Handler) Ping(c *gin.Context) {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		headers[key] = strings.Join(values, ", ")
	}

	c.JSON(http.StatusOK, gin.H{
		"headers": headers,
		"pong":    "You know, for indexing",
	})
}

// readBody 读取请求体
func readBody(c *gin.Context) ([]byte, error) {
	defer c.Request.Body.Close()
	return io.ReadAll(c.Request.Body)
}

// respondIngest 按入库错误分类回包
// 坏JSON是400，结构非法是200加fail状态，这两档采集端处理方式不同
func respondIngest(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, ingest.ErrMalformedPayload):
		c.String(http.StatusBadRequest, "malformed payload")
	case errors.Is(err, ingest.ErrInvalidInput):
		c.JSON(http.StatusOK, gin.H{"status": "fail", "reason": "invalid input"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "fail", "reason": "internal error"})
	}
}

// IndexHost 主机指纹批量上报
func (h *Handler) IndexHost(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	_, err = h.ingestService.IngestHosts(c.Request.Context(), payload, utils.GetClientIP(c))
	respondIngest(c, err)
}

// IndexWeb 站点记录批量上报
func (h *Handler) IndexWeb(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	_, err = h.ingestService.IngestWebsites(c.Request.Context(), payload, utils.GetClientIP(c))
	respondIngest(c, err)
}

// Feed 敏感内容线索上报
// URL重复的上报在服务层吞掉，这里照常返回ok
func (h *Handler) Feed(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	respondIngest(c, h.ingestService.Feed(c.Request.Context(), payload, utils.GetClientIP(c)))
}

// Apps 采集端拉取应用/产品清单
func (h *Handler) Apps(c *gin.Context) {
	apps, err := h.ingestService.ListApps(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "fail", "reason": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}
