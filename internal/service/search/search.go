/**
 * 检索服务层:资产检索执行
 * @author: sun977
 * @date: 2025.08.29
 * @description: 主机/站点两个主题的检索、分页钳制、导出和聚合首页数据
 * @func: Search 分页检索；Export 全量导出；Home 检索首页聚合；HostDetail/WebDetail 详情快照
 */
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"neohq/internal/model/inventory"
	"neohq/internal/pkg/logger"
	"neohq/internal/repository/mysql"
)

// 检索主题
const (
	TopicHost = "host"
	TopicWeb  = "web"
)

// ErrNoUsableQuery 查询串里没有任何可用的过滤条件或自由词
var ErrNoUsableQuery = errors.New("no usable query")

// ErrNotFound 详情页找不到对应资产
var ErrNotFound = errors.New("not found")

// hostFilterFields 主机主题允许的过滤字段
var hostFilterFields = []string{"os", "port", "product", "service", "ip", "hostname", "device"}

// homeFields 检索首页聚合的指纹字段
var homeFields = []string{"port", "product", "os", "device", "service"}

// Result 一次检索的结果
type Result struct {
	Topic    string                   `json:"topic"`
	Query    string                   `json:"query"`
	Filters  map[string]string        `json:"filters"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	Pages    int                      `json:"pages"`
	Hosts    []*inventory.Fingerprint `json:"hosts,omitempty"`
	Websites []*inventory.Website     `json:"websites,omitempty"`
}

// Service 检索服务
type Service struct {
	inventoryRepo mysql.InventoryRepository
	alertRepo     mysql.AlertRepository
	pageSize      int
	alertPageSize int
}

// NewService 创建检索服务实例
func NewService(inventoryRepo mysql.InventoryRepository, alertRepo mysql.AlertRepository, pageSize, alertPageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	if alertPageSize <= 0 {
		alertPageSize = 10
	}
	return &Service{
		inventoryRepo: inventoryRepo,
		alertRepo:     alertRepo,
		pageSize:      pageSize,
		alertPageSize: alertPageSize,
	}
}

// NormalizeTopic 规整检索主题，未知主题回落为host
func NormalizeTopic(topic string) string {
	if topic != TopicHost && topic != TopicWeb {
		return TopicHost
	}
	return topic
}

// normalizePage 解析页码参数，非数字回落为第一页
func normalizePage(page string) int {
	n, err := strconv.Atoi(page)
	if err != nil {
		return 1
	}
	return n
}

// totalPages 计算总页数，至少一页
func totalPages(total int64, pageSize int) int {
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// buildQueries 把解析后的查询按主题拆成仓库层查询
// 返回展示用的已生效过滤集合，空集合表示查询串不可用
func buildQueries(parsed *ParsedQuery, topic string) (*mysql.HostSearchQuery, *mysql.WebSearchQuery, map[string]string) {
	applied := make(map[string]string)
	keyword := strings.Join(parsed.Terms, " ")

	if topic == TopicHost {
		query := &mysql.HostSearchQuery{Filters: make(map[string]string), Keyword: keyword}
		for _, field := range hostFilterFields {
			if value, ok := parsed.Fields[field]; ok {
				query.Filters[field] = value
				applied[field] = value
			}
		}
		if keyword != "" {
			applied["keyword"] = keyword
		}
		return query, nil, applied
	}

	query := &mysql.WebSearchQuery{Filters: make(map[string]string), Keyword: keyword}
	if value, ok := parsed.Fields["app"]; ok {
		query.AppName = value
		applied["app"] = value
	}
	if value, ok := parsed.Fields["ver"]; ok {
		query.AppVer = value
		applied["ver"] = value
	}
	if value, ok := parsed.Fields["ip"]; ok {
		query.Filters["ip"] = value
		applied["ip"] = value
	}
	if keyword != "" {
		applied["keyword"] = keyword
	}
	return nil, query, applied
}

// Search 执行分页检索
// 页码非数字回落为第一页，越界回落为最后一页
func (s *Service) Search(ctx context.Context, queryString, topic, page string) (*Result, error) {
	topic = NormalizeTopic(topic)

	parsed, err := ParseQuery(queryString)
	if err != nil {
		return nil, ErrNoUsableQuery
	}

	hostQuery, webQuery, applied := buildQueries(parsed, topic)
	if len(applied) == 0 {
		return nil, ErrNoUsableQuery
	}

	pageNum := normalizePage(page)
	if pageNum < 1 {
		pageNum = 1
	}

	result, err := s.fetchPage(ctx, topic, hostQuery, webQuery, pageNum)
	if err != nil {
		return nil, err
	}

	// 越界页码回落到最后一页重查
	if pageNum > result.Pages {
		result, err = s.fetchPage(ctx, topic, hostQuery, webQuery, result.Pages)
		if err != nil {
			return nil, err
		}
	}

	result.Query = queryString
	result.Filters = applied

	logger.LogBusinessOperation("search", topic, "", "success", "资产检索", map[string]interface{}{
		"query": queryString,
		"total": result.Total,
	})
	return result, nil
}

// fetchPage 取指定页的数据和总数
func (s *Service) fetchPage(ctx context.Context, topic string, hostQuery *mysql.HostSearchQuery, webQuery *mysql.WebSearchQuery, page int) (*Result, error) {
	offset := (page - 1) * s.pageSize
	result := &Result{Topic: topic, Page: page}

	if topic == TopicHost {
		hostQuery.Offset = offset
		hostQuery.Limit = s.pageSize
		hosts, total, err := s.inventoryRepo.SearchHosts(ctx, hostQuery)
		if err != nil {
			return nil, fmt.Errorf("host search failed: %w", err)
		}
		result.Hosts = hosts
		result.Total = total
	} else {
		webQuery.Offset = offset
		webQuery.Limit = s.pageSize
		websites, total, err := s.inventoryRepo.SearchWebsites(ctx, webQuery)
		if err != nil {
			return nil, fmt.Errorf("web search failed: %w", err)
		}
		result.Websites = websites
		result.Total = total
	}

	result.Pages = totalPages(result.Total, s.pageSize)
	return result, nil
}

// Export 全量导出检索结果，不分页
func (s *Service) Export(ctx context.Context, queryString, topic string) (*Result, error) {
	topic = NormalizeTopic(topic)

	parsed, err := ParseQuery(queryString)
	if err != nil {
		return nil, ErrNoUsableQuery
	}

	hostQuery, webQuery, applied := buildQueries(parsed, topic)
	if len(applied) == 0 {
		return nil, ErrNoUsableQuery
	}

	result := &Result{Topic: topic, Query: queryString, Filters: applied, Page: 1}
	if topic == TopicHost {
		hosts, total, err := s.inventoryRepo.SearchHosts(ctx, hostQuery)
		if err != nil {
			return nil, fmt.Errorf("host export failed: %w", err)
		}
		result.Hosts = hosts
		result.Total = total
	} else {
		websites, total, err := s.inventoryRepo.SearchWebsites(ctx, webQuery)
		if err != nil {
			return nil, fmt.Errorf("web export failed: %w", err)
		}
		result.Websites = websites
		result.Total = total
	}
	result.Pages = 1

	logger.LogBusinessOperation("export", topic, "", "success", "检索结果导出", map[string]interface{}{
		"query": queryString,
		"total": result.Total,
	})
	return result, nil
}

// HostDetail 主机详情快照，每个端口取最新指纹
func (s *Service) HostDetail(ctx context.Context, ip string) ([]*inventory.Fingerprint, error) {
	records, err := s.inventoryRepo.LatestFingerprintsByIP(ctx, ip)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// WebDetail 站点详情快照，每个URL取最新记录
func (s *Service) WebDetail(ctx context.Context, domain string) ([]*inventory.Website, error) {
	records, err := s.inventoryRepo.LatestWebsitesByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Home 检索首页的聚合数据，给常用过滤字段列出现有取值
func (s *Service) Home(ctx context.Context) (map[string][]string, error) {
	data := make(map[string][]string, len(homeFields)+1)
	for _, field := range homeFields {
		values, err := s.inventoryRepo.DistinctHostValues(ctx, field)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", field, err)
		}
		data[field+"s"] = values
	}

	webapps, err := s.inventoryRepo.DistinctAppNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate webapps: %w", err)
	}
	data["webapps"] = webapps

	return data, nil
}

// AlertPageSize 告警列表的分页大小
func (s *Service) AlertPageSize() int {
	return s.alertPageSize
}

// Alerts 敏感线索分页列表
func (s *Service) Alerts(ctx context.Context, page string) ([]*inventory.Alert, int64, int, int, error) {
	pageNum := normalizePage(page)
	if pageNum < 1 {
		pageNum = 1
	}

	_, total, err := s.alertRepo.List(ctx, 0, 1)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	pages := totalPages(total, s.alertPageSize)
	if pageNum > pages {
		pageNum = pages
	}

	alerts, total, err := s.alertRepo.List(ctx, (pageNum-1)*s.alertPageSize, s.alertPageSize)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return alerts, total, pageNum, pages, nil
}
