/**
 * 入库服务层:采集数据入库
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端上报数据的严格解码、规整和批量入库业务逻辑
 * @func: IngestHosts 主机指纹入库；IngestWebsites 站点记录入库；Feed 敏感线索入库；ListApps 应用清单
 */
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"neohq/internal/model/inventory"
	"neohq/internal/pkg/logger"
	"neohq/internal/repository/mysql"
	redisrepo "neohq/internal/repository/redis"
)

// 入库错误分类
// ErrMalformedPayload 是字节流层面的坏JSON，ErrInvalidInput 是结构层面的非法输入
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrInvalidInput     = errors.New("invalid input")
)

// HostRecord 主机指纹上报记录
// 字段集合固定，出现未知键整批拒绝
type HostRecord struct {
	IP          string                 `json:"ip"`
	Port        int                    `json:"port"`
	Service     string                 `json:"service"`
	OS          string                 `json:"os"`
	Info        string                 `json:"info"`
	Product     string                 `json:"product"`
	Hostname    string                 `json:"hostname"`
	Device      string                 `json:"device"`
	Version     string                 `json:"version"`
	CPEs        []string               `json:"cpes"`
	Certificate map[string]interface{} `json:"certificate"`
	Banner      string                 `json:"banner"`
	Raw         string                 `json:"raw"`
}

// AppDetail 站点组件识别明细
type AppDetail struct {
	Version  string   `json:"version"`
	Versions []string `json:"versions"`
}

// WebRecord 站点抓取上报记录
type WebRecord struct {
	Domain    string                 `json:"domain"`
	IP        string                 `json:"ip"`
	Port      int                    `json:"port"`
	URL       string                 `json:"url"`
	Headers   map[string]interface{} `json:"headers"`
	HTML      string                 `json:"html"`
	Title     string                 `json:"title"`
	RawHeader string                 `json:"rawHeader"`
	Apps      []string               `json:"apps"`
	Detail    map[string]AppDetail   `json:"detail"`
}

// AlertRecord 敏感内容线索上报记录
type AlertRecord struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"timestamp"`
	Keywords    []string  `json:"keywords"`
	Highlighted bool      `json:"highlighted"`
}

// Service 入库服务
type Service struct {
	inventoryRepo mysql.InventoryRepository
	alertRepo     mysql.AlertRepository
	appsCache     *redisrepo.AppsCacheRepository
}

// NewService 创建入库服务实例
func NewService(inventoryRepo mysql.InventoryRepository, alertRepo mysql.AlertRepository, appsCache *redisrepo.AppsCacheRepository) *Service {
	return &Service{
		inventoryRepo: inventoryRepo,
		alertRepo:     alertRepo,
		appsCache:     appsCache,
	}
}

// decodeBatch 解码上报批次的外层数组
// 字节流层面的坏JSON和结构层面的非数组/空数组分开报告
func decodeBatch(payload []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, ErrMalformedPayload
		}
		return nil, ErrInvalidInput
	}
	if len(records) == 0 {
		return nil, ErrInvalidInput
	}
	return records, nil
}

// decodeStrict 严格解码单条记录，未知键直接报错
func decodeStrict(raw json.RawMessage, out interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return ErrInvalidInput
	}
	return nil
}

// IngestHosts 主机指纹批量入库
// 任一记录不合法整批拒绝，合法批次在一个事务内写入
func (s *Service) IngestHosts(ctx context.Context, payload []byte, clientIP string) (int, error) {
	rawRecords, err := decodeBatch(payload)
	if err != nil {
		return 0, err
	}

	fingerprints := make([]*inventory.Fingerprint, 0, len(rawRecords))
	for _, raw := range rawRecords {
		var record HostRecord
		if err := decodeStrict(raw, &record); err != nil {
			return 0, err
		}
		if record.IP == "" {
			return 0, ErrInvalidInput
		}

		fingerprint := &inventory.Fingerprint{
			IP:          record.IP,
			Port:        record.Port,
			Service:     record.Service,
			OS:          record.OS,
			Info:        record.Info,
			Product:     record.Product,
			Hostname:    record.Hostname,
			Device:      record.Device,
			Version:     record.Version,
			CPEs:        inventory.StringSlice(record.CPEs),
			Certificate: inventory.JSONMap(record.Certificate),
			Banner:      record.Banner,
			Raw:         record.Raw,
		}
		fingerprint.BuildSearchIndex()
		fingerprints = append(fingerprints, fingerprint)
	}

	if err := s.inventoryRepo.CreateFingerprints(ctx, fingerprints); err != nil {
		logger.LogError(err, clientIP, "/api/index/host", "PUT", map[string]interface{}{
			"operation": "ingest_hosts",
			"count":     len(fingerprints),
		})
		return 0, fmt.Errorf("failed to store fingerprints: %w", err)
	}

	logger.LogBusinessOperation("ingest_hosts", "", clientIP, "success", "主机指纹批次入库", map[string]interface{}{
		"count": len(fingerprints),
	})
	return len(fingerprints), nil
}

// IngestWebsites 站点记录批量入库
// 组件rows随站点一并写入，标题为空回落为URL
func (s *Service) IngestWebsites(ctx context.Context, payload []byte, clientIP string) (int, error) {
	rawRecords, err := decodeBatch(payload)
	if err != nil {
		return 0, err
	}

	websites := make([]*inventory.Website, 0, len(rawRecords))
	for _, raw := range rawRecords {
		var record WebRecord
		if err := decodeStrict(raw, &record); err != nil {
			return 0, err
		}
		if record.URL == "" || record.Domain == "" {
			return 0, ErrInvalidInput
		}

		title := record.Title
		if title == "" {
			title = record.URL
		}

		detailJSON := "{}"
		if record.Detail != nil {
			if data, err := json.Marshal(record.Detail); err == nil {
				detailJSON = string(data)
			}
		}

		website := &inventory.Website{
			Domain:    record.Domain,
			IP:        record.IP,
			Port:      record.Port,
			URL:       record.URL,
			Headers:   inventory.JSONMap(record.Headers),
			HTML:      record.HTML,
			Title:     title,
			RawHeader: record.RawHeader,
			Detail:    detailJSON,
			AppJoint:  strings.Join(record.Apps, "/"),
			Apps:      buildApps(record.Detail),
		}
		website.BuildSearchIndex(record.RawHeader)
		websites = append(websites, website)
	}

	if err := s.inventoryRepo.CreateWebsites(ctx, websites); err != nil {
		logger.LogError(err, clientIP, "/api/index/web", "PUT", map[string]interface{}{
			"operation": "ingest_websites",
			"count":     len(websites),
		})
		return 0, fmt.Errorf("failed to store websites: %w", err)
	}

	logger.LogBusinessOperation("ingest_websites", "", clientIP, "success", "站点记录批次入库", map[string]interface{}{
		"count": len(websites),
	})
	return len(websites), nil
}

// buildApps 根据识别明细构建组件rows
// 组件rows以 detail 为准，apps 列表只参与拼接展示串
func buildApps(detail map[string]AppDetail) []inventory.App {
	names := make([]string, 0, len(detail))
	for name := range detail {
		names = append(names, name)
	}
	sort.Strings(names)

	apps := make([]inventory.App, 0, len(names))
	for _, name := range names {
		d := detail[name]
		apps = append(apps, inventory.App{
			Name:     name,
			Ver:      d.Version,
			Versions: inventory.StringSlice(d.Versions),
		})
	}
	return apps
}

// Feed 敏感内容线索入库
// URL已存在的重复上报静默吞掉，对采集端仍然返回成功
func (s *Service) Feed(ctx context.Context, payload []byte, clientIP string) error {
	var record AlertRecord
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&record); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return ErrMalformedPayload
		}
		return ErrInvalidInput
	}
	if record.URL == "" {
		return ErrInvalidInput
	}

	// 来源未带通告时间时以入库时间兜底
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	alert := &inventory.Alert{
		Title:       record.Title,
		Content:     record.Content,
		Source:      record.Source,
		URL:         record.URL,
		Timestamp:   record.Timestamp,
		Keywords:    inventory.StringSlice(record.Keywords),
		Highlighted: record.Highlighted,
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.LogBusinessOperation("feed_alert", record.URL, clientIP, "skipped", "线索URL已存在", nil)
			return nil
		}
		logger.LogError(err, clientIP, "/api/index/feed", "PUT", map[string]interface{}{
			"operation": "feed_alert",
			"url":       record.URL,
		})
		return fmt.Errorf("failed to store alert: %w", err)
	}

	logger.LogBusinessOperation("feed_alert", record.URL, clientIP, "success", "敏感线索入库", nil)
	return nil
}

// ListApps 获取采集端需要的应用/产品清单
// 优先读Redis缓存，缓存不可用时直接回源MySQL
func (s *Service) ListApps(ctx context.Context) ([]string, error) {
	if s.appsCache != nil {
		apps, hit, err := s.appsCache.Get(ctx)
		if err != nil {
			logger.LogError(err, "", "/api/apps", "GET", map[string]interface{}{
				"operation": "apps_cache_get",
			})
		} else if hit {
			return apps, nil
		}
	}

	products, err := s.inventoryRepo.DistinctProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	appNames, err := s.inventoryRepo.DistinctAppNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list app names: %w", err)
	}

	// 合并去重
	seen := make(map[string]struct{}, len(products)+len(appNames))
	merged := make([]string, 0, len(products)+len(appNames))
	for _, name := range append(products, appNames...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	sort.Strings(merged)

	if s.appsCache != nil {
		if err := s.appsCache.Set(ctx, merged); err != nil {
			logger.LogError(err, "", "/api/apps", "GET", map[string]interface{}{
				"operation": "apps_cache_set",
			})
		}
	}
	return merged, nil
}
