/**
 * 资产仓库层:指纹与站点数据访问
 * @author: sun977
 * @date: 2025.08.29
 * @description: 主机指纹、站点记录的批量写入与检索
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"neohq/internal/model/inventory"
)

// HostSearchQuery 主机检索条件
// Filters 的键必须是白名单内的列名，由业务层保证
type HostSearchQuery struct {
	Filters map[string]string // 列名 -> 精确匹配值(忽略大小写)
	Keyword string            // 全文检索关键词，空则跳过
	Offset  int
	Limit   int // 0 表示不分页，导出用
}

// WebSearchQuery 站点检索条件
type WebSearchQuery struct {
	Filters map[string]string // 列名 -> 精确匹配值，app/ver 通过子查询处理
	AppName string            // 应用名过滤
	AppVer  string            // 应用版本过滤
	Keyword string
	Offset  int
	Limit   int
}

// InventoryRepository 资产仓库接口定义
type InventoryRepository interface {
	CreateFingerprints(ctx context.Context, records []*inventory.Fingerprint) error
	CreateWebsites(ctx context.Context, records []*inventory.Website) error

	SearchHosts(ctx context.Context, query *HostSearchQuery) ([]*inventory.Fingerprint, int64, error)
	SearchWebsites(ctx context.Context, query *WebSearchQuery) ([]*inventory.Website, int64, error)

	LatestFingerprintsByIP(ctx context.Context, ip string) ([]*inventory.Fingerprint, error)
	LatestWebsitesByDomain(ctx context.Context, domain string) ([]*inventory.Website, error)

	DistinctProducts(ctx context.Context) ([]string, error)
	DistinctAppNames(ctx context.Context) ([]string, error)
	DistinctHostValues(ctx context.Context, column string) ([]string, error)
}

// inventoryRepository 资产仓库实现
type inventoryRepository struct {
	db *gorm.DB // 数据库连接
}

// NewInventoryRepository 创建资产仓库实例
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{
		db: db,
	}
}

// CreateFingerprints 批量写入主机指纹，整批一个事务
func (r *inventoryRepository) CreateFingerprints(ctx context.Context, records []*inventory.Fingerprint) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateWebsites 批量写入站点记录，整批一个事务
// Apps 关联随站点记录一并写入
func (r *inventoryRepository) CreateWebsites(ctx context.Context, records []*inventory.Website) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SearchHosts 检索主机快照
// 过滤条件为忽略大小写的精确匹配，关键词走全文索引。
// 先过滤再折叠:每个IP取命中过滤条件的最新一行(记录只增不改，自增ID最大即最新)，
// 最新行不命中但历史行命中的IP依然出现在结果里
func (r *inventoryRepository) SearchHosts(ctx context.Context, query *HostSearchQuery) ([]*inventory.Fingerprint, int64, error) {
	matched := r.db.WithContext(ctx).Session(&gorm.Session{NewDB: true}).
		Model(&inventory.Fingerprint{}).
		Select("MAX(id)").
		Group("ip")
	for column, value := range query.Filters {
		matched = matched.Where(fmt.Sprintf("LOWER(%s) = LOWER(?)", column), value)
	}
	if query.Keyword != "" {
		matched = matched.Where("MATCH(search_index) AGAINST (? IN NATURAL LANGUAGE MODE)", query.Keyword)
	}

	db := r.db.WithContext(ctx).Model(&inventory.Fingerprint{}).Where("id IN (?)", matched)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("ip ASC")
	if query.Limit > 0 {
		db = db.Offset(query.Offset).Limit(query.Limit)
	}

	var records []*inventory.Fingerprint
	if err := db.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SearchWebsites 检索站点记录
// app/ver 过滤通过 apps 子表的 EXISTS 子查询实现。
// 站点主题不做快照折叠，命中的历史行全部返回
func (r *inventoryRepository) SearchWebsites(ctx context.Context, query *WebSearchQuery) ([]*inventory.Website, int64, error) {
	db := r.db.WithContext(ctx).Model(&inventory.Website{})

	for column, value := range query.Filters {
		db = db.Where(fmt.Sprintf("LOWER(%s) = LOWER(?)", column), value)
	}
	if query.AppName != "" && query.AppVer != "" {
		db = db.Where("EXISTS (SELECT 1 FROM apps WHERE apps.website_id = websites.id AND LOWER(apps.app) = LOWER(?) AND LOWER(apps.ver) = LOWER(?))",
			query.AppName, query.AppVer)
	} else if query.AppName != "" {
		db = db.Where("EXISTS (SELECT 1 FROM apps WHERE apps.website_id = websites.id AND LOWER(apps.app) = LOWER(?))",
			query.AppName)
	} else if query.AppVer != "" {
		db = db.Where("EXISTS (SELECT 1 FROM apps WHERE apps.website_id = websites.id AND LOWER(apps.ver) = LOWER(?))",
			query.AppVer)
	}
	if query.Keyword != "" {
		db = db.Where("MATCH(search_index) AGAINST (? IN NATURAL LANGUAGE MODE)", query.Keyword)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("domain ASC").Preload("Apps")
	if query.Limit > 0 {
		db = db.Offset(query.Offset).Limit(query.Limit)
	}

	var records []*inventory.Website
	if err := db.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// LatestFingerprintsByIP 获取指定IP每个端口的最新指纹
func (r *inventoryRepository) LatestFingerprintsByIP(ctx context.Context, ip string) ([]*inventory.Fingerprint, error) {
	var records []*inventory.Fingerprint
	err := r.db.WithContext(ctx).
		Where("ip = ?", ip).
		Where("id IN (?)",
			r.db.Session(&gorm.Session{NewDB: true}).
				Model(&inventory.Fingerprint{}).
				Select("MAX(id)").
				Where("ip = ?", ip).
				Group("port")).
		Order("port ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LatestWebsitesByDomain 获取指定域名每个URL的最新站点记录
func (r *inventoryRepository) LatestWebsitesByDomain(ctx context.Context, domain string) ([]*inventory.Website, error) {
	var records []*inventory.Website
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Where("id IN (?)",
			r.db.Session(&gorm.Session{NewDB: true}).
				Model(&inventory.Website{}).
				Select("MAX(id)").
				Where("domain = ?", domain).
				Group("url")).
		Order("url ASC").
		Preload("Apps").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DistinctProducts 获取指纹表中出现过的全部产品名
func (r *inventoryRepository) DistinctProducts(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&inventory.Fingerprint{}).
		Where("product <> ''").
		Distinct().
		Order("product ASC").
		Pluck("product", &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}

// DistinctAppNames 获取站点组件表中出现过的全部应用名
func (r *inventoryRepository) DistinctAppNames(ctx context.Context) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&inventory.App{}).
		Where("app <> ''").
		Distinct().
		Order("app ASC").
		Pluck("app", &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}

// DistinctHostValues 获取指纹表指定列的去重取值，检索首页聚合用
// column 必须来自业务层白名单
func (r *inventoryRepository) DistinctHostValues(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&inventory.Fingerprint{}).
		Where(fmt.Sprintf("%s <> ''", column)).
		Distinct().
		Order(fmt.Sprintf("%s ASC", column)).
		Pluck(column, &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}
