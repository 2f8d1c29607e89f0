/**
 * 线索仓库层:敏感内容线索数据访问
 * @author: sun977
 * @date: 2025.08.29
 * @description: 敏感内容线索的写入与分页查询
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package mysql

import (
	"context"

	"gorm.io/gorm"

	"neohq/internal/model/inventory"
)

// AlertRepository 线索仓库接口定义
type AlertRepository interface {
	Create(ctx context.Context, alert *inventory.Alert) error
	List(ctx context.Context, offset, limit int) ([]*inventory.Alert, int64, error)
}

// alertRepository 线索仓库实现
type alertRepository struct {
	db *gorm.DB // 数据库连接
}

// NewAlertRepository 创建线索仓库实例
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		db: db,
	}
}

// Create 写入一条线索
// URL唯一索引冲突由调用方通过 gorm.ErrDuplicatedKey 识别
func (r *alertRepository) Create(ctx context.Context, alert *inventory.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// List 按时间倒序分页获取线索
func (r *alertRepository) List(ctx context.Context, offset, limit int) ([]*inventory.Alert, int64, error) {
	db := r.db.WithContext(ctx).Model(&inventory.Alert{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []*inventory.Alert
	err := db.Order("timestamp DESC").Offset(offset).Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}
