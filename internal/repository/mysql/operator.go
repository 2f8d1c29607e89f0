/**
 * 操作员仓库层:运营人员数据访问
 * @author: sun977
 * @date: 2025.08.29
 * @description: 运营端登录账号的数据访问
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package mysql

import (
	"context"

	"gorm.io/gorm"

	"neohq/internal/model/system"
)

// OperatorRepository 操作员仓库接口定义
type OperatorRepository interface {
	Create(ctx context.Context, operator *system.Operator) error
	GetByUsername(ctx context.Context, username string) (*system.Operator, error)
	GetByID(ctx context.Context, id uint64) (*system.Operator, error)
}

// operatorRepository 操作员仓库实现
type operatorRepository struct {
	db *gorm.DB // 数据库连接
}

// NewOperatorRepository 创建操作员仓库实例
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepository{
		db: db,
	}
}

// Create 创建操作员
func (r *operatorRepository) Create(ctx context.Context, operator *system.Operator) error {
	return r.db.WithContext(ctx).Create(operator).Error
}

// GetByUsername 根据用户名获取操作员
func (r *operatorRepository) GetByUsername(ctx context.Context, username string) (*system.Operator, error) {
	var operator system.Operator
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&operator).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // 返回 nil 而不是错误，让业务层处理
		}
		return nil, err
	}
	return &operator, nil
}

// GetByID 根据ID获取操作员
func (r *operatorRepository) GetByID(ctx context.Context, id uint64) (*system.Operator, error) {
	var operator system.Operator
	err := r.db.WithContext(ctx).First(&operator, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}
