/**
 * Agent仓库层:采集端数据访问
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端注册信息与证书材料的数据访问
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package mysql

import (
	"context"

	"gorm.io/gorm"

	agentModel "neohq/internal/model/agent"
	"neohq/internal/pkg/logger"
)

// AgentRepository Agent仓库接口定义
type AgentRepository interface {
	Create(ctx context.Context, agent *agentModel.Agent) error
	GetByUID(ctx context.Context, uid string) (*agentModel.Agent, error)
	GetByID(ctx context.Context, id uint64) (*agentModel.Agent, error)
	List(ctx context.Context) ([]*agentModel.Agent, error)
	StoreCertificate(ctx context.Context, uid, certPEM, keyPEM string) (bool, error)
	Delete(ctx context.Context, uid string) (bool, error)
}

// agentRepository Agent仓库实现
type agentRepository struct {
	db *gorm.DB // 数据库连接
}

// NewAgentRepository 创建Agent仓库实例
// 注入数据库连接，专注于数据访问操作
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{
		db: db,
	}
}

// Create 创建采集端记录
// uid唯一索引冲突由调用方通过 gorm.ErrDuplicatedKey 识别处理
func (r *agentRepository) Create(ctx context.Context, agent *agentModel.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

// GetByUID 根据UID获取采集端
func (r *agentRepository) GetByUID(ctx context.Context, uid string) (*agentModel.Agent, error) {
	var agent agentModel.Agent
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&agent).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // 返回 nil 而不是错误，让业务层处理
		}
		logger.LogError(err, "", "", "", map[string]interface{}{
			"operation": "get_agent_by_uid",
			"uid":       uid,
		})
		return nil, err
	}
	return &agent, nil
}

// GetByID 根据ID获取采集端
func (r *agentRepository) GetByID(ctx context.Context, id uint64) (*agentModel.Agent, error) {
	var agent agentModel.Agent
	err := r.db.WithContext(ctx).First(&agent, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

// StoreCertificate 写入采集端证书材料
// 条件更新只在证书列为空时生效，多实例并发签发时先写入者获胜
// 返回值表示本次调用是否写入成功
func (r *agentRepository) StoreCertificate(ctx context.Context, uid, certPEM, keyPEM string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&agentModel.Agent{}).
		Where("uid = ? AND x509_cert = ''", uid).
		Updates(map[string]interface{}{
			"x509_cert": certPEM,
			"x509_key":  keyPEM,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete 根据UID删除采集端
// 返回值表示是否确实删掉了记录
func (r *agentRepository) Delete(ctx context.Context, uid string) (bool, error) {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&agentModel.Agent{})
	if result.Error != nil {
		logger.LogError(result.Error, "", "", "", map[string]interface{}{
			"operation": "delete_agent",
			"uid":       uid,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 获取全部采集端，按创建时间倒序
func (r *agentRepository) List(ctx context.Context) ([]*agentModel.Agent, error) {
	var agents []*agentModel.Agent
	err := r.db.WithContext(ctx).Order("id DESC").Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}
