/**
 * Agent服务层:采集端注册与证书管理
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端的注册、证书签发和身份解析业务逻辑
 * @func: Register 注册采集端并同步签发证书；EnsureCertificate 获取证书材料；ResolveByCN 按证书CN解析身份；Delete 注销
 */
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	agentModel "neohq/internal/model/agent"
	"neohq/internal/model/system"
	"neohq/internal/pkg/ca"
	"neohq/internal/pkg/logger"
	"neohq/internal/repository/mysql"
)

// CertIssuer 证书签发接口
// 生产环境由本地CA实现
type CertIssuer interface {
	Issue(uid uuid.UUID) (*ca.IssuedPair, error)
}

// RegistryService 采集端注册服务
type RegistryService struct {
	agentRepo mysql.AgentRepository
	issuer    CertIssuer
}

// NewRegistryService 创建采集端注册服务实例
func NewRegistryService(agentRepo mysql.AgentRepository, issuer CertIssuer) *RegistryService {
	return &RegistryService{
		agentRepo: agentRepo,
		issuer:    issuer,
	}
}

// Register 注册新采集端
// 签发证书对后连同身份一并落库，调用方看不到无证书的中间态
func (s *RegistryService) Register(ctx context.Context, name, description string) (*agentModel.Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, system.ErrAgentNameRequired
	}

	uid := uuid.New()
	pair, err := s.issuer.Issue(uid)
	if err != nil {
		logger.LogError(err, "", "", "", map[string]interface{}{
			"operation": "issue_certificate",
			"name":      name,
		})
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}

	agent := &agentModel.Agent{
		UID:         agentModel.FormatUID(uid),
		Name:        name,
		Description: description,
		X509Cert:    pair.CertPEM,
		X509Key:     pair.KeyPEM,
	}

	if err := s.agentRepo.Create(ctx, agent); err != nil {
		logger.LogError(err, "", "", "", map[string]interface{}{
			"operation": "register_agent",
			"name":      name,
		})
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}

	logger.LogBusinessOperation("register_agent", agent.UID, "", "success", "采集端注册成功", map[string]interface{}{
		"name": name,
	})
	return agent, nil
}

// EnsureCertificate 获取采集端的证书材料
// 注册时已签发，这里通常直接返回库里的一份；历史上无证书的行走补签路径，
// 多实例并发补签时条件更新先写入者获胜，落败方丢弃自己签的一份改用库里的
func (s *RegistryService) EnsureCertificate(ctx context.Context, uid string) (*ca.IssuedPair, error) {
	agent, err := s.agentRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, system.ErrAgentNotFound
	}
	if agent.HasCertificate() {
		return &ca.IssuedPair{CertPEM: agent.X509Cert, KeyPEM: agent.X509Key}, nil
	}

	parsed, err := agentModel.ParseUID(agent.UID)
	if err != nil {
		return nil, fmt.Errorf("invalid agent uid %q: %w", agent.UID, err)
	}

	pair, err := s.issuer.Issue(parsed)
	if err != nil {
		logger.LogError(err, "", "", "", map[string]interface{}{
			"operation": "issue_certificate",
			"uid":       uid,
		})
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}

	won, err := s.agentRepo.StoreCertificate(ctx, agent.UID, pair.CertPEM, pair.KeyPEM)
	if err != nil {
		return nil, err
	}
	if !won {
		// 并发签发落败，读取已落库的一份
		stored, err := s.agentRepo.GetByUID(ctx, uid)
		if err != nil {
			return nil, err
		}
		if stored == nil || !stored.HasCertificate() {
			return nil, fmt.Errorf("certificate race lost but no stored certificate for %s", uid)
		}
		return &ca.IssuedPair{CertPEM: stored.X509Cert, KeyPEM: stored.X509Key}, nil
	}

	logger.LogBusinessOperation("issue_certificate", uid, "", "success", "采集端证书签发成功", nil)
	return pair, nil
}

// ResolveByCN 根据证书CN解析采集端身份
// CN必须是已注册UID的32位十六进制形式，解析失败或未注册均视为身份无效
func (s *RegistryService) ResolveByCN(ctx context.Context, cn string) (*agentModel.Agent, error) {
	parsed, err := agentModel.ParseUID(cn)
	if err != nil {
		return nil, system.ErrAgentNotFound
	}

	agent, err := s.agentRepo.GetByUID(ctx, agentModel.FormatUID(parsed))
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, system.ErrAgentNotFound
	}
	return agent, nil
}

// Get 获取采集端详情
func (s *RegistryService) Get(ctx context.Context, uid string) (*agentModel.Agent, error) {
	agent, err := s.agentRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, system.ErrAgentNotFound
	}
	return agent, nil
}

// List 获取全部采集端
func (s *RegistryService) List(ctx context.Context) ([]*agentModel.Agent, error) {
	return s.agentRepo.List(ctx)
}

// Delete 注销采集端
// 删除后该UID对应的证书立即失去访问资格
func (s *RegistryService) Delete(ctx context.Context, uid string) error {
	deleted, err := s.agentRepo.Delete(ctx, uid)
	if err != nil {
		return err
	}
	if !deleted {
		return system.ErrAgentNotFound
	}

	logger.LogBusinessOperation("delete_agent", uid, "", "success", "采集端注销成功", nil)
	return nil
}
