/**
 * 认证服务层:运营人员会话
 * @author: sun977
 * @date: 2025.08.29
 * @description: 运营端登录、令牌校验和账号初始化业务逻辑
 * @func: Login 登录换取令牌；ValidateToken 校验令牌；CreateOperator 创建账号
 */
package auth

import (
	"context"
	"fmt"
	"strings"

	"neohq/internal/model/system"
	"neohq/internal/pkg/auth"
	"neohq/internal/pkg/logger"
	"neohq/internal/repository/mysql"
)

// SessionService 运营人员会话服务
type SessionService struct {
	operatorRepo    mysql.OperatorRepository
	jwtManager      *auth.JWTManager
	passwordManager *auth.PasswordManager
}

// NewSessionService 创建会话服务实例
func NewSessionService(operatorRepo mysql.OperatorRepository, jwtManager *auth.JWTManager, passwordManager *auth.PasswordManager) *SessionService {
	if passwordManager == nil {
		passwordManager = auth.NewPasswordManager(nil)
	}
	return &SessionService{
		operatorRepo:    operatorRepo,
		jwtManager:      jwtManager,
		passwordManager: passwordManager,
	}
}

// Login 用户名密码登录
// 用户不存在和密码错误返回同一个错误，不给攻击者区分信息
func (s *SessionService) Login(ctx context.Context, username, password string, clientIP string) (*system.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, system.ErrInvalidCredentials
	}

	operator, err := s.operatorRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		logger.LogBusinessOperation("login", username, clientIP, "failed", "用户不存在", nil)
		return nil, system.ErrInvalidCredentials
	}
	if !operator.IsActive {
		logger.LogBusinessOperation("login", username, clientIP, "failed", "账号已禁用", nil)
		return nil, system.ErrOperatorDisabled
	}

	ok, err := s.passwordManager.VerifyPassword(password, operator.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !ok {
		logger.LogBusinessOperation("login", username, clientIP, "failed", "密码错误", nil)
		return nil, system.ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateAccessToken(operator.ID, operator.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logger.LogBusinessOperation("login", username, clientIP, "success", "运营人员登录成功", nil)
	return &system.LoginResponse{
		Operator:    operator.Info(),
		AccessToken: token,
		ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

// ValidateToken 校验访问令牌并确认账号仍然有效
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) (*auth.OperatorClaims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, system.ErrTokenInvalid
	}

	operator, err := s.operatorRepo.GetByID(ctx, claims.OperatorID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, system.ErrOperatorNotFound
	}
	if !operator.IsActive {
		return nil, system.ErrOperatorDisabled
	}
	return claims, nil
}

// CreateOperator 创建运营账号
// 部署初始化或管理脚本调用
func (s *SessionService) CreateOperator(ctx context.Context, username, password string) (*system.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, system.ErrInvalidCredentials
	}

	existing, err := s.operatorRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("operator %s already exists", username)
	}

	hash, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	operator := &system.Operator{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.operatorRepo.Create(ctx, operator); err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("create_operator", username, "", "success", "运营账号创建成功", nil)
	return operator, nil
}
