/**
 * 应用层:应用程序组装
 * @author: sun977
 * @date: 2025.08.29
 * @description: 加载配置、建立连接、初始化日志和CA后组装路由
 * @func: NewApp 创建应用实例；Close 释放连接
 */
package hq

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"neohq/internal/config"
	"neohq/internal/pkg/ca"
	"neohq/internal/pkg/database"
	"neohq/internal/pkg/logger"
)

// App 应用程序结构体
type App struct {
	config      *config.Config
	db          *gorm.DB
	redisClient *redis.Client
	router      *Router
}

// NewApp 创建新的应用程序实例
func NewApp() (*App, error) {
	// 加载配置
	cfg, err := config.LoadConfig("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 启动配置文件监听，日志配置变化时热重载
	if err := config.StartConfigWatcher("", ""); err != nil {
		return nil, fmt.Errorf("failed to start config watcher: %w", err)
	}
	if err := config.AddConfigReloadCallback(func(oldConfig, newConfig *config.Config) error {
		_, err := logger.InitLogger(&newConfig.Log)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to register reload callback: %w", err)
	}

	// 连接MySQL并迁移表结构
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 连接Redis
	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	// 加载CA材料
	authority, err := ca.NewAuthority(&cfg.CA)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA: %w", err)
	}

	// 组装路由
	router := NewRouter(db, redisClient, authority, cfg)
	router.SetupRoutes()

	return &App{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		router:      router,
	}, nil
}

// GetConfig 获取配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *Router {
	return a.router
}

// Close 停止监听并释放数据库和Redis连接
func (a *App) Close() error {
	if err := config.StopConfigWatcher(); err != nil {
		return err
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			return err
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
