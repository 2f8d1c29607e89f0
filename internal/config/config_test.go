package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testConfigContent = `
server:
  host: "localhost"
  port: 8080
  mode: "test"
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 60s
  max_header_bytes: 1048576

database:
  mysql:
    host: "localhost"
    port: 3306
    username: "test_user"
    password: "test_password"
    database: "test_db"
    charset: "utf8mb4"
    parse_time: true
    loc: "Local"
    max_idle_conns: 10
    max_open_conns: 100
    conn_max_lifetime: 3600s
    conn_max_idle_time: 1800s
    log_level: "info"
  redis:
    host: "localhost"
    port: 6379
    password: ""
    database: 0
    pool_size: 10
    min_idle_conns: 5
    dial_timeout: 5s
    read_timeout: 3s
    write_timeout: 3s
    pool_timeout: 4s
    idle_timeout: 300s

log:
  level: "info"
  format: "json"
  output: "stdout"
  file_path: "logs/hq.log"
  max_size: 100
  max_backups: 5
  max_age: 30
  compress: true
  caller: true

security:
  jwt:
    secret: "test_jwt_secret_key_at_least_32_chars"
    issuer: "neohq-test"
    access_token_expire: 24h
  agent_auth:
    verify_header: "X-Verified"
    verify_success: "SUCCESS"
    dn_header: "X-Cert-Dn"
    apps_cache_expire: 60s

ca:
  cert_path: "testdata/ca.crt"
  key_path: "testdata/ca.key"
  key_passphrase: ""
  validity_years: 99

search:
  page_size: 10
  alert_page_size: 10

app:
  name: "neohq"
  version: "1.0.0"
  environment: "test"
  timezone: "Asia/Shanghai"
`

// writeTestConfig 写入临时配置文件并返回目录
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return tempDir
}

// TestLoadConfig 测试配置加载功能
func TestLoadConfig(t *testing.T) {
	tempDir := writeTestConfig(t, testConfigContent)

	cfg, err := LoadConfig(tempDir, "development")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Database.MySQL.Database != "test_db" {
		t.Errorf("expected mysql database test_db, got %s", cfg.Database.MySQL.Database)
	}
	if cfg.Security.AgentAuth.VerifySuccess != "SUCCESS" {
		t.Errorf("expected verify sentinel SUCCESS, got %s", cfg.Security.AgentAuth.VerifySuccess)
	}
	if cfg.CA.ValidityYears != 99 {
		t.Errorf("expected validity 99 years, got %d", cfg.CA.ValidityYears)
	}
	if !cfg.App.IsTest() {
		t.Error("expected test environment")
	}
}

// TestLoadConfigDefaults 测试缺省值填充
func TestLoadConfigDefaults(t *testing.T) {
	content := strings.Replace(testConfigContent, `  agent_auth:
    verify_header: "X-Verified"
    verify_success: "SUCCESS"
    dn_header: "X-Cert-Dn"
    apps_cache_expire: 60s
`, "", 1)
	content = strings.Replace(content, `search:
  page_size: 10
  alert_page_size: 10
`, "", 1)

	tempDir := writeTestConfig(t, content)

	cfg, err := LoadConfig(tempDir, "development")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Security.AgentAuth.VerifyHeader != "X-Verified" {
		t.Errorf("expected default verify header, got %q", cfg.Security.AgentAuth.VerifyHeader)
	}
	if cfg.Security.AgentAuth.VerifySuccess != "SUCCESS" {
		t.Errorf("expected default sentinel, got %q", cfg.Security.AgentAuth.VerifySuccess)
	}
	if cfg.Search.PageSize != 10 {
		t.Errorf("expected default page size 10, got %d", cfg.Search.PageSize)
	}
	if cfg.Security.AgentAuth.AppsCacheExpire != time.Minute {
		t.Errorf("expected default apps cache expire 1m, got %v", cfg.Security.AgentAuth.AppsCacheExpire)
	}
}

// TestValidateConfig 测试配置验证
func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name: "invalid server mode",
			mutate: func(s string) string {
				return strings.Replace(s, `mode: "test"`, `mode: "bogus"`, 1)
			},
			wantErr: "invalid server mode",
		},
		{
			name: "missing jwt secret",
			mutate: func(s string) string {
				return strings.Replace(s, `secret: "test_jwt_secret_key_at_least_32_chars"`, `secret: ""`, 1)
			},
			wantErr: "jwt secret is required",
		},
		{
			name: "short jwt secret",
			mutate: func(s string) string {
				return strings.Replace(s, `secret: "test_jwt_secret_key_at_least_32_chars"`, `secret: "short"`, 1)
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "missing ca cert path",
			mutate: func(s string) string {
				return strings.Replace(s, `cert_path: "testdata/ca.crt"`, `cert_path: ""`, 1)
			},
			wantErr: "ca.cert_path is required",
		},
		{
			name: "debug mode in production",
			mutate: func(s string) string {
				s = strings.Replace(s, `mode: "test"`, `mode: "debug"`, 1)
				return strings.Replace(s, `environment: "test"`, `environment: "production"`, 1)
			},
			wantErr: "not allowed in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := writeTestConfig(t, tt.mutate(testConfigContent))
			_, err := LoadConfig(tempDir, "development")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestGetConfigFileName 测试环境配置文件选择
func TestGetConfigFileName(t *testing.T) {
	tempDir := t.TempDir()
	prodFile := filepath.Join(tempDir, "config.prod.yaml")
	defaultFile := filepath.Join(tempDir, "config.yaml")

	if err := os.WriteFile(defaultFile, []byte("server:\n  port: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// 生产配置不存在时回落到默认配置
	if got := getConfigFileName(tempDir, "production"); got != defaultFile {
		t.Errorf("expected fallback to %s, got %s", defaultFile, got)
	}

	if err := os.WriteFile(prodFile, []byte("server:\n  port: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := getConfigFileName(tempDir, "production"); got != prodFile {
		t.Errorf("expected %s, got %s", prodFile, got)
	}
}
