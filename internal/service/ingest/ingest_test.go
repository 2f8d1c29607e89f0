package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"neohq/internal/model/inventory"
	"neohq/internal/repository/mysql"
)

// fakeInventoryRepo 内存版资产仓库，测试用
type fakeInventoryRepo struct {
	fingerprints []*inventory.Fingerprint
	websites     []*inventory.Website
	products     []string
	appNames     []string
}

func (f *fakeInventoryRepo) CreateFingerprints(_ context.Context, records []*inventory.Fingerprint) error {
	f.fingerprints = append(f.fingerprints, records...)
	return nil
}

func (f *fakeInventoryRepo) CreateWebsites(_ context.Context, records []*inventory.Website) error {
	f.websites = append(f.websites, records...)
	return nil
}

func (f *fakeInventoryRepo) SearchHosts(_ context.Context, _ *mysql.HostSearchQuery) ([]*inventory.Fingerprint, int64, error) {
	return nil, 0, nil
}

func (f *fakeInventoryRepo) SearchWebsites(_ context.Context, _ *mysql.WebSearchQuery) ([]*inventory.Website, int64, error) {
	return nil, 0, nil
}

func (f *fakeInventoryRepo) LatestFingerprintsByIP(_ context.Context, _ string) ([]*inventory.Fingerprint, error) {
	return nil, nil
}

func (f *fakeInventoryRepo) LatestWebsitesByDomain(_ context.Context, _ string) ([]*inventory.Website, error) {
	return nil, nil
}

func (f *fakeInventoryRepo) DistinctProducts(_ context.Context) ([]string, error) {
	return f.products, nil
}

func (f *fakeInventoryRepo) DistinctAppNames(_ context.Context) ([]string, error) {
	return f.appNames, nil
}

func (f *fakeInventoryRepo) DistinctHostValues(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

// fakeAlertRepo 内存版线索仓库，URL重复返回 gorm.ErrDuplicatedKey
type fakeAlertRepo struct {
	alerts map[string]*inventory.Alert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*inventory.Alert)}
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *inventory.Alert) error {
	if _, exists := f.alerts[alert.URL]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.alerts[alert.URL] = alert
	return nil
}

func (f *fakeAlertRepo) List(_ context.Context, _, _ int) ([]*inventory.Alert, int64, error) {
	alerts := make([]*inventory.Alert, 0, len(f.alerts))
	for _, alert := range f.alerts {
		alerts = append(alerts, alert)
	}
	return alerts, int64(len(alerts)), nil
}

func newTestService() (*Service, *fakeInventoryRepo, *fakeAlertRepo) {
	invRepo := &fakeInventoryRepo{}
	alertRepo := newFakeAlertRepo()
	return NewService(invRepo, alertRepo, nil), invRepo, alertRepo
}

func TestIngestHosts(t *testing.T) {
	service, repo, _ := newTestService()

	payload := `[
		{"ip":"10.0.0.1","port":22,"service":"ssh","os":"Linux","product":"OpenSSH","version":"8.9","banner":"SSH-2.0-OpenSSH_8.9"},
		{"ip":"10.0.0.2","port":443,"service":"https","cpes":["cpe:/a:nginx:nginx"],"certificate":{"cn":"example.com"}}
	]`
	count, err := service.IngestHosts(context.Background(), []byte(payload), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.fingerprints, 2)

	first := repo.fingerprints[0]
	assert.Equal(t, "10.0.0.1", first.IP)
	assert.Equal(t, 22, first.Port)
	// 检索投影包含可检索字段
	assert.Contains(t, first.SearchIndex, "Linux")
	assert.Contains(t, first.SearchIndex, "OpenSSH")
	assert.Contains(t, first.SearchIndex, "SSH-2.0-OpenSSH_8.9")

	second := repo.fingerprints[1]
	assert.Equal(t, inventory.StringSlice{"cpe:/a:nginx:nginx"}, second.CPEs)
	assert.Equal(t, "example.com", second.Certificate["cn"])
}

func TestIngestHostsMalformedJSON(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.IngestHosts(context.Background(), []byte(`[{"ip":"10.0.0.1"`), "")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestIngestHostsInvalidInput(t *testing.T) {
	service, repo, _ := newTestService()

	cases := []struct {
		name    string
		payload string
	}{
		{"非数组", `{}`},
		{"空数组", `[]`},
		{"未知键", `[{"ip":"10.0.0.1","bogus":"x"}]`},
		{"缺少ip", `[{"port":22}]`},
		{"类型不匹配", `[{"ip":"10.0.0.1","port":"not-a-number"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.IngestHosts(context.Background(), []byte(tc.payload), "")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	// 整批拒绝，不留半批数据
	assert.Empty(t, repo.fingerprints)
}

func TestIngestWebsites(t *testing.T) {
	service, repo, _ := newTestService()

	payload := `[{
		"domain":"example.com",
		"ip":"10.0.0.1",
		"port":443,
		"url":"https://example.com/",
		"title":"",
		"html":"<html></html>",
		"rawHeader":"Server: nginx",
		"apps":["Nginx","jQuery"],
		"detail":{"Nginx":{"version":"1.18","versions":["1.18","1.19"]}}
	}]`
	count, err := service.IngestWebsites(context.Background(), []byte(payload), "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, repo.websites, 1)

	site := repo.websites[0]
	// 标题为空回落为URL
	assert.Equal(t, "https://example.com/", site.Title)
	assert.Equal(t, "Nginx/jQuery", site.AppJoint)
	assert.Contains(t, site.SearchIndex, "Server: nginx")

	// 组件rows以detail为准，apps列表只参与拼接展示串
	require.Len(t, site.Apps, 1)
	assert.Equal(t, "Nginx", site.Apps[0].Name)
	assert.Equal(t, "1.18", site.Apps[0].Ver)
	assert.Equal(t, inventory.StringSlice{"1.18", "1.19"}, site.Apps[0].Versions)
}

func TestIngestWebsitesMissingURL(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.IngestWebsites(context.Background(), []byte(`[{"domain":"example.com"}]`), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFeed(t *testing.T) {
	service, _, alertRepo := newTestService()

	payload := `{
		"title":"数据泄露预警",
		"content":"监测到疑似凭据泄露",
		"source":"cert",
		"url":"https://example.com/leak",
		"timestamp":"2025-08-20T10:30:00Z",
		"keywords":["password","leak"],
		"highlighted":true
	}`
	require.NoError(t, service.Feed(context.Background(), []byte(payload), ""))
	require.Len(t, alertRepo.alerts, 1)

	alert := alertRepo.alerts["https://example.com/leak"]
	require.NotNil(t, alert)
	assert.Equal(t, "数据泄露预警", alert.Title)
	assert.Equal(t, "监测到疑似凭据泄露", alert.Content)
	assert.Equal(t, "cert", alert.Source)
	assert.Equal(t, 2025, alert.Timestamp.Year())
	assert.Equal(t, inventory.StringSlice{"password", "leak"}, alert.Keywords)
	assert.True(t, alert.Highlighted)

	// 重复URL静默吞掉
	require.NoError(t, service.Feed(context.Background(), []byte(payload), ""))
	assert.Len(t, alertRepo.alerts, 1)
}

func TestFeedDefaultsTimestamp(t *testing.T) {
	service, _, alertRepo := newTestService()

	// 来源未带通告时间，以入库时间兜底
	payload := `{"title":"无时间通告","url":"https://example.com/no-ts"}`
	require.NoError(t, service.Feed(context.Background(), []byte(payload), ""))

	alert := alertRepo.alerts["https://example.com/no-ts"]
	require.NotNil(t, alert)
	assert.False(t, alert.Timestamp.IsZero())
}

func TestFeedInvalid(t *testing.T) {
	service, _, _ := newTestService()

	assert.ErrorIs(t, service.Feed(context.Background(), []byte(`{"url":""}`), ""), ErrInvalidInput)
	assert.ErrorIs(t, service.Feed(context.Background(), []byte(`{"url":"x","bogus":1}`), ""), ErrInvalidInput)
	assert.ErrorIs(t, service.Feed(context.Background(), []byte(`{"url"`), ""), ErrMalformedPayload)
}

func TestListAppsMergesAndSorts(t *testing.T) {
	invRepo := &fakeInventoryRepo{
		products: []string{"OpenSSH", "nginx"},
		appNames: []string{"jQuery", "nginx"},
	}
	service := NewService(invRepo, newFakeAlertRepo(), nil)

	apps, err := service.ListApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"OpenSSH", "jQuery", "nginx"}, apps)
}
