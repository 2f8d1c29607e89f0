package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neohq/internal/model/inventory"
	"neohq/internal/repository/mysql"
)

// fakeSearchRepo 内存版资产仓库，按过滤条件和分页参数切片
type fakeSearchRepo struct {
	hosts    []*inventory.Fingerprint
	websites []*inventory.Website

	lastHostQuery *mysql.HostSearchQuery
	lastWebQuery  *mysql.WebSearchQuery
}

func (f *fakeSearchRepo) CreateFingerprints(_ context.Context, records []*inventory.Fingerprint) error {
	f.hosts = append(f.hosts, records...)
	return nil
}

func (f *fakeSearchRepo) CreateWebsites(_ context.Context, records []*inventory.Website) error {
	f.websites = append(f.websites, records...)
	return nil
}

func (f *fakeSearchRepo) SearchHosts(_ context.Context, query *mysql.HostSearchQuery) ([]*inventory.Fingerprint, int64, error) {
	f.lastHostQuery = query

	var matched []*inventory.Fingerprint
	for _, host := range f.hosts {
		if value, ok := query.Filters["os"]; ok && !strings.EqualFold(host.OS, value) {
			continue
		}
		if query.Keyword != "" && !strings.Contains(host.SearchIndex, query.Keyword) {
			continue
		}
		matched = append(matched, host)
	}

	total := int64(len(matched))
	matched = paginate(matched, query.Offset, query.Limit)
	return matched, total, nil
}

func (f *fakeSearchRepo) SearchWebsites(_ context.Context, query *mysql.WebSearchQuery) ([]*inventory.Website, int64, error) {
	f.lastWebQuery = query

	var matched []*inventory.Website
	for _, site := range f.websites {
		if query.AppName != "" && !strings.Contains(site.AppJoint, query.AppName) {
			continue
		}
		if value, ok := query.Filters["ip"]; ok && site.IP != value {
			continue
		}
		matched = append(matched, site)
	}

	total := int64(len(matched))
	matched = paginate(matched, query.Offset, query.Limit)
	return matched, total, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (f *fakeSearchRepo) LatestFingerprintsByIP(_ context.Context, ip string) ([]*inventory.Fingerprint, error) {
	var matched []*inventory.Fingerprint
	for _, host := range f.hosts {
		if host.IP == ip {
			matched = append(matched, host)
		}
	}
	return matched, nil
}

func (f *fakeSearchRepo) LatestWebsitesByDomain(_ context.Context, domain string) ([]*inventory.Website, error) {
	var matched []*inventory.Website
	for _, site := range f.websites {
		if site.Domain == domain {
			matched = append(matched, site)
		}
	}
	return matched, nil
}

func (f *fakeSearchRepo) DistinctProducts(_ context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeSearchRepo) DistinctAppNames(_ context.Context) ([]string, error) {
	return []string{"Nginx"}, nil
}

func (f *fakeSearchRepo) DistinctHostValues(_ context.Context, column string) ([]string, error) {
	return []string{column + "-value"}, nil
}

// fakeAlertListRepo 固定总数的线索仓库
type fakeAlertListRepo struct {
	alerts []*inventory.Alert
}

func (f *fakeAlertListRepo) Create(_ context.Context, alert *inventory.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertListRepo) List(_ context.Context, offset, limit int) ([]*inventory.Alert, int64, error) {
	total := int64(len(f.alerts))
	return paginate(f.alerts, offset, limit), total, nil
}

func seedHosts(repo *fakeSearchRepo, count int) {
	for i := 0; i < count; i++ {
		host := &inventory.Fingerprint{
			IP:      fmt.Sprintf("10.0.0.%d", i+1),
			Port:    22,
			OS:      "Linux",
			Service: "ssh",
			Product: "OpenSSH",
		}
		host.BuildSearchIndex()
		repo.hosts = append(repo.hosts, host)
	}
}

func TestSearchFiltersAndKeyword(t *testing.T) {
	repo := &fakeSearchRepo{}
	seedHosts(repo, 3)
	service := NewService(repo, &fakeAlertListRepo{}, 10, 10)

	result, err := service.Search(context.Background(), "os:linux ssh dropbear", "host", "1")
	require.NoError(t, err)

	assert.Equal(t, "host", result.Topic)
	assert.Equal(t, map[string]string{"os": "linux", "keyword": "ssh dropbear"}, result.Filters)
	assert.Equal(t, "linux", repo.lastHostQuery.Filters["os"])
	assert.Equal(t, "ssh dropbear", repo.lastHostQuery.Keyword)
}

func TestSearchUnknownTopicFallsBackToHost(t *testing.T) {
	repo := &fakeSearchRepo{}
	seedHosts(repo, 1)
	service := NewService(repo, &fakeAlertListRepo{}, 10, 10)

	result, err := service.Search(context.Background(), "os:linux", "bogus", "1")
	require.NoError(t, err)
	assert.Equal(t, "host", result.Topic)
}

func TestSearchNoUsableQuery(t *testing.T) {
	service := NewService(&fakeSearchRepo{}, &fakeAlertListRepo{}, 10, 10)

	// 字段不在白名单里，也没有自由词
	_, err := service.Search(context.Background(), "bogus:value", "host", "1")
	assert.ErrorIs(t, err, ErrNoUsableQuery)

	_, err = service.Search(context.Background(), "", "host", "1")
	assert.ErrorIs(t, err, ErrNoUsableQuery)

	// 引号不闭合同样视为不可用查询
	_, err = service.Search(context.Background(), `product:"Dropbear`, "host", "1")
	assert.ErrorIs(t, err, ErrNoUsableQuery)
}

func TestSearchPagination(t *testing.T) {
	repo := &fakeSearchRepo{}
	seedHosts(repo, 25)
	service := NewService(repo, &fakeAlertListRepo{}, 10, 10)

	// 正常翻页
	result, err := service.Search(context.Background(), "os:linux", "host", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, int64(25), result.Total)
	assert.Len(t, result.Hosts, 10)

	// 非数字页码回落为第一页
	result, err = service.Search(context.Background(), "os:linux", "host", "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)

	// 越界页码回落为最后一页
	result, err = service.Search(context.Background(), "os:linux", "host", "99")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page)
	assert.Len(t, result.Hosts, 5)

	// 负数页码同样回落
	result, err = service.Search(context.Background(), "os:linux", "host", "-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
}

func TestSearchWebTopic(t *testing.T) {
	repo := &fakeSearchRepo{
		websites: []*inventory.Website{
			{Domain: "example.com", IP: "10.0.0.1", AppJoint: "Nginx/jQuery"},
			{Domain: "other.com", IP: "10.0.0.2", AppJoint: "Apache"},
		},
	}
	service := NewService(repo, &fakeAlertListRepo{}, 10, 10)

	result, err := service.Search(context.Background(), "app:Nginx ip:10.0.0.1", "web", "1")
	require.NoError(t, err)
	assert.Equal(t, "web", result.Topic)
	require.Len(t, result.Websites, 1)
	assert.Equal(t, "example.com", result.Websites[0].Domain)
	assert.Equal(t, "Nginx", repo.lastWebQuery.AppName)
	assert.Equal(t, "10.0.0.1", repo.lastWebQuery.Filters["ip"])
}

func TestExportUnpaginated(t *testing.T) {
	repo := &fakeSearchRepo{}
	seedHosts(repo, 25)
	service := NewService(repo, &fakeAlertListRepo{}, 10, 10)

	result, err := service.Export(context.Background(), "os:linux", "host")
	require.NoError(t, err)
	assert.Len(t, result.Hosts, 25)
	assert.Equal(t, int64(25), result.Total)
}

func TestHostDetailNotFound(t *testing.T) {
	service := NewService(&fakeSearchRepo{}, &fakeAlertListRepo{}, 10, 10)

	_, err := service.HostDetail(context.Background(), "10.9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHome(t *testing.T) {
	service := NewService(&fakeSearchRepo{}, &fakeAlertListRepo{}, 10, 10)

	data, err := service.Home(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"port-value"}, data["ports"])
	assert.Equal(t, []string{"os-value"}, data["oss"])
	assert.Equal(t, []string{"Nginx"}, data["webapps"])
}

func TestAlertsPagination(t *testing.T) {
	alertRepo := &fakeAlertListRepo{}
	for i := 0; i < 15; i++ {
		alertRepo.alerts = append(alertRepo.alerts, &inventory.Alert{URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	service := NewService(&fakeSearchRepo{}, alertRepo, 10, 10)

	alerts, total, page, pages, err := service.Alerts(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Equal(t, 2, page)
	assert.Equal(t, 2, pages)
	assert.Len(t, alerts, 5)

	// 越界回落最后一页
	_, _, page, _, err = service.Alerts(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, 2, page)
}
