package agentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"neohq/internal/model/inventory"
	"neohq/internal/repository/mysql"
	"neohq/internal/service/ingest"
)

// fakeInventoryRepo 最小可用的内存资产仓库
type fakeInventoryRepo struct {
	fingerprints []*inventory.Fingerprint
	websites     []*inventory.Website
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
	return []string{"OpenSSH"}, nil
}

func (f *fakeInventoryRepo) DistinctAppNames(_ context.Context) ([]string, error) {
	return []string{"Nginx"}, nil
}

func (f *fakeInventoryRepo) DistinctHostValues(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

// fakeAlertRepo URL重复返回 gorm.ErrDuplicatedKey
type fakeAlertRepo struct {
	alerts map[string]struct{}
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *inventory.Alert) error {
	if f.alerts == nil {
		f.alerts = make(map[string]struct{})
	}
	if _, exists := f.alerts[alert.URL]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.alerts[alert.URL] = struct{}{}
	return nil
}

func (f *fakeAlertRepo) List(_ context.Context, _, _ int) ([]*inventory.Alert, int64, error) {
	return nil, 0, nil
}

func newTestRouter() (*gin.Engine, *fakeInventoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := &fakeInventoryRepo{}
	handler := NewHandler(ingest.NewService(repo, &fakeAlertRepo{}, nil))

	router := gin.New()
	router.GET("/api/ping", handler.Ping)
	router.POST("/api/index/host", handler.IndexHost)
	router.POST("/api/index/web", handler.IndexWeb)
	router.PUT("/api/index/feed", handler.Feed)
	router.GET("/api/apps", handler.Apps)
	return router, repo
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestPing(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Cert-Dn", "/CN=abc")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Headers map[string]string `json:"headers"`
		Pong    string            `json:"pong"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "You know, for indexing", resp.Pong)
	// 头名转成大写下划线风格回显
	assert.Equal(t, "/CN=abc", resp.Headers["X_CERT_DN"])
}

func TestIndexHostOK(t *testing.T) {
	router, repo := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/api/index/host", `[{"ip":"10.0.0.1","port":22}]`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.Len(t, repo.fingerprints, 1)
}

func TestIndexHostBadJSON(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodPost, "/api/index/host", `[{"ip":`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestIndexHostInvalidInput(t *testing.T) {
	router, _ := newTestRouter()

	for _, body := range []string{`{}`, `[]`, `[{"ip":"10.0.0.1","bogus":1}]`} {
		recorder := doRequest(router, http.MethodPost, "/api/index/host", body)
		require.Equal(t, http.StatusOK, recorder.Code, "body: %s", body)
		assert.JSONEq(t, `{"status":"fail","reason":"invalid input"}`, recorder.Body.String())
	}
}

func TestIndexWebOK(t *testing.T) {
	router, repo := newTestRouter()

	body := `[{"domain":"example.com","url":"https://example.com/","apps":["Nginx"],"detail":{"Nginx":{"version":"1.18"}}}]`
	recorder := doRequest(router, http.MethodPost, "/api/index/web", body)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
	assert.Len(t, repo.websites, 1)
}

func TestFeedDuplicateSwallowed(t *testing.T) {
	router, _ := newTestRouter()

	body := `{"url":"https://example.com/leak","keywords":["password"]}`
	recorder := doRequest(router, http.MethodPut, "/api/index/feed", body)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())

	// 同一URL再次上报仍然成功
	recorder = doRequest(router, http.MethodPut, "/api/index/feed", body)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestApps(t *testing.T) {
	router, _ := newTestRouter()

	recorder := doRequest(router, http.MethodGet, "/api/apps", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"apps":["Nginx","OpenSSH"]}`, recorder.Body.String())
}
