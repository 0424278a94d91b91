package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/internal/handler"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/internal/service"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"github.com/prohmpiriya/queueme/pkg/middleware"
	pkgredis "github.com/prohmpiriya/queueme/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, dailyLimit int, rdb *pkgredis.Client) *gin.Engine {
	t.Helper()

	store := repository.NewMemoryStore()
	_, err := repository.SeedServices(context.Background(), store)
	require.NoError(t, err)

	log := logger.NewNop()
	clock := domain.NewSystemClock(time.UTC)

	queueSvc := service.NewQueueService(store, nil, &service.QueueServiceConfig{
		DefaultDailyLimit: dailyLimit,
		Clock:             clock,
		Logger:            log,
	})
	adminSvc := service.NewAdminService(store, nil, &service.AdminServiceConfig{
		DefaultDailyLimit: dailyLimit,
		Clock:             clock,
		Logger:            log,
	})

	cfg := &Config{
		ServiceName:    "queueme-test",
		Logger:         log,
		QueueHandler:   handler.NewQueueHandler(queueSvc),
		CatalogHandler: handler.NewCatalogHandler(service.NewCatalogService(store.Services())),
		AdminHandler:   handler.NewAdminHandler(adminSvc),
		HealthHandler:  handler.NewHealthHandler(map[string]handler.Pinger{"store": store}),
		JWT:            middleware.JWTConfig{Secret: testSecret},
	}
	if rdb != nil {
		cfg.Idempotency = &middleware.IdempotencyConfig{Redis: rdb}
	}
	return New(cfg)
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := &middleware.AdminClaims{
		Version: middleware.ClaimsVersion,
		Role:    middleware.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func call(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func firstServiceID(t *testing.T, r http.Handler) string {
	t.Helper()
	w := call(r, http.MethodGet, "/api/services", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var services []domain.Service
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	require.NotEmpty(t, services)
	return services[0].ID
}

func TestRouter_SingleSlotDay(t *testing.T) {
	r := newTestRouter(t, 1, nil)
	serviceID := firstServiceID(t, r)

	w := call(r, http.MethodPost, "/api/users/join-queue", map[string]string{
		"name": "Alice", "mobile": "0811111111", "serviceId": serviceID,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var joined dto.JoinQueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, 1, joined.QueueNumber)

	w = call(r, http.MethodPost, "/join-queue", map[string]string{
		"name": "Bob", "mobile": "0822222222", "serviceId": serviceID,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CAPACITY_EXCEEDED")
	assert.Contains(t, w.Body.String(), "Sorry, we have reached our daily customer limit. Please try again tomorrow.")
}

func TestRouter_CustomerJourney(t *testing.T) {
	r := newTestRouter(t, 10, nil)
	serviceID := firstServiceID(t, r)
	auth := map[string]string{"Authorization": "Bearer " + adminToken(t)}

	for _, c := range []struct{ name, mobile string }{{"Alice", "0811111111"}, {"Bob", "0822222222"}} {
		w := call(r, http.MethodPost, "/api/users/join-queue", map[string]string{
			"name": c.name, "mobile": c.mobile, "serviceId": serviceID,
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := call(r, http.MethodGet, "/api/users/queue-status/0822222222", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status dto.QueueStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Position)
	assert.Equal(t, 30, status.EstimatedWait)

	w = call(r, http.MethodGet, "/api/admin/queue", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []domain.QueueEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	path := "/api/admin/queue/" + entries[0].ID + "/status"
	w = call(r, http.MethodPut, path, map[string]string{"status": "in-progress"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	w = call(r, http.MethodPut, path, map[string]string{"status": "completed"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	w = call(r, http.MethodPut, path, map[string]string{"status": "completed"}, auth)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodPut, "/cancel-queue/0822222222", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/queue-status/0822222222", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(r, http.MethodPost, "/join-queue", map[string]string{
		"name": "Bob", "mobile": "0822222222", "serviceId": serviceID,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var rejoined dto.JoinQueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejoined))
	assert.Equal(t, 3, rejoined.QueueNumber)

	w = call(r, http.MethodGet, "/api/admin/stats", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 3, stats.Total)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	r := newTestRouter(t, 10, nil)

	w := call(r, http.MethodGet, "/api/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_JoinIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newTestRouter(t, 10, pkgredis.Wrap(rdb))
	serviceID := firstServiceID(t, r)
	body := map[string]string{"name": "Alice", "mobile": "0811111111", "serviceId": serviceID}
	headers := map[string]string{"X-Idempotency-Key": "join-1"}

	first := call(r, http.MethodPost, "/api/users/join-queue", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := call(r, http.MethodPost, "/api/users/join-queue", body, headers)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	fresh := call(r, http.MethodPost, "/api/users/join-queue", body, nil)
	assert.Equal(t, http.StatusBadRequest, fresh.Code)
}

func TestRouter_Probes(t *testing.T) {
	r := newTestRouter(t, 10, nil)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready", nil, nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/metrics", nil, nil).Code)
}
