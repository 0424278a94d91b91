package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAdminService is a mock implementation of AdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListQueue(ctx context.Context, req *dto.ListQueueRequest) ([]*domain.QueueEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueueEntry), args.Error(1)
}

func (m *MockAdminService) UpdateStatus(ctx context.Context, id string, req *dto.UpdateStatusRequest) (*dto.UpdateStatusResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UpdateStatusResponse), args.Error(1)
}

func (m *MockAdminService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.StatsResponse), args.Error(1)
}

func (m *MockAdminService) Records(ctx context.Context, req *dto.RecordsRequest) (*dto.RecordsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RecordsResponse), args.Error(1)
}

func (m *MockAdminService) PurgeRecords(ctx context.Context, days int) (*dto.DeleteRecordsResponse, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DeleteRecordsResponse), args.Error(1)
}

func (m *MockAdminService) SetDailyLimit(ctx context.Context, req *dto.DailyLimitRequest) (*dto.DailyLimitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DailyLimitResponse), args.Error(1)
}

func setupAdminTestRouter(handler *AdminHandler) *gin.Engine {
	router := gin.New()
	handler.Register(router.Group("/api/admin"))
	return router
}

func TestAdminHandler_ListQueue(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("ListQueue", mock.Anything, &dto.ListQueueRequest{Status: "waiting", Day: "all"}).
		Return([]*domain.QueueEntry{{ID: "e1", QueueNumber: 1, Status: domain.StatusWaiting}}, nil)

	w := doJSON(router, http.MethodGet, "/api/admin/queue?status=waiting&day=all", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var entries []domain.QueueEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
	mockService.AssertExpectations(t)
}

func TestAdminHandler_UpdateStatus(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("UpdateStatus", mock.Anything, "e1", &dto.UpdateStatusRequest{Status: "in-progress"}).
		Return(&dto.UpdateStatusResponse{
			Message: "Queue status updated successfully",
			Queue:   &domain.QueueEntry{ID: "e1", Status: domain.StatusInProgress},
		}, nil)
	mockService.On("UpdateStatus", mock.Anything, "e2", &dto.UpdateStatusRequest{Status: "completed"}).
		Return(nil, &domain.TransitionError{From: domain.StatusCompleted, To: domain.StatusCompleted})

	w := doJSON(router, http.MethodPut, "/api/admin/queue/e1/status", map[string]string{"status": "in-progress"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Queue status updated successfully")

	w = doJSON(router, http.MethodPut, "/api/admin/queue/e2/status", map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Code)

	w = doJSON(router, http.MethodPut, "/api/admin/queue/e3/status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestAdminHandler_Stats(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("Stats", mock.Anything).Return(&dto.StatsResponse{Waiting: 2, Total: 2, MaxCustomers: 50, CurrentCount: 2}, nil)

	w := doJSON(router, http.MethodGet, "/api/admin/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Waiting)
	assert.Equal(t, 50, stats.MaxCustomers)
}

func TestAdminHandler_Records(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("Records", mock.Anything, &dto.RecordsRequest{Period: "week", Page: 2, Limit: 5}).
		Return(&dto.RecordsResponse{Records: []*domain.QueueEntry{}, TotalPages: 3, CurrentPage: 2, Total: 12}, nil)

	w := doJSON(router, http.MethodGet, "/api/admin/records?period=week&page=2&limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalPages":3`)

	w = doJSON(router, http.MethodGet, "/api/admin/records?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestAdminHandler_DeleteRecords(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("PurgeRecords", mock.Anything, 7).
		Return(&dto.DeleteRecordsResponse{Message: "Deleted 4 records older than 7 days", Deleted: 4}, nil)
	mockService.On("PurgeRecords", mock.Anything, 0).
		Return(&dto.DeleteRecordsResponse{Message: "Deleted 0 records older than 30 days"}, nil)

	w := doJSON(router, http.MethodDelete, "/api/admin/records", map[string]int{"days": 7})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Deleted 4 records older than 7 days")

	w = doJSON(router, http.MethodDelete, "/api/admin/records", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "older than 30 days")

	mockService.AssertExpectations(t)
}

func TestAdminHandler_SetDailyLimit(t *testing.T) {
	mockService := new(MockAdminService)
	router := setupAdminTestRouter(NewAdminHandler(mockService))

	mockService.On("SetDailyLimit", mock.Anything, &dto.DailyLimitRequest{MaxCustomers: 20}).
		Return(&dto.DailyLimitResponse{
			Message:    "Daily limit updated successfully",
			DailyLimit: &domain.DailyLimit{Day: "2024-03-10", MaxCustomers: 20},
		}, nil)

	w := doJSON(router, http.MethodPut, "/api/admin/daily-limit", map[string]int{"maxCustomers": 20})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"maxCustomers":20`)

	w = doJSON(router, http.MethodPut, "/api/admin/daily-limit", map[string]int{"maxCustomers": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}
