package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oXide0/simplicity/internal/models"
	"github.com/oXide0/simplicity/internal/realtime"
	"github.com/oXide0/simplicity/internal/service"
	appErrors "github.com/oXide0/simplicity/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAnnouncementService struct {
	listFn   func(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	getFn    func(ctx context.Context, id string) (*models.Announcement, error)
	createFn func(ctx context.Context, req service.AnnouncementRequest) (*models.Announcement, error)
	updateFn func(ctx context.Context, id string, req service.AnnouncementRequest) (*models.Announcement, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockAnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	return m.listFn(ctx, filter)
}

func (m *mockAnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	return m.getFn(ctx, id)
}

func (m *mockAnnouncementService) Create(ctx context.Context, req service.AnnouncementRequest) (*models.Announcement, error) {
	return m.createFn(ctx, req)
}

func (m *mockAnnouncementService) Update(ctx context.Context, id string, req service.AnnouncementRequest) (*models.Announcement, error) {
	return m.updateFn(ctx, id, req)
}

func (m *mockAnnouncementService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockBroadcaster struct {
	events []realtime.Event
}

func (m *mockBroadcaster) Broadcast(event realtime.Event) {
	m.events = append(m.events, event)
}

func newAnnouncementRouter(svc announcementService, events broadcaster) *gin.Engine {
	h := NewAnnouncementHandler(svc, events, nil)
	router := gin.New()
	router.GET("/api/announcements", h.List)
	router.GET("/api/announcements/:id", h.Get)
	router.POST("/api/announcements", h.Create)
	router.PUT("/api/announcements/:id", h.Update)
	router.DELETE("/api/announcements/:id", h.Delete)
	return router
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":           "All hands",
		"body":            "Friday at noon",
		"publicationDate": "2025-06-01T10:00:00Z",
		"categoryIds":     []int64{1, 2},
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAnnouncementHandlerList(t *testing.T) {
	var gotFilter models.AnnouncementFilter
	svc := &mockAnnouncementService{
		listFn: func(_ context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
			gotFilter = filter
			return []models.Announcement{{ID: "a1", Title: "Hi"}}, nil
		},
	}
	router := newAnnouncementRouter(svc, &mockBroadcaster{})

	rec := doJSON(t, router, http.MethodGet, "/api/announcements?category=1,2&search=Cloud", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1, 2}, gotFilter.CategoryIDs)
	assert.Equal(t, "Cloud", gotFilter.Search)

	var envelope struct {
		Data []models.Announcement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "a1", envelope.Data[0].ID)
}

func TestAnnouncementHandlerGetNotFound(t *testing.T) {
	svc := &mockAnnouncementService{
		getFn: func(context.Context, string) (*models.Announcement, error) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		},
	}
	router := newAnnouncementRouter(svc, &mockBroadcaster{})

	rec := doJSON(t, router, http.MethodGet, "/api/announcements/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Announcement not found")
}

func TestAnnouncementHandlerCreateBroadcastsOnce(t *testing.T) {
	svc := &mockAnnouncementService{
		createFn: func(_ context.Context, req service.AnnouncementRequest) (*models.Announcement, error) {
			return &models.Announcement{ID: "a1", Title: req.Title}, nil
		},
	}
	events := &mockBroadcaster{}
	router := newAnnouncementRouter(svc, events)

	rec := doJSON(t, router, http.MethodPost, "/api/announcements", validPayload())

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.EventAnnouncementCreated, events.events[0].Event)

	created, ok := events.events[0].Data.(*models.Announcement)
	require.True(t, ok)
	assert.Equal(t, "a1", created.ID)
}

func TestAnnouncementHandlerCreateValidationFailureDoesNotBroadcast(t *testing.T) {
	svc := &mockAnnouncementService{
		createFn: func(context.Context, service.AnnouncementRequest) (*models.Announcement, error) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Title is required. Body is required")
		},
	}
	events := &mockBroadcaster{}
	router := newAnnouncementRouter(svc, events)

	rec := doJSON(t, router, http.MethodPost, "/api/announcements", map[string]interface{}{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required. Body is required")
	assert.Empty(t, events.events)
}

func TestAnnouncementHandlerCreateMalformedBody(t *testing.T) {
	svc := &mockAnnouncementService{
		createFn: func(context.Context, service.AnnouncementRequest) (*models.Announcement, error) {
			t.Fatal("service must not be called for malformed payloads")
			return nil, nil
		},
	}
	events := &mockBroadcaster{}
	router := newAnnouncementRouter(svc, events)

	payload := validPayload()
	payload["categoryIds"] = []string{"one", "two"}
	rec := doJSON(t, router, http.MethodPost, "/api/announcements", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid payload")
	assert.Empty(t, events.events)
}

func TestAnnouncementHandlerUpdateDoesNotBroadcast(t *testing.T) {
	svc := &mockAnnouncementService{
		updateFn: func(_ context.Context, id string, req service.AnnouncementRequest) (*models.Announcement, error) {
			return &models.Announcement{ID: id, Title: req.Title}, nil
		},
	}
	events := &mockBroadcaster{}
	router := newAnnouncementRouter(svc, events)

	rec := doJSON(t, router, http.MethodPut, "/api/announcements/a1", validPayload())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, events.events)

	var envelope struct {
		Data models.Announcement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "a1", envelope.Data.ID)
}

func TestAnnouncementHandlerDelete(t *testing.T) {
	svc := &mockAnnouncementService{
		deleteFn: func(_ context.Context, id string) error {
			if id == "a1" {
				return nil
			}
			return appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		},
	}
	router := newAnnouncementRouter(svc, &mockBroadcaster{})

	rec := doJSON(t, router, http.MethodDelete, "/api/announcements/a1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/api/announcements/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseCategoryParam(t *testing.T) {
	assert.Nil(t, parseCategoryParam(""))
	assert.Equal(t, []int64{1, 2, 3}, parseCategoryParam("1,2,3"))
	assert.Equal(t, []int64{4}, parseCategoryParam(" 4 "))
	assert.Equal(t, []int64{5}, parseCategoryParam("5,abc"))
	assert.Nil(t, parseCategoryParam("abc"))
}
