package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tellyousomeday/api/handlers"
	"github.com/tellyousomeday/api/middleware"
	"github.com/tellyousomeday/api/models"
	"github.com/tellyousomeday/api/routes"
	"github.com/tellyousomeday/api/services"
	"go.uber.org/zap"
)

// memStore is a map-backed services.MessageStore for exercising the HTTP layer.
type memStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*models.Message
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[uuid.UUID]*models.Message)}
}

func (s *memStore) Insert(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) Search(_ context.Context, q services.SearchQuery) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if strings.Contains(m.SearchableText, q.Query) && (q.IncludePending || m.Eligible(q.Now)) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := (q.Page - 1) * q.Limit
	if start >= len(out) {
		return nil, total, nil
	}
	if end := start + q.Limit; end < len(out) {
		out = out[start:end]
	} else {
		out = out[start:]
	}
	return out, total, nil
}

func (s *memStore) FindDueScheduled(_ context.Context, now time.Time) ([]models.Message, error) {
	return nil, nil
}

func (s *memStore) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.IsDelivered {
		return false, nil
	}
	m.IsDelivered = true
	m.DeliveredAt = &at
	return true, nil
}

func (s *memStore) IncrementViews(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return errors.New("not found")
	}
	m.Views++
	m.LastViewedAt = &at
	return nil
}

func (s *memStore) Stats(_ context.Context) (*services.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &services.Stats{RecipientTypeStats: make(map[string]int64)}
	for _, m := range s.messages {
		stats.TotalMessages++
		if m.IsPrivate {
			stats.PrivateMessages++
		}
		if m.DeliveryType == models.DeliveryScheduled {
			stats.ScheduledMessages++
		}
		if m.IsDelivered {
			stats.DeliveredMessages++
		}
		stats.TotalViews += m.Views
		stats.RecipientTypeStats[m.RecipientType]++
	}
	return stats, nil
}

func newTestApp(t *testing.T, pingErr error) *fiber.App {
	t.Helper()
	log := zap.NewNop()
	svc := services.NewMessageService(newMemStore(), nil, log)
	h := handlers.NewMessageHandler(svc, func(context.Context) error { return pingErr }, log, false)

	app := fiber.New()
	wide := func(name string) *middleware.IPRateLimiter {
		return middleware.NewIPRateLimiter(10000, time.Hour, name, log)
	}
	routes.MessageRoutes(app, h, routes.Limiters{
		General: wide("general"),
		Create:  wide("create"),
		Search:  wide("search"),
		Read:    wide("read"),
	}, middleware.SpamGate(log))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reqBody *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestCreateSearchReadFlow(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, "POST", "/api/messages", map[string]interface{}{
		"senderName":    "Alice Smith",
		"recipientType": "world",
		"message":       "Hello there, this is a test message.",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, false, data["isPrivate"])
	id := data["id"].(string)
	require.NotEmpty(t, id)

	status, body = doJSON(t, app, "GET", "/api/messages/search/alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	items := body["messages"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, true, item["canRead"])
	assert.LessOrEqual(t, len(item["previewText"].(string)), 103)

	status, body = doJSON(t, app, "POST", "/api/messages/read/"+id, map[string]interface{}{})
	require.Equal(t, fiber.StatusOK, status)
	msg := body["message"].(map[string]interface{})
	assert.Len(t, msg["message"].(string), 36)
	assert.Equal(t, float64(1), msg["views"])
}

func TestCreateValidationErrors(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, "POST", "/api/messages", map[string]interface{}{
		"senderName":    "Alice Smith",
		"recipientType": "person",
		"message":       "Hello there, this is a test message.",
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION", body["error"])

	details := body["details"].([]interface{})
	found := false
	for _, d := range details {
		if strings.Contains(d.(string), "Recipient name") {
			found = true
		}
	}
	assert.True(t, found, "details should mention the missing recipient name")
}

func TestPrivateMessageFlow(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, "POST", "/api/messages", map[string]interface{}{
		"senderName":    "Alice Smith",
		"recipientType": "world",
		"message":       "Hello there, this is a test message.",
		"isPrivate":     true,
		"passwordHint":  "pet name",
		"password":      "Rex",
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := body["data"].(map[string]interface{})["id"].(string)

	status, body = doJSON(t, app, "POST", "/api/messages/read/"+id, map[string]interface{}{})
	require.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "SECRET_REQUIRED", body["error"])
	assert.Equal(t, "pet name", body["hint"])

	status, body = doJSON(t, app, "POST", "/api/messages/read/"+id, map[string]interface{}{
		"password": "goldfish",
	})
	require.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_SECRET", body["error"])
	assert.Equal(t, "pet name", body["hint"])

	// Case and surrounding whitespace are forgiven.
	status, body = doJSON(t, app, "POST", "/api/messages/read/"+id, map[string]interface{}{
		"password": "  rex  ",
	})
	require.Equal(t, fiber.StatusOK, status)
	msg := body["message"].(map[string]interface{})
	assert.Equal(t, "Hello there, this is a test message.", msg["message"])
}

func TestReadErrors(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, "POST", "/api/messages/read/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"])

	status, _ = doJSON(t, app, "POST", "/api/messages/read/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	status, body = doJSON(t, app, "POST", "/api/messages", map[string]interface{}{
		"senderName":    "Alice Smith",
		"recipientType": "world",
		"message":       "Hello there, this is a test message.",
		"deliveryType":  "scheduled",
		"deliveryDate":  future,
	})
	require.Equal(t, fiber.StatusCreated, status)
	id := body["data"].(map[string]interface{})["id"].(string)

	status, body = doJSON(t, app, "POST", "/api/messages/read/"+id, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "NOT_AVAILABLE_YET", body["error"])
	assert.NotEmpty(t, body["availableAt"])
}

func TestSearchValidation(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, "GET", "/api/messages/search/a", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["error"])

	status, _ = doJSON(t, app, "GET", "/api/messages/search/alice?limit=500", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestStatsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	status, _ := doJSON(t, app, "POST", "/api/messages", map[string]interface{}{
		"senderName":    "Alice Smith",
		"recipientType": "world",
		"message":       "Hello there, this is a test message.",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := doJSON(t, app, "GET", "/api/messages/stats", nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["totalMessages"])
	assert.Equal(t, float64(0), stats["privateMessages"])
}

func TestHealth(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		app := newTestApp(t, nil)
		status, body := doJSON(t, app, "GET", "/api/health", nil)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "connected", body["database"])
	})

	t.Run("store unreachable", func(t *testing.T) {
		app := newTestApp(t, errors.New("connection refused"))
		status, body := doJSON(t, app, "GET", "/api/health", nil)
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unreachable", body["database"])
	})
}
