package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven/mocks"
)

// Mock services

type mockItems struct {
	mu      sync.Mutex
	items   map[string]domain.Item
	saved   []domain.Item
	deleted []string

	fetchAllErr error
	fetchErr    error
	saveErr     error
}

func newMockItems(items ...domain.Item) *mockItems {
	m := &mockItems{items: make(map[string]domain.Item)}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *mockItems) FetchAll(ctx context.Context) ([]domain.Item, error) {
	if m.fetchAllErr != nil {
		return nil, m.fetchAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		result = append(result, item)
	}
	return result, nil
}

func (m *mockItems) Fetch(ctx context.Context, id string) (domain.Item, error) {
	if m.fetchErr != nil {
		return domain.Item{}, m.fetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (m *mockItems) Save(ctx context.Context, item domain.Item) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	m.saved = append(m.saved, item)
	return nil
}

func (m *mockItems) Delete(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, item.ID)
	m.deleted = append(m.deleted, item.ID)
	return nil
}

func (m *mockItems) Subscribe(buffer int) (<-chan domain.RepositoryChange[domain.Item], func()) {
	ch := make(chan domain.RepositoryChange[domain.Item])
	return ch, func() {}
}

type mockCoordinator struct {
	syncNowFn func(ctx context.Context) (*domain.SyncResult, error)
	state     domain.SyncState
	dead      []*domain.QueuedOperation
	clearErr  error
	cleared   int
}

func (m *mockCoordinator) SyncNow(ctx context.Context) (*domain.SyncResult, error) {
	if m.syncNowFn != nil {
		return m.syncNowFn(ctx)
	}
	return &domain.SyncResult{}, nil
}

func (m *mockCoordinator) TriggerSync(ctx context.Context) bool { return false }

func (m *mockCoordinator) Status(ctx context.Context) (*domain.SyncState, error) {
	state := m.state
	return &state, nil
}

func (m *mockCoordinator) Subscribe(buffer int) (<-chan domain.SyncState, func()) {
	return make(chan domain.SyncState), func() {}
}

func (m *mockCoordinator) DeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return m.dead, nil
}

func (m *mockCoordinator) ClearQueue(ctx context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared++
	return nil
}

type mockConnectivity struct {
	status domain.ConnectivityStatus
}

func (m *mockConnectivity) Status() domain.ConnectivityStatus { return m.status }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

func newTestServer(items *mockItems, coordinator *mockCoordinator) *Server {
	connected := &mockConnectivity{status: domain.ConnectivityStatus{Connected: true}}
	return newTestServerWith(items, coordinator, connected, mocks.NewMockCache())
}

func newTestServerWith(items *mockItems, coordinator *mockCoordinator, connectivity driven.ReachabilityStatus, cache driven.Cache) *Server {
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	return NewServer(cfg, items, coordinator, connectivity, cache, nil,
		map[string]Pinger{"redis": &mockPinger{}})
}

func offline() *mockConnectivity {
	return &mockConnectivity{status: domain.ConnectivityStatus{Connected: false}}
}

func serve(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func lamp() domain.Item {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return domain.Item{ID: "lamp", Name: "Desk Lamp", Quantity: 1, CreatedAt: now, UpdatedAt: now}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/ready", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Components["redis"] != "ok" {
		t.Errorf("expected redis ok, got %q", resp.Components["redis"])
	}
}

func TestReadyHandler_StoreDown(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})
	s.stores["postgres"] = &mockPinger{err: errors.New("connection refused")}

	rr := serve(t, s, "GET", "/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/version", "")
	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/swagger/doc.json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/items/{id}"]; !ok {
		t.Error("expected /items/{id} in swagger paths")
	}
}

func TestListItems(t *testing.T) {
	s := newTestServer(newMockItems(lamp()), &mockCoordinator{})

	rr := serve(t, s, "GET", "/api/v1/items", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var items []domain.Item
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "lamp" {
		t.Errorf("expected [lamp], got %+v", items)
	}
}

func TestListItems_NoOfflineData(t *testing.T) {
	items := newMockItems()
	items.fetchAllErr = domain.ErrNoOfflineData
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "GET", "/api/v1/items", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestGetItem(t *testing.T) {
	s := newTestServer(newMockItems(lamp()), &mockCoordinator{})

	rr := serve(t, s, "GET", "/api/v1/items/lamp", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = serve(t, s, "GET", "/api/v1/items/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestCreateItem(t *testing.T) {
	items := newMockItems()
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "POST", "/api/v1/items", `{"name":"Toolbox","quantity":2,"tags":["garage"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.Item
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" || created.Name != "Toolbox" || created.Quantity != 2 {
		t.Errorf("unexpected item %+v", created)
	}
	if len(items.saved) != 1 {
		t.Errorf("expected 1 save, got %d", len(items.saved))
	}
}

func TestCreateItem_Invalid(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{"},
		{name: "missing name", body: `{"quantity":1}`},
		{name: "negative quantity", body: `{"name":"x","quantity":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, s, "POST", "/api/v1/items", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestPutItem_UpdatesExisting(t *testing.T) {
	items := newMockItems(lamp())
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "PUT", "/api/v1/items/lamp", `{"name":"Floor Lamp","location":"Study"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := items.items["lamp"]
	if got.Name != "Floor Lamp" || got.Location != "Study" {
		t.Errorf("unexpected item %+v", got)
	}
	if !got.CreatedAt.Equal(lamp().CreatedAt) {
		t.Error("expected created_at to be preserved")
	}
	if !got.UpdatedAt.After(lamp().UpdatedAt) {
		t.Error("expected updated_at to advance")
	}
}

func TestPutItem_CreatesWhenUnknownOffline(t *testing.T) {
	items := newMockItems()
	items.fetchErr = domain.ErrNoOfflineData
	s := newTestServerWith(items, &mockCoordinator{}, offline(), nil)

	rr := serve(t, s, "PUT", "/api/v1/items/chair", `{"name":"Chair"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(items.saved) != 1 || items.saved[0].ID != "chair" || items.saved[0].Quantity != 1 {
		t.Errorf("unexpected saves %+v", items.saved)
	}
}

func TestPutItem_CreatesWhenNotFound(t *testing.T) {
	items := newMockItems()
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "PUT", "/api/v1/items/chair", `{"name":"Chair","quantity":4}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(items.saved) != 1 || items.saved[0].Quantity != 4 || items.saved[0].CreatedAt.IsZero() {
		t.Errorf("unexpected saves %+v", items.saved)
	}
}

func TestPutItem_TransientFetchFailureWhileConnected(t *testing.T) {
	tests := []struct {
		name         string
		connectivity driven.ReachabilityStatus
	}{
		{name: "connected", connectivity: &mockConnectivity{status: domain.ConnectivityStatus{Connected: true}}},
		{name: "no monitor", connectivity: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := newMockItems()
			items.fetchErr = errors.Join(errors.New("backend returned 503"), domain.ErrNoOfflineData)
			s := newTestServerWith(items, &mockCoordinator{}, tt.connectivity, nil)

			rr := serve(t, s, "PUT", "/api/v1/items/lamp", `{"name":"Lamp"}`)
			if rr.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", rr.Code)
			}
			if len(items.saved) != 0 {
				t.Errorf("expected no write-through of a defaulted item, got %+v", items.saved)
			}
		})
	}
}

func TestPutItem_BackendError(t *testing.T) {
	items := newMockItems(lamp())
	items.saveErr = errors.New("backend returned 500")
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "PUT", "/api/v1/items/lamp", `{"name":"Lamp"}`)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestDeleteItem(t *testing.T) {
	items := newMockItems(lamp())
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "DELETE", "/api/v1/items/lamp", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(items.deleted) != 1 || items.deleted[0] != "lamp" {
		t.Errorf("unexpected deletes %v", items.deleted)
	}

	rr = serve(t, s, "DELETE", "/api/v1/items/lamp", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for second delete, got %d", rr.Code)
	}
}

func TestDeleteItem_UnknownOffline(t *testing.T) {
	items := newMockItems()
	items.fetchErr = domain.ErrNoOfflineData
	s := newTestServer(items, &mockCoordinator{})

	rr := serve(t, s, "DELETE", "/api/v1/items/chair", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if len(items.deleted) != 1 || items.deleted[0] != "chair" {
		t.Errorf("expected delete of chair to be forwarded, got %v", items.deleted)
	}
}

func TestSyncNow(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "success", status: http.StatusOK},
		{name: "in progress", err: domain.ErrSyncInProgress, status: http.StatusConflict},
		{name: "offline", err: domain.ErrNetworkUnavailable, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator := &mockCoordinator{
				syncNowFn: func(ctx context.Context) (*domain.SyncResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.SyncResult{Total: 2, Succeeded: 2}, nil
				},
			}
			s := newTestServer(newMockItems(), coordinator)

			rr := serve(t, s, "POST", "/api/v1/sync", "")
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.err != nil && decodeError(t, rr) != tt.err.Error() {
				t.Errorf("expected error message %q", tt.err.Error())
			}
		})
	}
}

func TestSyncStatus(t *testing.T) {
	coordinator := &mockCoordinator{state: domain.SyncState{Status: domain.SyncStatusIdle, PendingOperations: 3}}
	s := newTestServer(newMockItems(), coordinator)

	rr := serve(t, s, "GET", "/api/v1/sync/status", "")
	var state domain.SyncState
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if state.PendingOperations != 3 {
		t.Errorf("expected 3 pending operations, got %d", state.PendingOperations)
	}
}

func TestDeadLetters_EmptyIsArray(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/api/v1/sync/dead-letters", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", rr.Body.String())
	}
}

func TestClearQueue(t *testing.T) {
	coordinator := &mockCoordinator{}
	s := newTestServer(newMockItems(), coordinator)

	rr := serve(t, s, "DELETE", "/api/v1/sync/queue", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if coordinator.cleared != 1 {
		t.Errorf("expected queue to be cleared once, got %d", coordinator.cleared)
	}
}

func TestClearQueue_WhileSyncing(t *testing.T) {
	coordinator := &mockCoordinator{clearErr: domain.ErrSyncInProgress}
	s := newTestServer(newMockItems(), coordinator)

	rr := serve(t, s, "DELETE", "/api/v1/sync/queue", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestCacheSizeAndClear(t *testing.T) {
	cache := mocks.NewMockCache()
	cache.SetRaw("items_lamp", []byte(`{"id":"lamp"}`))
	cache.SetRaw("items_all", []byte(`[]`))
	s := newTestServerWith(newMockItems(), &mockCoordinator{}, nil, cache)

	rr := serve(t, s, "GET", "/api/v1/cache", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp CacheResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SizeBytes != int64(len(`{"id":"lamp"}`)+len(`[]`)) {
		t.Errorf("unexpected cache size %d", resp.SizeBytes)
	}

	rr = serve(t, s, "DELETE", "/api/v1/cache", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if cache.Keys() != 0 {
		t.Errorf("expected empty cache, %d keys left", cache.Keys())
	}
}

func TestCache_NotConfigured(t *testing.T) {
	s := newTestServerWith(newMockItems(), &mockCoordinator{}, nil, nil)

	for _, method := range []string{"GET", "DELETE"} {
		rr := serve(t, s, method, "/api/v1/cache", "")
		if rr.Code != http.StatusNotImplemented {
			t.Errorf("%s: expected status 501, got %d", method, rr.Code)
		}
	}
}

func TestConnectivity(t *testing.T) {
	s := newTestServer(newMockItems(), &mockCoordinator{})

	rr := serve(t, s, "GET", "/api/v1/connectivity", "")
	var status domain.ConnectivityStatus
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !status.Connected {
		t.Error("expected connected status")
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	tokens := newTestTokens(t)
	cfg := DefaultConfig()
	s := NewServer(cfg, newMockItems(lamp()), &mockCoordinator{}, nil, nil, tokens, nil)

	rr := serve(t, s, "GET", "/api/v1/items", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	rr = serve(t, s, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected health to stay public, got %d", rr.Code)
	}

	token, err := tokens.Sign("device-ui", cfg.Audience)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req := httptest.NewRequest("GET", "/api/v1/items/lamp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 with token, got %d", rec.Code)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}
	if msg := decodeError(t, rr); msg != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", msg)
	}
}
