package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"no offline data available"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the health of each backing store
// @Description Readiness response
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// CacheResponse reports the offline cache footprint
// @Description Offline cache size
type CacheResponse struct {
	SizeBytes int64 `json:"size_bytes" example:"2048"`
}

// itemRequest is the writable subset of an item
type itemRequest struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	Location      string   `json:"location,omitempty"`
	Quantity      *int     `json:"quantity,omitempty"`
	PurchasePrice float64  `json:"purchase_price,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func (req itemRequest) apply(item *domain.Item) {
	item.Name = req.Name
	item.Category = req.Category
	item.Location = req.Location
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	item.PurchasePrice = req.PurchasePrice
	item.Tags = req.Tags
	item.Notes = req.Notes
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the process
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings every configured store (cache, queue, state, lock)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Components: make(map[string]string, len(s.stores))}
	status := http.StatusOK
	for name, store := range s.stores {
		if err := store.Ping(ctx); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Item endpoints

// handleListItems godoc
// @Summary      List items
// @Description  Lists items from the backend, or from the offline cache when the backend is unreachable
// @Tags         Items
// @Produce      json
// @Success      200  {array}   domain.Item
// @Failure      503  {object}  ErrorResponse  "No offline data available"
// @Security     BearerAuth
// @Router       /items [get]
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.FetchAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetItem godoc
// @Summary      Get item
// @Tags         Items
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  domain.Item
// @Failure      404  {object}  ErrorResponse  "Item not found"
// @Failure      503  {object}  ErrorResponse  "No offline data available"
// @Security     BearerAuth
// @Router       /items/{id} [get]
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleCreateItem godoc
// @Summary      Create item
// @Description  Assigns an ID; the write is queued when the backend is unreachable
// @Tags         Items
// @Accept       json
// @Produce      json
// @Param        item  body      itemRequest  true  "Item"
// @Success      201   {object}  domain.Item
// @Failure      400   {object}  ErrorResponse  "Invalid item"
// @Security     BearerAuth
// @Router       /items [post]
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := domain.NewItem(req.Name)
	req.apply(&item)
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "name is required and quantity must not be negative")
		return
	}

	if err := s.items.Save(r.Context(), item); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handlePutItem godoc
// @Summary      Create or update item
// @Description  Writes through to the backend when reachable, otherwise queues the write for the next sync
// @Tags         Items
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Item ID"
// @Param        item  body      itemRequest  true  "Item"
// @Success      200   {object}  domain.Item
// @Failure      400   {object}  ErrorResponse  "Invalid item"
// @Security     BearerAuth
// @Router       /items/{id} [put]
func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	now := time.Now()
	item, err := s.items.Fetch(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoOfflineData) && s.knownOffline():
		item = domain.Item{ID: id, Quantity: 1, CreatedAt: now}
	default:
		s.writeDomainError(w, err)
		return
	}

	req.apply(&item)
	item.UpdatedAt = now
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "name is required and quantity must not be negative")
		return
	}

	if err := s.items.Save(r.Context(), item); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem godoc
// @Summary      Delete item
// @Tags         Items
// @Param        id   path      string  true  "Item ID"
// @Success      204  "No Content"
// @Failure      404  {object}  ErrorResponse  "Item not found"
// @Security     BearerAuth
// @Router       /items/{id} [delete]
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := s.items.Fetch(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoOfflineData):
		// Unknown locally and the backend is unreachable: queue the delete by id.
		item = domain.Item{ID: id}
	default:
		s.writeDomainError(w, err)
		return
	}

	if err := s.items.Delete(r.Context(), item); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync endpoints

// handleSyncNow godoc
// @Summary      Run a sync pass now
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  domain.SyncResult
// @Failure      409  {object}  ErrorResponse  "Sync already in progress"
// @Failure      503  {object}  ErrorResponse  "Network unavailable"
// @Security     BearerAuth
// @Router       /sync [post]
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.SyncNow(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSyncStatus godoc
// @Summary      Get sync state
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  domain.SyncState
// @Security     BearerAuth
// @Router       /sync/status [get]
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.coordinator.Status(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleDeadLetters godoc
// @Summary      List operations that exhausted their retries
// @Tags         Sync
// @Produce      json
// @Success      200  {array}  domain.QueuedOperation
// @Security     BearerAuth
// @Router       /sync/dead-letters [get]
func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	ops, err := s.coordinator.DeadLetters(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if ops == nil {
		ops = []*domain.QueuedOperation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

// handleClearQueue godoc
// @Summary      Discard pending operations
// @Description  Drops every queued write without replaying it. Dead letters are kept.
// @Tags         Sync
// @Success      204  "No Content"
// @Failure      409  {object}  ErrorResponse  "Sync in progress"
// @Security     BearerAuth
// @Router       /sync/queue [delete]
func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.ClearQueue(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Warn("pending operations discarded via API")
	w.WriteHeader(http.StatusNoContent)
}

// Cache endpoints

// handleCacheSize godoc
// @Summary      Get offline cache size
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  CacheResponse
// @Failure      501  {object}  ErrorResponse  "Cache not configured"
// @Security     BearerAuth
// @Router       /cache [get]
func (s *Server) handleCacheSize(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotImplemented, "offline cache not configured")
		return
	}
	size, err := s.cache.Size(r.Context())
	if err != nil {
		s.logger.Error("failed to measure offline cache", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CacheResponse{SizeBytes: size})
}

// handleClearCache godoc
// @Summary      Clear the offline cache
// @Description  Removes every cached item. Pending operations stay queued.
// @Tags         Cache
// @Success      204  "No Content"
// @Failure      501  {object}  ErrorResponse  "Cache not configured"
// @Security     BearerAuth
// @Router       /cache [delete]
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotImplemented, "offline cache not configured")
		return
	}
	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Error("failed to clear offline cache", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("offline cache cleared via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleConnectivity godoc
// @Summary      Get backend reachability
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  domain.ConnectivityStatus
// @Security     BearerAuth
// @Router       /connectivity [get]
func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	if s.connectivity == nil {
		writeError(w, http.StatusNotImplemented, "reachability monitor not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.connectivity.Status())
}

// Helper functions

// knownOffline reports whether the backend is known to be unreachable.
// Without a monitor the state is unknown and treated as reachable.
func (s *Server) knownOffline() bool {
	return s.connectivity != nil && !s.connectivity.Status().Connected
}

// writeDomainError maps domain errors onto status codes
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoOfflineData), errors.Is(err, domain.ErrNetworkUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
