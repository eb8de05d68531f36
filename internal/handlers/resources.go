package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/database/postgres"
	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/repository"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// ResourceHandler serves CRUD over the fleet collections. Demo principals are
// served from their sandbox session, everyone else from the tenant repository.
type ResourceHandler struct {
	stores scopedStores
	logger *logrus.Logger
}

// scopedStores holds the sandbox store and the tenant repository. tenants may
// be nil when the service runs without a database.
type scopedStores struct {
	demo    repository.FleetRepository
	tenants repository.FleetRepository
}

// forPrincipal returns the store serving principal and the key scoping its
// data: the session id for demo principals, the tenant id otherwise. Demo
// session ids are taken from the token and not checked against the registry.
func (s scopedStores) forPrincipal(principal *auth.Principal) (repository.FleetRepository, string) {
	if principal.IsDemo {
		return s.demo, principal.SessionID
	}
	return s.tenants, principal.TenantID
}

// NewResourceHandler creates a resource handler. tenants may be nil when the
// service runs without a database; tenant requests then fail with 503.
func NewResourceHandler(demoStore, tenants repository.FleetRepository, logger *logrus.Logger) *ResourceHandler {
	return &ResourceHandler{
		stores: scopedStores{demo: demoStore, tenants: tenants},
		logger: logger,
	}
}

// RegisterRoutes registers the collection routes. The router must already
// run the Authenticate middleware, and must be registered after every other
// fixed-prefix route since "/{resource}" matches any first segment.
func (h *ResourceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/{resource}", h.List).Methods(http.MethodGet)
	router.HandleFunc("/{resource}", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/{resource}/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/{resource}/{id}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/{resource}/{id}", h.Delete).Methods(http.MethodDelete)
}

// resourceRequest is the resolved target of a collection request.
type resourceRequest struct {
	store repository.FleetRepository
	scope string
	rt    models.ResourceType
	log   *logrus.Entry
}

// resolve authorizes the request and picks the store and scope key for it.
// It writes the error response itself and returns nil on failure.
func (h *ResourceHandler) resolve(w http.ResponseWriter, r *http.Request, write bool) *resourceRequest {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, log, models.NewUnauthorized("Authentication required"))
		return nil
	}

	rt, err := models.ParseResourceType(mux.Vars(r)["resource"])
	if err != nil {
		writeError(w, log, models.NewNotFound("Unknown resource"))
		return nil
	}

	action := auth.ActionFleetRead
	if write {
		action = auth.WriteAction(rt)
	}
	if !auth.Can(principal, action) {
		writeError(w, log, models.NewForbidden("Insufficient permissions"))
		return nil
	}

	store, scope := h.stores.forPrincipal(principal)
	if store == nil {
		writeError(w, log, models.NewServiceUnavailable("Tenant storage is not configured"))
		return nil
	}

	return &resourceRequest{
		store: store,
		scope: scope,
		rt:    rt,
		log:   log.WithFields(logrus.Fields{"resource_type": rt, "scope": scope, "is_demo": principal.IsDemo}),
	}
}

func (h *ResourceHandler) storeFailed(w http.ResponseWriter, req *resourceRequest, err error, msg string) {
	storeFailed(w, req.log, err, msg)
}

// storeFailed maps a store error to 503 or 500.
func storeFailed(w http.ResponseWriter, log *logrus.Entry, err error, msg string) {
	if errors.Is(err, postgres.ErrDatabaseUnavailable) {
		log.WithError(err).Warn(msg)
		writeError(w, log, models.NewServiceUnavailable("Tenant storage is unavailable"))
		return
	}
	log.WithError(err).Error(msg)
	writeError(w, log, models.NewServerError(msg))
}

func parseItemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// parsePositive reads an optional positive integer query parameter.
func parsePositive(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}

// decodeFields reads a JSON object body keeping numbers exact.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return fields, nil
}

// List handles GET /{resource}?page=&page_size=.
//
// Responses:
//   - 200: one page of the collection, empty past the end; page_size is capped at demo.MaxPageSize
//   - 400: page or page_size is not a positive integer
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r, false)
	if req == nil {
		return
	}

	page, err := parsePositive(r, "page", 1)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest(err.Error()))
		return
	}
	pageSize, err := parsePositive(r, "page_size", demo.DefaultPageSize)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest(err.Error()))
		return
	}
	pageSize = min(pageSize, demo.MaxPageSize)

	items, err := req.store.List(r.Context(), req.scope, req.rt, page, pageSize)
	if err != nil {
		h.storeFailed(w, req, err, "Failed to list items")
		return
	}

	writeJSON(w, req.log, http.StatusOK, models.ItemPage{Results: items, Page: page, PageSize: pageSize})
}

// Get handles GET /{resource}/{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r, false)
	if req == nil {
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid item id"))
		return
	}

	item, found, err := req.store.GetItem(r.Context(), req.scope, req.rt, id)
	if err != nil {
		h.storeFailed(w, req, err, "Failed to get item")
		return
	}
	if !found {
		writeError(w, req.log, models.NewNotFound("Item not found"))
		return
	}

	writeJSON(w, req.log, http.StatusOK, item)
}

// Create handles POST /{resource}. The server assigns the id.
//
// Responses:
//   - 201: the stored item
//   - 400: the body is not a JSON object
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r, true)
	if req == nil {
		return
	}

	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Body must be a JSON object"))
		return
	}

	item, err := req.store.CreateItem(r.Context(), req.scope, req.rt, fields)
	if err != nil {
		h.storeFailed(w, req, err, "Failed to create item")
		return
	}

	id, _ := item.ID()
	req.log.WithField("item_id", id).Debug("Item created")
	writeJSON(w, req.log, http.StatusCreated, item)
}

// Update handles PUT /{resource}/{id} as a full replace.
//
// Responses:
//   - 200: the stored item
//   - 400: invalid id or body
//   - 404: no item with that id
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r, true)
	if req == nil {
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid item id"))
		return
	}
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Body must be a JSON object"))
		return
	}

	item, found, err := req.store.UpdateItem(r.Context(), req.scope, req.rt, id, fields)
	if err != nil {
		h.storeFailed(w, req, err, "Failed to update item")
		return
	}
	if !found {
		writeError(w, req.log, models.NewNotFound("Item not found"))
		return
	}

	writeJSON(w, req.log, http.StatusOK, item)
}

// Delete handles DELETE /{resource}/{id}.
//
// Responses:
//   - 204: deleted
//   - 400: invalid id
//   - 404: no item with that id
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r, true)
	if req == nil {
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid item id"))
		return
	}

	deleted, err := req.store.DeleteItem(r.Context(), req.scope, req.rt, id)
	if err != nil {
		h.storeFailed(w, req, err, "Failed to delete item")
		return
	}
	if !deleted {
		writeError(w, req.log, models.NewNotFound("Item not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
