// Package api exposes the scanners and the device inventory over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/registry"
	"github.com/zea2/devicemanager/internal/scanner"
	"github.com/zea2/devicemanager/internal/store"
)

// Handler handles HTTP requests. After every mutating request the persist
// callback, when set, writes the inventory back to its backend.
type Handler struct {
	store   *store.Store
	persist func() error
}

func NewHandler(s *store.Store, persist func() error) *Handler {
	return &Handler{store: s, persist: persist}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Live device scanning
	mux.HandleFunc("GET /api/scan", h.scanDevices)

	// Inventory CRUD
	mux.HandleFunc("GET /api/inventory", h.listInventory)
	mux.HandleFunc("GET /api/inventory/{name}", h.getInventory)
	mux.HandleFunc("PUT /api/inventory/{name}", h.putInventory)
	mux.HandleFunc("DELETE /api/inventory/{name}", h.deleteInventory)
	mux.HandleFunc("POST /api/inventory/refresh", h.refreshInventory)
}

// scanDevices handles GET /api/scan. Optional query parameters: type to
// scan one device type, rescan=true to bypass the scan caches, plus any
// attribute filters like serial, mac_address or vendor_id.
func (h *Handler) scanDevices(w http.ResponseWriter, r *http.Request) {
	rescan := r.URL.Query().Get("rescan") == "true"
	filters, err := filtersFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var devices []model.Device

	if typeKey := r.URL.Query().Get("type"); typeKey != "" {
		sub, err := h.store.Scanner().Get(typeKey)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "unknown device type: "+typeKey)
			return
		}
		devices, err = sub.FindDevices(rescan, filters)
		if err != nil {
			h.scanError(w, err)
			return
		}
	} else {
		devices, err = h.store.Scanner().FindDevices(rescan, filters)
		if err != nil {
			h.scanError(w, err)
			return
		}
	}

	if devices == nil {
		devices = []model.Device{}
	}
	h.writeJSON(w, http.StatusOK, devices)
}

// listInventory handles GET /api/inventory.
func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Items())
}

// getInventory handles GET /api/inventory/{name}. Without a type query
// parameter all records under the name are returned, keyed by type.
func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if typeKey := r.URL.Query().Get("type"); typeKey != "" {
		device, err := h.store.GetType(name, typeKey)
		if err != nil {
			h.storeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, device)
		return
	}

	devices, err := h.store.Devices(name)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, devices)
}

// putInventory handles PUT /api/inventory/{name}. The body names the
// address of a connected device; the store resolves and records it.
func (h *Handler) putInventory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body struct {
		Address string `json:"address"`
		Type    string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Address == "" {
		h.writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	var typeKey any
	if body.Type != "" {
		typeKey = body.Type
	}
	if err := h.store.SetByAddress(name, body.Address, typeKey); err != nil {
		switch {
		case errors.Is(err, store.ErrDeviceNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, registry.ErrUnknownType):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scanner.ErrScanUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.internalError(w, err)
		}
		return
	}

	if err := h.persistInventory(); err != nil {
		h.internalError(w, err)
		return
	}
	device, err := h.store.Devices(name)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, device)
}

// deleteInventory handles DELETE /api/inventory/{name}. A type query
// parameter removes only the record of that type.
func (h *Handler) deleteInventory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var err error
	if typeKey := r.URL.Query().Get("type"); typeKey != "" {
		err = h.store.RemoveType(name, typeKey)
	} else {
		err = h.store.Remove(name)
	}
	if err != nil {
		h.storeError(w, err)
		return
	}

	if err := h.persistInventory(); err != nil {
		h.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// refreshInventory handles POST /api/inventory/refresh.
func (h *Handler) refreshInventory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RefreshAll(); err != nil {
		h.scanError(w, err)
		return
	}
	if err := h.persistInventory(); err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Items())
}

func (h *Handler) persistInventory() error {
	if h.persist == nil {
		return nil
	}
	return h.persist()
}

// filtersFromQuery turns attribute query parameters into scan filters.
// Numeric attributes accept decimal and 0x-prefixed hex values.
func filtersFromQuery(r *http.Request) (scanner.Filters, error) {
	filters := scanner.Filters{}
	for key, values := range r.URL.Query() {
		if key == "type" || key == "rescan" || len(values) == 0 {
			continue
		}
		switch key {
		case "vendor_id", "product_id", "revision_id":
			n, err := strconv.ParseInt(values[0], 0, 32)
			if err != nil {
				return nil, errors.New("invalid numeric value for " + key)
			}
			filters[key] = int(n)
		default:
			filters[key] = values[0]
		}
	}
	return filters, nil
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrAmbiguousName):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrUnknownType):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, err)
	}
}

func (h *Handler) scanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scanner.ErrInvalidFilter):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scanner.ErrScanUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.internalError(w, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Request failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}
