// Package mcp exposes scanning and the device inventory as MCP tools so
// AI assistants can query and manage devices.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paularlott/mcp"
	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/scanner"
	"github.com/zea2/devicemanager/internal/store"
)

// Server wraps the MCP server with the device store.
type Server struct {
	mcpServer   *mcp.Server
	store       *store.Store
	persist     func() error
	bearerToken string
}

// NewServer creates an MCP server for the device manager. The persist
// callback, when set, writes the inventory back after mutating tools.
func NewServer(s *store.Store, persist func() error, bearerToken string) *Server {
	srv := &Server{
		mcpServer:   mcp.NewServer("devicemanager", "1.0.0"),
		store:       s,
		persist:     persist,
		bearerToken: bearerToken,
	}
	srv.registerTools()
	return srv
}

func (s *Server) registerTools() {
	// device_scan - List connected devices
	s.mcpServer.RegisterTool(
		mcp.NewTool("device_scan", "List the devices currently connected to the host. Results are cached; set rescan to get fresh data.",
			mcp.String("type", "Device type to scan (usb or lan); scans all types if not specified"),
			mcp.String("rescan", "Set to 'true' to bypass the scan cache"),
		),
		s.handleDeviceScan,
	)

	// device_find - Find connected devices by attribute values
	s.mcpServer.RegisterTool(
		mcp.NewTool("device_find", "Find connected devices matching attribute values. Filters that don't apply to a device type exclude that type from the result.",
			mcp.String("type", "Device type to search (usb or lan); searches all types if not specified"),
			mcp.String("address", "Device address (device path or IP)"),
			mcp.String("serial", "USB serial number"),
			mcp.String("mac_address", "LAN MAC address, any common separator"),
			mcp.String("hostname", "LAN hostname"),
			mcp.String("vendor_id", "USB vendor ID, decimal or 0x-prefixed hex"),
			mcp.String("product_id", "USB product ID, decimal or 0x-prefixed hex"),
			mcp.String("rescan", "Set to 'true' to bypass the scan cache"),
		),
		s.handleDeviceFind,
	)

	// inventory_list - List all stored devices
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_list", "List all devices stored in the inventory, grouped by name and type"),
		s.handleInventoryList,
	)

	// inventory_get - Get stored devices by name
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_get", "Get the device records stored under a name",
			mcp.String("name", "Device name", mcp.Required()),
		),
		s.handleInventoryGet,
	)

	// inventory_add - Store the device behind an address under a name
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_add", "Resolve the connected device behind an address and store it in the inventory under a name",
			mcp.String("name", "Device name", mcp.Required()),
			mcp.String("address", "Device address (device path or IP)", mcp.Required()),
			mcp.String("type", "Device type (usb or lan); searches all types if not specified"),
		),
		s.handleInventoryAdd,
	)

	// inventory_remove - Remove stored devices
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_remove", "Remove device records from the inventory",
			mcp.String("name", "Device name", mcp.Required()),
			mcp.String("type", "Device type (usb or lan); removes all types if not specified"),
		),
		s.handleInventoryRemove,
	)

	// inventory_refresh - Re-resolve all stored device addresses
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_refresh", "Re-resolve the addresses of all stored devices against the currently connected devices"),
		s.handleInventoryRefresh,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token
// authentication.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

func (s *Server) handleDeviceScan(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	rescan := req.StringOr("rescan", "") == "true"

	devices, err := s.scanWith(req, rescan, scanner.Filters{})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return mcp.NewToolResponseText("No devices found"), nil
	}
	return jsonResponse(devices)
}

func (s *Server) handleDeviceFind(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	rescan := req.StringOr("rescan", "") == "true"

	filters := scanner.Filters{}
	for _, name := range []string{"address", "serial", "mac_address", "hostname"} {
		if v := req.StringOr(name, ""); v != "" {
			filters[name] = v
		}
	}
	for _, name := range []string{"vendor_id", "product_id"} {
		v := req.StringOr(name, "")
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 0, 32)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams(name + " must be a decimal or 0x-prefixed hex number")
		}
		filters[name] = int(n)
	}
	if len(filters) == 0 {
		return nil, mcp.NewToolErrorInvalidParams("at least one filter is required")
	}

	devices, err := s.scanWith(req, rescan, filters)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return mcp.NewToolResponseText("No devices match the given filters"), nil
	}
	return jsonResponse(devices)
}

// scanWith runs a scan constrained to the requested type, or over all
// types when none is given.
func (s *Server) scanWith(req *mcp.ToolRequest, rescan bool, filters scanner.Filters) ([]any, error) {
	typeKey := req.StringOr("type", "")

	var devices []any
	if typeKey != "" {
		sub, err := s.store.Scanner().Get(typeKey)
		if err != nil {
			return nil, mcp.NewToolErrorInvalidParams("unknown device type: " + typeKey)
		}
		found, err := sub.FindDevices(rescan, filters)
		if err != nil {
			if errors.Is(err, scanner.ErrInvalidFilter) {
				return nil, mcp.NewToolErrorInvalidParams(err.Error())
			}
			return nil, mcp.NewToolErrorInternal("scan failed: " + err.Error())
		}
		for _, d := range found {
			devices = append(devices, d)
		}
		return devices, nil
	}

	found, err := s.store.Scanner().FindDevices(rescan, filters)
	if err != nil {
		return nil, mcp.NewToolErrorInternal("scan failed: " + err.Error())
	}
	for _, d := range found {
		devices = append(devices, d)
	}
	return devices, nil
}

func (s *Server) handleInventoryList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	items := s.store.Items()
	if len(items) == 0 {
		return mcp.NewToolResponseText("The inventory is empty"), nil
	}
	return jsonResponse(items)
}

func (s *Server) handleInventoryGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}

	devices, err := s.store.Devices(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResponseText(fmt.Sprintf("No device stored under %q", name)), nil
		}
		return nil, mcp.NewToolErrorInternal(err.Error())
	}
	return jsonResponse(devices)
}

func (s *Server) handleInventoryAdd(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}
	address, err := req.String("address")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("address is required: " + err.Error())
	}

	var typeKey any
	if t := req.StringOr("type", ""); t != "" {
		typeKey = t
	}

	log.Debug("MCP inventory add request", "name", name, "address", address)
	if err := s.store.SetByAddress(name, address, typeKey); err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return nil, mcp.NewToolErrorInvalidParams(err.Error())
		}
		log.Error("MCP inventory add failed", "error", err, "name", name)
		return nil, mcp.NewToolErrorInternal("failed to add device: " + err.Error())
	}
	if err := s.persistInventory(); err != nil {
		return nil, mcp.NewToolErrorInternal("failed to persist inventory: " + err.Error())
	}

	log.Info("MCP inventory add completed", "name", name, "address", address)
	return mcp.NewToolResponseText(fmt.Sprintf("Device at %s stored as %q", address, name)), nil
}

func (s *Server) handleInventoryRemove(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}

	if t := req.StringOr("type", ""); t != "" {
		err = s.store.RemoveType(name, t)
	} else {
		err = s.store.Remove(name)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, mcp.NewToolErrorInvalidParams(err.Error())
		}
		return nil, mcp.NewToolErrorInternal("failed to remove device: " + err.Error())
	}
	if err := s.persistInventory(); err != nil {
		return nil, mcp.NewToolErrorInternal("failed to persist inventory: " + err.Error())
	}

	log.Info("MCP inventory remove completed", "name", name)
	return mcp.NewToolResponseText(fmt.Sprintf("Device %q removed from inventory", name)), nil
}

func (s *Server) handleInventoryRefresh(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if err := s.store.RefreshAll(); err != nil {
		return nil, mcp.NewToolErrorInternal("refresh failed: " + err.Error())
	}
	if err := s.persistInventory(); err != nil {
		return nil, mcp.NewToolErrorInternal("failed to persist inventory: " + err.Error())
	}

	log.Info("MCP inventory refresh completed", "devices", s.store.Len())
	return mcp.NewToolResponseText(fmt.Sprintf("Inventory refreshed, %d device names resolved", s.store.Len())), nil
}

func (s *Server) persistInventory() error {
	if s.persist == nil {
		return nil
	}
	return s.persist()
}

func jsonResponse(v any) (*mcp.ToolResponse, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to encode response: " + err.Error())
	}
	return mcp.NewToolResponseText(string(data)), nil
}
