// Package server implements the HTTP server command exposing the API and
// MCP endpoints.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paularlott/cli"
	"github.com/zea2/devicemanager/internal/api"
	"github.com/zea2/devicemanager/internal/app"
	"github.com/zea2/devicemanager/internal/config"
	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/mcp"
	"github.com/zea2/devicemanager/internal/worker"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the device manager server",
		Description: "Start the HTTP server with the device API, MCP endpoint and periodic inventory refresh",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen-addr",
				Usage:   "Address to listen on",
				EnvVars: []string{"DM_LISTEN_ADDR"},
			},
			&cli.StringFlag{
				Name:    "bearer-token",
				Usage:   "Bearer token required for API and MCP requests",
				EnvVars: []string{"DM_BEARER_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "storage-backend",
				Usage:   "Inventory backend (file or sqlite)",
				EnvVars: []string{"DM_STORAGE_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "refresh-schedule",
				Usage:   "Cron expression for periodic inventory refreshes",
				EnvVars: []string{"DM_REFRESH_SCHEDULE"},
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(&config.Config{
				ListenAddr:      cmd.GetString("listen-addr"),
				BearerToken:     cmd.GetString("bearer-token"),
				StorageBackend:  cmd.GetString("storage-backend"),
				RefreshSchedule: cmd.GetString("refresh-schedule"),
			})
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	log.Info("Configuration loaded", "source", cfg.String(), "backend", cfg.StorageBackend)

	s, inv, err := app.OpenStore(cfg)
	if err != nil {
		log.Error("Failed to open inventory", "error", err)
		return err
	}
	defer inv.Close()

	persist := func() error { return inv.Save(s) }

	apiHandler := api.NewHandler(s, persist)
	mcpServer := mcp.NewServer(s, persist, cfg.BearerToken)

	scheduler, err := worker.NewScheduler(cfg.RefreshSchedule, func(ctx context.Context) error {
		if err := s.RefreshAll(); err != nil {
			return err
		}
		return persist()
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)
	mux.HandleFunc("/mcp", mcpServer.HandleRequest)

	var handler http.Handler = mux
	if cfg.IsAPIAuthEnabled() {
		handler = api.AuthMiddleware(cfg.BearerToken, handler)
	}
	handler = api.SecurityHeadersMiddleware(handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down server...")
		server.Close()
	}()

	log.Info("Starting device manager server", "addr", cfg.ListenAddr)
	log.Info("API available", "url", "http://localhost"+cfg.ListenAddr+"/api/")
	log.Info("MCP available", "url", "http://localhost"+cfg.ListenAddr+"/mcp")
	if cfg.IsAPIAuthEnabled() {
		log.Info("API authentication enabled")
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Server error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}
