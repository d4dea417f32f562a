package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/lironoshka111/supportme/internal/auth"
	"github.com/lironoshka111/supportme/internal/config"
	"github.com/lironoshka111/supportme/internal/hub"
	"github.com/lironoshka111/supportme/internal/lookup"
	"github.com/lironoshka111/supportme/internal/moderation"
	"github.com/lironoshka111/supportme/internal/server"
	"github.com/lironoshka111/supportme/internal/service"
	"github.com/lironoshka111/supportme/internal/storage/sqlite"
	"github.com/lironoshka111/supportme/pkg/logging"
)

func main() {
	var configPath string
	var port int

	rootCmd := &cobra.Command{
		Use:   "supportme-server",
		Short: "Community support chat backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, port)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	logging.Setup()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Server.DBPath)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	eventHub := hub.New()
	screener := moderation.NewClient(cfg.Moderation.BaseURL, cfg.Moderation.Timeout)

	srv := server.New(
		service.NewAuthService(authenticator, jwtManager, store),
		service.NewRoomService(store, eventHub),
		service.NewChatService(store, eventHub, screener),
		lookup.NewConditionsClient(cfg.Lookup.ConditionsURL, cfg.Lookup.Timeout),
		lookup.NewGeocodeClient(cfg.Lookup.GeocodeURL, cfg.Lookup.Timeout),
		jwtManager,
	)

	// h2c lets HTTP/2 clients in without TLS; HTTP/1.1 (and the WebSocket
	// upgrade) pass through untouched.
	handler := h2c.NewHandler(srv.Handler(), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		return err
	}
	return nil
}
