package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ThinhNguyen0811/map-bot/pkg/bridge"
	"github.com/ThinhNguyen0811/map-bot/pkg/config"
	"github.com/ThinhNguyen0811/map-bot/pkg/controller"
	"github.com/ThinhNguyen0811/map-bot/pkg/model/gemini"
	"github.com/ThinhNguyen0811/map-bot/pkg/server"
	"github.com/ThinhNguyen0811/map-bot/pkg/session"
)

func main() {
	var (
		configPath    string
		addr          string
		modelName     string
		toolURL       string
		historyWindow int
		debug         bool
	)

	root := &cobra.Command{
		Use:          "map-bot",
		Short:        "Conversational map assistant server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("model") {
				cfg.Model = modelName
			}
			if cmd.Flags().Changed("tool-url") {
				cfg.Tools.URL = toolURL
			}
			if cmd.Flags().Changed("history-window") {
				cfg.HistoryWindow = historyWindow
			}

			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	root.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	root.Flags().StringVar(&modelName, "model", "gemini-2.0-flash", "Model identifier")
	root.Flags().StringVar(&toolURL, "tool-url", "", "Tool endpoint URL (http transport)")
	root.Flags().IntVar(&historyWindow, "history-window", 20, "Retained turns per session")
	root.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}

	// Tool bridge. The endpoint connection and tool catalog are loaded
	// exactly once here; failure is fatal since the agent cannot run
	// without its toolset.
	toolBridge, err := bridge.New(cfg.Tools, slog.Default())
	if err != nil {
		return err
	}
	defer toolBridge.Close()

	if err := toolBridge.Connect(ctx); err != nil {
		slog.Error("Failed to connect to tool endpoint", "error", err)
		os.Exit(1)
	}

	// Model provider.
	provider, err := gemini.New(ctx, apiKey)
	if err != nil {
		slog.Error("Failed to initialize Gemini provider", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(cfg.HistoryWindow)
	ctrl := controller.New(provider, toolBridge, cfg.Model, cfg.Instructions, slog.Default())
	srv := server.New(sessions, ctrl, toolBridge, cfg.Greeting)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
