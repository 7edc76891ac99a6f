// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// tether-bridge is the support-chat bridge service: it accepts visitor
// websocket connections, mirrors their messages into per-session
// threads in the agent group, and relays agent replies back.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tether-support/tether/bridge"
	"github.com/tether-support/tether/channel"
	"github.com/tether-support/tether/lib/clock"
	"github.com/tether-support/tether/lib/config"
	"github.com/tether-support/tether/lib/version"
	"github.com/tether-support/tether/ops"
	"github.com/tether-support/tether/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath       string
		listenAddr       string
		apiURL           string
		groupID          int64
		requestsThreadID int64
		logsThreadID     int64
		publicOrigin     string
		opsSocketPath    string
		showVersion      bool
	)

	flag.StringVar(&configPath, "config", "", "path to tether.yaml (default: TETHER_CONFIG env)")
	flag.StringVar(&listenAddr, "listen", "", "HTTP listen address")
	flag.StringVar(&apiURL, "api-url", "", "workspace Bot API base URL")
	flag.Int64Var(&groupID, "group-id", 0, "agent group chat id")
	flag.Int64Var(&requestsThreadID, "requests-thread-id", 0, "thread id for session summary cards")
	flag.Int64Var(&logsThreadID, "logs-thread-id", 0, "thread id for the audit log")
	flag.StringVar(&publicOrigin, "public-origin", "", "public https origin; enables webhook update delivery")
	flag.StringVar(&opsSocketPath, "ops-socket", "", "Unix socket path for the operator interface")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("tether-bridge %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = listenAddr
		case "api-url":
			cfg.Workspace.APIURL = apiURL
		case "group-id":
			cfg.Workspace.GroupID = groupID
		case "requests-thread-id":
			cfg.Workspace.RequestsThreadID = requestsThreadID
		case "logs-thread-id":
			cfg.Workspace.LogsThreadID = logsThreadID
		case "public-origin":
			cfg.PublicOrigin = publicOrigin
		case "ops-socket":
			cfg.OpsSocketPath = opsSocketPath
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	token := os.Getenv("TETHER_BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("TETHER_BOT_TOKEN environment variable is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := workspace.NewClient(workspace.ClientConfig{
		APIURL: cfg.Workspace.APIURL,
		Token:  token,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	group := workspace.NewGroup(client, cfg.Workspace.GroupID, logger)

	channelServer := channel.NewServer(channel.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	b, err := bridge.New(bridge.Config{
		Workspace:        group,
		Notifier:         channelServer,
		RequestsThreadID: cfg.Workspace.RequestsThreadID,
		LogsThreadID:     cfg.Workspace.LogsThreadID,
		Clock:            clock.Real(),
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	channelServer.SetHandler(b)

	d := &dispatcher{
		client:  client,
		bridge:  b,
		groupID: cfg.Workspace.GroupID,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "OK")
	})
	mux.Handle("/ws", channelServer)

	errCh := make(chan error, 3)

	if cfg.WebhookMode() {
		path := webhookPath(token)
		mux.Handle(path, workspace.WebhookHandler(d.dispatch, logger))
		if err := registerWebhook(ctx, client, cfg.PublicOrigin+path, logger); err != nil {
			return err
		}
	} else {
		if err := client.DeleteWebhook(ctx); err != nil {
			logger.Warn("webhook removal failed, long-poll may see no updates", "error", err)
		}
		go func() {
			errCh <- workspace.RunUpdateLoop(ctx, client, d.dispatch, clock.Real(), logger)
		}()
	}

	if cfg.OpsSocketPath != "" {
		opsServer := ops.NewServer(cfg.OpsSocketPath, logger)
		ops.Register(opsServer, b)
		go func() {
			errCh <- opsServer.Serve(ctx)
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	go func() {
		logger.Info("listening",
			"addr", cfg.ListenAddr,
			"webhook_mode", cfg.WebhookMode(),
			"version", version.Info(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	channelServer.Shutdown()
	return nil
}

// loadConfig resolves the configuration source: an explicit --config
// path, then the TETHER_CONFIG environment variable, then defaults
// (for flag-only runs).
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if os.Getenv("TETHER_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// webhookPath derives the webhook path from the bot token so the
// public endpoint is unguessable without being the token itself.
func webhookPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "/telegram/" + hex.EncodeToString(sum[:])[:32]
}

// registerWebhook makes the workspace push updates to webhookURL,
// skipping the call when the registration is already current.
func registerWebhook(ctx context.Context, client *workspace.Client, webhookURL string, logger *slog.Logger) error {
	info, err := client.GetWebhookInfo(ctx)
	if err != nil {
		return err
	}
	if info.URL == webhookURL {
		logger.Info("webhook already registered", "pending", info.PendingUpdateCount)
		return nil
	}
	if err := client.SetWebhook(ctx, webhookURL); err != nil {
		return err
	}
	logger.Info("webhook registered")
	return nil
}

// chatIDReply formats the /chatid response agents use while wiring up
// a new group.
func chatIDReply(chatID, threadID int64) string {
	reply := "Chat ID: " + strconv.FormatInt(chatID, 10)
	if threadID != 0 {
		reply += "\nThread ID: " + strconv.FormatInt(threadID, 10)
	}
	return reply
}

// command extracts the leading slash command from text, with any
// @botname suffix removed. Returns "" when text is not a command.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	name, _, _ := strings.Cut(fields[0], "@")
	return name
}
