// ABOUTME: Entry point for the toolgate server
// ABOUTME: Routes tool calls to registered backend service adapters

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/toolgate/internal/config"
	"github.com/2389/toolgate/internal/dispatch"
	"github.com/2389/toolgate/internal/mcp"
	"github.com/2389/toolgate/internal/registry"
	"github.com/2389/toolgate/internal/server"
	"github.com/2389/toolgate/internal/services/github"
	"github.com/2389/toolgate/internal/services/linear"
	"github.com/2389/toolgate/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _              _             _
 | |_ ___   ___ | | __ _  __ _| |_ ___
 | __/ _ \ / _ \| |/ _' |/ _' | __/ _ \
 | || (_) | (_) | | (_| | (_| | ||  __/
  \__\___/ \___/|_|\__, |\__,_|\__\___|
                   |___/
`

// getConfigPath returns the path to the toolgate config file.
// Priority: TOOLGATE_CONFIG env var > XDG_CONFIG_HOME/toolgate/toolgate.yaml > ~/.config/toolgate/toolgate.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TOOLGATE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "toolgate.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "toolgate", "toolgate.yaml")
}

// loadConfig loads the config file, falling back to defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: toolgate <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                    Start the toolgate server")
		fmt.Println("  health                   Check server health")
		fmt.Println("  services                 List registered services")
		fmt.Println("  tools                    List registered tools")
		fmt.Println("  call <tool> [params]     Execute a tool with JSON params")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "services":
		err = runGet(ctx, "/services")
	case "tools":
		err = runGet(ctx, "/tools")
	case "call":
		err = runCall(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Audit:   %s\n", cfg.Database.Path)
	}
	fmt.Println()

	logger.Info("starting toolgate",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	reg := registry.New(logger)
	defer reg.Close()

	if cfg.Services.GitHub.Enabled {
		adapter := github.New(cfg.Services.GitHub.BaseURL, cfg.Services.GitHub.APIKey, logger)
		if err := reg.Register(adapter); err != nil {
			return fmt.Errorf("registering github adapter: %w", err)
		}
	}
	if cfg.Services.Linear.Enabled {
		adapter := linear.New(cfg.Services.Linear.BaseURL, cfg.Services.Linear.APIKey, logger)
		if err := reg.Register(adapter); err != nil {
			return fmt.Errorf("registering linear adapter: %w", err)
		}
	}

	var recorder dispatch.Recorder
	var lister server.ExecutionLister
	if cfg.Database.Path != "" {
		auditStore, err := store.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		defer auditStore.Close()
		recorder = auditStore
		lister = auditStore
	}

	engine := dispatch.NewEngine(dispatch.Config{
		Registry: reg,
		Logger:   logger,
		Timeout:  cfg.Dispatch.Timeout,
		Recorder: recorder,
	})

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry: reg,
		Engine:   engine,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	srv, err := server.New(server.Config{
		Registry:   reg,
		Engine:     engine,
		Logger:     logger,
		Executions: lister,
		Extra:      []server.Registrar{mcpServer},
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx, cfg.Server.HTTPAddr)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runGet fetches a listing endpoint and pretty-prints the JSON response.
func runGet(ctx context.Context, path string) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(prettyJSON(body))
	return nil
}

func runCall(ctx context.Context) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: toolgate call <tool> [params-json]")
	}
	toolName := os.Args[2]

	params := "{}"
	if len(os.Args) > 3 {
		params = os.Args[3]
	}
	if !json.Valid([]byte(params)) {
		return fmt.Errorf("params must be valid JSON")
	}

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	reqBody, err := json.Marshal(map[string]any{
		"tool_name": toolName,
		"params":    json.RawMessage(params),
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("http://%s/execute", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqBody)))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(prettyJSON(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tool call failed: status %d", resp.StatusCode)
	}
	return nil
}

// prettyJSON re-indents a JSON payload, returning it unchanged if it
// doesn't parse.
func prettyJSON(data []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return strings.TrimSpace(out.String())
}
