package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mathblast/mathblast/internal/api"
	"github.com/mathblast/mathblast/internal/config"
	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/storage"
	"github.com/mathblast/mathblast/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local companion API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running companion API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server, storage and sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "mathblast.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// openProfiles opens the profile store under the configured data dir.
func openProfiles(cfg config.Config) (*profile.Store, error) {
	s, err := profile.Open(cfg.Storage.DataDir, profile.WithLanguage(cfg.Game.Lang))
	if err != nil {
		return nil, fmt.Errorf("opening profiles: %w", err)
	}
	return s, nil
}

// watchSync queues a sync job for every profile save when cloud sync is
// configured. Any process may enqueue; the serve worker drains the queue.
func watchSync(cfg config.Config, profiles *profile.Store, q syncer.JobEnqueuer) bool {
	if cfg.Sync.URL == "" {
		return false
	}
	profiles.OnSave(syncer.Enqueuer(q))
	return true
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

func runServer(withMCP bool) error {
	fmt.Fprintf(stderr, "mathblast version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("mathblast is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("mathblast is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStore(store)

	profiles, err := openProfiles(cfg)
	if err != nil {
		return err
	}

	if cfg.Sync.URL != "" {
		if n, err := store.RequeueRunning(); err != nil {
			slog.Warn("requeueing interrupted sync jobs", "error", err)
		} else if n > 0 {
			slog.Info("requeued interrupted sync jobs", "count", n)
		}
		watchSync(cfg, profiles, store)
		worker := syncer.NewWorker(store, profiles, syncer.NewClient(cfg.Sync.URL), cfg.SyncPollInterval())
		go worker.Run(ctx)
		slog.Info("cloud sync enabled", "url", cfg.Sync.URL)
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Profiles: profiles, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewAppHandler(api.AppDeps{
			Profiles: profiles,
			History:  store,
			Token:    apiToken,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(stderr, "mathblast listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := loadConfig()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("mathblast is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop mathblast (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to mathblast (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	running := false
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode == http.StatusOK:
		resp.Body.Close()
		running = true
		printStatus("Server", "running on port %d", cfg.Server.Port)
	default:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	}

	if running {
		if c, err := newAPIClient(cfg); err == nil {
			var top []struct {
				Name string `json:"name"`
				XP   int    `json:"xp"`
			}
			if err := c.getJSON(ctx, "/leaderboard?limit=1", &top); err != nil {
				printWarning("querying server: %v", err)
			} else if len(top) > 0 {
				printStatus("Top player", "%s (%d XP)", top[0].Name, top[0].XP)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if profiles, err := openProfiles(cfg); err == nil {
		if list, err := profiles.List(); err == nil {
			printStatus("Profiles", "%d", len(list))
		}
		summary, err := profile.NewManager(profiles).Summary()
		if err == nil {
			printStatus("Current", "%s", summary)
		}
	}

	if cfg.Sync.URL == "" {
		printStatus("Sync", "disabled")
		return nil
	}
	printStatus("Sync", "%s", cfg.Sync.URL)
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("opening storage: %v", err)
		return nil
	}
	defer closeStore(store)
	counts, err := store.JobCounts()
	if err != nil {
		printWarning("reading job counts: %v", err)
		return nil
	}
	printStatus("Sync jobs", "%d pending, %d running, %d failed",
		counts["pending"], counts["running"], counts["failed"])
	return nil
}
