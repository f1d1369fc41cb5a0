package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mathblast/mathblast/internal/config"
	"github.com/mathblast/mathblast/internal/display"
	"github.com/mathblast/mathblast/internal/game"
	"github.com/mathblast/mathblast/internal/i18n"
	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/recognizer"
	"github.com/mathblast/mathblast/internal/storage"
	"github.com/mathblast/mathblast/internal/ui"
)

const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the game",
	Long: `Start the game on the best available front end.

Examples:
  mathblast play
  mathblast play --profile Ana --backend terminal
  mathblast play --screen 3840x2160`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _ := cmd.Flags().GetString("backend")
		player, _ := cmd.Flags().GetString("profile")
		screen, _ := cmd.Flags().GetString("screen")
		return runPlay(backend, player, screen)
	},
}

func init() {
	playCmd.Flags().String("backend", "", "UI backend: auto, fyne or terminal (default from config)")
	playCmd.Flags().String("profile", "", "profile to play as")
	playCmd.Flags().String("screen", "", "screen size as WIDTHxHEIGHT (default: detect)")
}

// parseScreen parses "3840x2160".
func parseScreen(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid screen size %q, want WIDTHxHEIGHT", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid screen size %q, want WIDTHxHEIGHT", s)
	}
	return w, h, nil
}

// screenMetrics resolves the display metrics from the flag, the OS or a
// full-HD fallback, in that order.
func screenMetrics(cfg config.Config, screen string) (display.Metrics, error) {
	w, h := 0, 0
	if screen != "" {
		var err error
		if w, h, err = parseScreen(screen); err != nil {
			return display.Metrics{}, err
		}
	} else {
		w, h = display.ScreenSize()
	}
	if w <= 0 || h <= 0 {
		w, h = fallbackWidth, fallbackHeight
	}
	return display.Detect(w, h, cfg.Display.ScaleOverride), nil
}

// gameLanguage prefers the configured language and falls back to the
// environment locale.
func gameLanguage(cfg config.Config) string {
	if cfg.Game.Lang != "" {
		return i18n.Match(cfg.Game.Lang)
	}
	return i18n.FromEnvironment()
}

func runPlay(backend, player, screen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backend == "" {
		backend = cfg.UI.Backend
	}

	display.EnableDPIAwareness()
	metrics, err := screenMetrics(cfg, screen)
	if err != nil {
		return err
	}
	slog.Debug("display detected", "width", metrics.Width, "height", metrics.Height, "scale", metrics.ScaleFactor)

	lang := gameLanguage(cfg)
	profiles, err := profile.Open(cfg.Storage.DataDir, profile.WithLanguage(lang))
	if err != nil {
		return fmt.Errorf("opening profiles: %w", err)
	}

	app := ui.App{
		Profiles:   profiles,
		Lang:       lang,
		Metrics:    metrics,
		Theme:      display.ThemeFor(cfg.Game.HighContrast),
		Recognizer: recognizer.Open(cfg.Recognizer.ModelPath),
		Session:    game.Options{ExtendedTime: cfg.Game.ExtendedTime},
		Player:     player,
		Current:    profile.NewManager(profiles),
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		slog.Warn("game history and sync queue disabled", "error", err)
	} else {
		defer closeStore(store)
		attachStorage(cfg, &app, profiles, store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return ui.Run(ctx, backend, app)
}

// attachStorage records finished games in the history table and, with
// cloud sync on, queues every profile save for upload.
func attachStorage(cfg config.Config, app *ui.App, profiles *profile.Store, store *storage.Store) {
	app.OnRecord = historyRecorder(store)
	if watchSync(cfg, profiles, store) {
		slog.Debug("queueing profile saves for cloud sync", "url", cfg.Sync.URL)
	}
}

type historySaver interface {
	SaveGameResult(r storage.GameRecord) (storage.GameRecord, error)
}

// historyRecorder appends every recorded result to the game history.
func historyRecorder(h historySaver) func(string, profile.GameResult) {
	return func(name string, r profile.GameResult) {
		if _, err := h.SaveGameResult(storage.NewGameRecord(name, r)); err != nil {
			slog.Warn("saving game history", "profile", name, "error", err)
		}
	}
}
