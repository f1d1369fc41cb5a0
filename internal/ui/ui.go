// Package ui runs the game on one of several front ends. Backends register
// themselves at init time; optional ones are compiled in with build tags.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mathblast/mathblast/internal/display"
	"github.com/mathblast/mathblast/internal/game"
	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/recognizer"
)

const (
	BackendAuto     = "auto"
	BackendFyne     = "fyne"
	BackendTerminal = "terminal"
)

var (
	// ErrNoBackend means no backend is compiled in.
	ErrNoBackend = errors.New("no UI backend available")
	// ErrUnavailable is returned by Run when a compiled-in backend cannot
	// start in the current environment, for example without a display.
	ErrUnavailable = errors.New("UI backend unavailable")
)

// autoOrder is the preference order for BackendAuto.
var autoOrder = []string{BackendFyne, BackendTerminal}

// Backend is a front end for the game.
type Backend interface {
	Name() string
	Run(ctx context.Context, app App) error
}

// Profiles is the part of the profile store the UI uses.
type Profiles interface {
	List() ([]profile.Profile, error)
	Get(name string) (profile.Profile, error)
	Create(name string) (profile.Profile, error)
	Record(name string, r profile.GameResult) (profile.Profile, error)
	SetCurrent(name string) error
	Current() (string, error)
	Leaderboard(limit int) ([]profile.Profile, error)
}

// App is what a backend needs to run the game.
type App struct {
	Profiles   Profiles
	Lang       string
	Metrics    display.Metrics
	Theme      display.Theme
	Recognizer recognizer.Recognizer
	Session    game.Options

	// Player is the profile to play as. Empty means the backend asks.
	Player string

	// OnRecord is called after a result has been merged into the profile.
	OnRecord func(name string, r profile.GameResult)

	// Current caches the current profile for headers redrawn every frame.
	// Nil disables the summary line.
	Current *profile.Manager
}

// SetCurrent makes name the current profile.
func (a App) SetCurrent(name string) error {
	if err := a.Profiles.SetCurrent(name); err != nil {
		return err
	}
	a.invalidate()
	return nil
}

// PlayerSummary describes player in one line when player is the current
// profile, and returns the bare name otherwise.
func (a App) PlayerSummary(player string) string {
	if player == "" || a.Current == nil {
		return player
	}
	p, ok, err := a.Current.CurrentProfile()
	if err != nil {
		slog.Debug("reading current profile", "error", err)
		return player
	}
	if !ok || p.Name != player {
		return player
	}
	return profile.Summarize(p)
}

func (a App) invalidate() {
	if a.Current != nil {
		a.Current.Invalidate()
	}
}

// NewSession starts a game for player. Cleared levels are recorded as they
// happen so a crash loses at most the current level.
func (a App) NewSession(player string) *game.Session {
	opts := a.Session
	prev := opts.OnLevel
	opts.OnLevel = func(r profile.GameResult) {
		a.Record(player, r)
		if prev != nil {
			prev(r)
		}
	}
	return game.New(opts)
}

// Record merges r into player's profile. Failures are logged; the game
// carries on.
func (a App) Record(player string, r profile.GameResult) {
	if player == "" || a.Profiles == nil {
		return
	}
	if _, err := a.Profiles.Record(player, r); err != nil {
		slog.Error("recording game result", "profile", player, "error", err)
		return
	}
	a.invalidate()
	if a.OnRecord != nil {
		a.OnRecord(player, r)
	}
}

// Finish ends s and records what it has not yet reported.
func (a App) Finish(player string, s *game.Session) {
	if s == nil {
		return
	}
	if !s.Over() {
		s.Quit()
	}
	r := s.Result()
	if r.Correct == 0 && r.Wrong == 0 && r.Outcome == profile.OutcomeNone {
		return
	}
	a.Record(player, r)
}

var (
	regMu    sync.RWMutex
	backends = map[string]Backend{}
)

// Register makes b available to Select. It panics on a duplicate name.
func Register(b Backend) {
	regMu.Lock()
	defer regMu.Unlock()
	name := b.Name()
	if _, dup := backends[name]; dup {
		panic("ui: backend registered twice: " + name)
	}
	backends[name] = b
}

// Registered returns the names of the compiled-in backends.
func Registered() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookup(name string) (Backend, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// Select returns the backend named preferred. "auto" or "" picks the best
// compiled-in one. A backend that is not compiled in falls back to the
// terminal with a warning.
func Select(preferred string) (Backend, error) {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" || preferred == BackendAuto {
		for _, name := range autoOrder {
			if b, ok := lookup(name); ok {
				return b, nil
			}
		}
		return nil, ErrNoBackend
	}

	if b, ok := lookup(preferred); ok {
		return b, nil
	}
	slog.Warn("UI backend not available, falling back", "backend", preferred, "fallback", BackendTerminal)
	if b, ok := lookup(BackendTerminal); ok {
		return b, nil
	}
	return nil, ErrNoBackend
}

// Run selects a backend and runs app on it. If the backend reports
// ErrUnavailable, the terminal backend is tried instead.
func Run(ctx context.Context, preferred string, app App) error {
	b, err := Select(preferred)
	if err != nil {
		return err
	}
	slog.Debug("starting UI", "backend", b.Name())
	err = b.Run(ctx, app)
	if !errors.Is(err, ErrUnavailable) || b.Name() == BackendTerminal {
		return err
	}

	slog.Warn("UI backend failed to start, falling back", "backend", b.Name(), "fallback", BackendTerminal, "error", err)
	fallback, ok := lookup(BackendTerminal)
	if !ok {
		return fmt.Errorf("%w: %w", ErrNoBackend, err)
	}
	return fallback.Run(ctx, app)
}
