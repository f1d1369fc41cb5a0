package profile

import (
	"fmt"
	"sync"
	"time"
)

// ProfileSource defines the store operations the Manager needs.
// Implemented by *Store.
type ProfileSource interface {
	Current() (string, error)
	Get(name string) (Profile, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached access to the current profile. The terminal menu
// header reads it on every redraw; the cache keeps that off disk.
type Manager struct {
	source ProfileSource
	clock  Clock
	ttl    time.Duration

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 5-second cache TTL.
func NewManager(source ProfileSource) *Manager {
	return &Manager{
		source: source,
		clock:  realClock{},
		ttl:    5 * time.Second,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(source ProfileSource, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		source: source,
		clock:  clock,
		ttl:    ttl,
	}
}

// CurrentProfile returns the current profile, or ok=false when none is
// selected.
func (m *Manager) CurrentProfile() (p Profile, ok bool, err error) {
	// Fast path: read lock for cache hit.
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := m.cached.clone()
		m.mu.RUnlock()
		return p, true, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return m.cached.clone(), true, nil
	}

	name, err := m.source.Current()
	if err != nil {
		return Profile{}, false, fmt.Errorf("reading current profile: %w", err)
	}
	if name == "" {
		m.cached = nil
		return Profile{}, false, nil
	}
	loaded, err := m.source.Get(name)
	if err != nil {
		return Profile{}, false, fmt.Errorf("loading profile %q: %w", name, err)
	}
	m.cached = &loaded
	m.cachedAt = m.clock.Now()
	return loaded.clone(), true, nil
}

// Invalidate drops the cached profile. Call after any write that may
// change the current profile.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

// Summary returns a one-line description of the current profile.
func (m *Manager) Summary() (string, error) {
	p, ok, err := m.CurrentProfile()
	if err != nil {
		return "", fmt.Errorf("getting profile for summary: %w", err)
	}
	if !ok {
		return "No profile selected.", nil
	}
	return Summarize(p), nil
}

// Summarize renders p's headline stats on one line.
func Summarize(p Profile) string {
	if p.GamesPlayed == 0 && p.Correct == 0 {
		return fmt.Sprintf("%s %s: level %d, no games yet.", p.Avatar, p.Name, p.Level)
	}
	return fmt.Sprintf("%s %s: level %d, %d games, %.0f%% accuracy, %.0f%% wins, best streak %d.",
		p.Avatar, p.Name, p.Level, p.GamesPlayed, p.Accuracy(), p.WinRate(), p.Stats.MaxStreak)
}
