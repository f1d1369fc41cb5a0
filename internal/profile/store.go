package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	ProfilesFileName       = "profiles.json"
	CurrentProfileFileName = "current_profile.txt"
)

var (
	// ErrNotFound is returned when a profile name is not in the store.
	ErrNotFound = errors.New("profile not found")
	// ErrExists is returned by Create when the name is already taken.
	ErrExists = errors.New("profile already exists")
	// ErrEmptyName is returned for blank profile names.
	ErrEmptyName = errors.New("profile name is empty")
)

// Store persists profiles as one JSON document plus a plain-text pointer
// to the current profile. Stores opened on the same directory within a
// process share one lock. Writes go to a unique temp file that is renamed
// over the document, so readers in other processes never see a torn file.
type Store struct {
	dir         string
	path        string
	currentPath string
	lang        string

	mu    *sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	hooks []func(Profile)
	log   *slog.Logger
}

var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

func lockFor(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()
	mu, ok := pathLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		pathLocks[path] = mu
	}
	return mu
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand overrides the random source used for avatars and tags.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithLanguage sets the language recorded on newly created profiles.
func WithLanguage(lang string) Option {
	return func(s *Store) { s.lang = lang }
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}
	s := &Store{
		dir:         dir,
		path:        filepath.Join(dir, ProfilesFileName),
		currentPath: filepath.Join(dir, CurrentProfileFileName),
		lang:        "en",
		mu:          lockFor(filepath.Join(dir, ProfilesFileName)),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d617468)),
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the location of the profiles document.
func (s *Store) Path() string { return s.path }

// CurrentPath returns the location of the current-profile pointer.
func (s *Store) CurrentPath() string { return s.currentPath }

// OnSave registers fn to run after every successful write, once per
// profile that changed. Hooks must not call back into the Store.
func (s *Store) OnSave(fn func(Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Load reads every profile. A missing file yields an empty map. A file
// that is not valid JSON is moved aside to profiles.json.corrupt and an
// empty map is returned, so a damaged file never blocks play.
func (s *Store) Load() (map[string]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("profiles file does not exist", "path", s.path)
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]Profile{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			s.log.Warn("profiles file is not an object, ignoring contents", "path", s.path)
			return map[string]Profile{}, nil
		}
		s.backupCorrupt(err)
		return map[string]Profile{}, nil
	}

	profiles := make(map[string]Profile, len(raw))
	for name, msg := range raw {
		var p Profile
		if err := json.Unmarshal(msg, &p); err != nil {
			s.log.Warn("skipping malformed profile", "profile", name, "error", err)
			continue
		}
		p.Name = name
		normalize(&p)
		profiles[name] = p
	}
	return profiles, nil
}

func (s *Store) backupCorrupt(cause error) {
	backup := s.path + ".corrupt"
	s.log.Error("profiles JSON decode error, backing up and resetting", "path", s.path, "error", cause)
	if err := os.Rename(s.path, backup); err != nil {
		s.log.Error("failed to back up corrupt profiles file", "error", err)
		return
	}
	s.log.Info("backed up corrupt profiles", "backup", backup)
}

// normalize fills defaults for records written by older versions.
func normalize(p *Profile) {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.AccountLevel < 1 {
		p.AccountLevel = accountLevel(p.XP)
	}
}

// save writes profiles atomically: encode to a uniquely named temp file in
// the same directory, fsync, then rename over the target.
func (s *Store) save(profiles map[string]Profile) error {
	out := make(map[string]Profile, len(profiles))
	for name, p := range profiles {
		out[name] = p
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}

	f, err := os.CreateTemp(s.dir, "profiles-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp profiles file: %w", err)
	}
	tmp := f.Name()
	if err := f.Chmod(0o644); err != nil {
		s.log.Debug("could not widen temp profiles file mode", "error", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp profiles file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp profiles file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp profiles file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing profiles file: %w", err)
	}
	return nil
}

func (s *Store) runHooks(p Profile) {
	for _, h := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("profile save hook panicked", "profile", p.Name, "panic", r)
				}
			}()
			h(p.clone())
		}()
	}
}

// List returns all profiles sorted by name.
func (s *Store) List() ([]Profile, error) {
	profiles, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the named profile.
func (s *Store) Get(name string) (Profile, error) {
	profiles, err := s.Load()
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

func (s *Store) newProfile(name string, profiles map[string]Profile) Profile {
	now := s.now().Unix()
	return Profile{
		Name:         name,
		Tag:          generateTag(s.rng, profiles),
		Avatar:       Avatars[s.rng.IntN(len(Avatars))],
		Lang:         s.lang,
		Level:        1,
		AccountLevel: 1,
		Created:      now,
		LastPlayed:   now,
	}
}

// Create adds a new profile with default state.
func (s *Store) Create(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return Profile{}, err
	}
	if _, ok := profiles[name]; ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrExists, name)
	}

	p := s.newProfile(name, profiles)
	profiles[name] = p
	if err := s.save(profiles); err != nil {
		return Profile{}, err
	}
	s.log.Info("profile created", "profile", name, "path", s.path)
	s.runHooks(p)
	return p, nil
}

// Record merges a game result into the named profile, creating the profile
// first if it does not exist.
func (s *Store) Record(name string, r GameResult) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		p = s.newProfile(name, profiles)
	}

	merge(&p, r)
	p.LastPlayed = s.now().Unix()
	p.Achievements = CheckAchievements(p)

	profiles[name] = p
	if err := s.save(profiles); err != nil {
		return Profile{}, err
	}
	s.log.Info("profile saved", "profile", name, "level", p.Level, "correct", p.Correct)
	s.runHooks(p)
	return p.clone(), nil
}

func merge(p *Profile, r GameResult) {
	p.Level = max(p.Level, r.Level, 1)
	p.Correct += r.Correct
	p.Wrong += r.Wrong

	switch r.Outcome {
	case OutcomeWin:
		p.GamesPlayed++
		p.GamesWon++
	case OutcomeLose:
		p.GamesPlayed++
		p.GamesLost++
	}

	st := &p.Stats
	st.MaxStreak = max(st.MaxStreak, r.MaxStreak)
	if r.NoMistakes {
		st.PerfectLevels++
	}
	if r.LevelTime > 0 && (st.FastestLevel == 0 || r.LevelTime < st.FastestLevel) {
		st.FastestLevel = r.LevelTime
	}
	st.TotalTime += r.TotalTime
	if len(r.ProblemsByOp) > 0 {
		if st.ProblemsByOp == nil {
			st.ProblemsByOp = make(map[string]int, len(r.ProblemsByOp))
		}
		for op, n := range r.ProblemsByOp {
			st.ProblemsByOp[op] += n
		}
	}

	if r.XPGain > 0 {
		p.XP += r.XPGain
	}
	p.AccountLevel = accountLevel(p.XP)
}

// Update applies fn to the named profile and persists the result. Name
// changes made by fn are ignored.
func (s *Store) Update(name string, fn func(*Profile) error) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := fn(&p); err != nil {
		return Profile{}, err
	}
	p.Name = name
	normalize(&p)
	profiles[name] = p
	if err := s.save(profiles); err != nil {
		return Profile{}, err
	}
	s.runHooks(p)
	return p.clone(), nil
}

// Delete removes the named profile and reports whether it existed. If it
// was the current profile the pointer is cleared too.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := profiles[name]; !ok {
		return false, nil
	}
	delete(profiles, name)
	if err := s.save(profiles); err != nil {
		return false, err
	}

	if cur, err := s.readPointer(); err == nil && cur == name {
		if err := os.Remove(s.currentPath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to clear current profile pointer", "error", err)
		}
	}
	s.log.Info("profile deleted", "profile", name)
	return true, nil
}

// SetCurrent records name as the current profile. The profile must exist.
func (s *Store) SetCurrent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := profiles[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.WriteFile(s.currentPath, []byte(name), 0o644); err != nil {
		return fmt.Errorf("writing current profile: %w", err)
	}
	s.log.Info("set current profile", "profile", name)
	return nil
}

// Current returns the current profile name, or "" when no pointer is set
// or the pointer names a profile that no longer exists.
func (s *Store) Current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.readPointer()
	if err != nil || name == "" {
		return "", err
	}
	profiles, err := s.load()
	if err != nil {
		return "", err
	}
	if _, ok := profiles[name]; !ok {
		s.log.Debug("current profile pointer is stale", "profile", name)
		return "", nil
	}
	return name, nil
}

func (s *Store) readPointer() (string, error) {
	data, err := os.ReadFile(s.currentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading current profile: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Leaderboard returns up to limit profiles ordered by highest level, then
// total correct, then name. A non-positive limit returns all profiles.
func (s *Store) Leaderboard(limit int) ([]Profile, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	SortLeaderboard(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// SortLeaderboard orders profiles for ranking.
func SortLeaderboard(list []Profile) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		return a.Name < b.Name
	})
}
