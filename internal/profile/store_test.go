package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(),
		WithClock(func() time.Time { return fixedNow }),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestLoad_MissingFile(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %d entries", len(got))
	}
}

func TestLoad_CorruptFileIsBackedUp(t *testing.T) {
	s := openTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"alice": {"level": 3`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
	if _, err := os.Stat(s.Path() + ".corrupt"); err != nil {
		t.Errorf("expected .corrupt backup: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("expected original file to be moved, stat err = %v", err)
	}
}

func TestLoad_NonObjectTopLevel(t *testing.T) {
	s := openTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`["alice"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
	if _, err := os.Stat(s.Path() + ".corrupt"); !os.IsNotExist(err) {
		t.Error("non-object file should not be backed up as corrupt")
	}
}

func TestLoad_SkipsMalformedEntry(t *testing.T) {
	s := openTestStore(t)
	doc := `{"alice": {"level": 4, "correct": 30}, "bob": {"level": "high"}}`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(got))
	}
	a := got["alice"]
	if a.Name != "alice" || a.Level != 4 || a.Correct != 30 || a.AccountLevel != 1 {
		t.Errorf("alice = %+v", a)
	}
}

func TestCreate(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Create("  alice ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name != "alice" {
		t.Errorf("Name = %q, want trimmed alice", p.Name)
	}
	if p.Level != 1 || p.Correct != 0 || p.AccountLevel != 1 {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if !regexp.MustCompile(`^P\d{4}$`).MatchString(p.Tag) {
		t.Errorf("Tag = %q, want P####", p.Tag)
	}
	if p.Created != fixedNow.Unix() || p.LastPlayed != fixedNow.Unix() {
		t.Errorf("timestamps = %d/%d", p.Created, p.LastPlayed)
	}
	if p.Lang != "en" {
		t.Errorf("Lang = %q, want en", p.Lang)
	}

	if _, err := s.Create("alice"); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create err = %v, want ErrExists", err)
	}
	if _, err := s.Create("   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank Create err = %v, want ErrEmptyName", err)
	}
}

func TestCreate_WithLanguage(t *testing.T) {
	s, err := Open(t.TempDir(), WithLanguage("fr"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Create("zoe")
	if err != nil {
		t.Fatal(err)
	}
	if p.Lang != "fr" {
		t.Errorf("Lang = %q, want fr", p.Lang)
	}
}

func TestRecord_Merges(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Record("alice", GameResult{
		Level: 3, Correct: 25, Wrong: 2, Outcome: OutcomeLose,
		MaxStreak: 8, LevelTime: 40, TotalTime: 120,
		ProblemsByOp: map[string]int{"addition": 10, "division": 17},
		XPGain:       350,
	})
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	p, err := s.Record("alice", GameResult{
		Level: 2, Correct: 5, Wrong: 0,
		MaxStreak: 5, NoMistakes: true, LevelTime: 30, TotalTime: 30,
		ProblemsByOp: map[string]int{"addition": 5},
		XPGain:       100,
	})
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}

	if p.Level != 3 {
		t.Errorf("Level = %d, want max 3", p.Level)
	}
	if p.Correct != 30 || p.Wrong != 2 {
		t.Errorf("Correct/Wrong = %d/%d, want 30/2", p.Correct, p.Wrong)
	}
	if p.GamesPlayed != 1 || p.GamesLost != 1 || p.GamesWon != 0 {
		t.Errorf("games = %d played %d won %d lost", p.GamesPlayed, p.GamesWon, p.GamesLost)
	}
	if p.Stats.MaxStreak != 8 || p.Stats.PerfectLevels != 1 {
		t.Errorf("stats = %+v", p.Stats)
	}
	if p.Stats.FastestLevel != 30 || p.Stats.TotalTime != 150 {
		t.Errorf("times = fastest %v total %v", p.Stats.FastestLevel, p.Stats.TotalTime)
	}
	if p.Stats.ProblemsByOp["addition"] != 15 || p.Stats.ProblemsByOp["division"] != 17 {
		t.Errorf("ProblemsByOp = %v", p.Stats.ProblemsByOp)
	}
	if p.XP != 450 || p.AccountLevel != 5 {
		t.Errorf("XP/AccountLevel = %d/%d, want 450/5", p.XP, p.AccountLevel)
	}
	if strings.Join(p.Achievements, ",") != "beginner" {
		t.Errorf("Achievements = %v", p.Achievements)
	}

	reloaded, err := s.Get("alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Correct != 30 || reloaded.XP != 450 {
		t.Errorf("persisted profile = %+v", reloaded)
	}
}

func TestRecord_NoTempFileLeft(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Record("alice", GameResult{Level: 1, Correct: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("profiles file is not a JSON object: %v", err)
	}
	if _, ok := doc["alice"]["level"]; !ok {
		t.Errorf("alice record missing level: %v", doc["alice"])
	}
	if _, ok := doc["alice"]["Name"]; ok {
		t.Error("name should not be repeated inside the record")
	}
}

func TestUpdate(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Create("alice"); err != nil {
		t.Fatal(err)
	}
	p, err := s.Update("alice", func(p *Profile) error {
		p.Avatar = "🐼"
		p.Name = "mallory"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Avatar != "🐼" || p.Name != "alice" {
		t.Errorf("updated = %+v", p)
	}

	if _, err := s.Update("nobody", func(*Profile) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}

	boom := errors.New("boom")
	if _, err := s.Update("alice", func(*Profile) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Update err = %v, want boom", err)
	}
}

func TestCurrentPointer(t *testing.T) {
	s := openTestStore(t)

	cur, err := s.Current()
	if err != nil || cur != "" {
		t.Fatalf("Current() = %q, %v; want empty", cur, err)
	}

	if err := s.SetCurrent("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCurrent unknown err = %v, want ErrNotFound", err)
	}

	if _, err := s.Create("alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent("alice"); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	cur, err = s.Current()
	if err != nil || cur != "alice" {
		t.Errorf("Current() = %q, %v; want alice", cur, err)
	}

	// A pointer naming a profile that no longer exists reads as unset.
	if err := os.WriteFile(s.CurrentPath(), []byte("ghost\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cur, err = s.Current()
	if err != nil || cur != "" {
		t.Errorf("stale Current() = %q, %v; want empty", cur, err)
	}
}

func TestDelete_ClearsPointer(t *testing.T) {
	s := openTestStore(t)
	for _, n := range []string{"alice", "bob"} {
		if _, err := s.Create(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetCurrent("alice"); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Delete("bob")
	if err != nil || !ok {
		t.Fatalf("Delete(bob) = %v, %v", ok, err)
	}
	if _, err := os.Stat(s.CurrentPath()); err != nil {
		t.Error("deleting another profile should keep the pointer")
	}

	ok, err = s.Delete("alice")
	if err != nil || !ok {
		t.Fatalf("Delete(alice) = %v, %v", ok, err)
	}
	if _, err := os.Stat(s.CurrentPath()); !os.IsNotExist(err) {
		t.Error("pointer should be removed with the current profile")
	}

	ok, err = s.Delete("alice")
	if err != nil || ok {
		t.Errorf("second Delete = %v, %v; want false, nil", ok, err)
	}
}

func TestLeaderboard(t *testing.T) {
	s := openTestStore(t)
	results := map[string]GameResult{
		"alice": {Level: 3, Correct: 20},
		"bob":   {Level: 5, Correct: 10},
		"carol": {Level: 3, Correct: 40},
		"dave":  {Level: 3, Correct: 20},
	}
	for name, r := range results {
		if _, err := s.Record(name, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Leaderboard(3)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	if want := "bob,carol,alice"; strings.Join(names, ",") != want {
		t.Errorf("leaderboard = %v, want %s", names, want)
	}

	all, err := s.Leaderboard(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("unlimited leaderboard has %d entries, want 4", len(all))
	}
}

func TestOnSaveHooks(t *testing.T) {
	s := openTestStore(t)
	var saved []string
	s.OnSave(func(Profile) { panic("hook failure") })
	s.OnSave(func(p Profile) { saved = append(saved, p.Name) })

	if _, err := s.Create("alice"); err != nil {
		t.Fatalf("Create with panicking hook: %v", err)
	}
	if _, err := s.Record("alice", GameResult{Correct: 1}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(saved, ",") != "alice,alice" {
		t.Errorf("hook calls = %v", saved)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(s.Path()) != dir {
		t.Errorf("Path() = %q", s.Path())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestStoresSharingDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if _, err := a.Create(fmt.Sprintf("p%02d", i)); err != nil {
			t.Fatal(err)
		}
	}

	const rounds = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for _, s := range []*Store{a, b} {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if _, err := s.Record("p00", GameResult{Level: 1, Correct: 1}); err != nil {
					errs <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Record: %v", err)
	}

	list, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 20 {
		t.Errorf("profiles left = %d, want 20", len(list))
	}
	p, err := a.Get("p00")
	if err != nil {
		t.Fatal(err)
	}
	if p.Correct != 2*rounds {
		t.Errorf("p00 correct = %d, want %d", p.Correct, 2*rounds)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}
