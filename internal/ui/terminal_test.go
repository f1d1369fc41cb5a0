package ui

import (
	"math/rand/v2"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathblast/mathblast/internal/display"
	"github.com/mathblast/mathblast/internal/game"
	"github.com/mathblast/mathblast/internal/profile"
)

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyCtrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
)

type recorded struct {
	name string
	r    profile.GameResult
}

func newTestApp(t *testing.T, player string) (App, *profile.Store, *[]recorded) {
	t.Helper()
	store, err := profile.Open(t.TempDir(), profile.WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)
	if player != "" {
		_, err := store.Create(player)
		require.NoError(t, err)
	}
	var recs []recorded
	app := App{
		Profiles: store,
		Lang:     "en",
		Metrics:  display.Detect(1920, 1080, 0),
		Theme:    display.Default,
		Session:  game.Options{Rand: rand.New(rand.NewPCG(7, 7))},
		Player:   player,
		OnRecord: func(name string, r profile.GameResult) { recs = append(recs, recorded{name, r}) },
	}
	return app, store, &recs
}

func press(t *testing.T, m *model, msgs ...tea.Msg) {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		require.Same(t, m, next)
	}
}

func submit(t *testing.T, m *model, answer string) {
	t.Helper()
	m.input.SetValue(answer)
	press(t, m, keyEnter)
}

func TestPlayUntilGameOver(t *testing.T) {
	app, store, recs := newTestApp(t, "alice")
	m := newModel(app)

	press(t, m, keyEnter)
	require.Equal(t, screenPlay, m.screen)
	require.NotNil(t, m.session)
	assert.NotEmpty(t, m.problem.Text)
	assert.Contains(t, m.View(), m.problem.Text)

	submit(t, m, m.problem.Answer)
	assert.Equal(t, "Correct!", m.feedback)
	assert.True(t, m.good)

	submit(t, m, "nope")
	assert.Contains(t, m.feedback, "Wrong!")
	assert.Contains(t, m.View(), "Mistakes 1/3")

	submit(t, m, "nope")
	submit(t, m, "nope")
	assert.Nil(t, m.session, "session is recorded and cleared at game over")
	assert.Contains(t, m.feedback, "Game Over!")

	p, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Correct)
	assert.Equal(t, 3, p.Wrong)
	assert.Equal(t, 1, p.GamesLost)
	require.Len(t, *recs, 1)
	assert.Equal(t, profile.OutcomeLose, (*recs)[0].r.Outcome)

	press(t, m, keyEnter)
	assert.Equal(t, screenMenu, m.screen)
	// A second exit path must not record again.
	m.endGame()
	assert.Len(t, *recs, 1)
}

func TestBlankAnswerIgnored(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	m := newModel(app)
	press(t, m, keyEnter)
	before := m.problem

	submit(t, m, "   ")
	assert.Equal(t, before, m.problem)
	assert.Empty(t, m.feedback)
}

func TestEscRecordsPartialGame(t *testing.T) {
	app, store, recs := newTestApp(t, "alice")
	m := newModel(app)
	press(t, m, keyEnter)
	submit(t, m, m.problem.Answer)
	submit(t, m, m.problem.Answer)
	press(t, m, keyEsc)

	assert.Equal(t, screenMenu, m.screen)
	assert.Nil(t, m.session)
	p, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Correct)
	assert.Zero(t, p.GamesPlayed)
	assert.Len(t, *recs, 1)
}

func TestLevelUpCheckpoints(t *testing.T) {
	app, store, recs := newTestApp(t, "alice")
	m := newModel(app)
	press(t, m, keyEnter)
	for i := 0; i < game.StartGoal; i++ {
		submit(t, m, m.problem.Answer)
	}
	assert.Contains(t, m.feedback, "Level up!")
	require.Len(t, *recs, 1, "cleared level is recorded immediately")

	p, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)

	press(t, m, keyCtrlC)
	p, err = store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.GamesWon, "quitting after a cleared level is a win")
	assert.Equal(t, game.StartGoal, p.Correct)
}

func TestPlayWithoutProfileCreatesOne(t *testing.T) {
	app, store, _ := newTestApp(t, "")
	m := newModel(app)

	press(t, m, keyEnter)
	require.Equal(t, screenProfiles, m.screen)
	assert.Contains(t, m.View(), "New profile")

	press(t, m, keyEnter)
	require.Equal(t, screenNewProfile, m.screen)

	m.input.SetValue("zoe")
	press(t, m, keyEnter)
	assert.Equal(t, screenMenu, m.screen)
	assert.Equal(t, "zoe", m.player)

	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "zoe", cur)
}

func TestNewProfileRejectsEmptyName(t *testing.T) {
	app, _, _ := newTestApp(t, "")
	m := newModel(app)
	press(t, m, keyDown, keyEnter, keyEnter)
	require.Equal(t, screenNewProfile, m.screen)

	m.input.SetValue("  ")
	press(t, m, keyEnter)
	assert.Equal(t, screenNewProfile, m.screen)
	assert.ErrorIs(t, m.err, profile.ErrEmptyName)
}

func TestSwitchProfile(t *testing.T) {
	app, store, _ := newTestApp(t, "alice")
	_, err := store.Create("bob")
	require.NoError(t, err)
	m := newModel(app)

	press(t, m, keyDown, keyEnter)
	require.Equal(t, screenProfiles, m.screen)
	assert.Equal(t, 0, m.cursor, "cursor starts on the current player")

	press(t, m, keyDown, keyEnter)
	assert.Equal(t, "bob", m.player)
	assert.Equal(t, screenMenu, m.screen)
}

func TestCurrentProfileUsedByDefault(t *testing.T) {
	app, store, _ := newTestApp(t, "alice")
	require.NoError(t, store.SetCurrent("alice"))
	app.Player = ""

	m := newModel(app)
	assert.Equal(t, "alice", m.player)
}

func TestLeaderboardScreen(t *testing.T) {
	app, store, _ := newTestApp(t, "alice")
	_, err := store.Record("bob", profile.GameResult{Level: 4, Correct: 30})
	require.NoError(t, err)
	m := newModel(app)

	press(t, m, keyDown, keyDown, keyEnter)
	require.Equal(t, screenLeaderboard, m.screen)
	require.Len(t, m.board, 2)
	assert.Equal(t, "bob", m.board[0].Name)
	assert.Contains(t, m.View(), "Leaderboard")

	press(t, m, keyEsc)
	assert.Equal(t, screenMenu, m.screen)
}

func TestLocalizedMenu(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	app.Lang = "es"
	view := newModel(app).View()
	assert.Contains(t, view, "Jugar")
	assert.Contains(t, view, "Clasificación")
}

func TestQuitMenuItem(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	m := newModel(app)
	press(t, m, keyDown, keyDown, keyDown)
	_, cmd := m.Update(keyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestMenuHeaderShowsCurrentSummary(t *testing.T) {
	app, store, _ := newTestApp(t, "alice")
	_, err := store.Create("bob")
	require.NoError(t, err)
	require.NoError(t, store.SetCurrent("alice"))
	app.Current = profile.NewManager(store)
	m := newModel(app)

	assert.Contains(t, m.View(), "alice: level 1, no games yet.")

	// Recording through the app drops the cached profile.
	app.Record("alice", profile.GameResult{Level: 2, Correct: 5, Outcome: profile.OutcomeWin})
	assert.Contains(t, m.View(), "alice: level 2, 1 games")

	press(t, m, keyDown, keyEnter, keyDown, keyEnter)
	require.Equal(t, "bob", m.player)
	assert.Contains(t, m.View(), "bob: level 1, no games yet.")
}

func TestPlayerSummaryWithoutManager(t *testing.T) {
	app, _, _ := newTestApp(t, "alice")
	assert.Equal(t, "alice", app.PlayerSummary("alice"))
	assert.Equal(t, "", app.PlayerSummary(""))
}
