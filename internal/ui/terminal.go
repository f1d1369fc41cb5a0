package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mathblast/mathblast/internal/game"
	"github.com/mathblast/mathblast/internal/i18n"
	"github.com/mathblast/mathblast/internal/problem"
	"github.com/mathblast/mathblast/internal/profile"
)

func init() { Register(terminalBackend{}) }

const leaderboardSize = 10

type terminalBackend struct{}

func (terminalBackend) Name() string { return BackendTerminal }

func (terminalBackend) Run(ctx context.Context, app App) error {
	m := newModel(app)
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if fm, ok := final.(*model); ok {
		fm.endGame()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type screen int

const (
	screenMenu screen = iota
	screenPlay
	screenProfiles
	screenNewProfile
	screenLeaderboard
)

type menuItem string

const (
	itemPlay        menuItem = "play"
	itemProfiles    menuItem = "profiles"
	itemLeaderboard menuItem = "leaderboard"
	itemQuit        menuItem = "quit"
)

var menuItems = []menuItem{itemPlay, itemProfiles, itemLeaderboard, itemQuit}

// model is the bubbletea model for the terminal backend.
type model struct {
	app    App
	styles styles
	screen screen
	cursor int
	player string

	session  *game.Session
	problem  problem.Problem
	feedback string
	good     bool

	input    textinput.Model
	profiles []profile.Profile
	board    []profile.Profile
	err      error
}

func newModel(app App) *model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 20

	m := &model{
		app:    app,
		styles: newStyles(app.Theme, app.Metrics),
		player: app.Player,
		input:  ti,
	}
	if m.player == "" && app.Profiles != nil {
		if cur, err := app.Profiles.Current(); err == nil {
			m.player = cur
		}
	}
	return m
}

func (m *model) t(key string) string { return i18n.T(m.app.Lang, key) }

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if key.Type == tea.KeyCtrlC {
		m.endGame()
		return m, tea.Quit
	}

	switch m.screen {
	case screenMenu:
		return m.updateMenu(key)
	case screenPlay:
		return m.updatePlay(key)
	case screenProfiles:
		return m.updateProfiles(key)
	case screenNewProfile:
		return m.updateNewProfile(key)
	case screenLeaderboard:
		if key.Type == tea.KeyEsc || key.Type == tea.KeyEnter || key.String() == "q" {
			m.screen = screenMenu
		}
	}
	return m, nil
}

func (m *model) move(key tea.KeyMsg, n int) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	}
}

func (m *model) updateMenu(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.move(key, len(menuItems))
	if key.String() == "q" {
		return m, tea.Quit
	}
	if key.Type != tea.KeyEnter {
		return m, nil
	}

	m.err = nil
	switch menuItems[m.cursor] {
	case itemPlay:
		if m.player == "" {
			return m, m.openProfiles()
		}
		return m, m.startGame()
	case itemProfiles:
		return m, m.openProfiles()
	case itemLeaderboard:
		m.board, m.err = m.app.Profiles.Leaderboard(leaderboardSize)
		m.screen = screenLeaderboard
	case itemQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) startGame() tea.Cmd {
	m.session = m.app.NewSession(m.player)
	m.feedback = ""
	m.screen = screenPlay
	m.nextProblem()
	m.input.Reset()
	m.input.Placeholder = m.t("answer")
	return m.input.Focus()
}

func (m *model) nextProblem() {
	p, err := m.session.Next()
	if err != nil {
		m.err = err
		return
	}
	m.problem = p
}

// endGame records the running session, if any. It is safe to call more
// than once.
func (m *model) endGame() {
	if m.session == nil {
		return
	}
	m.app.Finish(m.player, m.session)
	m.session = nil
}

func (m *model) updatePlay(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEsc {
		m.endGame()
		m.input.Blur()
		m.screen = screenMenu
		return m, nil
	}
	if m.session == nil || m.session.Over() {
		if key.Type == tea.KeyEnter {
			m.endGame()
			m.input.Blur()
			m.screen = screenMenu
		}
		return m, nil
	}
	if key.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}

	answer := strings.TrimSpace(m.input.Value())
	if answer == "" {
		return m, nil
	}
	out, err := m.session.Submit(answer)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.input.Reset()

	switch {
	case out.GameOver:
		m.feedback, m.good = fmt.Sprintf("%s %s %s.", m.t("game_over"), m.t("answer_was"), out.Expected), false
		m.endGame()
		return m, nil
	case out.LevelUp:
		m.feedback, m.good = fmt.Sprintf("%s %s %d", m.t("level_up"), m.t("level"), out.Level), true
	case out.Correct:
		m.feedback, m.good = m.t("correct"), true
	default:
		m.feedback, m.good = fmt.Sprintf("%s %s %s.", m.t("wrong"), m.t("answer_was"), out.Expected), false
	}
	m.nextProblem()
	return m, nil
}

func (m *model) openProfiles() tea.Cmd {
	m.profiles, m.err = m.app.Profiles.List()
	m.cursor = 0
	for i, p := range m.profiles {
		if p.Name == m.player {
			m.cursor = i
		}
	}
	m.screen = screenProfiles
	return nil
}

func (m *model) updateProfiles(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.profiles) + 1 // last row is "new profile"
	m.move(key, n)
	switch key.Type {
	case tea.KeyEsc:
		m.cursor = 0
		m.screen = screenMenu
	case tea.KeyEnter:
		if m.cursor == len(m.profiles) {
			m.input.Reset()
			m.input.Placeholder = m.t("new_profile")
			m.screen = screenNewProfile
			return m, m.input.Focus()
		}
		m.selectProfile(m.profiles[m.cursor].Name)
	}
	return m, nil
}

func (m *model) selectProfile(name string) {
	if err := m.app.SetCurrent(name); err != nil {
		m.err = err
		return
	}
	m.player = name
	m.cursor = 0
	m.screen = screenMenu
}

func (m *model) updateNewProfile(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.input.Blur()
		return m, m.openProfiles()
	case tea.KeyEnter:
		p, err := m.app.Profiles.Create(m.input.Value())
		if err != nil && !errors.Is(err, profile.ErrExists) {
			m.err = err
			return m, nil
		}
		name := p.Name
		if errors.Is(err, profile.ErrExists) {
			name = strings.TrimSpace(m.input.Value())
		}
		m.input.Blur()
		m.err = nil
		m.selectProfile(name)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *model) View() string {
	var b strings.Builder
	switch m.screen {
	case screenMenu:
		m.viewMenu(&b)
	case screenPlay:
		m.viewPlay(&b)
	case screenProfiles:
		m.viewProfiles(&b)
	case screenNewProfile:
		b.WriteString(m.styles.title.Render(m.t("new_profile")))
		b.WriteString("\n" + m.input.View())
	case screenLeaderboard:
		m.viewLeaderboard(&b)
	}
	if m.err != nil {
		b.WriteString("\n\n" + m.styles.wrong.Render(m.err.Error()))
	}
	return m.styles.frame.Render(b.String()) + "\n"
}

func (m *model) line(b *strings.Builder, selected bool, text string) {
	if selected {
		b.WriteString(m.styles.selected.Render("> "+text) + "\n")
		return
	}
	b.WriteString(m.styles.item.Render(text) + "\n")
}

func (m *model) viewMenu(b *strings.Builder) {
	b.WriteString(m.styles.title.Render("MathBlast") + "\n")
	if m.player != "" {
		b.WriteString(m.styles.muted.Render(m.app.PlayerSummary(m.player)) + "\n\n")
	}
	for i, item := range menuItems {
		m.line(b, i == m.cursor, m.t(string(item)))
	}
}

func (m *model) viewPlay(b *strings.Builder) {
	if m.session == nil {
		b.WriteString(m.styles.wrong.Render(m.feedback))
		b.WriteString("\n\n" + m.styles.muted.Render("enter: "+m.t("back")))
		return
	}
	st := m.session.State()
	fmt.Fprintf(b, "%s %d   %s %d/%d   %s %d/%d\n",
		m.t("level"), st.Level, m.t("score"), st.Score, st.Goal, m.t("mistakes"), st.Wrong, game.MaxWrong)
	b.WriteString(m.styles.problem.Render(m.problem.Text) + "\n")
	b.WriteString(m.input.View() + "\n")
	if m.feedback != "" {
		style := m.styles.wrong
		if m.good {
			style = m.styles.correct
		}
		b.WriteString("\n" + style.Render(m.feedback))
	}
	b.WriteString("\n\n" + m.styles.muted.Render("enter: "+m.t("submit")+"  esc: "+m.t("quit")))
}

func (m *model) viewProfiles(b *strings.Builder) {
	b.WriteString(m.styles.title.Render(m.t("profiles")) + "\n")
	for i, p := range m.profiles {
		m.line(b, i == m.cursor, fmt.Sprintf("%s %s  %s %d", p.Avatar, p.Name, m.t("level"), p.Level))
	}
	m.line(b, m.cursor == len(m.profiles), "+ "+m.t("new_profile"))
}

func (m *model) viewLeaderboard(b *strings.Builder) {
	b.WriteString(m.styles.title.Render(m.t("leaderboard")) + "\n")
	for i, p := range m.board {
		fmt.Fprintf(b, "%2d. %s %-16s %s %-3d %5d\n", i+1, p.Avatar, p.Name, m.t("level"), p.Level, p.Correct)
	}
	b.WriteString("\n" + m.styles.muted.Render("esc: "+m.t("back")))
}
