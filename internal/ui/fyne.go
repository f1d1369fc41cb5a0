//go:build fyne

package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/mathblast/mathblast/internal/display"
	"github.com/mathblast/mathblast/internal/game"
	"github.com/mathblast/mathblast/internal/i18n"
)

const appID = "io.mathblast.game"

var errNoPlayer = errors.New("select or create a profile first")

func init() { Register(fyneBackend{}) }

type fyneBackend struct{}

func (fyneBackend) Name() string { return BackendFyne }

func hasDisplay() bool {
	if runtime.GOOS != "linux" && runtime.GOOS != "freebsd" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

func (fyneBackend) Run(ctx context.Context, app App) (err error) {
	if !hasDisplay() {
		return fmt.Errorf("%w: no display", ErrUnavailable)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnavailable, r)
		}
	}()

	display.ApplyFyneScale(app.Metrics)
	fa := fyneapp.NewWithID(appID)
	w := fa.NewWindow("MathBlast")
	w.Resize(fyne.NewSize(float32(display.DefaultLayout.BaseW), float32(display.DefaultLayout.BaseH)))

	g := newFyneGame(app, w)
	w.SetContent(g.content())
	w.SetOnClosed(func() { g.finish() })

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(fa.Quit)
		case <-done:
		}
	}()

	w.ShowAndRun()
	g.finish()
	return nil
}

// fyneGame holds the widgets of the game window. All methods run on the
// Fyne event goroutine.
type fyneGame struct {
	app    App
	win    fyne.Window
	player string

	session *game.Session

	profiles *widget.Select
	nameIn   *widget.Entry
	who      *widget.Label
	level    *widget.Label
	score    *widget.Label
	problem  *canvas.Text
	feedback *canvas.Text
	answer   *widget.Entry
	submit   *widget.Button
}

func (g *fyneGame) t(key string) string { return i18n.T(g.app.Lang, key) }

func (g *fyneGame) fontSize(base float64) float32 {
	m := g.app.Metrics
	if m.Width == 0 || m.Height == 0 {
		return float32(base)
	}
	return float32(display.DefaultLayout.Font(base, m.Width, m.Height, m.ScaleFactor))
}

func newFyneGame(app App, w fyne.Window) *fyneGame {
	g := &fyneGame{app: app, win: w, player: app.Player}
	if g.player == "" && app.Profiles != nil {
		if cur, err := app.Profiles.Current(); err == nil {
			g.player = cur
		}
	}

	text := display.HexColor(app.Theme.Text)

	g.profiles = widget.NewSelect(nil, g.choose)
	g.nameIn = widget.NewEntry()
	g.nameIn.SetPlaceHolder(g.t("new_profile"))

	g.who = widget.NewLabel("")
	g.level = widget.NewLabel("")
	g.score = widget.NewLabel("")

	g.problem = canvas.NewText("", text)
	g.problem.TextSize = g.fontSize(48)
	g.problem.TextStyle = fyne.TextStyle{Bold: true}
	g.problem.Alignment = fyne.TextAlignCenter

	g.feedback = canvas.NewText("", text)
	g.feedback.TextSize = g.fontSize(24)
	g.feedback.Alignment = fyne.TextAlignCenter

	g.answer = widget.NewEntry()
	g.answer.SetPlaceHolder(g.t("answer"))
	g.answer.OnSubmitted = func(string) { g.onSubmit() }
	g.submit = widget.NewButton(g.t("submit"), g.onSubmit)

	g.refreshProfiles()
	g.setPlaying(false)
	return g
}

func (g *fyneGame) content() fyne.CanvasObject {
	bg := canvas.NewRectangle(display.HexColor(g.app.Theme.Background))

	create := widget.NewButton(g.t("new_profile"), g.createProfile)
	play := widget.NewButton(g.t("play"), g.start)
	board := widget.NewButton(g.t("leaderboard"), g.showLeaderboard)

	top := container.NewHBox(
		widget.NewLabel(g.t("profiles")), g.profiles,
		g.nameIn, create,
		play, board,
	)
	status := container.NewHBox(g.level, widget.NewSeparator(), g.score)
	body := container.NewVBox(
		g.who,
		status,
		container.NewCenter(g.problem),
		container.NewGridWithColumns(2, g.answer, g.submit),
		container.NewCenter(g.feedback),
	)
	if g.app.Recognizer != nil && g.app.Recognizer.Available() {
		body.Add(widget.NewLabel(g.t("handwriting_on")))
	}
	return container.NewStack(bg, container.NewPadded(container.NewBorder(top, nil, nil, nil, body)))
}

func (g *fyneGame) refreshProfiles() {
	list, err := g.app.Profiles.List()
	if err != nil {
		g.showError(err)
		return
	}
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	g.profiles.Options = names
	g.profiles.Refresh()
	if g.player != "" {
		g.profiles.SetSelected(g.player)
	}
	g.updateWho()
}

func (g *fyneGame) updateWho() {
	g.who.SetText(g.app.PlayerSummary(g.player))
}

func (g *fyneGame) choose(name string) {
	if name == "" || name == g.player {
		return
	}
	if err := g.app.SetCurrent(name); err != nil {
		g.showError(err)
		return
	}
	g.end()
	g.player = name
	g.updateWho()
}

func (g *fyneGame) createProfile() {
	p, err := g.app.Profiles.Create(g.nameIn.Text)
	if err != nil {
		g.showError(err)
		return
	}
	g.nameIn.SetText("")
	g.player = p.Name
	if err := g.app.SetCurrent(p.Name); err != nil {
		g.showError(err)
	}
	g.refreshProfiles()
}

func (g *fyneGame) start() {
	if g.player == "" {
		g.showError(errNoPlayer)
		return
	}
	g.end()
	g.session = g.app.NewSession(g.player)
	g.feedback.Text = ""
	g.feedback.Refresh()
	g.setPlaying(true)
	g.next()
}

func (g *fyneGame) next() {
	p, err := g.session.Next()
	if err != nil {
		g.showError(err)
		return
	}
	g.problem.Text = p.Text
	g.problem.Refresh()
	g.answer.SetText("")
	g.updateStatus()
	g.win.Canvas().Focus(g.answer)
}

func (g *fyneGame) onSubmit() {
	if g.session == nil {
		return
	}
	answer := strings.TrimSpace(g.answer.Text)
	if answer == "" {
		return
	}
	out, err := g.session.Submit(answer)
	if err != nil {
		g.showError(err)
		return
	}

	theme := g.app.Theme
	switch {
	case out.GameOver:
		g.say(fmt.Sprintf("%s %s %s.", g.t("game_over"), g.t("answer_was"), out.Expected), theme.Wrong)
		g.updateStatus()
		g.end()
		return
	case out.LevelUp:
		g.say(fmt.Sprintf("%s %s %d", g.t("level_up"), g.t("level"), out.Level), theme.Correct)
	case out.Correct:
		g.say(g.t("correct"), theme.Correct)
	default:
		g.say(fmt.Sprintf("%s %s %s.", g.t("wrong"), g.t("answer_was"), out.Expected), theme.Wrong)
	}
	g.next()
}

func (g *fyneGame) say(msg, hex string) {
	g.feedback.Text = msg
	g.feedback.Color = display.HexColor(hex)
	g.feedback.Refresh()
}

func (g *fyneGame) updateStatus() {
	if g.session == nil {
		return
	}
	st := g.session.State()
	g.level.SetText(fmt.Sprintf("%s %d", g.t("level"), st.Level))
	g.score.SetText(fmt.Sprintf("%s %d/%d   %s %d/%d", g.t("score"), st.Score, st.Goal, g.t("mistakes"), st.Wrong, game.MaxWrong))
}

func (g *fyneGame) setPlaying(on bool) {
	if on {
		g.answer.Enable()
		g.submit.Enable()
		return
	}
	g.answer.Disable()
	g.submit.Disable()
}

// finish records the running session, if any.
func (g *fyneGame) finish() bool {
	if g.session == nil {
		return false
	}
	g.app.Finish(g.player, g.session)
	g.session = nil
	return true
}

// end finishes the session and resets the widgets.
func (g *fyneGame) end() {
	if g.finish() {
		g.setPlaying(false)
		g.refreshProfiles()
	}
}

func (g *fyneGame) showLeaderboard() {
	list, err := g.app.Profiles.Leaderboard(leaderboardSize)
	if err != nil {
		g.showError(err)
		return
	}
	var b strings.Builder
	for i, p := range list {
		fmt.Fprintf(&b, "%d. %s %s  %s %d  (%d)\n", i+1, p.Avatar, p.Name, g.t("level"), p.Level, p.Correct)
	}
	dialog.ShowInformation(g.t("leaderboard"), b.String(), g.win)
}

func (g *fyneGame) showError(err error) {
	dialog.ShowError(err, g.win)
}
