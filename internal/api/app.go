package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mathblast/mathblast/internal/problem"
	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/storage"
)

const (
	maxProblemLevel = 50
	maxMultiplier   = 10
)

// ProfileStore is the profile store as seen by the API.
type ProfileStore interface {
	List() ([]profile.Profile, error)
	Get(name string) (profile.Profile, error)
	Create(name string) (profile.Profile, error)
	Delete(name string) (bool, error)
	Record(name string, r profile.GameResult) (profile.Profile, error)
	SetCurrent(name string) error
	Current() (string, error)
	Leaderboard(limit int) ([]profile.Profile, error)
}

// History stores finished games.
type History interface {
	SaveGameResult(r storage.GameRecord) (storage.GameRecord, error)
	ListGameResults(profile string, limit int) ([]storage.GameRecord, error)
	DeleteGameResults(profile string) (int64, error)
}

type AppDeps struct {
	Profiles ProfileStore
	History  History // optional; without it game history is not kept
	Token    string
}

// profileView is a profile as returned by the API.
type profileView struct {
	Name string `json:"name"`
	profile.Profile
	Accuracy float64 `json:"accuracy"`
	WinRate  float64 `json:"win_rate"`
}

func viewOf(p profile.Profile) profileView {
	return profileView{Name: p.Name, Profile: p, Accuracy: p.Accuracy(), WinRate: p.WinRate()}
}

func viewsOf(list []profile.Profile) []profileView {
	out := make([]profileView, len(list))
	for i, p := range list {
		out[i] = viewOf(p)
	}
	return out
}

type nameRequest struct {
	Name string `json:"name"`
}

type gameRequest struct {
	Profile string             `json:"profile"`
	Result  profile.GameResult `json:"result"`
}

// NewAppHandler returns the game API. Everything except /health requires
// the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/profiles", handleListProfiles(deps))
		r.Post("/profiles", handleCreateProfile(deps))
		r.Get("/profiles/{name}", handleGetProfile(deps))
		r.Delete("/profiles/{name}", handleDeleteProfile(deps))
		r.Get("/profiles/{name}/games", handleListGames(deps))
		r.Get("/current-profile", handleGetCurrent(deps))
		r.Put("/current-profile", handleSetCurrent(deps))
		r.Get("/leaderboard", handleLeaderboard(deps))
		r.Get("/problems", handleProblem)
		r.Post("/games", handleRecordGame(deps))
	})
	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func profileError(w http.ResponseWriter, err error, name string) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "profile %q not found", name)
	case errors.Is(err, profile.ErrExists):
		httpError(w, http.StatusConflict, "conflict", "profile %q already exists", name)
	case errors.Is(err, profile.ErrEmptyName):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "profile store: %v", err)
	}
}

func handleListProfiles(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Profiles.List()
		if err != nil {
			profileError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, viewsOf(list))
	}
}

func handleCreateProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req nameRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := deps.Profiles.Create(req.Name)
		if err != nil {
			profileError(w, err, req.Name)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(p))
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		p, err := deps.Profiles.Get(name)
		if err != nil {
			profileError(w, err, name)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(p))
	}
}

func handleDeleteProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		ok, err := deps.Profiles.Delete(name)
		if err != nil {
			profileError(w, err, name)
			return
		}
		if !ok {
			profileError(w, profile.ErrNotFound, name)
			return
		}
		if deps.History != nil {
			if _, err := deps.History.DeleteGameResults(name); err != nil {
				slog.Warn("deleting game history", "profile", name, "error", err)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleListGames(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if _, err := deps.Profiles.Get(name); err != nil {
			profileError(w, err, name)
			return
		}
		games := []storage.GameRecord{}
		if deps.History != nil {
			list, err := deps.History.ListGameResults(name, parseIntParam(r, "limit", 20, 100))
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list games: %v", err)
				return
			}
			if list != nil {
				games = list
			}
		}
		writeJSON(w, http.StatusOK, games)
	}
}

func handleGetCurrent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := deps.Profiles.Current()
		if err != nil {
			profileError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, nameRequest{Name: name})
	}
}

func handleSetCurrent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req nameRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			profileError(w, profile.ErrEmptyName, "")
			return
		}
		if err := deps.Profiles.SetCurrent(req.Name); err != nil {
			profileError(w, err, req.Name)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

func handleLeaderboard(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Profiles.Leaderboard(parseIntParam(r, "limit", 10, 100))
		if err != nil {
			profileError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, viewsOf(list))
	}
}

// problemOptions validates level and multiplier. Missing values default to
// level 1 and multiplier 1.
func problemOptions(levelStr, multStr string) (int, float64, error) {
	level, mult := 1, 1.0
	if levelStr != "" {
		v, err := strconv.Atoi(levelStr)
		if err != nil || v < 1 || v > maxProblemLevel {
			return 0, 0, errors.New("level must be an integer between 1 and 50")
		}
		level = v
	}
	if multStr != "" {
		v, err := strconv.ParseFloat(multStr, 64)
		if err != nil || v <= 0 || v > maxMultiplier || math.IsNaN(v) {
			return 0, 0, errors.New("multiplier must be a number in (0, 10]")
		}
		mult = v
	}
	return level, mult, nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func handleProblem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, mult, err := problemOptions(q.Get("level"), q.Get("multiplier"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	p := problem.Generate(newRand(), level, mult)
	if q.Get("reveal") != "1" {
		p.Answer = ""
	}
	writeJSON(w, http.StatusOK, p)
}

func validResult(res profile.GameResult) error {
	if res.Level < 0 || res.Correct < 0 || res.Wrong < 0 || res.MaxStreak < 0 || res.XPGain < 0 {
		return errors.New("result counts must not be negative")
	}
	if res.TotalTime < 0 || res.LevelTime < 0 {
		return errors.New("result times must not be negative")
	}
	switch res.Outcome {
	case profile.OutcomeNone, profile.OutcomeWin, profile.OutcomeLose:
	default:
		return errors.New(`outcome must be "", "win" or "lose"`)
	}
	return nil
}

func handleRecordGame(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := validResult(req.Result); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		p, err := deps.Profiles.Record(req.Profile, req.Result)
		if err != nil {
			profileError(w, err, req.Profile)
			return
		}
		if deps.History != nil {
			if _, err := deps.History.SaveGameResult(storage.NewGameRecord(p.Name, req.Result)); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "profile updated but history not saved: %v", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, viewOf(p))
	}
}
