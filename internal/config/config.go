package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	Server     ServerConfig
	Lobby      LobbyConfig
	Storage    StorageConfig
	Log        LogConfig
	Game       GameConfig
	UI         UIConfig
	Display    DisplayConfig
	Sync       SyncConfig
	Recognizer RecognizerConfig
}

type ServerConfig struct {
	Port int
}

type LobbyConfig struct {
	Addr       string
	MaxClients int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type GameConfig struct {
	Lang         string
	ExtendedTime bool
	HighContrast bool
}

type UIConfig struct {
	Backend string // "auto", "fyne" or "terminal"
}

type DisplayConfig struct {
	ScaleOverride float64 // 0 means detect
}

type SyncConfig struct {
	URL          string // empty disables cloud sync
	PollInterval string
}

type RecognizerConfig struct {
	ModelPath string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4040,
		},
		Lobby: LobbyConfig{
			Addr:       "127.0.0.1:5000",
			MaxClients: 16,
		},
		Storage: StorageConfig{
			DataDir: DefaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Game: GameConfig{
			Lang: "en",
		},
		UI: UIConfig{
			Backend: "auto",
		},
		Sync: SyncConfig{
			PollInterval: "2s",
		},
	}
}

// Load reads configuration from the JSON config file in the per-user
// application directory, then applies MATHBLAST_* environment overrides.
//
// Windows:  %APPDATA%\MathBlast\config.json
// macOS:    ~/Library/Application Support/MathBlast/config.json
// Others:   $XDG_CONFIG_HOME/mathblast/config.json
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Recognizer.ModelPath == "" {
		cfg.Recognizer.ModelPath = filepath.Join(cfg.Storage.DataDir, "math_handwriting.onnx")
	}

	return cfg, nil
}

// SyncPollInterval parses Sync.PollInterval, falling back to 2s.
func (c Config) SyncPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Sync.PollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}
