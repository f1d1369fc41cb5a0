package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "MATHBLAST_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "lobby.addr", typ: kString, env: "MATHBLAST_LOBBY_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Lobby.Addr = v.(string) },
		extract: func(cfg Config) any { return cfg.Lobby.Addr },
	},
	{
		key: "lobby.max_clients", typ: kInt, env: "MATHBLAST_LOBBY_MAX_CLIENTS",
		apply:   func(cfg *Config, v any) { cfg.Lobby.MaxClients = v.(int) },
		extract: func(cfg Config) any { return cfg.Lobby.MaxClients },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MATHBLAST_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "MATHBLAST_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "game.lang", typ: kString, env: "MATHBLAST_GAME_LANG",
		apply:   func(cfg *Config, v any) { cfg.Game.Lang = v.(string) },
		extract: func(cfg Config) any { return cfg.Game.Lang },
	},
	{
		key: "game.extended_time", typ: kBool, env: "MATHBLAST_GAME_EXTENDED_TIME",
		apply:   func(cfg *Config, v any) { cfg.Game.ExtendedTime = v.(bool) },
		extract: func(cfg Config) any { return cfg.Game.ExtendedTime },
	},
	{
		key: "game.high_contrast", typ: kBool, env: "MATHBLAST_GAME_HIGH_CONTRAST",
		apply:   func(cfg *Config, v any) { cfg.Game.HighContrast = v.(bool) },
		extract: func(cfg Config) any { return cfg.Game.HighContrast },
	},
	{
		key: "ui.backend", typ: kString, env: "MATHBLAST_UI_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.UI.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.UI.Backend },
	},
	{
		key: "display.scale_override", typ: kFloat, env: "MATHBLAST_DISPLAY_SCALE_OVERRIDE",
		apply:   func(cfg *Config, v any) { cfg.Display.ScaleOverride = v.(float64) },
		extract: func(cfg Config) any { return cfg.Display.ScaleOverride },
	},
	{
		key: "sync.url", typ: kString, env: "MATHBLAST_SYNC_URL",
		apply:   func(cfg *Config, v any) { cfg.Sync.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.URL },
	},
	{
		key: "sync.poll_interval", typ: kString, env: "MATHBLAST_SYNC_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Sync.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.PollInterval },
	},
	{
		key: "recognizer.model_path", typ: kString, env: "MATHBLAST_RECOGNIZER_MODEL_PATH",
		apply:   func(cfg *Config, v any) { cfg.Recognizer.ModelPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Recognizer.ModelPath },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
