package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "REPBOT_"
	envConfigPath = "REPBOT_CONFIG"
)

// conventionalEnv maps the unprefixed variables a GitHub bot is usually
// deployed with onto config keys.
var conventionalEnv = map[string]string{ //nolint:gochecknoglobals // static lookup table
	"GITHUB_TOKEN":          "github_token",
	"GITHUB_WEBHOOK_SECRET": "webhook_secret",
	"CORE_TEAM_MEMBERS":     "core_team",
	"PORT":                  "addr",
	"GITHUB_APP_ID":         "github_app_id",
	"GITHUB_APP_KEY":        "github_app_key",
	"GITHUB_APP_KEY_PATH":   "github_app_key_path",
}

// listKeys are comma separated in the environment.
var listKeys = map[string]bool{ //nolint:gochecknoglobals // static lookup table
	"core_team":      true,
	"ignored_logins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if REPBOT_CONFIG is set
//  3. conventional env (GITHUB_TOKEN, PORT, ...)
//  4. env (prefix REPBOT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	conventional := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		target, ok := conventionalEnv[key]
		if !ok {
			return "", nil
		}
		if target == "addr" {
			return target, ":" + strings.TrimPrefix(value, ":")
		}
		return target, envValue(target, value)
	})
	if err := k.Load(conventional, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// REPBOT_QUEUE_SIZE -> queue_size. Keys are flat so underscores are kept.
	prefixed := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		if key == envConfigPath {
			return "", nil
		}
		target := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return target, envValue(target, value)
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.GitHubAppKey == "" && cfg.GitHubAppKeyPath != "" {
		pem, err := os.ReadFile(cfg.GitHubAppKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read app key: %w", ErrLoadConfig, err)
		}
		cfg.GitHubAppKey = string(pem)
	}

	cfg.CoreTeam = compact(cfg.CoreTeam)
	cfg.IgnoredLogins = compact(cfg.IgnoredLogins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envValue(key, value string) any {
	if listKeys[key] {
		return compact(strings.Split(value, ","))
	}
	return value
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
