package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "RECALL_"

// Config is the full application configuration. Values are merged from
// defaults, an optional YAML file, RECALL_* environment variables, and
// command-line flags, in that order of precedence.
type Config struct {
	Addr      string `koanf:"addr" validate:"required"`
	DBPath    string `koanf:"db" validate:"required"`
	ImportDir string `koanf:"import"`
	Streak    int    `koanf:"streak" validate:"gte=0"`

	Advisor AdvisorConfig `koanf:"advisor"`
}

// AdvisorConfig configures the external generative-AI collaborator. The
// API key may also live in the settings table; a stored key takes
// precedence and an empty key only degrades insight/quiz text to the
// deterministic fallbacks.
type AdvisorConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	Model   string `koanf:"model"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Addr:   "127.0.0.1:8484",
		DBPath: "recall.db",
		Streak: 7,
		Advisor: AdvisorConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
	}
}

// Load merges the configuration sources and validates the result. The
// config file path comes from the "config" flag; a missing file is only an
// error when the flag was set explicitly.
func Load(flags *flag.FlagSet) (Config, error) {
	k := koanf.New(".")

	cfg := Default()
	defaults := map[string]any{
		"addr":             cfg.Addr,
		"db":               cfg.DBPath,
		"streak":           cfg.Streak,
		"advisor.base_url": cfg.Advisor.BaseURL,
		"advisor.model":    cfg.Advisor.Model,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return Config{}, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil && (flags.Changed("config") || !errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// RECALL_ADVISOR_API_KEY -> advisor.api_key. Single-underscore names
	// map directly; the advisor block uses the first underscore as the
	// separator.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if rest, ok := strings.CutPrefix(s, "advisor_"); ok {
			return "advisor." + rest
		}
		return s
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flags: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Flags defines the command-line flags understood by the application.
// Flag names match koanf keys so the posflag provider can merge them.
func Flags() *flag.FlagSet {
	flags := flag.NewFlagSet("recall", flag.ContinueOnError)
	def := Default()
	flags.String("config", "recall.yaml", "Path to the YAML config file")
	flags.String("addr", def.Addr, "Address to serve the web UI on")
	flags.String("db", def.DBPath, "Path to the sqlite database file")
	flags.String("import", "", "Directory of markdown concept files to import at startup")
	flags.Int("streak", def.Streak, "Daily streak counter shown on the dashboard")
	return flags
}
