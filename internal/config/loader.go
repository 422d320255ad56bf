package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides: FREEHOST_STATE_DIR -> state_dir.
const EnvPrefix = "FREEHOST_"

const maxConfigFileSize = 1 << 20

// Load builds the config from defaults, an optional file and the environment,
// in increasing precedence. The file is YAML; JSON files parse too.
//
// PORT (unprefixed) selects the listen port, as hosting platforms expect.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		b, err := readConfigFile(path)
		if err != nil {
			return cfg, err
		}
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		if s == "PORT" {
			return "port"
		}
		return ""
	}), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if st.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("read config: %s is larger than %d bytes", path, maxConfigFileSize)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return b, nil
}
