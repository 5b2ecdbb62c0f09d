package repo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"
	"github.com/odvcencio/pgit/pkg/object"
)

// Config stores repository-local settings in .pgit/config.toml.
type Config struct {
	Core CoreConfig `toml:"core"`
	User UserConfig `toml:"user"`
}

// CoreConfig holds settings fixed at init time.
type CoreConfig struct {
	Hash          string `toml:"hash"`
	DefaultBranch string `toml:"default_branch"`
}

// UserConfig holds the default commit identity.
type UserConfig struct {
	Name string `toml:"name,omitempty"`
}

func defaultConfig() *Config {
	return &Config{Core: CoreConfig{Hash: object.HashSHA256, DefaultBranch: "main"}}
}

func configPath(pgitDir string) string {
	return filepath.Join(pgitDir, "config.toml")
}

// ReadConfig reads .pgit/config.toml. Missing config returns the defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	return readConfigFile(configPath(r.PgitDir))
}

func readConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("read config: unknown keys %s", strings.Join(keys, ", "))
	}
	if strings.TrimSpace(cfg.Core.Hash) == "" {
		cfg.Core.Hash = object.HashSHA256
	}
	if strings.TrimSpace(cfg.Core.DefaultBranch) == "" {
		cfg.Core.DefaultBranch = "main"
	}
	return cfg, nil
}

// WriteConfig atomically writes .pgit/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	return writeConfigFile(configPath(r.PgitDir), cfg)
}

func writeConfigFile(path string, cfg *Config) error {
	if cfg == nil {
		cfg = defaultConfig()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w: %w", object.ErrStorage, err)
	}
	return nil
}

// SetUserName stores the default author used by commits and stashes.
func (r *Repo) SetUserName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "\n\x00") {
		return fmt.Errorf("set user name: %w", object.ErrInvalidArgument)
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.User.Name = name
	return r.WriteConfig(cfg)
}
