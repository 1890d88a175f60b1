// Package config assembles the cascade configuration from its three scopes:
// the user's global YAML file, the repository's YAML file, and git config.
// Chain declarations accumulate across scopes; alias keys are overridden by
// the more specific scope. The loader returns an explicit Config value, no
// package-level state.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cool-RR/git-cascade/internal/cascade"
	"github.com/cool-RR/git-cascade/internal/vcs"
)

// RepoConfigName is the per-repository configuration file, discovered by
// walking up from the working directory to the repository root.
const RepoConfigName = ".git-cascade.yaml"

// Config is everything the resolver and graph constructors consume.
type Config struct {
	// Chains holds the raw declarations in scope order, least specific
	// first. Parsing happens in the cascade package so a malformed
	// declaration can name its origin.
	Chains []cascade.Declaration

	// Aliases maps short names to branch names, most specific scope winning.
	Aliases map[string]string

	// Settings are runtime knobs, settable from the environment but never
	// from chain data.
	Settings Settings
}

// Settings are the GIT_CASCADE_* environment-adjustable options. Command
// line flags layer on top of these in the CLI.
type Settings struct {
	JSON    bool
	NoColor bool
}

// fileConfig is the YAML schema of both the global and repository files.
// Parsed with yaml.v3 into typed fields: branch names are case-sensitive,
// so they must never round-trip through a case-folding config layer.
type fileConfig struct {
	Chains  []string          `yaml:"chains"`
	Aliases map[string]string `yaml:"aliases"`
}

// Load builds the configuration for the repository the VCS handle is bound
// to. A malformed YAML document surfaces as a ConfigParseError naming the
// file; declaration-level parse errors are deferred to graph construction.
func Load(ctx context.Context, v vcs.VCS) (*Config, error) {
	cfg := &Config{
		Aliases:  make(map[string]string),
		Settings: loadSettings(),
	}

	if path, ok := globalConfigPath(); ok {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if path, ok := findRepoConfigFrom(cwd); ok {
			if err := cfg.mergeFile(path); err != nil {
				return nil, err
			}
		}
	}

	chains, err := v.ReadConfigChains(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cascade chains from git config: %w", err)
	}
	for _, text := range chains {
		cfg.Chains = append(cfg.Chains, cascade.Declaration{Text: text, Origin: "git config cascade.chain"})
	}

	aliases, err := v.ReadAliasMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cascade aliases from git config: %w", err)
	}
	for short, branch := range aliases {
		cfg.Aliases[short] = branch
	}

	return cfg, nil
}

// mergeFile folds one YAML file into the config: chains append, aliases
// override.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &cascade.ConfigParseError{Origin: path, Reason: err.Error()}
	}
	for _, text := range fc.Chains {
		c.Chains = append(c.Chains, cascade.Declaration{Text: text, Origin: path})
	}
	for short, branch := range fc.Aliases {
		c.Aliases[short] = branch
	}
	return nil
}

// globalConfigPath returns the user-level configuration file if it exists.
func globalConfigPath() (string, bool) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(configDir, "git-cascade", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// findRepoConfigFrom walks up from dir looking for the repository file. The
// walk stops at the repository root (the first directory with a .git entry)
// so a config file in some enclosing project is never picked up.
func findRepoConfigFrom(dir string) (string, bool) {
	for ; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, RepoConfigName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", false // reached the repository root
		}
		if dir == filepath.Dir(dir) {
			return "", false
		}
	}
}

// loadSettings reads the GIT_CASCADE_* environment through viper, with
// hyphenated keys mapping to underscored variable names.
func loadSettings() Settings {
	v := viper.New()
	v.SetEnvPrefix("GIT_CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("no-color", false)

	return Settings{
		JSON:    v.GetBool("json"),
		NoColor: v.GetBool("no-color"),
	}
}
