package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// ErrDirEmpty is returned when a config file explicitly sets "dir" to "".
var ErrDirEmpty = errors.New("dir must not be empty")

// Config holds the CLI's resolved configuration: where the store lives and
// the strategy options new stores are opened with (§4.9's pluggable
// bundle, surfaced as simple CLI-level knobs).
type Config struct {
	// Dir is the storage root. Default: ".objstore" under the effective cwd.
	Dir string `json:"dir"`

	// ShardDepth is the path resolver's directory shard depth, [0,4].
	ShardDepth int `json:"shard_depth,omitempty"`

	// MaxDepth bounds flattening recursion.
	MaxDepth int `json:"max_depth,omitempty"`

	// ChildWritePolicy is one of "always", "never", "if_not_exist".
	ChildWritePolicy string `json:"child_write_policy,omitempty"`

	// EffectiveCwd is the resolved working directory (not serialized).
	EffectiveCwd string `json:"-"`

	// DirAbs is Dir resolved to an absolute path (not serialized).
	DirAbs string `json:"-"`
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".objstore.json"

// DefaultConfig returns the CLI's baseline configuration.
func DefaultConfig() Config {
	return Config{
		Dir:              ".objstore",
		ShardDepth:       2,
		MaxDepth:         64,
		ChildWritePolicy: "always",
	}
}

func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "objstore", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "objstore", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string // -C/--cwd
	ConfigPath      string // -c/--config
	DirOverride     string // --dir
	Env             map[string]string
}

// LoadConfig resolves configuration with the following precedence (highest
// wins): defaults, global config (~/.config/objstore/config.json or
// $XDG_CONFIG_HOME), project config (.objstore.json, if present) or an
// explicit --config file, then CLI flag overrides. Config files are parsed
// as hujson (JSON with comments and trailing commas allowed).
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, _, err := loadOptionalConfig(globalConfigPath(input.Env))
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, projectCfg)

	if input.DirOverride != "" {
		cfg.Dir = input.DirOverride
	}

	if cfg.Dir == "" {
		return Config{}, ErrDirEmpty
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.Dir) {
		cfg.DirAbs = cfg.Dir
	} else {
		cfg.DirAbs = filepath.Join(workDir, cfg.Dir)
	}

	return cfg, nil
}

func loadProjectConfig(workDir, explicitPath string) (Config, error) {
	path := explicitPath
	mustExist := explicitPath != ""

	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	cfg, loaded, err := loadOptionalConfig(path)
	if err != nil {
		return Config{}, err
	}

	if !loaded && mustExist {
		return Config{}, fmt.Errorf("config file not found: %s", explicitPath)
	}

	return cfg, nil
}

func loadOptionalConfig(path string) (Config, bool, error) {
	if path == "" {
		return Config{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("invalid config %s: %w", path, err)
	}

	var raw map[string]any
	_ = json.Unmarshal(standardized, &raw)

	if v, ok := raw["dir"]; ok {
		if s, ok := v.(string); ok && s == "" {
			return Config{}, false, fmt.Errorf("%s: %w", path, ErrDirEmpty)
		}
	}

	return cfg, true, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Dir != "" {
		base.Dir = overlay.Dir
	}

	if overlay.ShardDepth != 0 {
		base.ShardDepth = overlay.ShardDepth
	}

	if overlay.MaxDepth != 0 {
		base.MaxDepth = overlay.MaxDepth
	}

	if overlay.ChildWritePolicy != "" {
		base.ChildWritePolicy = overlay.ChildWritePolicy
	}

	return base
}

// childWritePolicy returns the configured child-write policy, or an error
// if it is not one of "always", "never" or "if_not_exist".
func (c Config) childWritePolicy() (string, error) {
	switch c.ChildWritePolicy {
	case "always", "never", "if_not_exist":
		return c.ChildWritePolicy, nil
	default:
		return "", fmt.Errorf("unknown child_write_policy %q (want always|never|if_not_exist)", c.ChildWritePolicy)
	}
}
