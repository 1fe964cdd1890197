package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileSystem abstracts the lookups the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// OSFileSystem is the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads path into the process environment without overriding
// variables that are already set.
func (OSFileSystem) LoadEnv(path string) error      { return godotenv.Load(path) }
func (OSFileSystem) UserConfigDir() (string, error) { return os.UserConfigDir() }

// ResolvedFiles are the files a load will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and .env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns explicit paths from opts, searching for any that are
// unset. Config search order:
//
//	./<service>.yml, ./config.yml, ./config/config.yml,
//	<user config dir>/<service>/config.yml, /etc/<service>/config.yml
//
// .env search order: ./.env.<service>, ./.env, <user config dir>/<service>/.env
func (r *Resolver) ResolveFiles(service string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	userDir, _ := r.FileSystem.UserConfigDir()

	if files.ConfigFile == "" {
		candidates := []string{service + ".yml", "config.yml", filepath.Join("config", "config.yml")}
		if userDir != "" {
			candidates = append(candidates, filepath.Join(userDir, service, "config.yml"))
		}
		candidates = append(candidates, filepath.Join("/etc", service, "config.yml"))
		files.ConfigFile = r.first(candidates)
	}
	if files.EnvFile == "" {
		candidates := []string{".env." + service, ".env"}
		if userDir != "" {
			candidates = append(candidates, filepath.Join(userDir, service, ".env"))
		}
		files.EnvFile = r.first(candidates)
	}
	return files
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional overrides for LoadConfig.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix defaults to the upper-cased service name.
	EnvPrefix string
	// EnvAliases maps config keys to unprefixed variables such as
	// OPENAI_API_KEY. Prefixed variables win over aliases.
	EnvAliases map[string]string
	Flags      *pflag.FlagSet
	// FlagKeys maps config keys to flag names.
	FlagKeys map[string]string
	Defaults map[string]any
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the filesystem, for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithEnvAliases binds well-known unprefixed variables to config keys.
func WithEnvAliases(aliases map[string]string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvAliases = aliases }
}

// WithFlags overlays explicitly set command-line flags onto config keys.
// Flags the user did not pass leave the file/env value untouched.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		lc.Flags = fs
		lc.FlagKeys = keys
	}
}

// WithDefaults registers default values for config keys.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// LoadConfig unmarshals configuration for service into cfg. Sources, in
// increasing precedence: defaults, the YAML file, the .env file and the
// process environment, then explicitly set flags.
//
// Environment variables are <PREFIX>_<KEY> with "__" separating nested
// keys, so SCRIBE_TRANSCRIPTION__CHUNK_TIMEOUT=2m sets
// transcription.chunk_timeout.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(service, lc)

	v := viper.New()
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("config: load env %s: %w", files.EnvFile, err)
		}
	}
	applyEnv(v, lc.EnvPrefix, lc.EnvAliases, os.Environ())

	if lc.Flags != nil {
		for key, name := range lc.FlagKeys {
			if f := lc.Flags.Lookup(name); f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}

// applyEnv sets aliased keys first so prefixed variables override them.
func applyEnv(v *viper.Viper, prefix string, aliases map[string]string, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, val, ok := strings.Cut(kv, "="); ok {
			env[k] = val
		}
	}

	for key, name := range aliases {
		if val, ok := env[name]; ok && val != "" {
			v.Set(key, val)
		}
	}

	p := prefix + "_"
	for name, val := range env {
		if rest, ok := strings.CutPrefix(name, p); ok && rest != "" {
			v.Set(EnvKey(rest), val)
		}
	}
}

// EnvKey maps the part of a variable name after the prefix to a config
// key: TRANSCRIPTION__CHUNK_TIMEOUT becomes transcription.chunk_timeout.
func EnvKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "__", "."))
}
