package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	ExecutableDir() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for a service.
// Returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.firstExisting(cr.configSearchPaths(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.firstExisting(cr.envSearchPaths(serviceName))
	}

	return resolved
}

// configSearchPaths lists config.yml candidates. A sidecar is usually spawned
// by its host from an arbitrary working directory, so the directory holding
// the executable is searched after the working-directory locations.
func (cr *Resolver) configSearchPaths(serviceName string) []string {
	paths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	if dir, err := cr.FileSystem.ExecutableDir(); err == nil && dir != "" {
		paths = append(paths,
			filepath.Join(dir, "config.yml"),
			filepath.Join(dir, fmt.Sprintf("%s.yml", serviceName)),
		)
	}
	return paths
}

// envSearchPaths lists .env candidates, service-specific files first.
func (cr *Resolver) envSearchPaths(serviceName string) []string {
	envFiles := []string{
		fmt.Sprintf(".env.%s", serviceName),
		".env",
	}
	dirs := []string{".", fmt.Sprintf("./cmd/%s", serviceName), "./config"}
	if dir, err := cr.FileSystem.ExecutableDir(); err == nil && dir != "" {
		dirs = append(dirs, dir)
	}

	paths := make([]string, 0, len(envFiles)*len(dirs))
	for _, envFile := range envFiles {
		for _, dir := range dirs {
			paths = append(paths, filepath.Join(dir, envFile))
		}
	}
	return paths
}

func (cr *Resolver) firstExisting(paths []string) string {
	for _, path := range paths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string    // Direct config file path (optional)
	EnvFile    string    // Direct env file path (optional)
	Warnings   io.Writer // Destination for loader warnings; stderr when nil
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
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

// WithWarnings redirects loader warnings.
func WithWarnings(w io.Writer) LoaderOption {
	return func(lc *LoaderConfig) { lc.Warnings = w }
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// It searches for config.yml and .env files in standard locations, binds
// environment variables, and unmarshals the result into cfg.
//
// The logger is not configured yet when this runs, so warnings are written
// directly to stderr. Nothing is ever written to stdout.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.Warnings == nil {
		lc.Warnings = os.Stderr
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	return loadFromResolvedFiles(serviceName, cfg, files, lc)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(serviceName string, cfg interface{}, files ResolvedFiles, lc LoaderConfig) error {
	v := viper.New()

	// 1. Load YAML config first (base configuration)
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(lc.Warnings, "[config] warning: failed to load config file %s: %v\n", files.ConfigFile, err)
		}
	}

	// 2. Load .env file so its variables are visible to the binding below
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			fmt.Fprintf(lc.Warnings, "[config] warning: failed to load .env file %s: %v\n", files.EnvFile, err)
		}
	}

	// 3. Environment variables override file values
	v.AutomaticEnv()
	autoBindEnvVars(v)

	// 4. Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	return nil
}

// autoBindEnvVars automatically binds environment variables to Viper
// by converting UPPER_CASE_WITH_UNDERSCORES to multiple possible nested key formats.
func autoBindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}

		for _, variant := range generateEnvKeyVariants(pair[0]) {
			if v.IsSet(variant) || isKnownPrefix(v, variant) {
				v.Set(variant, pair[1])
			}
		}
	}
}

// isKnownPrefix reports whether key sits under a section already present in
// the loaded config, so unrelated variables such as PATH do not leak in.
func isKnownPrefix(v *viper.Viper, key string) bool {
	idx := strings.Index(key, ".")
	if idx <= 0 {
		return false
	}
	return v.IsSet(key[:idx]) || knownSections[key[:idx]]
}

// knownSections are the top-level config sections env vars may populate even
// when the config file does not mention them.
var knownSections = map[string]bool{}

// RegisterSections declares top-level config sections that environment
// variables may populate without a config file.
func RegisterSections(names ...string) {
	for _, n := range names {
		knownSections[strings.ToLower(n)] = true
	}
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	WHISPER_COMMAND -> [whisper_command, whisper.command]
//	WHISPER_INSTALL_COMMAND -> [whisper_install_command, whisper.install.command, whisper.install_command, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Generate progressive nesting patterns
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	if len(parts) >= 3 {
		prefix := strings.Join(parts[:len(parts)-1], ".")
		lastPart := parts[len(parts)-1]
		variants = append(variants, prefix+"."+lastPart)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
