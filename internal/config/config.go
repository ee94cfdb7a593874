package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys. The prompt-files flag lives under the chat namespace so
// callers gating the attachment feature share one well-known key.
const (
	KeyPromptFilesEnabled = "chat.prompt_files.enabled"

	keyServerHost       = "server.host"
	keyServerPort       = "server.port"
	keyServerEnableCORS = "server.enable_cors"

	keyMetricsEnabled = "metrics.enabled"
	keyMetricsPort    = "metrics.port"

	keyResolverMaxDepth       = "resolver.max_depth"
	keyResolverPromptSuffixes = "resolver.prompt_suffixes"
	keyResolverCacheSize      = "resolver.cache_size"
	keyResolverCacheTTL       = "resolver.cache_ttl"

	keyVerbose = "verbose"
)

// Manager reads layered configuration: defaults, an optional config file under
// ~/.attache, and ATTACHE_* environment overrides. Lookups go to viper on
// every call so runtime overrides (Set, env, watched file) take effect without
// a restart.
type Manager struct {
	v *viper.Viper
}

// NewManager builds a manager with defaults applied and the user config file
// loaded when present. A missing config file is not an error.
func NewManager() (*Manager, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ATTACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".attache"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Manager{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPromptFilesEnabled, true)

	v.SetDefault(keyServerHost, "localhost")
	v.SetDefault(keyServerPort, 8080)
	v.SetDefault(keyServerEnableCORS, true)

	v.SetDefault(keyMetricsEnabled, false)
	v.SetDefault(keyMetricsPort, 9464)

	v.SetDefault(keyResolverMaxDepth, 10)
	v.SetDefault(keyResolverPromptSuffixes, []string{".prompt.md", ".instructions.md"})
	v.SetDefault(keyResolverCacheSize, 256)
	v.SetDefault(keyResolverCacheTTL, 5*time.Minute)

	v.SetDefault(keyVerbose, false)
}

// PromptFilesEnabled reports whether prompt-file attachments are enabled. The
// value is re-read on every call, never cached.
func (m *Manager) PromptFilesEnabled() bool {
	return m.v.GetBool(KeyPromptFilesEnabled)
}

// Set overrides a configuration value at runtime.
func (m *Manager) Set(key string, value any) {
	m.v.Set(key, value)
}

// Viper exposes the underlying instance for cobra flag binding.
func (m *Manager) Viper() *viper.Viper {
	return m.v
}

// ServerHost returns the HTTP listen host.
func (m *Manager) ServerHost() string { return m.v.GetString(keyServerHost) }

// ServerPort returns the HTTP listen port.
func (m *Manager) ServerPort() int { return m.v.GetInt(keyServerPort) }

// ServerEnableCORS reports whether permissive CORS middleware is installed.
func (m *Manager) ServerEnableCORS() bool { return m.v.GetBool(keyServerEnableCORS) }

// MetricsEnabled reports whether the metrics collector is active.
func (m *Manager) MetricsEnabled() bool { return m.v.GetBool(keyMetricsEnabled) }

// MetricsPort returns the Prometheus scrape port.
func (m *Manager) MetricsPort() int { return m.v.GetInt(keyMetricsPort) }

// ResolverMaxDepth caps nested reference resolution.
func (m *Manager) ResolverMaxDepth() int { return m.v.GetInt(keyResolverMaxDepth) }

// ResolverPromptSuffixes lists the filename suffixes recognized as prompt files.
func (m *Manager) ResolverPromptSuffixes() []string {
	return m.v.GetStringSlice(keyResolverPromptSuffixes)
}

// ResolverCacheSize bounds the resolver's content cache.
func (m *Manager) ResolverCacheSize() int { return m.v.GetInt(keyResolverCacheSize) }

// ResolverCacheTTL bounds how long cached file content stays valid.
func (m *Manager) ResolverCacheTTL() time.Duration { return m.v.GetDuration(keyResolverCacheTTL) }

// Verbose reports whether debug output is requested.
func (m *Manager) Verbose() bool { return m.v.GetBool(keyVerbose) }
