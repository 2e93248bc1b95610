package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/collection/field"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// Backend drivers.
const (
	DriverOpenSearch = "opensearch"
	DriverRedis      = "redis"
)

// Config holds the recordops service configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Backend     BackendConfig      `yaml:"backend"`
	Pagination  PaginationConfig   `yaml:"pagination"`
	Save        SaveConfig         `yaml:"save"`
	Auth        AuthConfig         `yaml:"auth"`
	Logging     LoggingConfig      `yaml:"logging"`
	Collections []CollectionConfig `yaml:"collections"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Read-only keys may list
// and query records but not save or remove them.
type AuthConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	ReadOnlyKeys []string `yaml:"read_only_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds storage connection settings.
type BackendConfig struct {
	Driver           string    `yaml:"driver"` // opensearch, redis (default: opensearch)
	Addrs            []string  `yaml:"addrs"`
	Username         string    `yaml:"username"`
	Password         string    `yaml:"password"`
	DB               int       `yaml:"db"`
	Refresh          string    `yaml:"refresh"` // OpenSearch refresh policy: false, true, wait_for
	TLS              bool      `yaml:"tls"`
	InsecureTLS      bool      `yaml:"insecure_tls"`
	Instance         string    `yaml:"instance"`
	ReadinessTimeout int       `yaml:"readiness_timeout_sec"`
	AWS              AWSConfig `yaml:"aws"`
}

// AWSConfig enables SigV4 request signing for managed OpenSearch.
type AWSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Service string `yaml:"service"` // es or aoss (default: es)
}

// PaginationConfig holds page size limits.
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// SaveConfig holds save behavior.
type SaveConfig struct {
	Parallel    bool `yaml:"parallel"`
	GenerateIDs bool `yaml:"generate_ids"`
}

// CollectionConfig describes one record collection.
type CollectionConfig struct {
	Name     string         `yaml:"name"`
	Index    string         `yaml:"index"` // derived from backend.instance and literals when empty
	IDField  string         `yaml:"id_field"`
	Nested   record.Nesting `yaml:"nested"`
	Literals map[string]any `yaml:"literals"`
	Required []string       `yaml:"required"`
	Fields   []FieldConfig  `yaml:"fields"`
}

// FieldConfig is an indexed field.
type FieldConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // keyword, text, numeric
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substitutes env variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = DriverOpenSearch
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Backend.AWS.Enabled && c.Backend.AWS.Service == "" {
		c.Backend.AWS.Service = "es"
	}
	if c.Pagination.DefaultLimit <= 0 {
		c.Pagination.DefaultLimit = 20
	}
	if c.Pagination.MaxLimit <= 0 {
		c.Pagination.MaxLimit = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Backend.Driver {
	case DriverOpenSearch, DriverRedis:
	default:
		return fmt.Errorf("backend.driver must be %q or %q, got %q", DriverOpenSearch, DriverRedis, c.Backend.Driver)
	}
	if len(c.Backend.Addrs) == 0 {
		return fmt.Errorf("backend.addrs is required")
	}
	if c.Backend.AWS.Enabled {
		if c.Backend.Driver != DriverOpenSearch {
			return fmt.Errorf("backend.aws requires the %s driver", DriverOpenSearch)
		}
		if c.Backend.AWS.Region == "" {
			return fmt.Errorf("backend.aws.region is required")
		}
	}
	switch c.Backend.Refresh {
	case "", "true", "false", "wait_for":
	default:
		return fmt.Errorf("backend.refresh must be \"true\", \"false\" or \"wait_for\", got %q", c.Backend.Refresh)
	}
	if c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		return fmt.Errorf("pagination.default_limit %d exceeds max_limit %d",
			c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	if len(c.Collections) == 0 {
		return fmt.Errorf("at least one collection is required")
	}
	if _, err := c.BuildCollections(); err != nil {
		return err
	}
	return nil
}

// BuildCollections validates the collection entries and converts them to
// domain collections.
func (c *Config) BuildCollections() ([]domcol.Collection, error) {
	cols := make([]domcol.Collection, 0, len(c.Collections))
	seen := make(map[string]bool, len(c.Collections))
	for i, cc := range c.Collections {
		if seen[cc.Name] {
			return nil, fmt.Errorf("collections[%d]: duplicate name %q", i, cc.Name)
		}
		seen[cc.Name] = true

		fields := make([]field.Field, 0, len(cc.Fields))
		for _, fc := range cc.Fields {
			f, err := field.New(fc.Name, field.Type(fc.Type))
			if err != nil {
				return nil, fmt.Errorf("collections[%d]: %w", i, err)
			}
			fields = append(fields, f)
		}

		col, err := domcol.New(domcol.Definition{
			Name:     cc.Name,
			Index:    cc.Index,
			Instance: c.Backend.Instance,
			IDField:  cc.IDField,
			Nesting:  cc.Nested,
			Literals: cc.Literals,
			Required: cc.Required,
			Fields:   fields,
		})
		if err != nil {
			return nil, fmt.Errorf("collections[%d]: %w", i, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
