package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spf13/viper"

	"github.com/Paintersrp/portal/internal/constants"
)

// Fetch backends.
const (
	BackendFile = "file"
	BackendAFS  = "afs"
	BackendS3   = "s3"
)

var ValidBackends = map[string]bool{
	BackendFile: true,
	BackendAFS:  true,
	BackendS3:   true,
}

type ScopeConfig struct {
	Name      string `yaml:"name"      json:"name"`
	Protected bool   `yaml:"protected" json:"protected"`
}

type FetchConfig struct {
	Backend   string `yaml:"backend"    json:"backend"`
	BaseURL   string `yaml:"base_url"   json:"base_url"`
	Bucket    string `yaml:"bucket"     json:"bucket"`
	Prefix    string `yaml:"prefix"     json:"prefix"`
	Region    string `yaml:"region"     json:"region"`
	Endpoint  string `yaml:"endpoint"   json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"-"`
}

type SearchConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Debounce    time.Duration `yaml:"debounce"    json:"debounce"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"       json:"addr"`
	JWTSecret string        `yaml:"jwt_secret" json:"-"`
	Issuer    string        `yaml:"issuer"     json:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"  json:"token_ttl"`
}

type Config struct {
	DocsRoot string        `yaml:"docs_root" json:"docs_root"`
	MapFile  string        `yaml:"map_file"  json:"map_file"`
	Scopes   []ScopeConfig `yaml:"scopes"    json:"scopes"`
	Fetch    FetchConfig   `yaml:"fetch"     json:"fetch"`
	Search   SearchConfig  `yaml:"search"    json:"search"`
	Server   ServerConfig  `yaml:"server"    json:"server"`

	path string `yaml:"-"`
}

// DefaultScopes is used when the config lists no scopes.
func DefaultScopes() []ScopeConfig {
	return []ScopeConfig{
		{Name: "public"},
		{Name: "internal", Protected: true},
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ensureDefaults()
	return cfg
}

func (cfg *Config) ensureDefaults() {
	cfg.DocsRoot = strings.TrimSpace(cfg.DocsRoot)
	if cfg.DocsRoot == "" {
		cfg.DocsRoot = constants.DefaultDocsRoot
	}
	cfg.MapFile = strings.TrimSpace(cfg.MapFile)
	if cfg.MapFile == "" {
		cfg.MapFile = filepath.Join(cfg.DocsRoot, constants.DefaultMapFile)
	}
	if cfg.Scopes == nil {
		cfg.Scopes = DefaultScopes()
	}
	for i := range cfg.Scopes {
		cfg.Scopes[i].Name = strings.TrimSpace(cfg.Scopes[i].Name)
	}
	cfg.Fetch.Backend = strings.ToLower(strings.TrimSpace(cfg.Fetch.Backend))
	if cfg.Fetch.Backend == "" {
		cfg.Fetch.Backend = BackendFile
	}
	if cfg.Search.Concurrency == 0 {
		cfg.Search.Concurrency = constants.DefaultConcurrency
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = constants.DefaultDebounce
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = constants.DefaultAddr
	}
	if cfg.Server.Issuer == "" {
		cfg.Server.Issuer = constants.DefaultIssuer
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = constants.DefaultTokenTTL
	}
}

// Validate reports the first invalid setting.
func (cfg *Config) Validate() error {
	if !ValidBackends[cfg.Fetch.Backend] {
		return fmt.Errorf(
			"invalid fetch backend: %q. Please choose from 'file', 'afs', or 's3'.",
			cfg.Fetch.Backend,
		)
	}

	seen := make(map[string]bool, len(cfg.Scopes))
	for i, scope := range cfg.Scopes {
		if scope.Name == "" {
			return fmt.Errorf("scope %d has no name", i)
		}
		if strings.ContainsAny(scope.Name, `/\`) {
			return fmt.Errorf("scope %q must not contain path separators", scope.Name)
		}
		if seen[scope.Name] {
			return fmt.Errorf("scope %q is configured more than once", scope.Name)
		}
		seen[scope.Name] = true
	}

	if cfg.Search.Concurrency < 1 {
		return fmt.Errorf("search concurrency must be positive, got %d", cfg.Search.Concurrency)
	}
	if cfg.Search.Debounce < 0 {
		return fmt.Errorf("search debounce must not be negative, got %s", cfg.Search.Debounce)
	}
	if cfg.Server.TokenTTL < 0 {
		return fmt.Errorf("token ttl must not be negative, got %s", cfg.Server.TokenTTL)
	}
	return nil
}

// Load reads the config file below home. An empty file yields the defaults.
func Load(home string) (*Config, error) {
	path := GetConfigPath(home)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.path = path
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyViper overrides file values with any flag or environment value viper
// has recorded.
func (cfg *Config) ApplyViper() error {
	if viper.IsSet("docs_root") {
		root := strings.TrimSpace(viper.GetString("docs_root"))
		if root != "" && root != cfg.DocsRoot {
			if cfg.MapFile == filepath.Join(cfg.DocsRoot, constants.DefaultMapFile) {
				cfg.MapFile = filepath.Join(root, constants.DefaultMapFile)
			}
			cfg.DocsRoot = root
		}
	}
	if viper.IsSet("map_file") {
		if file := strings.TrimSpace(viper.GetString("map_file")); file != "" {
			cfg.MapFile = file
		}
	}
	if viper.IsSet("fetch.backend") {
		cfg.Fetch.Backend = strings.ToLower(strings.TrimSpace(viper.GetString("fetch.backend")))
	}
	if viper.IsSet("fetch.base_url") {
		cfg.Fetch.BaseURL = viper.GetString("fetch.base_url")
	}
	if viper.IsSet("fetch.bucket") {
		cfg.Fetch.Bucket = viper.GetString("fetch.bucket")
	}
	if viper.IsSet("server.addr") {
		cfg.Server.Addr = viper.GetString("server.addr")
	}
	if viper.IsSet("server.jwt_secret") {
		cfg.Server.JWTSecret = viper.GetString("server.jwt_secret")
	}
	if viper.IsSet("search.concurrency") {
		cfg.Search.Concurrency = viper.GetInt("search.concurrency")
	}
	return cfg.Validate()
}

func (cfg *Config) GetConfigPath() string {
	return cfg.path
}

// ScopeNames lists the configured scopes in order.
func (cfg *Config) ScopeNames() []string {
	names := make([]string, 0, len(cfg.Scopes))
	for _, scope := range cfg.Scopes {
		names = append(names, scope.Name)
	}
	return names
}

// HasScope reports whether name is a configured scope.
func (cfg *Config) HasScope(name string) bool {
	for _, scope := range cfg.Scopes {
		if scope.Name == name {
			return true
		}
	}
	return false
}

// IsProtected reports whether reading name requires a token.
func (cfg *Config) IsProtected(name string) bool {
	for _, scope := range cfg.Scopes {
		if scope.Name == name {
			return scope.Protected
		}
	}
	return false
}

func (cfg *Config) Save() error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if cfg.path == "" {
		return fmt.Errorf("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(cfg.path, data, 0o600)
}
