// Package config loads pterodash configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "PTERODASH_CONFIG"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	LDAP   LDAPConfig   `yaml:"ldap"`
	Log    LogConfig    `yaml:"log"`
	UI     UIConfig     `yaml:"ui"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	StaticDir    string        `yaml:"static_dir"`
	TLS          TLSConfig     `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig enables certmagic-managed certificates.
type ACMEConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Domains        []string `yaml:"domains"`
	Email          string   `yaml:"email"`
	CA             string   `yaml:"ca"`
	CARoot         string   `yaml:"ca_root"`
	Storage        string   `yaml:"storage"`
	AltHTTPPort    int      `yaml:"alt_http_port"`
	AltTLSALPNPort int      `yaml:"alt_tls_alpn_port"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend"` // memory | sqlite | redis
	Path          string        `yaml:"path"`
	Key           string        `yaml:"key"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	Redis         RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LDAPConfig enables operator login when URL is set.
type LDAPConfig struct {
	URL            string `yaml:"url"`
	BaseDN         string `yaml:"base_dn"`
	UserFilter     string `yaml:"user_filter"`
	GroupAttribute string `yaml:"group_attribute"`
	RequiredGroup  string `yaml:"required_group"`
	UserMailDomain string `yaml:"user_mail_domain"`
	StartTLS       bool   `yaml:"start_tls"`
	SkipTLSVerify  bool   `yaml:"skip_tls_verify"`
}

func (l LDAPConfig) Enabled() bool { return l.URL != "" }

type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // console, json
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

type UIConfig struct {
	// Locale forces the message language; empty negotiates Accept-Language.
	Locale string `yaml:"locale"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			SessionTTL:   30 * time.Minute,
			StaticDir:    "",
		},
		Store: StoreConfig{
			Backend:       "sqlite",
			Path:          "./pterodash.db",
			Key:           "pterodactylSettings",
			WatchInterval: time.Second,
			Redis:         RedisConfig{Addr: "localhost:6379"},
		},
		LDAP: LDAPConfig{
			UserFilter:     "(mail=%s)",
			GroupAttribute: "memberOf",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PTERODASH_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PTERODASH_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v, ok := envBool("PTERODASH_TLS"); ok {
		cfg.Server.TLS.Enabled = v
	}
	if v := os.Getenv("PTERODASH_TLS_CERT"); v != "" {
		cfg.Server.TLS.CertFile = v
	}
	if v := os.Getenv("PTERODASH_TLS_KEY"); v != "" {
		cfg.Server.TLS.KeyFile = v
	}
	if v, ok := envBool("CERTMAGIC_ENABLE"); ok {
		cfg.Server.TLS.ACME.Enabled = v
	}
	if v := os.Getenv("CERTMAGIC_DOMAINS"); v != "" {
		cfg.Server.TLS.ACME.Domains = splitList(v)
	}
	if v := os.Getenv("CERTMAGIC_EMAIL"); v != "" {
		cfg.Server.TLS.ACME.Email = v
	}
	if v := os.Getenv("CERTMAGIC_CA"); v != "" {
		cfg.Server.TLS.ACME.CA = v
	}
	if v := os.Getenv("CERTMAGIC_CA_ROOT"); v != "" {
		cfg.Server.TLS.ACME.CARoot = v
	}
	if v := os.Getenv("CERTMAGIC_STORAGE"); v != "" {
		cfg.Server.TLS.ACME.Storage = v
	}

	if v := os.Getenv("PTERODASH_STORE"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PTERODASH_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PTERODASH_STORE_KEY"); v != "" {
		cfg.Store.Key = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.Redis.DB = db
		}
	}

	if v := os.Getenv("LDAP_URL"); v != "" {
		cfg.LDAP.URL = v
	}
	if v := os.Getenv("LDAP_BASE_DN"); v != "" {
		cfg.LDAP.BaseDN = v
	}
	if v := os.Getenv("LDAP_USER_FILTER"); v != "" {
		cfg.LDAP.UserFilter = v
	}
	if v := os.Getenv("LDAP_GROUP_ATTRIBUTE"); v != "" {
		cfg.LDAP.GroupAttribute = v
	}
	if v := os.Getenv("LDAP_REQUIRED_GROUP"); v != "" {
		cfg.LDAP.RequiredGroup = v
	}
	if v := os.Getenv("LDAP_USER_DOMAIN"); v != "" {
		cfg.LDAP.UserMailDomain = v
	}
	if v, ok := envBool("LDAP_STARTTLS"); ok {
		cfg.LDAP.StartTLS = v
	}
	if v, ok := envBool("LDAP_SKIP_TLS_VERIFY"); ok {
		cfg.LDAP.SkipTLSVerify = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PTERODASH_LOCALE"); v != "" {
		cfg.UI.Locale = v
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite backend")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return fmt.Errorf("store key cannot be empty")
	}
	if c.Server.TLS.ACME.Enabled && len(c.Server.TLS.ACME.Domains) == 0 {
		return fmt.Errorf("acme requires at least one domain")
	}
	if c.LDAP.Enabled() && !strings.Contains(c.LDAP.UserFilter, "%s") {
		return fmt.Errorf("ldap user filter must contain %%s")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

func envBool(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
