// Package config loads infocomp settings. Sources, lowest precedence first:
// built-in defaults, an optional YAML file, then environment variables
// (optionally seeded from a .env file). Command flags are applied by the
// caller before Validate.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"infocomp/internal/auth"
)

type TLSConfig struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds listener and request limits. MaxUpload accepts plain
// byte counts or humanized sizes such as "2 MB". LoginRateLimit is attempts
// per minute per client IP; unset means DefaultLoginRateLimit and 0 turns
// limiting off.
type HTTPConfig struct {
	Bind           string    `yaml:"bind"`
	Port           int       `yaml:"port"`
	MaxUpload      string    `yaml:"max_upload"`
	LoginRateLimit *int      `yaml:"login_rate_limit"`
	TLS            TLSConfig `yaml:"tls"`

	MaxUploadBytes int64 `yaml:"-"`
}

type SessionConfig struct {
	Secret       string        `yaml:"secret"`
	TTL          time.Duration `yaml:"ttl"`
	CookieName   string        `yaml:"cookie_name"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// AdminConfig is the bootstrap account. Leaving either field empty disables
// bootstrap.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type PasswordConfig struct {
	Algorithm  string `yaml:"algorithm"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	HTTP     HTTPConfig     `yaml:"http"`
	Session  SessionConfig  `yaml:"session"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Admin    AdminConfig    `yaml:"admin"`
	Password PasswordConfig `yaml:"password"`
}

const (
	DefaultPort       = 3000
	DefaultMaxUpload  = 2_000_000
	DefaultCookieName = "infocomp_session"

	DefaultLoginRateLimit = 10
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the YAML file at path (skipped when path is empty), overlays the
// process environment and applies defaults. The result is not validated so
// callers can still apply flag overrides; call Validate afterwards.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&c, os.LookupEnv); err != nil {
		return Config{}, err
	}
	applyDefaults(&c)
	return c, nil
}

// LoadFiles seeds the environment from envFile, then calls Load.
func LoadFiles(path, envFile string) (Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return Load(path)
}

// applyEnv overlays the deployment environment variables onto c.
func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("DB_FILE", &c.DB.Path)
	str("IMAGE_MAX_BYTES", &c.HTTP.MaxUpload)
	str("SESSION_SECRET", &c.Session.Secret)
	str("UPLOAD_DIR", &c.Uploads.Dir)
	str("ADMIN_EMAIL", &c.Admin.Email)
	if v, ok := lookup("ADMIN_PASSWORD"); ok && v != "" {
		c.Admin.Password = v
	}
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.HTTP.Port = p
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./data/data.db"
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultPort
	}
	if c.HTTP.MaxUpload == "" {
		c.HTTP.MaxUpload = strconv.Itoa(DefaultMaxUpload)
	}
	if c.HTTP.LoginRateLimit == nil {
		n := DefaultLoginRateLimit
		c.HTTP.LoginRateLimit = &n
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "./uploads"
	}
	if c.Password.Algorithm == "" {
		c.Password.Algorithm = "bcrypt"
	}
	if c.Password.BcryptCost == 0 {
		c.Password.BcryptCost = auth.MinBcryptCost
	}
}

// Validate checks ranges and required fields and resolves derived values
// (MaxUploadBytes). Paths are trimmed.
func (c *Config) Validate() error {
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	c.Uploads.Dir = strings.TrimSpace(c.Uploads.Dir)
	c.HTTP.TLS.CertPath = strings.TrimSpace(c.HTTP.TLS.CertPath)
	c.HTTP.TLS.KeyPath = strings.TrimSpace(c.HTTP.TLS.KeyPath)
	c.Admin.Email = strings.TrimSpace(c.Admin.Email)

	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	n, err := humanize.ParseBytes(c.HTTP.MaxUpload)
	if err != nil {
		return fmt.Errorf("http.max_upload: %w", err)
	}
	if n < 1 || n > 1<<30 {
		return errors.New("http.max_upload is out of range")
	}
	c.HTTP.MaxUploadBytes = int64(n)
	if c.HTTP.LoginRateLimit != nil && *c.HTTP.LoginRateLimit < 0 {
		return errors.New("http.login_rate_limit is invalid")
	}
	if (c.HTTP.TLS.CertPath == "") != (c.HTTP.TLS.KeyPath == "") {
		return errors.New("http.tls.cert_path and http.tls.key_path must be set together")
	}
	if c.Session.TTL < time.Minute {
		return errors.New("session.ttl must be at least 1m")
	}
	switch c.Password.Algorithm {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("password.algorithm %q is not supported", c.Password.Algorithm)
	}
	if c.Password.BcryptCost < auth.MinBcryptCost || c.Password.BcryptCost > 31 {
		return fmt.Errorf("password.bcrypt_cost must be between %d and 31", auth.MinBcryptCost)
	}
	return nil
}

// LoginLimit resolves LoginRateLimit, treating unset as the default.
func (h HTTPConfig) LoginLimit() int {
	if h.LoginRateLimit == nil {
		return DefaultLoginRateLimit
	}
	return *h.LoginRateLimit
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Bind, c.HTTP.Port)
}
