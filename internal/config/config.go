// Package config handles loading and parsing the dashboard configuration.
// It supports two sources for the file location (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every field can additionally be overridden by its env:"..." variable.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// What the student list does after an edit is saved.
const (
	OnSaveRefetch = "refetch"
	OnSaveMerge   = "merge"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	HTTPServer `yaml:"http_server"`
	Backend    `yaml:"backend"`
	Identity   `yaml:"identity"`
	Session    `yaml:"session"`
	UI         `yaml:"ui"`
}

// HTTPServer holds settings for the dashboard's own listener.
type HTTPServer struct {
	Addr            string        `yaml:"address"          env:"HTTP_SERVER_ADDR"     env-default:"localhost:8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"    env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"   env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"HTTP_IDLE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	// CSRFKey enables CSRF protection on every form post when set.
	// It must be 32 bytes.
	CSRFKey string `yaml:"csrf_key" env:"HTTP_CSRF_KEY"`
}

// Backend is the students REST API the dashboard reads and mutates.
type Backend struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout"  env:"BACKEND_TIMEOUT"  env-default:"10s"`
}

// Identity is the hosted identity provider.
type Identity struct {
	BaseURL string `yaml:"base_url" env:"IDENTITY_BASE_URL" env-required:"true"`
	APIKey  string `yaml:"api_key"  env:"IDENTITY_API_KEY"`
	// RevokeURL is called on sign-out when set; otherwise sign-out only
	// discards the local session.
	RevokeURL string        `yaml:"revoke_url" env:"IDENTITY_REVOKE_URL"`
	Timeout   time.Duration `yaml:"timeout"    env:"IDENTITY_TIMEOUT" env-default:"10s"`

	// ID tokens are verified with SigningSecret (HS256) or PublicKeyPEM
	// (RS256). Exactly one must be set.
	Issuer        string `yaml:"issuer"         env:"IDENTITY_ISSUER"`
	Audience      string `yaml:"audience"       env:"IDENTITY_AUDIENCE"`
	SigningSecret string `yaml:"signing_secret" env:"IDENTITY_SIGNING_SECRET"`
	PublicKeyPEM  string `yaml:"public_key_pem" env:"IDENTITY_PUBLIC_KEY_PEM"`
	// AdminClaim names the boolean token claim that grants admin.
	AdminClaim string `yaml:"admin_claim" env:"IDENTITY_ADMIN_CLAIM" env-default:"admin"`
}

// Session controls browser sessions and where sign-ins are remembered.
type Session struct {
	Store         string        `yaml:"store"          env:"SESSION_STORE"          env-default:"memory"`
	StoragePath   string        `yaml:"storage_path"   env:"SESSION_STORAGE_PATH"   env-default:"storage/sessions.db"`
	RedisAddr     string        `yaml:"redis_addr"     env:"SESSION_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"SESSION_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"SESSION_REDIS_DB"       env-default:"0"`
	CookieName    string        `yaml:"cookie_name"    env:"SESSION_COOKIE_NAME"    env-default:"dashboard_session"`
	TTL           time.Duration `yaml:"ttl"            env:"SESSION_TTL"            env-default:"24h"`
	Secure        bool          `yaml:"secure_cookie"  env:"SESSION_SECURE_COOKIE"`
}

// UI holds the dashboard's timing and behaviour switches.
type UI struct {
	FormCloseDelay      time.Duration `yaml:"form_close_delay"      env:"UI_FORM_CLOSE_DELAY"      env-default:"2s"`
	LoginCloseDelay     time.Duration `yaml:"login_close_delay"     env:"UI_LOGIN_CLOSE_DELAY"     env-default:"2s"`
	RegisterSwitchDelay time.Duration `yaml:"register_switch_delay" env:"UI_REGISTER_SWITCH_DELAY" env-default:"2s"`
	NoticeTTL           time.Duration `yaml:"notice_ttl"            env:"UI_NOTICE_TTL"            env-default:"3s"`
	// LockIDOnEdit makes the student ID read-only while updating.
	LockIDOnEdit bool `yaml:"lock_id_on_edit" env:"UI_LOCK_ID_ON_EDIT" env-default:"true"`
	// OnSave is "refetch" or "merge".
	OnSave string `yaml:"on_save" env:"UI_ON_SAVE" env-default:"refetch"`
}

// MustLoad reads, validates, and returns the application config, exiting
// the process when anything is wrong.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return cfg
}

// Load reads the YAML file at path, applies env overrides and checks the
// cross-field rules cleanenv cannot express.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and mutually exclusive settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Session.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store: unknown store %q", c.Session.Store))
	}

	switch c.UI.OnSave {
	case OnSaveRefetch, OnSaveMerge:
	default:
		errs = append(errs, fmt.Errorf("ui.on_save: unknown policy %q", c.UI.OnSave))
	}

	if (c.Identity.SigningSecret == "") == (c.Identity.PublicKeyPEM == "") {
		errs = append(errs, errors.New("identity: exactly one of signing_secret and public_key_pem must be set"))
	}

	if c.HTTPServer.CSRFKey != "" && len(c.HTTPServer.CSRFKey) != 32 {
		errs = append(errs, errors.New("http_server.csrf_key must be 32 bytes"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
