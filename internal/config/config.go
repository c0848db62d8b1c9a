package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    Server
	Database  Database
	JWT       JWT
	Bootstrap Bootstrap

	PermissionCacheTTL time.Duration
	RBACSeedFile       string
	LogLevel           string
}

type Server struct {
	Port        string
	Mode        string
	CORSOrigins []string
}

type Database struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file
}

type JWT struct {
	Secret    string
	ExpiresIn time.Duration
}

// Bootstrap holds the reserved principal created by createsuperuser
type Bootstrap struct {
	Username string
	Password string
}

// Load reads configs/.env (when present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	// a missing file is fine, the environment still applies
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: Server{
			Port:        v.GetString("PORT"),
			Mode:        v.GetString("GIN_MODE"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: Database{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		JWT: JWT{
			Secret:    v.GetString("JWT_SECRET"),
			ExpiresIn: time.Duration(v.GetInt("JWT_EXPIRES_HOURS")) * time.Hour,
		},
		Bootstrap: Bootstrap{
			Username: v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
			Password: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		PermissionCacheTTL: v.GetDuration("PERMISSION_CACHE_TTL"),
		RBACSeedFile:       v.GetString("RBAC_SEED_FILE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "banco")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "banco.db")
	v.SetDefault("JWT_EXPIRES_HOURS", 24)
	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "admin")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "Admin123!")
	v.SetDefault("PERMISSION_CACHE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) validate() error {
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		if c.IsRelease() {
			return fmt.Errorf("JWT_SECRET is required in release mode")
		}
		c.JWT.Secret = "default_super_secret_key" // development only
	}
	if c.JWT.ExpiresIn <= 0 {
		c.JWT.ExpiresIn = 24 * time.Hour
	}
	return nil
}

func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

// DSN returns the postgres connection string, or the sqlite file path for the sqlite driver
func (c *Config) DSN() string {
	d := c.Database
	if d.Driver == DriverSQLite {
		return d.Path
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
