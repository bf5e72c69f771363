package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
	}
	Mongo struct {
		URI      string
		Database string
	}
	Uploads struct {
		Backend       string
		Dir           string
		SweepInterval time.Duration
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
}

// TokenTTL is the configured session lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// optional file; variables already in the environment win
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.path", "data/blog.db")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "blog")
	v.SetDefault("uploads.backend", "local")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.sweepinterval", "1h")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 24*60)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Uploads.Backend = strings.ToLower(strings.TrimSpace(cfg.Uploads.Backend))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "mongo", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Uploads.Backend {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the s3 uploads backend")
		}
	default:
		return fmt.Errorf("unsupported uploads backend %q", c.Uploads.Backend)
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth token ttl must be positive")
	}
	return nil
}
