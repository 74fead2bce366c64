package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string
		AllowedOrigins  []string
		MaxUploadSizeMB int64
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret              string
		Issuer                 string
		SetupToken             string
		TokenTTLMinutes        int
		BcryptCost             int
		DefaultUsername        string
		DefaultPassword        string
		HideDefaultCredentials bool
		RejectRepeatedRotation bool
	}
	Storage struct {
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		// PublicBaseURL is the CDN or website origin serving the bucket.
		// Objects are written private, so without it image URLs point at
		// the bucket and need a public-read bucket policy.
		PublicBaseURL string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level      string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// TokenTTL converts the configured minutes into a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth jwt secret is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	return nil
}

// Warnings lists settings that are accepted but probably not what the
// operator wants.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Storage.Bucket != "" && strings.TrimSpace(c.Storage.PublicBaseURL) == "" {
		warnings = append(warnings, "storage.publicbaseurl is empty: images are uploaded private and linked by direct bucket URL, "+
			"so listing images only load if a bucket policy grants public read")
	}
	if strings.TrimSpace(c.Auth.SetupToken) == "" {
		warnings = append(warnings, "auth.setuptoken is empty: legacy setup endpoint disabled")
	}
	return warnings
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.allowedorigins", []string{"*"})
	v.SetDefault("server.maxuploadsizemb", 5)
	v.SetDefault("database.path", "data/storefront.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "storefront-admin")
	v.SetDefault("auth.setuptoken", "")
	v.SetDefault("auth.tokenttlminutes", 24*60)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.defaultusername", "admin")
	v.SetDefault("auth.defaultpassword", "admin123")
	v.SetDefault("auth.hidedefaultcredentials", false)
	v.SetDefault("auth.rejectrepeatedrotation", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "listing-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsizemb", 50)
	v.SetDefault("log.maxbackups", 5)
	v.SetDefault("log.maxagedays", 28)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv copies KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = unquote(strings.TrimSpace(value))

		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s from %s: %w", key, path, err)
			}
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
