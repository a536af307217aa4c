package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	AWS       AWSConfig       `yaml:"aws"`
	Auth      AuthConfig      `yaml:"auth"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Streak    StreakConfig    `yaml:"streak"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds payload bucket configuration
type AWSConfig struct {
	Region     string `yaml:"region"`
	S3Bucket   string `yaml:"s3_bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"` // custom endpoint for S3-compatible providers
	DisableSSL bool   `yaml:"disable_ssl"`
}

// AuthConfig holds API key and viewer session configuration
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	ViewerTokenHours int    `yaml:"viewer_token_hours"`
}

// LifecycleConfig holds content expiry policy
type LifecycleConfig struct {
	DefaultTTLHours  int `yaml:"default_ttl_hours"`
	MaxTTLHours      int `yaml:"max_ttl_hours"`
	StoryTTLHours    int `yaml:"story_ttl_hours"`
	ReadGraceMinutes int `yaml:"read_grace_minutes"`
}

// StreakConfig holds streak window policy
type StreakConfig struct {
	WindowHours int `yaml:"window_hours"`
	AtRiskHours int `yaml:"at_risk_hours"`
}

// SweepConfig holds background sweep configuration
type SweepConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.ViewerTokenHours <= 0 {
		c.Auth.ViewerTokenHours = 24
	}
	if c.Lifecycle.DefaultTTLHours <= 0 {
		c.Lifecycle.DefaultTTLHours = 24
	}
	if c.Lifecycle.MaxTTLHours <= 0 {
		c.Lifecycle.MaxTTLHours = 168
	}
	if c.Lifecycle.StoryTTLHours <= 0 {
		c.Lifecycle.StoryTTLHours = 24
	}
	if c.Lifecycle.ReadGraceMinutes <= 0 {
		c.Lifecycle.ReadGraceMinutes = 20
	}
	if c.Streak.WindowHours <= 0 {
		c.Streak.WindowHours = 24
	}
	if c.Streak.AtRiskHours <= 0 {
		c.Streak.AtRiskHours = 4
	}
	if c.Sweep.IntervalMinutes <= 0 {
		c.Sweep.IntervalMinutes = 15
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
