package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/pkg/logger"
)

type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Database  DatabaseConfig    `yaml:"database"`
	Logger    logger.Config     `yaml:"logger"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Script    ScriptConfig      `yaml:"script"`
	Narration NarrationConfig   `yaml:"narration"`
	Render    RenderConfig      `yaml:"render"`
	YouTube   YouTubeConfig     `yaml:"youtube"`
	Safety    safety.Thresholds `yaml:"safety"`
	Auth      AuthConfig        `yaml:"auth"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type SchedulerConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
	Enabled       bool   `yaml:"enabled"`
}

type ScriptConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type NarrationConfig struct {
	// Primary backend name: edge (free, default) or elevenlabs (paid)
	Primary          string `yaml:"primary"`
	OutputDir        string `yaml:"output_dir"`
	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key"`
}

type RenderConfig struct {
	ShotstackAPIKey string `yaml:"shotstack_api_key"`
}

type YouTubeConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CategoryID   string `yaml:"category_id"`
}

type AuthConfig struct {
	TOTPSecret string `yaml:"totp_secret"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5610
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Scheduler.SweepInterval == "" {
		cfg.Scheduler.SweepInterval = "5m"
	}
	if cfg.Narration.Primary == "" {
		cfg.Narration.Primary = "edge"
	}
	if cfg.Narration.OutputDir == "" {
		cfg.Narration.OutputDir = "data/audio"
	}
	if cfg.Safety == (safety.Thresholds{}) {
		cfg.Safety = safety.DefaultThresholds()
	}

	return cfg, nil
}
