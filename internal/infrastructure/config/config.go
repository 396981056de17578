package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 companion agent 及外部後端的執行設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Remote  RemoteConfig  `yaml:"remote"`
	Vehicle VehicleConfig `yaml:"vehicle"`
	Session SessionConfig `yaml:"session"`
}

// HTTPConfig 為本機控制 API 的監聽設定。
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

// RemoteConfig 為雲端身份後端；timeout 放寬以容忍行動網路。
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// VehicleConfig 為車上後端；LAN 裝置預期快速回應，timeout 設短。
// Address 僅為預設值，執行期可經控制 API 重新設定。
type VehicleConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	RefreshSkew   time.Duration `yaml:"refresh_skew"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8600"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Vehicle.Timeout == 0 {
		cfg.Vehicle.Timeout = 5 * time.Second
	}
	if cfg.Session.RefreshSkew == 0 {
		cfg.Session.RefreshSkew = 5 * time.Minute
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = 60 * time.Second
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("REMOTE_BASE_URL"); val != "" {
		cfg.Remote.BaseURL = val
	}
	if val := os.Getenv("REMOTE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if val := os.Getenv("VEHICLE_ADDRESS"); val != "" {
		cfg.Vehicle.Address = val
	}
	if val := os.Getenv("VEHICLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Vehicle.Timeout = d
		}
	}
	if val := os.Getenv("REFRESH_SKEW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.RefreshSkew = d
		}
	}
	if val := os.Getenv("SWEEP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.SweepInterval = d
		}
	}
	return cfg
}
