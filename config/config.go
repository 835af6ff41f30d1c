package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	Debug       bool   `mapstructure:"debug"`
}

type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	RoomTTL time.Duration `mapstructure:"room_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Postgres       PostgresConfig `mapstructure:"postgres"`
	HistoryEnabled bool           `mapstructure:"history_enabled"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type GameConfig struct {
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.debug", false)
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.room_ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "impostor")
	v.SetDefault("database.history_enabled", false)
	v.SetDefault("game.heartbeat_timeout", 30*time.Second)
	v.SetDefault("game.sweep_interval", 10*time.Second)
}

// LoadConfig 读取 path 下的 .env 与 config.yaml，两者都可以不存在。
// 环境变量优先，键名中的 "." 换成 "_"，如 STORAGE_BACKEND。
func LoadConfig(path string) (*Config, error) {
	// godotenv.Load 不覆盖已有的环境变量
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("storage.backend must be memory, redis or postgres, got %q", c.Storage.Backend)
	}
	if c.Storage.RoomTTL <= 0 {
		return errors.New("storage.room_ttl must be positive")
	}
	if c.Game.HeartbeatTimeout <= 0 || c.Game.SweepInterval <= 0 {
		return errors.New("game.heartbeat_timeout and game.sweep_interval must be positive")
	}
	return nil
}
