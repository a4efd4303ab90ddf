// Package config 负责加载和管理客户端的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个客户端的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	UI      UIConfig      `mapstructure:"ui"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Theme   ThemeConfig   `mapstructure:"theme"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig 存储聊天后端的访问配置。
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UIConfig 存储本地 UI 网关的配置。
type UIConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// Secret 为空时 /api/v1 不做鉴权
	Secret           string        `mapstructure:"secret"`
	TokenExpireHours int           `mapstructure:"token_expire_hours"`
	StreamTokenTTL   time.Duration `mapstructure:"stream_token_ttl"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时使用内存存储。
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ThemeConfig 存储主题偏好相关的配置。
type ThemeConfig struct {
	Key string `mapstructure:"key"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000/api")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("ui.port", "8090")
	v.SetDefault("ui.secret", "")
	v.SetDefault("ui.mode", "release")
	v.SetDefault("ui.token_expire_hours", 24)
	v.SetDefault("ui.stream_token_ttl", time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "support-chat:")
	v.SetDefault("theme.key", "theme")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")
}

// Load 读取配置文件并返回解析结果。configPath 为空时只使用默认值与环境变量。
// 环境变量以 CHAT_ 为前缀，例如 CHAT_BACKEND_BASE_URL。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
