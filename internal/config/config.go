package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个网关的配置项。
type Config struct {
	Server ServerConfig
	Tutor  TutorConfig
	Panel  PanelConfig
	Redis  RedisConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	tutor, err := loadTutorConfig()
	if err != nil {
		return nil, err
	}

	panel, err := loadPanelConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Tutor: tutor, Panel: panel, Redis: redis}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// TutorConfig 描述教学后端（识别、问答、文档摄取）的访问配置。
type TutorConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadTutorConfig() (TutorConfig, error) {
	baseURL := getEnvOrDefault("TUTOR_BASE_URL", "http://localhost:10000")

	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("TUTOR_TIMEOUT"); err != nil {
		return TutorConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return TutorConfig{}, fmt.Errorf("invalid TUTOR_TIMEOUT value: %d", *override)
		}
		timeoutSeconds = *override
	}

	return TutorConfig{
		BaseURL: baseURL,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// PanelConfig 描述情绪面板的采样与布局配置。
type PanelConfig struct {
	SampleInterval   time.Duration
	MobileBreakpoint float64
}

func loadPanelConfig() (PanelConfig, error) {
	intervalSeconds := 5
	if override, err := parseOptionalIntEnv("PANEL_SAMPLE_INTERVAL"); err != nil {
		return PanelConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return PanelConfig{}, fmt.Errorf("invalid PANEL_SAMPLE_INTERVAL value: %d", *override)
		}
		intervalSeconds = *override
	}

	breakpoint := 700.0
	if override, err := parseOptionalFloatEnv("PANEL_MOBILE_BREAKPOINT"); err != nil {
		return PanelConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return PanelConfig{}, fmt.Errorf("invalid PANEL_MOBILE_BREAKPOINT value: %v", *override)
		}
		breakpoint = *override
	}

	return PanelConfig{
		SampleInterval:   time.Duration(intervalSeconds) * time.Second,
		MobileBreakpoint: breakpoint,
	}, nil
}

// RedisConfig 描述账号与聊天记录存储的连接配置。未配置地址时退回内存实现。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled 表示是否配置了 Redis 地址。
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		db = *override
	}

	return RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
