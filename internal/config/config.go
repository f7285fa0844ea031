package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Provider 标识远端模型供应方。
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderArk    Provider = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chat   ChatConfig
	Speech SpeechConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chat: chat, Speech: speech, Log: logCfg}, nil
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

// AIConfig 描述大模型相关配置。API Key 不在此处：它由客户端在初始化会话时提供。
type AIConfig struct {
	Provider    Provider
	Gemini      GeminiConfig
	Ark         ArkConfig
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// GeminiConfig 描述 Gemini 模型选择。
type GeminiConfig struct {
	ChatModel  string
	ImageModel string
	BaseURL    string
}

// ArkConfig 描述 Ark 模型选择。
type ArkConfig struct {
	Model   string
	BaseURL string
	Region  string
}

// NewChatModel 使用会话提供的 API Key 创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context, apiKey string) (model.ChatModel, error) {
	if c.Ark.Model == "" {
		return nil, fmt.Errorf("ARK_MODEL is required when AI_PROVIDER=ark")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ark api key is empty")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.Ark.BaseURL,
		Region:      c.Ark.Region,
		APIKey:      apiKey,
		Model:       c.Ark.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderGemini))))
	switch provider {
	case ProviderGemini, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want gemini or ark", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider: provider,
		Gemini: GeminiConfig{
			ChatModel:  getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
			ImageModel: getEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			BaseURL:    getEnvOrDefault("GEMINI_BASE_URL", ""),
		},
		Ark: ArkConfig{
			Model:   strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL: getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:  getEnvOrDefault("ARK_REGION", "cn-beijing"),
		},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}

	if provider == ProviderArk && cfg.Ark.Model == "" {
		return AIConfig{}, fmt.Errorf("ARK_MODEL is required when AI_PROVIDER=ark")
	}

	return cfg, nil
}

// ChatConfig 控制会话与请求行为。
type ChatConfig struct {
	HistoryLimit   int
	RequestTimeout time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	historyLimit := 20
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_HISTORY_LIMIT value %d: must be at least 1", *override)
		}
		historyLimit = *override
	}

	timeout, err := parseOptionalIntEnv("CHAT_REQUEST_TIMEOUT")
	if err != nil {
		return ChatConfig{}, err
	}
	var requestTimeout time.Duration
	if timeout != nil {
		if *timeout < 0 {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_REQUEST_TIMEOUT value %d: must not be negative", *timeout)
		}
		requestTimeout = time.Duration(*timeout) * time.Second
	}

	return ChatConfig{HistoryLimit: historyLimit, RequestTimeout: requestTimeout}, nil
}

// SpeechConfig 描述本地朗读命令。为空时不启用命令朗读。
type SpeechConfig struct {
	Command string
	Args    []string
}

// Enabled 表示是否配置了朗读命令。
func (c SpeechConfig) Enabled() bool {
	return c.Command != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	return SpeechConfig{
		Command: strings.TrimSpace(os.Getenv("SPEECH_COMMAND")),
		Args:    strings.Fields(os.Getenv("SPEECH_ARGS")),
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	development, err := parseBoolEnv("LOG_DEVELOPMENT", false)
	if err != nil {
		return LogConfig{}, err
	}

	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q", level)
	}

	return LogConfig{Level: level, Development: development}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
