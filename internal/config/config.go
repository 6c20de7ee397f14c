package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Retrieval RetrievalConfig
	Room      RoomConfig
	Storage   StorageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Addr string
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float32
	MaxTokens   int
}

type RetrievalConfig struct {
	TopK int
}

// RoomConfig holds credentials for the external realtime room service.
// Tokens minted with APIKey/APISecret let clients join rooms at ServerURL.
type RoomConfig struct {
	ServerURL string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		OpenAI: OpenAIConfig{
			ChatModel:   "gpt-3.5-turbo",
			EmbedModel:  "text-embedding-3-small",
			Temperature: 0.7,
			MaxTokens:   300,
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		Room: RoomConfig{
			ServerURL: "wss://your-room-server.example.com",
			TokenTTL:  6 * time.Hour,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from environment variables, applying defaults for
// anything unset. Missing credentials are not an error: components that need
// them (generation, memory embeddings, token issuance) start disabled and the
// server degrades per-feature instead of refusing to boot.
func Load() (Config, error) {
	cfg := defaults()

	cfg.Server.Addr = envOrDefault("ROOMCHAT_ADDR", cfg.Server.Addr)
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.BaseURL = os.Getenv("ROOMCHAT_OPENAI_BASE_URL")
	cfg.OpenAI.ChatModel = envOrDefault("ROOMCHAT_CHAT_MODEL", cfg.OpenAI.ChatModel)
	cfg.OpenAI.EmbedModel = envOrDefault("ROOMCHAT_EMBED_MODEL", cfg.OpenAI.EmbedModel)
	cfg.Room.ServerURL = envOrDefault("ROOM_SERVER_URL", cfg.Room.ServerURL)
	cfg.Room.APIKey = os.Getenv("ROOM_API_KEY")
	cfg.Room.APISecret = os.Getenv("ROOM_API_SECRET")
	cfg.Storage.DataDir = envOrDefault("ROOMCHAT_DATA_DIR", cfg.Storage.DataDir)
	cfg.Log.Level = envOrDefault("ROOMCHAT_LOG_LEVEL", cfg.Log.Level)

	var err error
	cfg.OpenAI.Temperature, err = float32FromEnv("ROOMCHAT_TEMPERATURE", cfg.OpenAI.Temperature)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAI.MaxTokens, err = intFromEnv("ROOMCHAT_MAX_TOKENS", cfg.OpenAI.MaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.Retrieval.TopK, err = intFromEnv("ROOMCHAT_RETRIEVAL_TOPK", cfg.Retrieval.TopK)
	if err != nil {
		return Config{}, err
	}
	cfg.Room.TokenTTL, err = durationFromEnv("ROOMCHAT_TOKEN_TTL", cfg.Room.TokenTTL)
	if err != nil {
		return Config{}, err
	}

	if cfg.Retrieval.TopK < 1 {
		return Config{}, fmt.Errorf("ROOMCHAT_RETRIEVAL_TOPK must be >= 1, got %d", cfg.Retrieval.TopK)
	}

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "roomchat-data"
		}
	}
	return filepath.Join(dir, "roomchat")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, nil
}

func float32FromEnv(key string, def float32) (float32, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	return float32(f), nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
