package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type QdrantConfig struct {
	URL string
}

type OllamaConfig struct {
	URL             string
	EmbeddingModel  string
	GenerationModel string
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
}

type AgentConfig struct {
	// VectorBackend selects the index implementation: memory, qdrant, or pgvector.
	VectorBackend  string
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	MaxTokens      int
	WeatherSignals []string
}

type CacheConfig struct {
	Size int
}

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Qdrant  QdrantConfig
	Ollama  OllamaConfig
	Weather WeatherConfig
	Agent   AgentConfig
	Cache   CacheConfig
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "development"),
			Port: getEnv("PORT", "9020"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "agent-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "agent_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "agent_password"),
			Name:     getEnv("DB_NAME", "agent_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Qdrant: QdrantConfig{
			URL: getEnv("QDRANT_URL", "http://qdrant:6333"),
		},
		Ollama: OllamaConfig{
			URL:             getEnv("OLLAMA_URL", "http://ollama:11434"),
			EmbeddingModel:  getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			GenerationModel: getEnv("GENERATION_MODEL", "gemma3:4b"),
		},
		Weather: WeatherConfig{
			APIKey:  getSecret("OPENWEATHER_API_KEY", "OPENWEATHER_API_KEY_FILE", ""),
			BaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		},
		Agent: AgentConfig{
			VectorBackend:  getEnv("VECTOR_BACKEND", "memory"),
			ChunkSize:      getEnvInt("CHUNK_SIZE", 800),
			ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 100),
			TopK:           getEnvInt("RETRIEVE_TOP_K", 4),
			MaxTokens:      getEnvInt("ANSWER_MAX_TOKENS", 768),
			WeatherSignals: getEnvList("WEATHER_SIGNALS", nil),
		},
		Cache: CacheConfig{
			Size: getEnvInt("ANSWER_CACHE_SIZE", 256),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
