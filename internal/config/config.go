package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
// Every value has a development default; none of the defaults are safe
// for production.
type Config struct {
	Env      string
	LogLevel string
	Port     string

	SecretKey   string
	DatabaseURL string
	// AllowMemoryToolServer lets the tool server run on its own in-memory
	// store, which the web server cannot see.
	AllowMemoryToolServer bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIKeyBackend    string
	APIKeysFile      string
	DefaultAPIKey    string
	ToolServerAPIKey string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioObject    string
	MinioUseSSL    bool

	MongoURI string
	MongoDB  string

	CORSOrigins []string
}

// Load reads configuration from the environment, after loading .env if
// one is present in the working directory.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		Env:      getenv("APP_ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Port:     getenv("PORT", "8080"),

		SecretKey:   getenv("SECRET_KEY", "cyberpunk-todo-secret-key-2077"),
		DatabaseURL: getenv("DATABASE_URL", "memory"),

		AllowMemoryToolServer: getenv("TOOLSERVER_ALLOW_MEMORY", "false") == "true",

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		APIKeyBackend:    getenv("APIKEY_BACKEND", "file"),
		APIKeysFile:      getenv("MCP_API_KEYS_FILE", "mcp_api_keys.json"),
		DefaultAPIKey:    getenv("MCP_DEFAULT_API_KEY", "cyber-todo-2077-dev-key"),
		ToolServerAPIKey: getenv("TOOLSERVER_API_KEY", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "cybertodo"),
		MinioObject:    getenv("MINIO_API_KEYS_OBJECT", "mcp_api_keys.json"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "cybertodo"),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}
}

// Production reports whether APP_ENV is "production".
func (c *Config) Production() bool {
	return c.Env == "production"
}

// ErrMemoryToolServer is returned by CheckToolServerStore when the tool
// server would start on a private in-memory store.
var ErrMemoryToolServer = errors.New("DATABASE_URL=memory gives the tool server a store of its own; " +
	"point it at the web server's postgres database or set TOOLSERVER_ALLOW_MEMORY=true")

// MemoryStore reports whether DATABASE_URL selects the in-memory store.
func (c *Config) MemoryStore() bool {
	return c.DatabaseURL == "memory" || c.DatabaseURL == ""
}

// CheckToolServerStore refuses the in-memory store unless it was asked for
// explicitly. Each process gets its own memory store, so todos created by
// the tool server would never reach the web server and vice versa.
func (c *Config) CheckToolServerStore() error {
	if c.MemoryStore() && !c.AllowMemoryToolServer {
		return ErrMemoryToolServer
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
