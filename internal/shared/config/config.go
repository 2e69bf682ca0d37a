package config

import (
	"os"
	"strconv"
	"strings"

	"invoice-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port                 string
	Env                  string
	LogLevel             string
	CORSAllowOrigin      []string
	ObjectStoreType      string
	LocalStoreDir        string
	AWSRegion            string
	S3Bucket             string
	S3Prefix             string
	SSEKMSKeyID          string
	DatabaseURL          string
	MongoURI             string
	MongoDatabase        string
	GridFSBucket         string
	GeminiAPIKey         string
	GeminiModel          string
	GroqAPIKey           string
	GroqModel            string
	GroqBaseURL          string
	ProviderTimeoutSecs  int
	DefaultProvider      string
	MaxUploadBytes       int64
	ExtractRatePerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	mongoURI := os.Getenv("MONGO_URI")

	if env == "production" && dbURL == "" && mongoURI == "" {
		telemetry.Warn("config.no_metadata_store", map[string]any{"env": env, "hint": "set DATABASE_URL or MONGO_URI"})
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  env,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin:      splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:      normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:        getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:            getEnv("AWS_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:          getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:          dbURL,
		MongoURI:             mongoURI,
		MongoDatabase:        getEnv("MONGO_DATABASE", "invoices"),
		GridFSBucket:         getEnv("GRIDFS_BUCKET", "pdfs"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:           getEnv("GROQ_API_KEY", ""),
		GroqModel:            getEnv("GROQ_MODEL", "openai/gpt-oss-120b"),
		GroqBaseURL:          getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ProviderTimeoutSecs:  getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120),
		DefaultProvider:      strings.ToLower(getEnv("DEFAULT_PROVIDER", "groq")),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		ExtractRatePerMinute: getEnvNonNegativeInt("EXTRACT_RATE_PER_MINUTE", 20),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	return readEnvInt(key, def, 1)
}

// getEnvNonNegativeInt accepts 0, which callers treat as "disabled".
func getEnvNonNegativeInt(key string, def int) int {
	return readEnvInt(key, def, 0)
}

func readEnvInt(key string, def, min int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw, "default": def, "min": min})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.TrimRight(trimmed, "/"))
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gridfs", "mongo":
		return "gridfs"
	default:
		return "local"
	}
}
