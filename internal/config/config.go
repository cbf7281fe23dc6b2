package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GeminiAPIKey string
	ModelName    string

	GCPProjectID string

	StorageBackend string // "memory", "file" or "firestore"
	DataFile       string // snapshot path for the file backend

	UseMockLLM  bool // true = use mock even with a key configured
	TurnTimeout time.Duration

	StaticDir string // optional directory of UI assets to serve
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("HEMPBIS_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("PORT", "8080"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("HEMPBIS_MODEL_NAME", "gemini-2.5-flash"),

		GCPProjectID: getEnv("HEMPBIS_GCP_PROJECT", ""),

		StorageBackend: getEnv("HEMPBIS_STORAGE_BACKEND", "memory"),
		DataFile:       getEnv("HEMPBIS_DATA_FILE", "data/threads.json"),

		UseMockLLM:  getBoolEnv("HEMPBIS_USE_MOCK_LLM", false),
		TurnTimeout: getDurationEnv("HEMPBIS_TURN_TIMEOUT", 120*time.Second),

		StaticDir: getEnv("HEMPBIS_STATIC_DIR", ""),
	}

	if !cfg.UseMockLLM && cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY must be set unless HEMPBIS_USE_MOCK_LLM is enabled")
	}
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		log.Fatal("HEMPBIS_GCP_PROJECT must be set for the firestore backend")
	}

	return cfg
}
