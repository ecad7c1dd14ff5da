package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port         int
	NatsURL      string
	NatsToken    string
	DatabaseURL  string
	LogLevel     string
	APIToken     string
	UploadDir    string
	MaxUploadMB  int
	CORSOrigins  []string
	PreviewLimit int
}

func Load() Config {
	return Config{
		Port:         envInt("CHATSIFT_PORT", 8760),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		APIToken:     envStr("CHATSIFT_API_TOKEN", ""),
		UploadDir:    envStr("CHATSIFT_UPLOAD_DIR", "/data/uploads"),
		MaxUploadMB:  envInt("CHATSIFT_MAX_UPLOAD_MB", 25),
		CORSOrigins:  envList("CHATSIFT_CORS_ORIGINS", []string{"*"}),
		PreviewLimit: envInt("CHATSIFT_PREVIEW_LIMIT", 50),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
