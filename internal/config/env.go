package config

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv loads .env into the process environment. A missing file is fine, system env is used.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		zap.L().Info(".env not found, using system environment")
	}
}

func GetEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
