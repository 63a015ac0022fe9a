package utils

import (
	"github.com/joy095/marketplace/config"
	"github.com/joy095/marketplace/logger"
)

const devJWTSecret = "default-insecure-secret-only-for-development"

func GetJWTSecret() []byte {
	secret := config.GetString("JWT_SECRET", "")
	if secret == "" {
		logger.WarnLogger.Warn("JWT_SECRET environment variable not set.")
		return []byte(devJWTSecret)
	}
	return []byte(secret)
}
