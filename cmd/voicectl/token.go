package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/internal/auth"
)

func runToken(args []string, logger *zap.Logger) error {
	fs := pflag.NewFlagSet("token", pflag.ExitOnError)
	deviceID := fs.StringP("device", "d", "", "Device ID to embed in the token")
	secret := fs.String("secret", os.Getenv("VOICECMD_AUTH_JWT_SECRET"), "Server JWT secret")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	fs.Parse(args)

	if *deviceID == "" {
		return fmt.Errorf("--device is required")
	}
	if *secret == "" {
		return fmt.Errorf("--secret or VOICECMD_AUTH_JWT_SECRET is required")
	}

	token, expiresAt, err := auth.NewAuthenticator(*secret, *ttl, logger).GenerateDeviceToken(*deviceID)
	if err != nil {
		return err
	}

	logger.Info("Token issued", zap.String("device_id", *deviceID), zap.Time("expires_at", expiresAt))
	fmt.Println(token)
	return nil
}
