package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/stridehq/stride/internal/backup"
	"github.com/stridehq/stride/internal/database"
	"github.com/stridehq/stride/internal/logging"
	"github.com/stridehq/stride/internal/push"
	"github.com/stridehq/stride/internal/server"
)

func envOr(key, fallback string) string {
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

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		os.Stdout.WriteString("STRIDE_VAPID_PUBLIC_KEY=" + pub + "\n")
		os.Stdout.WriteString("STRIDE_VAPID_PRIVATE_KEY=" + priv + "\n")
		return
	}

	logger := logging.Setup(os.Getenv("STRIDE_LOG_LEVEL"), os.Getenv("STRIDE_LOG_FORMAT"))

	port := envOr("STRIDE_PORT", "8080")
	dbPath := envOr("STRIDE_DB_PATH", "stride.db")

	jwtSecret := os.Getenv("STRIDE_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("STRIDE_JWT_SECRET is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("STRIDE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("STRIDE_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		logger.Warn("VAPID keys not configured, push notifications disabled",
			"hint", "set STRIDE_VAPID_PUBLIC_KEY and STRIDE_VAPID_PRIVATE_KEY")
	}

	cfg := server.Config{
		JWTSecret: jwtSecret,
		TokenTTL:  time.Duration(envInt("STRIDE_TOKEN_TTL_HOURS", 24)) * time.Hour,
		Push:      pushCfg,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("STRIDE_S3_ENDPOINT"),
				Bucket:    os.Getenv("STRIDE_S3_BUCKET"),
				Region:    envOr("STRIDE_S3_REGION", "auto"),
				AccessKey: os.Getenv("STRIDE_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("STRIDE_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("STRIDE_BACKUP_PASSPHRASE"),
			ScheduleHour:  envInt("STRIDE_BACKUP_HOUR", 2),
			RetentionDays: envInt("STRIDE_BACKUP_RETENTION_DAYS", 30),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx := context.Background()
	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()
	srv.Maintenance().Start(ctx)
	defer srv.Maintenance().Stop()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("stride listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
