package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"aiinfra/internal/config"
	"aiinfra/internal/events"
	"aiinfra/internal/httpapi"
	"aiinfra/internal/keyvault"
	"aiinfra/internal/logging"
	"aiinfra/internal/providers"
	"aiinfra/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		logging.Fatalf("Failed to configure logging: %v", err)
	}
	defer logging.Sync()

	db, err := storage.NewDB(storage.DBConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logging.Fatalf("Failed to migrate database: %v", err)
		}
	}

	codec, err := newCodec(cfg.KeyVault)
	if err != nil {
		logging.Fatalf("Failed to initialize key vault codec: %v", err)
	}

	busCfg := events.DefaultConfig(cfg.Redis.Channel)
	busCfg.UseRedis = cfg.Redis.Address != ""
	busCfg.RedisAddr = cfg.Redis.Address
	busCfg.RedisPassword = cfg.Redis.Password
	busCfg.RedisDB = cfg.Redis.DB
	busCfg.PoolSize = cfg.Redis.PoolSize
	busCfg.DialTimeout = cfg.Redis.DialTimeout
	busCfg.ReadTimeout = cfg.Redis.ReadTimeout
	busCfg.WriteTimeout = cfg.Redis.WriteTimeout

	bus, err := events.New(busCfg)
	if err != nil {
		logging.Fatalf("Failed to initialize refresh bus: %v", err)
	}
	defer bus.Close()

	discoverer := providers.NewHTTPDiscoverer(nil, providers.DiscoveryConfig{
		Timeout:   cfg.Discovery.RequestTimeout,
		CacheSize: cfg.Discovery.CacheSize,
		CacheTTL:  cfg.Discovery.CacheTTL,
	})

	deps := httpapi.NewDependencies(cfg, db, codec, bus, discoverer)

	if cfg.Logging.AuditFile != "" {
		audit := logging.NewAuditLog(logging.AuditConfig{
			FilePath:   cfg.Logging.AuditFile,
			MaxSizeMB:  cfg.Logging.AuditMaxSizeMB,
			MaxBackups: cfg.Logging.AuditMaxBackups,
			MaxAgeDays: cfg.Logging.AuditMaxAgeDays,
			Compress:   true,
		})
		defer audit.Close()
		deps.Audit = audit
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := deps.Sessions.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
			logging.Errorf("Session refresh loop stopped: %v", err)
		}
	}()

	// Create HTTP server
	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewRouter(cfg, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.Infof("Provider settings service listening on %s (db=%s, bus=%s)", addr, db.Driver(), busKind(busCfg))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warningf("Server forced to shutdown: %v", err)
	}

	logging.Infof("Server exited")
}

func newCodec(cfg config.KeyVaultConfig) (keyvault.Codec, error) {
	if cfg.Secret == "" && cfg.Insecure {
		logging.Warningf("KEY_VAULTS_INSECURE is set: provider secrets are stored unencrypted")
		return keyvault.Passthrough(), nil
	}
	if cfg.Secret == "" {
		return nil, errors.New("KEY_VAULTS_SECRET is empty")
	}
	return keyvault.NewAESGCMFromSecret(cfg.Secret)
}

func busKind(cfg *events.Config) string {
	if cfg.UseRedis {
		return "redis"
	}
	return "memory"
}
