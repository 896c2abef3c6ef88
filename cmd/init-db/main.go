package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"aiinfra/internal/auth"
	"aiinfra/internal/config"
	"aiinfra/internal/keyvault"
	"aiinfra/internal/storage"
)

func main() {
	fmt.Println("AI Infra - Provider Settings Database Initialization")
	fmt.Println(strings.Repeat("=", 52))

	// Print a fresh key first so it can be used to fill KEY_VAULTS_SECRET
	// before the configuration is loaded.
	if os.Getenv("INIT_GENERATE_KEY") == "true" {
		key, err := keyvault.GenerateKey(32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to generate key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("KEY_VAULTS_SECRET=%s\n", key)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to %s database...\n", cfg.Database.Driver)
	db, err := storage.NewDB(storage.DBConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Applying schema...")
	if err := db.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to migrate database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Schema is up to date")

	userID := os.Getenv("INIT_USER_ID")
	if userID == "" {
		return
	}

	role := auth.RoleEditor
	if r := os.Getenv("INIT_USER_ROLE"); r != "" {
		role = auth.Role(r)
	}
	if !role.IsValid() {
		fmt.Fprintf(os.Stderr, "ERROR: Invalid role: %s\n", role)
		os.Exit(1)
	}

	token, expiresAt, err := auth.GenerateUserJWT(userID, cfg, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nToken for user %s (role %s), expires %s:\n", userID, role, time.Unix(expiresAt, 0).Format(time.RFC3339))
	fmt.Println(token)
}
