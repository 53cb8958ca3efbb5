// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/conectasenior/authgate/internal/auth"
	authpg "github.com/conectasenior/authgate/internal/auth/postgres"
	"github.com/conectasenior/authgate/internal/store"
)

// Default timeout for seed-admin command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed-admin command.
type seedConfig struct {
	name       string
	identifier string
	timeout    time.Duration
}

// NewSeedAdminCmd creates the seed-admin subcommand.
func NewSeedAdminCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap administrator principal",
		Long: `Creates the first administrator so the administrative endpoints are
reachable on a fresh install. The password is read from the
AUTHGATE_ADMIN_PASSWORD environment variable, never from a flag.
This command is idempotent - it will not create a duplicate if the
identifier is already registered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedAdmin(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "Administrator", "display name for the administrator")
	cmd.Flags().StringVar(&cfg.identifier, "identifier", "", "login identifier (email) for the administrator")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeedAdmin(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	password := os.Getenv("AUTHGATE_ADMIN_PASSWORD")
	if password == "" {
		return oops.Code("CONFIG_INVALID").Errorf("AUTHGATE_ADMIN_PASSWORD environment variable is required")
	}
	if cfg.identifier == "" {
		return oops.Code("CONFIG_INVALID").Errorf("--identifier is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher := auth.NewArgon2idHasher()
	hash, err := hasher.Hash(password)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash password").Wrap(err)
	}

	principal, err := auth.NewPrincipal(cfg.name, cfg.identifier, hash, auth.RoleAdministrator, nil)
	if err != nil {
		return err
	}

	repo := authpg.NewPrincipalRepository(pool)
	if err := repo.Create(ctx, principal); err != nil {
		if errors.Is(err, auth.ErrDuplicateIdentifier) {
			cmd.Println("Administrator already exists, skipping seed")
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create administrator").Wrap(err)
	}

	cmd.Printf("Created administrator: %s\n", principal.Identifier)
	return nil
}
