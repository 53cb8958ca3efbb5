// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/conectasenior/authgate/internal/store"
)

// GatewayStatus holds the observable state of the gateway's backing store.
type GatewayStatus struct {
	Database          string `json:"database"`
	SchemaVersion     uint   `json:"schema_version"`
	SchemaDirty       bool   `json:"schema_dirty"`
	MigrationsPending bool   `json:"migrations_pending"`
	Principals        int64  `json:"principals"`
	Error             string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
	timeout    time.Duration
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database and schema status",
		Long: `Checks database connectivity, reports the current migration version,
and counts registered principals.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "timeout for database checks")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	status := queryGatewayStatus(ctx, databaseURL)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("STATUS_FAILED").With("operation", "marshal status").Wrap(err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatStatusTable(status))
	return nil
}

// queryGatewayStatus collects connectivity, schema, and principal counts.
// Failures are reported in the status rather than aborting, so a broken
// database still produces readable output.
func queryGatewayStatus(ctx context.Context, databaseURL string) GatewayStatus {
	status := GatewayStatus{Database: "unreachable"}

	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer pool.Close()
	status.Database = "ok"

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer migrator.Close() //nolint:errcheck // close error is non-actionable after a read-only check

	version, dirty, err := migrator.Version()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.SchemaVersion = version
	status.SchemaDirty = dirty

	if versions, err := store.MigrationVersions(); err == nil && len(versions) > 0 {
		status.MigrationsPending = version < versions[len(versions)-1]
	}

	// The principals table only exists once migrations have run.
	if version > 0 && !dirty {
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM principals").Scan(&status.Principals); err != nil {
			status.Error = err.Error()
		}
	}

	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status GatewayStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "CHECK\tVALUE")
	_, _ = fmt.Fprintln(w, "-----\t-----")
	_, _ = fmt.Fprintf(w, "database\t%s\n", status.Database)

	schema := fmt.Sprintf("version %d", status.SchemaVersion)
	if status.SchemaDirty {
		schema += " (dirty)"
	}
	if status.MigrationsPending {
		schema += " (pending migrations)"
	}
	_, _ = fmt.Fprintf(w, "schema\t%s\n", schema)
	_, _ = fmt.Fprintf(w, "principals\t%d\n", status.Principals)

	if status.Error != "" {
		_, _ = fmt.Fprintf(w, "error\t%s\n", status.Error)
	}

	_ = w.Flush()
	return sb.String()
}
