// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const cmdDir = "../../../cmd/authgate"

// runCLI executes the gateway binary via go run with the given args and
// extra environment entries.
func runCLI(ctx context.Context, extraEnv []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = cmdDir
	cmd.Env = append(cmd.Environ(), extraEnv...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

var _ = Describe("Seed Admin Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)

		output, err := runCLI(ctx, []string{"DATABASE_URL=" + env.connStr}, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
	})

	Describe("Bootstrap administrator", func() {
		It("creates the administrator principal", func() {
			output, err := runCLI(ctx,
				[]string{
					"DATABASE_URL=" + env.connStr,
					"AUTHGATE_ADMIN_PASSWORD=bootstrap-pw",
				},
				"seed-admin", "--identifier", "admin@example.com")
			Expect(err).NotTo(HaveOccurred(), "seed-admin failed: %s", output)
			Expect(output).To(ContainSubstring("Created administrator: admin@example.com"))

			var name, role, hash string
			var active bool
			err = env.pool.QueryRow(ctx,
				"SELECT name, role, password_hash, active FROM principals WHERE identifier = $1",
				"admin@example.com",
			).Scan(&name, &role, &hash, &active)
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Administrator"))
			Expect(role).To(Equal("administrator"))
			Expect(active).To(BeTrue())
			Expect(hash).To(HavePrefix("$argon2id$"), "password must be stored hashed")
			Expect(hash).NotTo(ContainSubstring("bootstrap-pw"))
		})

		It("is idempotent (running twice succeeds without duplicates)", func() {
			envVars := []string{
				"DATABASE_URL=" + env.connStr,
				"AUTHGATE_ADMIN_PASSWORD=bootstrap-pw",
			}

			output1, err := runCLI(ctx, envVars, "seed-admin", "--identifier", "admin@example.com")
			Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output1)
			Expect(output1).To(ContainSubstring("Created administrator"))

			output2, err := runCLI(ctx, envVars, "seed-admin", "--identifier", "admin@example.com")
			Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output2)
			Expect(output2).To(ContainSubstring("Administrator already exists, skipping seed"))

			var count int
			err = env.pool.QueryRow(ctx,
				"SELECT COUNT(*) FROM principals WHERE identifier = $1",
				"admin@example.com",
			).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("normalizes the identifier to lower case", func() {
			output, err := runCLI(ctx,
				[]string{
					"DATABASE_URL=" + env.connStr,
					"AUTHGATE_ADMIN_PASSWORD=bootstrap-pw",
				},
				"seed-admin", "--identifier", "Admin@Example.com")
			Expect(err).NotTo(HaveOccurred(), "seed-admin failed: %s", output)
			Expect(output).To(ContainSubstring("admin@example.com"))

			var count int
			err = env.pool.QueryRow(ctx,
				"SELECT COUNT(*) FROM principals WHERE identifier = $1",
				"admin@example.com",
			).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("Error handling", func() {
		It("fails when DATABASE_URL is missing", func() {
			cmd := exec.CommandContext(ctx, "go", "run", ".", "seed-admin", "--identifier", "admin@example.com")
			cmd.Dir = cmdDir
			// DATABASE_URL deliberately unset

			output, err := cmd.CombinedOutput()
			Expect(err).To(HaveOccurred())
			Expect(string(output)).To(ContainSubstring("DATABASE_URL"))
		})

		It("fails when the admin password is missing", func() {
			output, err := runCLI(ctx,
				[]string{"DATABASE_URL=" + env.connStr},
				"seed-admin", "--identifier", "admin@example.com")
			Expect(err).To(HaveOccurred())
			Expect(output).To(ContainSubstring("AUTHGATE_ADMIN_PASSWORD"))
		})

		It("rejects a password below the minimum length", func() {
			output, err := runCLI(ctx,
				[]string{
					"DATABASE_URL=" + env.connStr,
					"AUTHGATE_ADMIN_PASSWORD=abc",
				},
				"seed-admin", "--identifier", "admin@example.com")
			Expect(err).To(HaveOccurred())
			Expect(output).To(ContainSubstring("password"))
		})
	})
})
