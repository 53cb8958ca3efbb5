// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

//go:build integration

package cli_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Migrate Command", func() {
	var (
		ctx     context.Context
		envVars []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		envVars = []string{"DATABASE_URL=" + env.connStr}
		resetDatabase(ctx, env.pool)
	})

	tableExists := func(name string) bool {
		var regclass *string
		err := env.pool.QueryRow(ctx, "SELECT to_regclass($1)::text", name).Scan(&regclass)
		Expect(err).NotTo(HaveOccurred())
		return regclass != nil
	}

	Describe("up", func() {
		It("creates the principals table", func() {
			output, err := runCLI(ctx, envVars, "migrate", "up")
			Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
			Expect(output).To(ContainSubstring("Migrations completed successfully"))
			Expect(tableExists("principals")).To(BeTrue())
		})

		It("is a no-op on an up-to-date schema", func() {
			_, err := runCLI(ctx, envVars, "migrate", "up")
			Expect(err).NotTo(HaveOccurred())

			output, err := runCLI(ctx, envVars, "migrate", "up")
			Expect(err).NotTo(HaveOccurred(), "second migrate up failed: %s", output)
			Expect(output).To(ContainSubstring("Migrations completed successfully"))
		})
	})

	Describe("down", func() {
		It("drops the principals table", func() {
			_, err := runCLI(ctx, envVars, "migrate", "up")
			Expect(err).NotTo(HaveOccurred())

			output, err := runCLI(ctx, envVars, "migrate", "down")
			Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)
			Expect(output).To(ContainSubstring("Rollback completed"))
			Expect(tableExists("principals")).To(BeFalse())
		})
	})

	Describe("version", func() {
		It("reports the current schema version", func() {
			_, err := runCLI(ctx, envVars, "migrate", "up")
			Expect(err).NotTo(HaveOccurred())

			output, err := runCLI(ctx, envVars, "migrate", "version")
			Expect(err).NotTo(HaveOccurred(), "migrate version failed: %s", output)
			Expect(output).To(MatchRegexp(`Version: \d+`))
		})
	})
})
