//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const envPostgresDSN = "GRIDBOOK_TEST_POSTGRES_DSN"

// Test groups test targets.
type Test mg.Namespace

// All runs every test. PostgreSQL tests skip themselves without a DSN.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the tests with the race detector and no PostgreSQL DSN.
func (Test) Unit() error {
	env := map[string]string{envPostgresDSN: ""}
	return sh.RunWithV(env, binGo, "test", "-race", "./...")
}

// Postgres runs only the PostgreSQL store tests.
func (Test) Postgres() error {
	if os.Getenv(envPostgresDSN) == "" {
		fmt.Printf("%s is not set; nothing to run.\n", envPostgresDSN)
		return nil
	}
	return sh.RunV(binGo, "test", "-v", "-run", "Postgres", "./internal/sqlstore/")
}
