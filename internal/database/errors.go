// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package database

import "errors"

// Sentinel errors returned by store operations. Anything else is a
// store failure and propagates to the caller unchanged.
var (
	// ErrNotFound indicates the addressed entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict indicates a uniqueness violation on a mutation that
	// does not treat duplicates as success (e.g. user registration).
	ErrConflict = errors.New("entity already exists")
)
