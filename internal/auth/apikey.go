// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks Tracebeam ingestion credentials. The prefix lets
// secret scanners and support staff recognize a leaked key on sight.
const APIKeyPrefix = "tb_"

const apiKeyRandomBytes = 16

// GenerateAPIKey returns a new ingestion credential: the prefix plus
// 32 hex characters of CSPRNG output.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}

// ValidAPIKeyFormat reports whether a string has the shape of a
// Tracebeam API key. It says nothing about whether the key exists.
func ValidAPIKeyFormat(key string) bool {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return false
	}
	hexPart := strings.TrimPrefix(key, APIKeyPrefix)
	if len(hexPart) != apiKeyRandomBytes*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
