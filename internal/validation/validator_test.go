// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package validation

import (
	"strings"
	"testing"
)

type ingestPayload struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
	Type      string `json:"type" validate:"required,oneof=FUNCTION_CALL HTTP_REQUEST ERROR LOG"`
	Email     string `json:"email" validate:"omitempty,email"`
	Depth     int    `json:"depth" validate:"gte=0"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&ingestPayload{SessionID: "s-1", Type: "LOG"})
	if err != nil {
		t.Fatalf("ValidateStruct() error = %v, want nil", err)
	}
}

func TestValidateStructMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload ingestPayload
		field   string
		wantMsg string
	}{
		{
			name:    "required",
			payload: ingestPayload{Type: "LOG"},
			field:   "SessionID",
			wantMsg: "SessionID is required",
		},
		{
			name:    "oneof",
			payload: ingestPayload{SessionID: "s", Type: "TRACE"},
			field:   "Type",
			wantMsg: "Type must be one of: FUNCTION_CALL HTTP_REQUEST ERROR LOG",
		},
		{
			name:    "email",
			payload: ingestPayload{SessionID: "s", Type: "LOG", Email: "nope"},
			field:   "Email",
			wantMsg: "Email must be a valid email address",
		},
		{
			name:    "gte",
			payload: ingestPayload{SessionID: "s", Type: "LOG", Depth: -1},
			field:   "Depth",
			wantMsg: "Depth must be greater than or equal to 0",
		},
		{
			name:    "max on string",
			payload: ingestPayload{SessionID: strings.Repeat("x", 200), Type: "LOG"},
			field:   "SessionID",
			wantMsg: "SessionID must be at most 128 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.payload)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want failure")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("len(errors) = %d, want 1", len(errs))
			}
			if errs[0].Field() != tt.field {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.field)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	err := ValidateStruct(&ingestPayload{Type: "LOG"})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "SessionID is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "SessionID" {
		t.Errorf("Details[field] = %v, want SessionID", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	err := ValidateStruct(&ingestPayload{Email: "nope", Depth: -2})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want failure")
	}
	if len(err.Errors()) < 2 {
		t.Fatalf("len(errors) = %d, want >= 2", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] type = %T", apiErr.Details["fields"])
	}
	if len(fields) != len(err.Errors()) {
		t.Errorf("len(fields) = %d, want %d", len(fields), len(err.Errors()))
	}
}

func TestGetValidatorIsSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}
