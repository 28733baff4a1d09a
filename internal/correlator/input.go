// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package correlator

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tracebeam/tracebeam/internal/models"
)

// SessionInput is the ingest payload for an explicit session create.
// The id is optional; SDKs that generate their own session ids send
// one so later events can reference it before the create round-trips.
type SessionInput struct {
	ID          string          `json:"id" validate:"omitempty,max=128"`
	Environment string          `json:"environment" validate:"omitempty,max=64"`
	UserAgent   *string         `json:"userAgent" validate:"omitempty,max=1024"`
	IPAddress   *string         `json:"ipAddress" validate:"omitempty,max=64"`
	Metadata    json.RawMessage `json:"metadata"`
}

// HTTPDescriptor is the nested HTTP payload shape newer SDKs send in
// place of the flat httpMethod/httpUrl/httpStatus fields.
type HTTPDescriptor struct {
	Method       string          `json:"method"`
	URL          string          `json:"url"`
	StatusCode   *int            `json:"statusCode"`
	RequestBody  json.RawMessage `json:"requestBody"`
	ResponseBody json.RawMessage `json:"responseBody"`
}

// ErrorDescriptor is the nested error payload shape, the counterpart
// of the flat errorMessage/errorStack fields.
type ErrorDescriptor struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

// EventInput is the ingest payload for one event. Both the flat legacy
// field layout and the nested http/error descriptors are accepted;
// normalization into the canonical record happens once, in the
// correlator, with flat fields taking precedence.
type EventInput struct {
	ID            string           `json:"id" validate:"omitempty,max=128"`
	SessionID     string           `json:"sessionId" validate:"required,max=128"`
	ParentEventID *string          `json:"parentEventId" validate:"omitempty,max=128"`
	Type          models.EventType `json:"type" validate:"required,oneof=FUNCTION_CALL HTTP_REQUEST ERROR LOG"`
	Name          string           `json:"name" validate:"omitempty,max=512"`
	FunctionName  string           `json:"functionName" validate:"omitempty,max=512"`
	FilePath      *string          `json:"filePath" validate:"omitempty,max=2048"`
	LineNumber    *int             `json:"lineNumber"`
	ColumnNumber  *int             `json:"columnNumber"`
	Arguments     json.RawMessage  `json:"arguments"`
	ReturnValue   json.RawMessage  `json:"returnValue"`
	ErrorMessage  *string          `json:"errorMessage"`
	ErrorStack    *string          `json:"errorStack"`
	Error         *ErrorDescriptor `json:"error"`
	HTTPMethod    *string          `json:"httpMethod"`
	HTTPURL       *string          `json:"httpUrl"`
	HTTPStatus    *int             `json:"httpStatus"`
	HTTP          *HTTPDescriptor  `json:"http"`
	Duration      *float64         `json:"duration"`
	Depth         int              `json:"depth" validate:"gte=0"`
	Metadata      json.RawMessage  `json:"metadata"`
	Timestamp     *time.Time       `json:"timestamp"`
}

// displayName picks the event name from the two accepted fields.
func (in *EventInput) displayName() string {
	if in.Name != "" {
		return in.Name
	}
	return in.FunctionName
}
