// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package realtime carries ingest notifications from the correlator to
// the WebSocket hub over an in-process Watermill Pub/Sub. Delivery is
// fire-and-forget: nothing is persisted, nothing is replayed, and a
// publish failure never fails the ingest write that triggered it.
package realtime

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tracebeam/tracebeam/internal/logging"
)

// TopicNotifications is the single bus topic. Routing to project rooms
// happens in the hub, keyed on the envelope's project id.
const TopicNotifications = "telemetry.notifications"

// Notification kinds, matching the frames dashboard clients receive.
const (
	KindNewSession   = "new_session"
	KindNewEvent     = "new_event"
	KindSessionEnded = "session_ended"
)

// NewBus creates the in-process Pub/Sub both ends share. The output
// buffer absorbs ingest bursts; when a subscriber falls further behind
// than that, publishes block until it catches up, which the hub avoids
// by never blocking on client sends.
func NewBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		newLoggerAdapter(),
	)
}

// loggerAdapter bridges Watermill's logging interface onto zerolog.
type loggerAdapter struct {
	fields watermill.LogFields
}

func newLoggerAdapter() watermill.LoggerAdapter {
	return &loggerAdapter{}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	event := logging.Error().Err(err)
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{fields: l.fields.Add(fields)}
}
