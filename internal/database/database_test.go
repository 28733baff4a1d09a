// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/config"
	"github.com/tracebeam/tracebeam/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "x"}
	if err := db.InsertUser(context.Background(), user); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}
	return user
}

func createTestProject(t *testing.T, db *DB, userID uuid.UUID, apiKey string) *models.Project {
	t.Helper()

	project := &models.Project{UserID: userID, Name: "test project", APIKey: apiKey}
	if err := db.InsertProject(context.Background(), project); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}
	return project
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "dup@example.com")

	err := db.InsertUser(ctx, &models.User{Email: "dup@example.com", PasswordHash: "y"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("InsertUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := createTestUser(t, db, "reader@example.com")

	got, err := db.GetUserByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("GetUserByEmail() id = %s, want %s", got.ID, want.ID)
	}

	if _, err := db.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetProjectOwned(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	project := createTestProject(t, db, owner.ID, "tb_0000000000000000000000000000000a")

	if _, err := db.GetProjectOwned(ctx, project.ID, owner.ID); err != nil {
		t.Fatalf("GetProjectOwned(owner) error = %v", err)
	}

	// Foreign ownership must look identical to a missing project.
	if _, err := db.GetProjectOwned(ctx, project.ID, stranger.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProjectOwned(stranger) error = %v, want ErrNotFound", err)
	}
}

func TestGetProjectByAPIKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "key@example.com")
	project := createTestProject(t, db, user.ID, "tb_0000000000000000000000000000000b")

	got, err := db.GetProjectByAPIKey(ctx, project.APIKey)
	if err != nil {
		t.Fatalf("GetProjectByAPIKey() error = %v", err)
	}
	if got.ID != project.ID {
		t.Errorf("GetProjectByAPIKey() id = %s, want %s", got.ID, project.ID)
	}

	if _, err := db.GetProjectByAPIKey(ctx, "tb_ffffffffffffffffffffffffffffffff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProjectByAPIKey(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestInsertSessionIfAbsent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "sessions@example.com")
	project := createTestProject(t, db, user.ID, "tb_0000000000000000000000000000000c")

	session := &models.DebugSession{ID: "sess-1", ProjectID: project.ID}
	created, err := db.InsertSessionIfAbsent(ctx, session)
	if err != nil {
		t.Fatalf("InsertSessionIfAbsent() error = %v", err)
	}
	if !created {
		t.Fatal("InsertSessionIfAbsent() created = false, want true")
	}
	if session.Environment != DefaultEnvironment {
		t.Errorf("environment = %q, want %q", session.Environment, DefaultEnvironment)
	}
	if session.StartedAt.IsZero() {
		t.Error("started_at not defaulted")
	}

	// Resubmitting the same id must be a silent no-op.
	again := &models.DebugSession{ID: "sess-1", ProjectID: project.ID, Environment: "production"}
	created, err = db.InsertSessionIfAbsent(ctx, again)
	if err != nil {
		t.Fatalf("InsertSessionIfAbsent(duplicate) error = %v", err)
	}
	if created {
		t.Error("InsertSessionIfAbsent(duplicate) created = true, want false")
	}

	stored, err := db.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if stored.Environment != DefaultEnvironment {
		t.Errorf("duplicate overwrote environment: got %q", stored.Environment)
	}
}

func TestEnsureSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "ensure@example.com")
	project := createTestProject(t, db, user.ID, "tb_0000000000000000000000000000000d")

	created, err := db.EnsureSession(ctx, "lazy-1", project.ID)
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if !created {
		t.Error("EnsureSession() created = false, want true")
	}

	created, err = db.EnsureSession(ctx, "lazy-1", project.ID)
	if err != nil {
		t.Fatalf("EnsureSession(again) error = %v", err)
	}
	if created {
		t.Error("EnsureSession(again) created = true, want false")
	}

	session, err := db.GetSession(ctx, "lazy-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.Environment != DefaultEnvironment {
		t.Errorf("environment = %q, want %q", session.Environment, DefaultEnvironment)
	}
	if session.EndedAt != nil {
		t.Error("materialized session has ended_at set")
	}
}

func TestEndSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "end@example.com")
	project := createTestProject(t, db, user.ID, "tb_0000000000000000000000000000000e")

	if _, err := db.InsertSessionIfAbsent(ctx, &models.DebugSession{ID: "sess-end", ProjectID: project.ID}); err != nil {
		t.Fatalf("InsertSessionIfAbsent() error = %v", err)
	}

	session, err := db.EndSession(ctx, "sess-end")
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if session.EndedAt == nil {
		t.Fatal("EndSession() did not stamp ended_at")
	}

	if _, err := db.EndSession(ctx, "no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("EndSession(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestInsertEventIfAbsent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "events@example.com")
	project := createTestProject(t, db, user.ID, "tb_0000000000000000000000000000000f")
	if _, err := db.EnsureSession(ctx, "sess-ev", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	name := "fetchUser"
	duration := 12.5
	event := &models.DebugEvent{
		ID:        "ev-1",
		SessionID: "sess-ev",
		Type:      models.EventTypeFunctionCall,
		Name:      name,
		Duration:  &duration,
		Arguments: []byte(`{"id":42}`),
	}
	created, err := db.InsertEventIfAbsent(ctx, event)
	if err != nil {
		t.Fatalf("InsertEventIfAbsent() error = %v", err)
	}
	if !created {
		t.Fatal("InsertEventIfAbsent() created = false, want true")
	}

	created, err = db.InsertEventIfAbsent(ctx, &models.DebugEvent{
		ID: "ev-1", SessionID: "sess-ev", Type: models.EventTypeLog, Name: "other",
	})
	if err != nil {
		t.Fatalf("InsertEventIfAbsent(duplicate) error = %v", err)
	}
	if created {
		t.Error("InsertEventIfAbsent(duplicate) created = true, want false")
	}

	stored, err := db.GetEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if stored.Name != name || stored.Type != models.EventTypeFunctionCall {
		t.Errorf("duplicate overwrote record: got %q/%s", stored.Name, stored.Type)
	}
	if stored.Duration == nil || *stored.Duration != duration {
		t.Errorf("duration = %v, want %v", stored.Duration, duration)
	}
	if string(stored.Arguments) != `{"id":42}` {
		t.Errorf("arguments = %s", stored.Arguments)
	}

	exists, err := db.EventExists(ctx, "ev-1")
	if err != nil || !exists {
		t.Errorf("EventExists(ev-1) = %v, %v, want true, nil", exists, err)
	}
	exists, err = db.EventExists(ctx, "ev-missing")
	if err != nil || exists {
		t.Errorf("EventExists(ev-missing) = %v, %v, want false, nil", exists, err)
	}
}

func TestListSessionEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "list@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000010")
	if _, err := db.EnsureSession(ctx, "sess-list", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	parent := "ev-root"
	inserts := []*models.DebugEvent{
		{ID: "ev-child", SessionID: "sess-list", Type: models.EventTypeLog, ParentEventID: &parent, Timestamp: base.Add(2 * time.Second)},
		{ID: "ev-root", SessionID: "sess-list", Type: models.EventTypeFunctionCall, Timestamp: base},
		{ID: "ev-mid", SessionID: "sess-list", Type: models.EventTypeLog, ParentEventID: &parent, Timestamp: base.Add(time.Second)},
	}
	for _, e := range inserts {
		if _, err := db.InsertEventIfAbsent(ctx, e); err != nil {
			t.Fatalf("InsertEventIfAbsent(%s) error = %v", e.ID, err)
		}
	}

	events, err := db.ListSessionEvents(ctx, "sess-list")
	if err != nil {
		t.Fatalf("ListSessionEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}

	wantOrder := []string{"ev-root", "ev-mid", "ev-child"}
	for i, id := range wantOrder {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %s, want %s", i, events[i].ID, id)
		}
	}

	root := events[0]
	if len(root.ChildEventIDs) != 2 {
		t.Fatalf("root child ids = %v, want 2 entries", root.ChildEventIDs)
	}
	if root.ChildEventIDs[0] != "ev-mid" || root.ChildEventIDs[1] != "ev-child" {
		t.Errorf("child ids = %v, want [ev-mid ev-child]", root.ChildEventIDs)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "cascade@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000011")
	if _, err := db.EnsureSession(ctx, "sess-del", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if _, err := db.InsertEventIfAbsent(ctx, &models.DebugEvent{
		ID: "ev-del", SessionID: "sess-del", Type: models.EventTypeLog,
	}); err != nil {
		t.Fatalf("InsertEventIfAbsent() error = %v", err)
	}

	if err := db.DeleteSession(ctx, "sess-del"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := db.GetSession(ctx, "sess-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
	exists, err := db.EventExists(ctx, "ev-del")
	if err != nil || exists {
		t.Errorf("EventExists() = %v, %v, want false, nil", exists, err)
	}

	if err := db.DeleteSession(ctx, "sess-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSession(again) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "projdel@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000012")
	if _, err := db.EnsureSession(ctx, "sess-pd", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if _, err := db.InsertEventIfAbsent(ctx, &models.DebugEvent{
		ID: "ev-pd", SessionID: "sess-pd", Type: models.EventTypeLog,
	}); err != nil {
		t.Fatalf("InsertEventIfAbsent() error = %v", err)
	}

	if err := db.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	if _, err := db.GetProject(ctx, project.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetSession(ctx, "sess-pd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestListSessionsPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "page@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000013")

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := &models.DebugSession{
			ID:        string(rune('a'+i)) + "-page",
			ProjectID: project.ID,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := db.InsertSessionIfAbsent(ctx, s); err != nil {
			t.Fatalf("InsertSessionIfAbsent() error = %v", err)
		}
	}

	sessions, total, err := db.ListSessions(ctx, project.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	// Newest first.
	if sessions[0].ID != "e-page" || sessions[1].ID != "d-page" {
		t.Errorf("page 1 = [%s %s], want [e-page d-page]", sessions[0].ID, sessions[1].ID)
	}

	sessions, _, err = db.ListSessions(ctx, project.ID, 2, 4)
	if err != nil {
		t.Fatalf("ListSessions(offset) error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "a-page" {
		t.Errorf("last page = %v, want [a-page]", sessions)
	}
}

func TestAggregateEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "agg@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000014")
	if _, err := db.EnsureSession(ctx, "sess-agg", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d1, d2 := 100.0, 200.0
	inWindow := []*models.DebugEvent{
		{ID: "agg-1", SessionID: "sess-agg", Type: models.EventTypeFunctionCall, Duration: &d1, Timestamp: now.Add(-time.Hour)},
		{ID: "agg-2", SessionID: "sess-agg", Type: models.EventTypeError, Duration: &d2, Timestamp: now.Add(-2 * time.Hour)},
		{ID: "agg-3", SessionID: "sess-agg", Type: models.EventTypeLog, Timestamp: now.Add(-3 * time.Hour)},
	}
	outOfWindow := &models.DebugEvent{
		ID: "agg-old", SessionID: "sess-agg", Type: models.EventTypeError, Timestamp: now.Add(-48 * time.Hour),
	}
	for _, e := range append(inWindow, outOfWindow) {
		if _, err := db.InsertEventIfAbsent(ctx, e); err != nil {
			t.Fatalf("InsertEventIfAbsent(%s) error = %v", e.ID, err)
		}
	}

	agg, err := db.AggregateEvents(ctx, []uuid.UUID{project.ID}, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("AggregateEvents() error = %v", err)
	}
	if agg.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", agg.TotalEvents)
	}
	if agg.ErrorEvents != 1 {
		t.Errorf("ErrorEvents = %d, want 1", agg.ErrorEvents)
	}
	if agg.AvgDurationMs != 150 {
		t.Errorf("AvgDurationMs = %v, want 150", agg.AvgDurationMs)
	}

	// No project ids short-circuits to a zero aggregate.
	agg, err = db.AggregateEvents(ctx, nil, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("AggregateEvents(empty) error = %v", err)
	}
	if agg.TotalEvents != 0 || agg.ErrorEvents != 0 || agg.AvgDurationMs != 0 {
		t.Errorf("empty aggregate = %+v, want zeros", agg)
	}
}

func TestActiveSessionCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "active@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000015")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	open := &models.DebugSession{ID: "act-open", ProjectID: project.ID, StartedAt: now.Add(-time.Hour)}
	ended := &models.DebugSession{ID: "act-ended", ProjectID: project.ID, StartedAt: now.Add(-time.Hour)}
	old := &models.DebugSession{ID: "act-old", ProjectID: project.ID, StartedAt: now.Add(-48 * time.Hour)}
	for _, s := range []*models.DebugSession{open, ended, old} {
		if _, err := db.InsertSessionIfAbsent(ctx, s); err != nil {
			t.Fatalf("InsertSessionIfAbsent(%s) error = %v", s.ID, err)
		}
	}
	if _, err := db.EndSession(ctx, "act-ended"); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	count, err := db.ActiveSessionCount(ctx, []uuid.UUID{project.ID}, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("ActiveSessionCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("ActiveSessionCount() = %d, want 1", count)
	}
}

func TestEventCountsByBucket(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "bucket@example.com")
	project := createTestProject(t, db, user.ID, "tb_00000000000000000000000000000016")
	if _, err := db.EnsureSession(ctx, "sess-bkt", project.ID); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	timestamps := []time.Time{
		now.Add(-10 * time.Minute), // 12:00 bucket
		now.Add(-20 * time.Minute), // 12:00 bucket
		now.Add(-90 * time.Minute), // 11:00 bucket
	}
	for i, ts := range timestamps {
		e := &models.DebugEvent{
			ID:        "bkt-" + string(rune('a'+i)),
			SessionID: "sess-bkt",
			Type:      models.EventTypeLog,
			Timestamp: ts,
		}
		if _, err := db.InsertEventIfAbsent(ctx, e); err != nil {
			t.Fatalf("InsertEventIfAbsent() error = %v", err)
		}
	}

	rows, err := db.EventCountsByBucket(ctx, []uuid.UUID{project.ID}, now.Add(-24*time.Hour), now, BucketFormatHourly)
	if err != nil {
		t.Fatalf("EventCountsByBucket() error = %v", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Label] = row.Count
	}
	if counts["12:00"] != 2 {
		t.Errorf("counts[12:00] = %d, want 2", counts["12:00"])
	}
	if counts["11:00"] != 1 {
		t.Errorf("counts[11:00] = %d, want 1", counts["11:00"])
	}
}
