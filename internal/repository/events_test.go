package repository

import (
	"context"
	"testing"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/types"
)

func TestAppendEvent_RoundTrip(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	event := testEvent(0, 90*time.Second, "code.exe", "editor - main.go")
	event.ProjectName = strPtr("timeglass")

	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("AppendEvent should assign an ID")
	}

	got, err := repo.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	if !got.StartTime.Equal(event.StartTime) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, event.StartTime)
	}
	if !got.EndTime.Equal(event.EndTime) {
		t.Errorf("EndTime = %v, want %v", got.EndTime, event.EndTime)
	}
	if got.ProcessName == nil || *got.ProcessName != "code.exe" {
		t.Errorf("ProcessName = %v, want code.exe", got.ProcessName)
	}
	if got.WindowTitle == nil || *got.WindowTitle != "editor - main.go" {
		t.Errorf("WindowTitle = %v, want 'editor - main.go'", got.WindowTitle)
	}
	if got.ProjectName == nil || *got.ProjectName != "timeglass" {
		t.Errorf("ProjectName = %v, want timeglass", got.ProjectName)
	}
	if got.IsIdle {
		t.Error("IsIdle = true, want false")
	}
	if got.DurationSeconds() != 90 {
		t.Errorf("DurationSeconds() = %d, want 90", got.DurationSeconds())
	}
}

func TestAppendEvent_NilFields(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// Unknown foreground state: process and window are nil
	event := types.Event{
		StartTime: time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local),
		EndTime:   time.Date(2024, 3, 12, 9, 1, 0, 0, time.Local),
		IsIdle:    false,
	}
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent with nil fields failed: %v", err)
	}

	got, err := repo.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.ProcessName != nil {
		t.Errorf("ProcessName = %v, want nil", got.ProcessName)
	}
	if got.WindowTitle != nil {
		t.Errorf("WindowTitle = %v, want nil", got.WindowTitle)
	}
	if got.ProjectName != nil {
		t.Errorf("ProjectName = %v, want nil", got.ProjectName)
	}
}

func TestAppendEvent_RejectsInvalidBounds(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		event types.Event
	}{
		{
			name:  "zero duration",
			event: testEvent(0, 0, "code.exe", "x"),
		},
		{
			name:  "end before start",
			event: testEvent(0, -time.Minute, "code.exe", "x"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			event := tt.event
			err := repo.AppendEvent(ctx, &event)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !repoerrors.IsValidation(err) {
				t.Errorf("Expected validation error, got: %v", err)
			}
		})
	}

	count, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Rejected events must not be stored, found %d", count)
	}
}

func TestAppendEvent_RejectsOverlap(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	first := testEvent(0, 2*time.Minute, "code.exe", "a")
	if err := repo.AppendEvent(ctx, &first); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	tests := []struct {
		name    string
		offset  time.Duration
		dur     time.Duration
		overlap bool
	}{
		{"identical interval", 0, 2 * time.Minute, true},
		{"starts inside", time.Minute, 2 * time.Minute, true},
		{"ends inside", -time.Minute, 2 * time.Minute, true},
		{"fully contains", -time.Minute, 4 * time.Minute, true},
		{"fully contained", 30 * time.Second, time.Minute, true},
		{"touches end boundary", 2 * time.Minute, time.Minute, false},
		{"touches start boundary", -time.Minute, time.Minute, false},
		{"disjoint after", 10 * time.Minute, time.Minute, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(tt.offset, tt.dur, "chrome.exe", "b")
			err := repo.AppendEvent(ctx, &event)

			if tt.overlap {
				if err == nil {
					t.Fatal("Expected overlap error")
				}
				if !repoerrors.IsOverlap(err) {
					t.Errorf("Expected overlap error, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected append to succeed, got: %v", err)
			}
		})
	}
}

func TestAppendEvents_Batch(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	events := []types.Event{
		testEvent(0, time.Minute, "code.exe", "a"),
		testEvent(time.Minute, time.Minute, "chrome.exe", "b"),
		testEvent(2*time.Minute, time.Minute, "slack.exe", "c"),
	}

	if err := repo.AppendEvents(ctx, events); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}

	for i := range events {
		if events[i].ID == 0 {
			t.Errorf("Event %d was not assigned an ID", i)
		}
	}

	count, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 events, got %d", count)
	}
}

func TestAppendEvents_AtomicOnOverlap(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	events := []types.Event{
		testEvent(0, 2*time.Minute, "code.exe", "a"),
		testEvent(time.Minute, time.Minute, "chrome.exe", "b"), // overlaps the first
	}

	err := repo.AppendEvents(ctx, events)
	if err == nil {
		t.Fatal("Expected overlap error")
	}
	if !repoerrors.IsOverlap(err) {
		t.Errorf("Expected overlap error, got: %v", err)
	}

	count, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Failed batch must not store any events, found %d", count)
	}
}

func TestAppendEvents_EmptyBatch(t *testing.T) {
	repo := setupTestRepository(t)

	if err := repo.AppendEvents(context.Background(), nil); err != nil {
		t.Errorf("Empty batch should be a no-op, got: %v", err)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	repo := setupTestRepository(t)

	_, err := repo.GetEvent(context.Background(), 12345)
	if err == nil {
		t.Fatal("Expected not found error")
	}
	if !repoerrors.IsNotFound(err) {
		t.Errorf("Expected not found error, got: %v", err)
	}
}

func TestUpdateEvent_PartialPatch(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	event := testEvent(0, time.Minute, "code.exe", "a")
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	patch := &types.EventPatch{
		ProjectName: strPtr("deep-work"),
	}
	updated, err := repo.UpdateEvent(ctx, event.ID, patch)
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	if updated.ProjectName == nil || *updated.ProjectName != "deep-work" {
		t.Errorf("ProjectName = %v, want deep-work", updated.ProjectName)
	}
	// Unpatched fields are untouched
	if !updated.StartTime.Equal(event.StartTime) {
		t.Errorf("StartTime changed: %v, want %v", updated.StartTime, event.StartTime)
	}
	if updated.ProcessName == nil || *updated.ProcessName != "code.exe" {
		t.Errorf("ProcessName = %v, want code.exe", updated.ProcessName)
	}
}

func TestUpdateEvent_EmptyPatch(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	event := testEvent(0, time.Minute, "code.exe", "a")
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	updated, err := repo.UpdateEvent(ctx, event.ID, &types.EventPatch{})
	if err != nil {
		t.Fatalf("UpdateEvent with empty patch failed: %v", err)
	}
	if updated.ID != event.ID {
		t.Errorf("Expected current event back, got ID %d", updated.ID)
	}
}

func TestUpdateEvent_RejectsInvalidBounds(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	event := testEvent(0, time.Minute, "code.exe", "a")
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	badEnd := event.StartTime // would make the event zero-length
	_, err := repo.UpdateEvent(ctx, event.ID, &types.EventPatch{EndTime: &badEnd})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !repoerrors.IsValidation(err) {
		t.Errorf("Expected validation error, got: %v", err)
	}

	// Store unchanged
	got, err := repo.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if !got.EndTime.Equal(event.EndTime) {
		t.Errorf("Failed update must leave the event unchanged, EndTime = %v", got.EndTime)
	}
}

func TestUpdateEvent_RejectsOverlap(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	first := testEvent(0, time.Minute, "code.exe", "a")
	second := testEvent(2*time.Minute, time.Minute, "chrome.exe", "b")
	if err := repo.AppendEvent(ctx, &first); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := repo.AppendEvent(ctx, &second); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	// Stretch the first event into the second
	newEnd := second.StartTime.Add(30 * time.Second)
	_, err := repo.UpdateEvent(ctx, first.ID, &types.EventPatch{EndTime: &newEnd})
	if err == nil {
		t.Fatal("Expected overlap error")
	}
	if !repoerrors.IsOverlap(err) {
		t.Errorf("Expected overlap error, got: %v", err)
	}

	// Both events unchanged
	got, err := repo.GetEvent(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if !got.EndTime.Equal(first.EndTime) {
		t.Errorf("Failed update must leave the event unchanged, EndTime = %v", got.EndTime)
	}
}

func TestUpdateEvent_GrowIntoOwnSlot(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// An event may be stretched over its own previous interval; the
	// overlap check must not count the event against itself.
	event := testEvent(0, time.Minute, "code.exe", "a")
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	newEnd := event.EndTime.Add(time.Minute)
	updated, err := repo.UpdateEvent(ctx, event.ID, &types.EventPatch{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	if !updated.EndTime.Equal(newEnd) {
		t.Errorf("EndTime = %v, want %v", updated.EndTime, newEnd)
	}
}

func TestUpdateEvent_NotFound(t *testing.T) {
	repo := setupTestRepository(t)

	_, err := repo.UpdateEvent(context.Background(), 999, &types.EventPatch{ProjectName: strPtr("x")})
	if err == nil {
		t.Fatal("Expected not found error")
	}
	if !repoerrors.IsNotFound(err) {
		t.Errorf("Expected not found error, got: %v", err)
	}
}

func TestScanEvents_WindowIntersection(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local)
	events := []types.Event{
		testEvent(0, time.Minute, "code.exe", "before"),                 // 09:00 - 09:01
		testEvent(2*time.Minute, time.Minute, "chrome.exe", "inside"),   // 09:02 - 09:03
		testEvent(4*time.Minute, 2*time.Minute, "slack.exe", "straddle"), // 09:04 - 09:06
		testEvent(10*time.Minute, time.Minute, "code.exe", "after"),     // 09:10 - 09:11
	}
	if err := repo.AppendEvents(ctx, events); err != nil {
		t.Fatalf("AppendEvents failed: %v", err)
	}

	// Window [09:02, 09:05) catches "inside" fully and "straddle" partially
	got, err := repo.ScanEvents(ctx, base.Add(2*time.Minute), base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("ScanEvents failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if *got[0].WindowTitle != "inside" || *got[1].WindowTitle != "straddle" {
		t.Errorf("Unexpected events or order: %q, %q", *got[0].WindowTitle, *got[1].WindowTitle)
	}
}

func TestScanEvents_HalfOpenBoundaries(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local)
	event := testEvent(0, time.Minute, "code.exe", "a") // 09:00 - 09:01
	if err := repo.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	// Window starting exactly at the event's end excludes it
	got, err := repo.ScanEvents(ctx, base.Add(time.Minute), base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("ScanEvents failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Window starting at event end should exclude it, got %d events", len(got))
	}

	// Window ending exactly at the event's start excludes it
	got, err = repo.ScanEvents(ctx, base.Add(-time.Minute), base)
	if err != nil {
		t.Fatalf("ScanEvents failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Window ending at event start should exclude it, got %d events", len(got))
	}
}

func TestScanEvents_InvalidWindow(t *testing.T) {
	repo := setupTestRepository(t)

	base := time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local)
	_, err := repo.ScanEvents(context.Background(), base, base)
	if err == nil {
		t.Fatal("Expected validation error for empty window")
	}
	if !repoerrors.IsValidation(err) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}
