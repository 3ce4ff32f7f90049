package services

import (
	"testing"
	"time"

	"timeglass/internal/types"
)

var segBase = time.Date(2024, 3, 12, 9, 0, 0, 0, time.Local)

func sampleAt(offset time.Duration, process, window string, idle bool) types.Sample {
	s := types.Sample{Timestamp: segBase.Add(offset), IsIdle: idle}
	if process != "" {
		s.ProcessName = &process
	}
	if window != "" {
		s.WindowTitle = &window
	}
	return s
}

func newTestSegmenter() *Segmenter {
	return NewSegmenter(SegmenterConfig{
		SampleInterval:   5 * time.Second,
		MaxGap:           2 * time.Minute,
		MaxEventDuration: 4 * time.Hour,
	}, nil)
}

func TestSegmenter_ActivityChangeClosesEvent(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// Two matching samples extend; the third, with a different process,
	// forces closure of exactly one event covering [t0, t2).
	if closed := seg.Ingest(sampleAt(0, "code.exe", "main.go", false)); closed != nil {
		t.Fatalf("First sample should not close an event, got %+v", closed)
	}
	if closed := seg.Ingest(sampleAt(5*time.Second, "code.exe", "main.go", false)); closed != nil {
		t.Fatalf("Matching sample should extend, got %+v", closed)
	}

	closed := seg.Ingest(sampleAt(10*time.Second, "chrome.exe", "main.go", false))
	if closed == nil {
		t.Fatal("Changed process should close the open event")
	}

	if !closed.StartTime.Equal(segBase) {
		t.Errorf("StartTime = %v, want %v", closed.StartTime, segBase)
	}
	if !closed.EndTime.Equal(segBase.Add(10 * time.Second)) {
		t.Errorf("EndTime = %v, want %v", closed.EndTime, segBase.Add(10*time.Second))
	}
	if *closed.ProcessName != "code.exe" || *closed.WindowTitle != "main.go" {
		t.Errorf("Closed event carries %v/%v, want code.exe/main.go", closed.ProcessName, closed.WindowTitle)
	}
	if closed.IsIdle {
		t.Error("Closed event should be active")
	}

	// The new open event continues from the current sample
	open := seg.OpenEvent()
	if open == nil {
		t.Fatal("A new event should be open")
	}
	if *open.ProcessName != "chrome.exe" {
		t.Errorf("Open event process = %v, want chrome.exe", open.ProcessName)
	}
	if !open.StartTime.Equal(segBase.Add(10 * time.Second)) {
		t.Errorf("Open event starts at %v, want %v", open.StartTime, segBase.Add(10*time.Second))
	}
}

func TestSegmenter_WindowTitleChangeClosesEvent(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))

	closed := seg.Ingest(sampleAt(5*time.Second, "code.exe", "other.go", false))
	if closed == nil {
		t.Fatal("Changed window title should close the open event")
	}
	if *closed.WindowTitle != "main.go" {
		t.Errorf("Closed window = %q, want main.go", *closed.WindowTitle)
	}
}

func TestSegmenter_IdleBoundary(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// Alternating active/idle; no closed event may mix idle values.
	var closedEvents []*types.Event
	offsets := []struct {
		offset time.Duration
		idle   bool
	}{
		{0, false},
		{5 * time.Second, false},
		{10 * time.Second, true},
		{15 * time.Second, true},
		{20 * time.Second, false},
	}
	for _, o := range offsets {
		var s types.Sample
		if o.idle {
			// Idle samples carry no process/window
			s = sampleAt(o.offset, "", "", true)
		} else {
			s = sampleAt(o.offset, "code.exe", "main.go", false)
		}
		if closed := seg.Ingest(s); closed != nil {
			closedEvents = append(closedEvents, closed)
		}
	}

	if len(closedEvents) != 2 {
		t.Fatalf("Expected 2 closed events across idle transitions, got %d", len(closedEvents))
	}
	if closedEvents[0].IsIdle {
		t.Error("First closed event should be active")
	}
	if !closedEvents[1].IsIdle {
		t.Error("Second closed event should be idle")
	}
	// Idle boundary is exact: active event ends where idle begins
	if !closedEvents[0].EndTime.Equal(closedEvents[1].StartTime) {
		t.Errorf("Events should touch at the idle boundary: %v vs %v",
			closedEvents[0].EndTime, closedEvents[1].StartTime)
	}
}

func TestSegmenter_NoMergeAcrossIdleEvenWithMatchingProcess(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// Same process/window on both sides of an idle flag flip still closes.
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	closed := seg.Ingest(sampleAt(5*time.Second, "code.exe", "main.go", true))
	if closed == nil {
		t.Fatal("Idle transition must close the active event even when process/window match")
	}
	if closed.IsIdle {
		t.Error("Closed event should carry the active flag")
	}
}

func TestSegmenter_GapClosesAtLastSamplePlusInterval(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	seg.Ingest(sampleAt(5*time.Second, "code.exe", "main.go", false))

	// Same activity, but 10 minutes later: the gap exceeds MaxGap, so
	// the event closes at lastSample+interval, never across the gap.
	closed := seg.Ingest(sampleAt(10*time.Minute, "code.exe", "main.go", false))
	if closed == nil {
		t.Fatal("Gap should close the open event")
	}

	wantEnd := segBase.Add(5 * time.Second).Add(5 * time.Second)
	if !closed.EndTime.Equal(wantEnd) {
		t.Errorf("EndTime = %v, want %v (last sample + interval)", closed.EndTime, wantEnd)
	}

	open := seg.OpenEvent()
	if open == nil || !open.StartTime.Equal(segBase.Add(10*time.Minute)) {
		t.Errorf("New event should start at the post-gap sample, got %+v", open)
	}
}

func TestSegmenter_GapAfterSingleSampleKeepsInterval(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	closed := seg.Ingest(sampleAt(10*time.Minute, "chrome.exe", "docs", false))
	if closed == nil {
		t.Fatal("Gap should close the open event")
	}

	// A single observed sample still counts for one interval
	if !closed.EndTime.Equal(segBase.Add(5 * time.Second)) {
		t.Errorf("EndTime = %v, want %v", closed.EndTime, segBase.Add(5*time.Second))
	}
}

func TestSegmenter_MaxEventDurationForcesClosure(t *testing.T) {
	t.Parallel()

	seg := NewSegmenter(SegmenterConfig{
		SampleInterval:   5 * time.Second,
		MaxGap:           2 * time.Minute,
		MaxEventDuration: time.Minute,
	}, nil)

	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	seg.Ingest(sampleAt(30*time.Second, "code.exe", "main.go", false))
	seg.Ingest(sampleAt(60*time.Second, "code.exe", "main.go", false))

	// Same activity, but the event has now run past the cap
	closed := seg.Ingest(sampleAt(65*time.Second, "code.exe", "main.go", false))
	if closed == nil {
		t.Fatal("Exceeding max event duration should close the event")
	}
	if !closed.EndTime.Equal(segBase.Add(65 * time.Second)) {
		t.Errorf("EndTime = %v, want %v", closed.EndTime, segBase.Add(65*time.Second))
	}

	open := seg.OpenEvent()
	if open == nil || *open.ProcessName != "code.exe" {
		t.Fatal("A new event with the same activity should be open")
	}
}

func TestSegmenter_UnknownStateIsDistinct(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// A failed probe (nil process and window) must not merge with the
	// surrounding known states.
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))

	closed := seg.Ingest(sampleAt(5*time.Second, "", "", false))
	if closed == nil {
		t.Fatal("Unknown state should close the known-state event")
	}
	if *closed.ProcessName != "code.exe" {
		t.Errorf("Closed event process = %v, want code.exe", closed.ProcessName)
	}

	// Matching unknown samples extend each other
	if closed := seg.Ingest(sampleAt(10*time.Second, "", "", false)); closed != nil {
		t.Fatalf("Matching unknown samples should extend, got %+v", closed)
	}

	// Returning to a known state closes the unknown event
	closed = seg.Ingest(sampleAt(15*time.Second, "code.exe", "main.go", false))
	if closed == nil {
		t.Fatal("Known state should close the unknown-state event")
	}
	if closed.ProcessName != nil || closed.WindowTitle != nil {
		t.Errorf("Unknown event should keep nil process/window, got %v/%v",
			closed.ProcessName, closed.WindowTitle)
	}
}

func TestSegmenter_ZeroLengthClosuresDiscarded(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// Two different activities at the same timestamp: closing the first
	// would produce a zero-length event, which is discarded.
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	closed := seg.Ingest(sampleAt(0, "chrome.exe", "docs", false))
	if closed != nil {
		t.Errorf("Zero-length closure should be discarded, got %+v", closed)
	}

	open := seg.OpenEvent()
	if open == nil || *open.ProcessName != "chrome.exe" {
		t.Error("The new activity should still be open")
	}
}

func TestSegmenter_NonOverlappingOrdered(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	// A realistic mixed sequence; every closed event must be
	// non-overlapping and ordered.
	samples := []types.Sample{
		sampleAt(0, "code.exe", "main.go", false),
		sampleAt(5*time.Second, "code.exe", "main.go", false),
		sampleAt(10*time.Second, "chrome.exe", "docs", false),
		sampleAt(15*time.Second, "chrome.exe", "docs", false),
		sampleAt(20*time.Second, "", "", true),
		sampleAt(25*time.Second, "code.exe", "main.go", false),
		sampleAt(10*time.Minute, "code.exe", "main.go", false), // gap
		sampleAt(10*time.Minute+5*time.Second, "slack.exe", "general", false),
	}

	var closed []*types.Event
	for _, s := range samples {
		if event := seg.Ingest(s); event != nil {
			closed = append(closed, event)
		}
	}
	if final := seg.Flush(segBase.Add(11 * time.Minute)); final != nil {
		closed = append(closed, final)
	}

	for i, event := range closed {
		if !event.EndTime.After(event.StartTime) {
			t.Errorf("Event %d has non-positive duration: [%v, %v)", i, event.StartTime, event.EndTime)
		}
		if i > 0 && closed[i-1].EndTime.After(event.StartTime) {
			t.Errorf("Events %d and %d overlap: %v > %v",
				i-1, i, closed[i-1].EndTime, event.StartTime)
		}
	}
}

func TestSegmenter_Flush(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()

	if closed := seg.Flush(segBase); closed != nil {
		t.Errorf("Flush with nothing open should return nil, got %+v", closed)
	}

	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))
	seg.Ingest(sampleAt(5*time.Second, "code.exe", "main.go", false))

	closed := seg.Flush(segBase.Add(7 * time.Second))
	if closed == nil {
		t.Fatal("Flush should close the open event")
	}
	if !closed.EndTime.Equal(segBase.Add(7 * time.Second)) {
		t.Errorf("EndTime = %v, want flush instant", closed.EndTime)
	}
	if seg.OpenEvent() != nil {
		t.Error("Flush should leave nothing open")
	}
}

func TestSegmenter_FlushLongAfterLastSampleIsCapped(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))

	// Flushing an hour later must not stretch the event to "now"
	closed := seg.Flush(segBase.Add(time.Hour))
	if closed == nil {
		t.Fatal("Flush should close the open event")
	}
	if !closed.EndTime.Equal(segBase.Add(5 * time.Second)) {
		t.Errorf("EndTime = %v, want last sample + interval", closed.EndTime)
	}
}

func TestSegmenter_FlushZeroLengthDiscarded(t *testing.T) {
	t.Parallel()

	seg := newTestSegmenter()
	seg.Ingest(sampleAt(0, "code.exe", "main.go", false))

	// Flushing at the event's own start produces nothing
	if closed := seg.Flush(segBase); closed != nil {
		t.Errorf("Zero-length flush should be discarded, got %+v", closed)
	}
}
