package types

import "time"

// Sample is one raw observation of the foreground activity at an instant.
// Samples are never persisted; the segmentation engine collapses them
// into events. A nil ProcessName/WindowTitle means the foreground query
// failed and the state is unknown.
type Sample struct {
	Timestamp   time.Time
	ProcessName *string
	WindowTitle *string
	IsIdle      bool
}

// Event represents a contiguous block of time spent in a single activity.
// Persisted events are mutually non-overlapping and satisfy EndTime > StartTime.
type Event struct {
	ID          int64     `json:"id"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	ProcessName *string   `json:"processName"`
	WindowTitle *string   `json:"windowTitle"`
	IsIdle      bool      `json:"isIdle"`
	ProjectName *string   `json:"projectName"`
}

// DurationSeconds returns the event duration in whole seconds.
// Partial seconds are truncated, never rounded, so that sums of rows
// always equal the sum of their parts.
func (e *Event) DurationSeconds() int64 {
	d := e.EndTime.Sub(e.StartTime)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// SameActivity reports whether the event's (process, window, idle) triple
// matches the given one. Unknown (nil) states only match other unknown states.
func (e *Event) SameActivity(processName, windowTitle *string, isIdle bool) bool {
	return e.IsIdle == isIdle &&
		equalOptional(e.ProcessName, processName) &&
		equalOptional(e.WindowTitle, windowTitle)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// EventPatch describes a partial update to a persisted event.
// Nil fields are left unchanged.
type EventPatch struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	ProcessName *string    `json:"processName,omitempty"`
	WindowTitle *string    `json:"windowTitle,omitempty"`
	IsIdle      *bool      `json:"isIdle,omitempty"`
	ProjectName *string    `json:"projectName,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *EventPatch) IsEmpty() bool {
	return p.StartTime == nil && p.EndTime == nil &&
		p.ProcessName == nil && p.WindowTitle == nil &&
		p.IsIdle == nil && p.ProjectName == nil
}

// Apply merges the patch into the event in place.
func (p *EventPatch) Apply(e *Event) {
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.ProcessName != nil {
		e.ProcessName = p.ProcessName
	}
	if p.WindowTitle != nil {
		e.WindowTitle = p.WindowTitle
	}
	if p.IsIdle != nil {
		e.IsIdle = *p.IsIdle
	}
	if p.ProjectName != nil {
		e.ProjectName = p.ProjectName
	}
}
