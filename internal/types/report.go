package types

// ClippedEvent is an event whose duration has been clipped to a query
// window. Seconds is the clipped duration in whole seconds.
type ClippedEvent struct {
	Event
	Seconds int64 `json:"seconds"`
}

// DaySummary holds the per-day totals plus the clipped event list for display.
// ActiveSeconds + IdleSeconds always equals the sum of the event Seconds.
type DaySummary struct {
	Date          string         `json:"date"`
	ActiveSeconds int64          `json:"activeSeconds"`
	IdleSeconds   int64          `json:"idleSeconds"`
	Events        []ClippedEvent `json:"events"`
}

// ActivityGroup aggregates events sharing a (process, window) pair
// over an overview range.
type ActivityGroup struct {
	ProcessName *string `json:"processName"`
	WindowTitle *string `json:"windowTitle"`
	IsIdle      bool    `json:"isIdle"`
	Seconds     int64   `json:"seconds"`
	ProjectName *string `json:"projectName,omitempty"`
}

// ProjectTotal is the summed active time attributed to one project.
type ProjectTotal struct {
	ProjectName string `json:"projectName"`
	Seconds     int64  `json:"seconds"`
}

// Overview is the cross-day report: per-group activity tables and the
// project rollup for an inclusive date range.
type Overview struct {
	Start         string          `json:"start"`
	End           string          `json:"end"`
	ActiveSeconds int64           `json:"activeSeconds"`
	IdleSeconds   int64           `json:"idleSeconds"`
	Entries       []ActivityGroup `json:"entries"`
	IdleEntries   []ActivityGroup `json:"idleEntries"`
	ProjectTotals []ProjectTotal  `json:"projectTotals"`
}

// DailyRollup is the cached per-day total. It is derived data, always
// reconstructable by scanning events for the date.
type DailyRollup struct {
	Date          string `json:"date"`
	ActiveSeconds int64  `json:"activeSeconds"`
	IdleSeconds   int64  `json:"idleSeconds"`
}
