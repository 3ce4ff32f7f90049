package types

import "time"

// ProjectMapping assigns a process (optionally scoped to a window title)
// to a named project. ProcessName is stored normalized (trimmed,
// lower-cased); an empty WindowTitle means the mapping is a
// process-level default that covers every window of that process.
type ProjectMapping struct {
	ID          int64     `json:"id"`
	ProcessName string    `json:"processName"`
	WindowTitle string    `json:"windowTitle"`
	ProjectName string    `json:"projectName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
