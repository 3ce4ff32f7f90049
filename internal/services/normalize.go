package services

import "strings"

// browserSuffixes maps browser process names to the window title
// suffixes they append, so tab names survive normalization.
var browserSuffixes = map[string][]string{
	"msedge.exe":  {" - Microsoft Edge"},
	"chrome.exe":  {" - Google Chrome"},
	"firefox.exe": {" - Mozilla Firefox"},
	"brave.exe":   {" - Brave"},
	"opera.exe":   {" - Opera"},
}

// NormalizeWindowTitle trims a window title and strips the browser's
// own suffix for known browser processes. Returns nil for titles that
// are empty after trimming.
func NormalizeWindowTitle(processName, windowTitle *string) *string {
	if windowTitle == nil {
		return nil
	}

	normalized := strings.TrimSpace(*windowTitle)
	if normalized == "" {
		return nil
	}
	if processName == nil {
		return &normalized
	}

	suffixes := browserSuffixes[strings.ToLower(*processName)]
	for _, suffix := range suffixes {
		if strings.HasSuffix(normalized, suffix) {
			trimmed := strings.TrimRight(normalized[:len(normalized)-len(suffix)], " -")
			if trimmed != "" {
				return &trimmed
			}
		}
	}

	return &normalized
}
