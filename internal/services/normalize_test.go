package services

import "testing"

func TestNormalizeWindowTitle(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		process *string
		input   *string
		want    *string
	}{
		{
			name:    "nil title stays nil",
			process: str("chrome.exe"),
			input:   nil,
			want:    nil,
		},
		{
			name:    "empty title becomes nil",
			process: str("chrome.exe"),
			input:   str(""),
			want:    nil,
		},
		{
			name:    "whitespace only becomes nil",
			process: str("chrome.exe"),
			input:   str("   "),
			want:    nil,
		},
		{
			name:    "nil process keeps trimmed title",
			process: nil,
			input:   str("  main.go  "),
			want:    str("main.go"),
		},
		{
			name:    "chrome suffix stripped",
			process: str("chrome.exe"),
			input:   str("Hacker News - Google Chrome"),
			want:    str("Hacker News"),
		},
		{
			name:    "edge suffix stripped",
			process: str("msedge.exe"),
			input:   str("Docs - Microsoft Edge"),
			want:    str("Docs"),
		},
		{
			name:    "firefox suffix stripped",
			process: str("firefox.exe"),
			input:   str("Release Notes - Mozilla Firefox"),
			want:    str("Release Notes"),
		},
		{
			name:    "brave suffix stripped",
			process: str("brave.exe"),
			input:   str("Search - Brave"),
			want:    str("Search"),
		},
		{
			name:    "opera suffix stripped",
			process: str("opera.exe"),
			input:   str("News - Opera"),
			want:    str("News"),
		},
		{
			name:    "process name matching is case insensitive",
			process: str("Chrome.EXE"),
			input:   str("Hacker News - Google Chrome"),
			want:    str("Hacker News"),
		},
		{
			name:    "non browser process keeps suffix",
			process: str("code.exe"),
			input:   str("main.go - Google Chrome"),
			want:    str("main.go - Google Chrome"),
		},
		{
			name:    "stripping that empties the title keeps the original",
			process: str("chrome.exe"),
			input:   str(" - Google Chrome"),
			want:    str("- Google Chrome"),
		},
		{
			name:    "suffix embedded mid-title kept",
			process: str("chrome.exe"),
			input:   str("About Google Chrome browsers"),
			want:    str("About Google Chrome browsers"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeWindowTitle(tt.process, tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("NormalizeWindowTitle() = %q, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("NormalizeWindowTitle() = nil, want %q", *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("NormalizeWindowTitle() = %q, want %q", *got, *tt.want)
			}
		})
	}
}
