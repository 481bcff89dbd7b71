package api

import (
	"testing"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Full",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Waypoint reached" tour=T2 visited=1 total=2 session_id=0b6f1c52-8a57-4a2b-9a0e-1f0b8e1f2c3d`,
			want:  "06:50:46 Waypoint reached (total=2, tour=T2, visited=1)",
		},
		{
			name:  "NoAttrs",
			input: `time=2026-01-18T06:50:46Z level=INFO msg=Started`,
			want:  "06:50:46 Started",
		},
		{
			name:  "NotSlog",
			input: "plain text",
			want:  "plain text",
		},
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("formatLogLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
