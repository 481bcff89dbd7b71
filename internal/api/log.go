package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"tourguide/pkg/logging"
)

// logAttr captures key=value or key="value with spaces".
var logAttr = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

const maxAttrLen = 20

// handleLatestLog returns the last captured server log line and trip event.
// GET /api/log/latest
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"log":   formatLogLine(logging.GlobalLogCapture.GetLastLine()),
		"event": logging.GlobalEventCapture.GetLastLine(),
	})
}

// formatLogLine turns a slog text line into "HH:MM:SS msg (k=v, ...)".
// Level is dropped, attributes are sorted and long values are left out.
func formatLogLine(raw string) string {
	matches := logAttr.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg, clock string
	var attrs []string
	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level":
		case "msg":
			msg = val
		default:
			if len(val) <= maxAttrLen {
				attrs = append(attrs, key+"="+val)
			}
		}
	}
	if msg == "" {
		return raw
	}

	sort.Strings(attrs)
	out := msg
	if clock != "" {
		out = clock + " " + msg
	}
	if len(attrs) > 0 {
		return fmt.Sprintf("%s (%s)", out, strings.Join(attrs, ", "))
	}
	return out
}
