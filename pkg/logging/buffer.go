package logging

import (
	"strings"
	"sync"
)

const captureDepth = 50

// LogCaptureWriter is a thread-safe writer that keeps the most recent lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	depth int
}

// NewLogCaptureWriter creates a writer that keeps up to depth lines.
func NewLogCaptureWriter(depth int) *LogCaptureWriter {
	if depth < 1 {
		depth = 1
	}
	return &LogCaptureWriter{depth: depth}
}

// GlobalLogCapture captures server log lines for /api/log/latest.
var GlobalLogCapture = NewLogCaptureWriter(captureDepth)

// GlobalEventCapture captures trip event lines.
var GlobalEventCapture = NewLogCaptureWriter(captureDepth)

// Write implements io.Writer. Each call is stored as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	if over := len(w.lines) - w.depth; over > 0 {
		w.lines = append(w.lines[:0], w.lines[over:]...)
	}
	return len(p), nil
}

// GetLastLine returns the most recent line, or "" when nothing was written.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Recent returns up to n lines, oldest first.
func (w *LogCaptureWriter) Recent(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.lines) {
		n = len(w.lines)
	}
	out := make([]string, n)
	copy(out, w.lines[len(w.lines)-n:])
	return out
}
