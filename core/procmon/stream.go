package procmon

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// =============================================================================
// Line protocol
// =============================================================================
//
// The creation-event helper emits one event per line:
//
//	pid|path
//	pid|path|parentName
//
// Anything else is handled by the compatibility fallback: a line with no
// separator is a bare executable path with pid 0. Malformed pid fields drop
// the line. The reader must survive any input without crashing the
// subscription.

// ParseEventLine parses one protocol line. Returns false for lines that
// carry no usable event (blank, malformed pid).
func ParseEventLine(line string) (ProcessInfo, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ProcessInfo{}, false
	}

	parts := strings.SplitN(line, "|", 3)
	if len(parts) == 1 {
		// Legacy helpers emitted the path alone.
		return ProcessInfo{PID: 0, Path: strings.TrimSpace(parts[0])}, true
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || pid < 0 {
		return ProcessInfo{}, false
	}

	info := ProcessInfo{PID: pid, Path: strings.TrimSpace(parts[1])}
	if info.Path == "" {
		return ProcessInfo{}, false
	}
	if len(parts) == 3 {
		info.Parent = strings.TrimSpace(parts[2])
	}
	return info, true
}

// StreamEvents reads protocol lines from r and forwards parsed events until
// r is exhausted, then closes out. Malformed lines are skipped.
func StreamEvents(r io.Reader, out chan<- ProcessInfo) {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		if info, ok := ParseEventLine(scanner.Text()); ok {
			out <- info
		}
	}
}
