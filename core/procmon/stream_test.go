package procmon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventLine(t *testing.T) {
	cases := []struct {
		line string
		want ProcessInfo
		ok   bool
	}{
		{`4312|C:\Games\hollow_knight.exe`, ProcessInfo{PID: 4312, Path: `C:\Games\hollow_knight.exe`}, true},
		{`4312|C:\Games\hk.exe|explorer.exe`, ProcessInfo{PID: 4312, Path: `C:\Games\hk.exe`, Parent: "explorer.exe"}, true},
		{"99|C:\\x\\a.exe\r", ProcessInfo{PID: 99, Path: `C:\x\a.exe`}, true},

		// Fallback: whole line is a path.
		{`C:\Games\legacy.exe`, ProcessInfo{PID: 0, Path: `C:\Games\legacy.exe`}, true},

		// Malformed lines are dropped, not fatal.
		{``, ProcessInfo{}, false},
		{`   `, ProcessInfo{}, false},
		{`notanumber|C:\x.exe`, ProcessInfo{}, false},
		{`-5|C:\x.exe`, ProcessInfo{}, false},
		{`123|`, ProcessInfo{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseEventLine(tc.line)
		assert.Equal(t, tc.ok, ok, "line %q", tc.line)
		if tc.ok {
			assert.Equal(t, tc.want, got, "line %q", tc.line)
		}
	}
}

func TestStreamEventsSkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		`100|C:\a.exe`,
		`garbage|||line`,
		``,
		`200|C:\b.exe|svchost.exe`,
		`C:\bare\path.exe`,
	}, "\n")

	out := make(chan ProcessInfo, 8)
	StreamEvents(strings.NewReader(input), out)

	var got []ProcessInfo
	for info := range out {
		got = append(got, info)
	}

	require.Len(t, got, 3)
	assert.Equal(t, 100, got[0].PID)
	// "garbage|||line" splits into fields with a bad pid: dropped.
	assert.Equal(t, 200, got[1].PID)
	assert.Equal(t, "svchost.exe", got[1].Parent)
	assert.Equal(t, 0, got[2].PID)
	assert.Equal(t, `C:\bare\path.exe`, got[2].Path)
}
