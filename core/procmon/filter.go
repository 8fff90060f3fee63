package procmon

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// Strict process filtering
// =============================================================================
//
// Beyond the classifier's system-path blocklist, process events get a second,
// stricter pass: helper/child processes of multi-process applications,
// package-manager tool binaries and cloud-sync daemons are noise even though
// their paths look like user software.

// blockedPathSegments rejects executables whose path contains any of these
// lowercased segments.
var blockedPathSegments = []string{
	`\appdata\local\temp\`,
	`\crashpad\`,
	`\crashpad_handler`,
	`\squirrel\`,
	`\scoop\apps\`,
	`\chocolatey\`,
	`\nodejs\node_modules\`,
	`\onedrive\`,
	`\dropbox\`,
	`\google\drive\`,
	`\microsoft\edgeupdate\`,
	`\google\update\`,
}

// blockedNames rejects known OS/background executables by bare name.
var blockedNames = map[string]struct{}{
	"svchost.exe": {}, "conhost.exe": {}, "dllhost.exe": {},
	"rundll32.exe": {}, "taskhostw.exe": {}, "sihost.exe": {},
	"runtimebroker.exe": {}, "backgroundtaskhost.exe": {},
	"searchindexer.exe": {}, "searchprotocolhost.exe": {},
	"ctfmon.exe": {}, "wmiprvse.exe": {}, "werfault.exe": {},
	"cmd.exe": {}, "powershell.exe": {}, "pwsh.exe": {},
}

// spawnerParents are system-service spawners; processes they create are
// service children, not user launches.
var spawnerParents = map[string]struct{}{
	"services.exe": {}, "svchost.exe": {}, "wininit.exe": {},
	"smss.exe": {}, "winlogon.exe": {},
}

// Filter decides which process events survive to ingestion and session
// tracking.
type Filter struct {
	// selfPath is the engine's own executable, always excluded.
	selfPath string
}

// NewFilter creates a filter excluding the given self executable path.
func NewFilter(selfPath string) *Filter {
	return &Filter{selfPath: strings.ToLower(selfPath)}
}

// Keep reports whether a process event survives strict filtering.
func (f *Filter) Keep(info ProcessInfo) bool {
	if info.Path == "" {
		return false
	}

	lower := strings.ToLower(info.Path)
	if f.selfPath != "" && lower == f.selfPath {
		return false
	}

	if info.Parent != "" {
		if _, spawner := spawnerParents[strings.ToLower(info.Parent)]; spawner {
			return false
		}
	}

	if _, blocked := blockedNames[baseName(lower)]; blocked {
		return false
	}

	for _, segment := range blockedPathSegments {
		if strings.Contains(lower, segment) {
			return false
		}
	}
	return true
}

// baseName extracts the bare file name from a path with either separator;
// process events carry Windows paths even when tests run elsewhere.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return filepath.Base(path)
}
