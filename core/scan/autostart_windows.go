//go:build windows

package scan

import (
	"log/slog"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// autostartEntries reads the user and machine Run keys and returns the
// executable paths they register. Keys that cannot be opened are skipped.
func autostartEntries(logger *slog.Logger) []string {
	var paths []string
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		paths = append(paths, readRunKey(root, logger)...)
	}
	return paths
}

func readRunKey(root registry.Key, logger *slog.Logger) []string {
	key, err := registry.OpenKey(root, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		logger.Debug("run key unavailable", "error", err)
		return nil
	}
	defer key.Close()

	names, err := key.ReadValueNames(0)
	if err != nil {
		return nil
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		command, _, err := key.GetStringValue(name)
		if err != nil {
			continue
		}
		if path := commandExecutable(command); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// commandExecutable extracts the executable path from a Run value, which may
// be quoted and carry arguments: `"C:\Tools\app.exe" --minimized`.
func commandExecutable(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}

	if command[0] == '"' {
		if end := strings.IndexByte(command[1:], '"'); end >= 0 {
			return command[1 : end+1]
		}
		return strings.TrimPrefix(command, `"`)
	}

	// Unquoted: arguments begin at the first space after the extension.
	// Splitting at the first ".exe" handles paths containing spaces.
	if i := strings.Index(strings.ToLower(command), ".exe"); i >= 0 {
		return command[:i+4]
	}
	if i := strings.IndexByte(command, ' '); i >= 0 {
		return command[:i]
	}
	return command
}
