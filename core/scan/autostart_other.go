//go:build !windows

package scan

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// autostartEntries reads XDG autostart .desktop files and returns the
// executables their Exec lines invoke.
func autostartEntries(logger *slog.Logger) []string {
	dir := autostartDir()
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("autostart dir unavailable", "dir", dir, "error", err)
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".desktop") {
			continue
		}
		if path := desktopExec(filepath.Join(dir, entry.Name())); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

func autostartDir() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "autostart")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "autostart")
}

// desktopExec extracts the command path from a .desktop file's Exec line,
// dropping arguments and %-field codes.
func desktopExec(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Exec=") {
			continue
		}
		command := strings.TrimPrefix(line, "Exec=")
		command = strings.Trim(command, `"`)
		if i := strings.IndexByte(command, ' '); i >= 0 {
			command = command[:i]
		}
		return command
	}
	return ""
}
