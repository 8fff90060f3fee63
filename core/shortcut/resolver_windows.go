//go:build windows

package shortcut

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// resolveTimeout bounds the helper invocation; a timeout is the candidate's
// failure, not the engine's.
const resolveTimeout = 5 * time.Second

// comResolver reads .lnk targets through a short-lived script host helper.
type comResolver struct{}

func newPlatformResolver() Resolver {
	return &comResolver{}
}

func (r *comResolver) Resolve(ctx context.Context, path string) (Shortcut, error) {
	if !IsShortcut(path) {
		return Shortcut{}, ErrNotShortcut
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	script := fmt.Sprintf(
		"(New-Object -ComObject WScript.Shell).CreateShortcut('%s').TargetPath",
		strings.ReplaceAll(path, "'", "''"),
	)
	out, err := exec.CommandContext(ctx,
		"powershell", "-NoProfile", "-NonInteractive", "-Command", script,
	).Output()
	if err != nil {
		return Shortcut{}, fmt.Errorf("%w: %s: %v", ErrResolveFailed, path, err)
	}

	target := strings.TrimSpace(string(out))
	if target == "" {
		return Shortcut{}, fmt.Errorf("%w: %s: empty target", ErrResolveFailed, path)
	}

	return Shortcut{
		TargetPath:  target,
		DisplayName: DisplayNameOf(path),
	}, nil
}
