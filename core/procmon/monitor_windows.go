//go:build windows

package procmon

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/windows"
)

// enumerateTimeout bounds the one-shot enumeration helper.
const enumerateTimeout = 5 * time.Second

// listScript enumerates processes with a resolvable executable path in the
// line protocol.
const listScript = `Get-CimInstance Win32_Process |
	Where-Object { $_.ExecutablePath } |
	ForEach-Object { '{0}|{1}' -f $_.ProcessId, $_.ExecutablePath }`

// subscribeScript registers a WMI process-start trace and emits one protocol
// line per created process. Runs until killed.
const subscribeScript = `
$query = "SELECT * FROM Win32_ProcessStartTrace"
Register-CimIndicationEvent -Query $query -SourceIdentifier curio_proc_start | Out-Null
while ($true) {
	$e = Wait-Event -SourceIdentifier curio_proc_start
	$ev = $e.SourceEventArgs.NewEvent
	$proc = Get-CimInstance Win32_Process -Filter "ProcessId = $($ev.ProcessID)" -ErrorAction SilentlyContinue
	$parent = Get-CimInstance Win32_Process -Filter "ProcessId = $($ev.ParentProcessID)" -ErrorAction SilentlyContinue
	if ($proc -and $proc.ExecutablePath) {
		'{0}|{1}|{2}' -f $ev.ProcessID, $proc.ExecutablePath, $parent.Name
		[Console]::Out.Flush()
	}
	Remove-Event -EventIdentifier $e.EventIdentifier
}`

type windowsMonitor struct{}

func newPlatformMonitor() Monitor {
	return &windowsMonitor{}
}

func (m *windowsMonitor) List(ctx context.Context) ([]ProcessInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, enumerateTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx,
		"powershell", "-NoProfile", "-NonInteractive", "-Command", listScript,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerateFailed, err)
	}

	var infos []ProcessInfo
	for _, line := range strings.Split(string(out), "\n") {
		if info, ok := ParseEventLine(line); ok && info.PID > 0 {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (m *windowsMonitor) Subscribe(ctx context.Context) (<-chan ProcessInfo, error) {
	cmd := exec.CommandContext(ctx,
		"powershell", "-NoProfile", "-NonInteractive", "-Command", subscribeScript,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}

	events := make(chan ProcessInfo, 64)
	go func() {
		StreamEvents(stdout, events)
		// Helper exited (or was cancelled): reap it. The closed channel is
		// the degraded-mode signal upstream.
		_ = cmd.Wait()
	}()
	return events, nil
}

func (m *windowsMonitor) Alive(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Access denied and similar indeterminate probes count as alive.
		return err != windows.ERROR_INVALID_PARAMETER
	}
	defer windows.CloseHandle(handle)

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return true
	}
	return code == windows.STILL_ACTIVE
}

func (m *windowsMonitor) Kill(pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)
	return windows.TerminateProcess(handle, 1)
}
