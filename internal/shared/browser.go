package shared

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the command that opens url on the current platform.
func browserCommand(ctx context.Context, url string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.CommandContext(ctx, "open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.CommandContext(ctx, "xdg-open", url), nil
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// Browser sends the user agent to a URL by launching the system browser.
// Supports macOS, Linux/BSD, and Windows platforms.
//
// With Disabled set, Navigate reports an error so callers fall back to printing the URL.
type Browser struct {
	Disabled bool
}

// Navigate starts the platform browser command without waiting for it to exit.
func (b Browser) Navigate(ctx context.Context, url string) error {
	if b.Disabled {
		return fmt.Errorf("browser launch disabled")
	}

	cmd, err := browserCommand(ctx, url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	go cmd.Wait()

	return nil
}
