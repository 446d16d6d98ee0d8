package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/alexisbeaulieu97/plugdeck/internal/resolver"
)

// OpenArgs returns the command that opens target with the host's default
// application.
func OpenArgs(platform resolver.Platform, target string) []string {
	switch {
	case platform.IsWindows():
		return []string{"cmd", "/c", "start", "", target}
	case platform == resolver.Darwin:
		return []string{"open", target}
	default:
		return []string{"xdg-open", target}
	}
}

// Open hands target to the desktop's default association. It does not wait
// for the viewer to close.
func (l *Launcher) Open(ctx context.Context, platform resolver.Platform, target string) error {
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("cannot open %s: %w", target, err)
	}

	argv := OpenArgs(platform, target)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		l.logger.Error(ctx, "failed to open path", "path", target, "error", err)
		return fmt.Errorf("failed to open %s with %s: %w", target, argv[0], err)
	}
	l.logger.Debug(ctx, "opened path", "path", target, "opener", argv[0])

	l.reaper.Go(func() { _ = cmd.Wait() }, nil)
	return nil
}
