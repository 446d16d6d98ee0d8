package resolver

import (
	"strings"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// Resolver picks the launch command for a plugin on one platform.
type Resolver struct {
	platform       Platform
	defaultCommand string
}

// New creates a Resolver. defaultCommand is used when a manifest declares no
// exec entry for the platform.
func New(platform Platform, defaultCommand string) *Resolver {
	return &Resolver{platform: platform, defaultCommand: defaultCommand}
}

// Platform returns the platform the resolver was built for.
func (r *Resolver) Platform() Platform { return r.platform }

// Resolve returns the command to run for p.
func (r *Resolver) Resolve(p plugin.Plugin) string {
	return Resolve(p, r.platform, r.defaultCommand)
}

// Resolve returns the command to run for p on platform. A platform map is
// consulted for the exact tag first, then "posix" on non-windows platforms.
// A plain string applies everywhere. Anything else falls back to
// defaultCommand. The selected command is returned verbatim.
func Resolve(p plugin.Plugin, platform Platform, defaultCommand string) string {
	switch p.Exec.Kind {
	case plugin.ExecString:
		if strings.TrimSpace(p.Exec.Command) != "" {
			return p.Exec.Command
		}
	case plugin.ExecPlatformMap:
		if cmd, ok := p.Exec.ByPlatform[platform.Tag()]; ok && strings.TrimSpace(cmd) != "" {
			return cmd
		}
		if platform.IsPosix() {
			if cmd, ok := p.Exec.ByPlatform[PosixTag]; ok && strings.TrimSpace(cmd) != "" {
				return cmd
			}
		}
	}
	return defaultCommand
}
