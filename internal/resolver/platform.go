// Package resolver turns plugin manifests into concrete command lines.
package resolver

import "runtime"

// Platform identifies the host operating system. Values are resolved once at
// startup and passed explicitly to anything that needs platform behaviour.
type Platform struct {
	kind platformKind
}

type platformKind int

const (
	kindLinux platformKind = iota
	kindDarwin
	kindWindows
	kindOther
)

var (
	// Linux is the linux platform.
	Linux = Platform{kind: kindLinux}
	// Darwin is macOS.
	Darwin = Platform{kind: kindDarwin}
	// Windows is the windows platform.
	Windows = Platform{kind: kindWindows}
)

// PosixTag is the exec key that matches every non-windows platform.
const PosixTag = "posix"

// Current returns the platform the binary is running on.
func Current() Platform {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a GOOS value onto a Platform.
func FromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	case "linux":
		return Linux
	default:
		return Platform{kind: kindOther}
	}
}

// Tag is the manifest exec key for this platform (win32, darwin, linux).
func (p Platform) Tag() string {
	switch p.kind {
	case kindWindows:
		return "win32"
	case kindDarwin:
		return "darwin"
	case kindLinux:
		return "linux"
	default:
		return PosixTag
	}
}

// IsWindows reports whether this is the windows platform.
func (p Platform) IsWindows() bool { return p.kind == kindWindows }

// IsPosix reports whether this platform accepts the posix exec key.
func (p Platform) IsPosix() bool { return p.kind != kindWindows }

func (p Platform) String() string { return p.Tag() }
