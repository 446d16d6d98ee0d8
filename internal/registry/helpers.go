package registry

import (
	"regexp"
	"strings"
)

const archiveNameMaxLength = 96

var nonFilenameExpr = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename normalizes a string into a portable file name fragment.
func SanitizeFilename(name string) string {
	sanitized := nonFilenameExpr.ReplaceAllString(strings.TrimSpace(name), "-")
	sanitized = strings.Trim(sanitized, "-.")
	if len(sanitized) > archiveNameMaxLength {
		sanitized = strings.Trim(sanitized[:archiveNameMaxLength], "-.")
	}
	return sanitized
}

// ArchiveName returns the default export file name for a plugin, e.g.
// "demo-1.0.0.zip". The version is omitted when it sanitizes to nothing.
func ArchiveName(name, version string) string {
	base := SanitizeFilename(name)
	if base == "" {
		base = "plugin"
	}
	if v := SanitizeFilename(version); v != "" {
		base += "-" + v
	}
	return base + ".zip"
}
