// Package diff renders compact line diffs used in overwrite confirmations.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const defaultMaxLines = 200

// Lines returns a unified-style diff of before and after, line by line.
// Unchanged lines are prefixed with a space, removals with '-' and additions
// with '+'. It returns "" when the inputs are identical. Output longer than
// maxLines is truncated with a marker; maxLines <= 0 uses a default.
func Lines(before, after, beforeLabel, afterLabel string, maxLines int) string {
	if before == after {
		return ""
	}
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	out := make([]string, 0, 16)
	out = append(out, "--- "+beforeLabel, "+++ "+afterLabel)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			out = append(out, prefix+line)
		}
	}

	if len(out) > maxLines {
		hidden := len(out) - maxLines
		out = append(out[:maxLines], fmt.Sprintf("... (%d more lines)", hidden))
	}
	return strings.Join(out, "\n") + "\n"
}

// Changed returns only the added and removed lines of a diff, which is what
// a short confirmation prompt needs.
func Changed(before, after string) []string {
	full := Lines(before, after, "", "", -1)
	if full == "" {
		return nil
	}
	var changed []string
	for _, line := range strings.Split(full, "\n")[2:] {
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			changed = append(changed, line)
		}
	}
	return changed
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
