package common

import (
	"regexp"
	"strings"
)

const fallbackFilename = "upload"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client supplied filename to a safe base name:
// path separators become spaces, whitespace runs become underscores and every
// character outside [A-Za-z0-9_.-] is dropped. Leading and trailing dots and
// underscores are stripped so the result can never name a parent directory or
// a hidden file.
func SanitizeFilename(filename string) string {
	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	filename = strings.Trim(filename, "._")
	if filename == "" {
		return fallbackFilename
	}
	return filename
}
