package commands

import (
	"regexp"
	"unicode/utf8"
)

// maxNameBytes is the longest file name most filesystems accept.
const maxNameBytes = 255

var (
	illegalRe         = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlRe         = regexp.MustCompile(`[\x00-\x1f\x80-\x9f]`)
	reservedRe        = regexp.MustCompile(`^\.+$`)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	windowsTrailingRe = regexp.MustCompile(`[. ]+$`)
)

// Sanitize makes name safe to use as a file name on common filesystems: path
// separators, reserved characters and control characters are removed, as are
// dot-only names, Windows device names and trailing dots or spaces. The result is
// truncated to 255 bytes without splitting a character.
func Sanitize(name string) string {
	s := illegalRe.ReplaceAllString(name, "")
	s = controlRe.ReplaceAllString(s, "")
	s = reservedRe.ReplaceAllString(s, "")
	s = windowsReservedRe.ReplaceAllString(s, "")
	s = windowsTrailingRe.ReplaceAllString(s, "")
	return truncate(s, maxNameBytes)
}

// ValidName reports whether name is non-empty and already sanitized.
func ValidName(name string) bool {
	return name != "" && Sanitize(name) == name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
