package classifier

import "strings"

// StripColorCodes removes "§x" formatting sequences anywhere in s.
func StripColorCodes(s string) string {
	if !strings.Contains(s, "§") {
		return s
	}
	return colorCodePattern.ReplaceAllString(s, "")
}

// StripRank returns everything after the last "]" of s, trimmed, when s
// contains a rank tag such as "[MVP+] Steve". Otherwise s is returned
// trimmed.
func StripRank(s string) string {
	if strings.Contains(s, "[") {
		if i := strings.LastIndex(s, "]"); i >= 0 {
			return strings.TrimSpace(s[i+1:])
		}
	}
	return strings.TrimSpace(s)
}

// ValidName reports whether s is a Minecraft display name:
// 3 to 16 letters, digits or underscores.
func ValidName(s string) bool {
	return validNamePattern.MatchString(s)
}

// subjectName returns the first name-like token of msg, skipping leading
// bracketed tags such as "[MVP+]" or "[12✫]".
func subjectName(msg string) string {
	for _, f := range strings.Fields(msg) {
		c := StripRank(f)
		if c != "" {
			return c
		}
		if !strings.HasPrefix(f, "[") {
			return ""
		}
	}
	return ""
}

// nameBefore returns the rank-stripped last token before marker.
func nameBefore(msg, marker string) string {
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	fields := strings.Fields(StripRank(msg[:i]))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// validNames rank-strips each candidate and keeps the valid ones in order.
func validNames(candidates []string) []string {
	var names []string
	for _, c := range candidates {
		n := StripRank(c)
		if ValidName(n) {
			names = append(names, n)
		}
	}
	return names
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
