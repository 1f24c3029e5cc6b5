package prompt

import "strings"

// StripOuterFence removes a single outer code fence wrapping the whole
// text, if present. Embedded fences elsewhere are left untouched. Text
// that is not wholly wrapped is returned unchanged.
func StripOuterFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return s
	}
	// The opening line may carry a language tag but nothing else.
	tag := strings.TrimSpace(t[3:nl])
	if strings.ContainsAny(tag, " `") {
		return s
	}
	if !strings.HasSuffix(t, "\n```") {
		return s
	}
	return strings.TrimSpace(t[nl+1 : len(t)-len("\n```")])
}
