package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const maxLabelLength = 64

// Label reduces a User-Agent header to a short "Browser on OS" string for
// audit trails. Unknown or empty agents yield "unknown".
func Label(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		return truncate("bot:" + fallback(name, "unknown"))
	}

	browser, _ := ua.Browser()
	label := fallback(browser, "unknown")
	if os := ua.OS(); os != "" {
		label += " on " + os
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	return truncate(label)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncate(s string) string {
	if len(s) <= maxLabelLength {
		return s
	}
	return s[:maxLabelLength]
}
