// redact маскирует чувствительные значения перед логированием.
package redact

import "strings"

// Email оставляет два первых символа локальной части.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Code маскирует код доступа, оставляя последние два символа.
func Code(s string) string {
	if len(s) <= 2 {
		return "***"
	}

	return strings.Repeat("*", len(s)-2) + s[len(s)-2:]
}

// Cookie — маркер вместо значения cookie.
func Cookie() string { return "[REDACTED_COOKIE]" }
