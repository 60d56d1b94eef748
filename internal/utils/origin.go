// internal/utils/origin.go
package utils

import "strings"

// AllowsAnyOrigin reports whether the allow list contains the "*" wildcard
func AllowsAnyOrigin(allowed []string) bool {
	for _, origin := range allowed {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

// OriginAllowed matches origin against the allow list. Requests without an
// Origin header come from non-browser hosts and are always accepted.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 || AllowsAnyOrigin(allowed) {
		return true
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimRight(strings.TrimSpace(candidate), "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	return false
}
