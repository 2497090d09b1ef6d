package auth

import "strings"

// Allow reports whether a principal holding the given roles passes a
// required-role set. A roleless principal is always denied, before the
// intersection test, so even an empty requirement rejects it.
func Allow(required, held []string) bool {
	if len(held) == 0 {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range held {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}
