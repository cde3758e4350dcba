package common

import "strings"

// FirstNonEmpty returns the first value that is not blank, or "" if all are.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
