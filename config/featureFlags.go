package config

import (
	"os"
	"strings"
)

// StrictIndexes turns the missing-composite-index fallback into a hard error.
// In production the services re-issue an unsorted query and sort in memory
// when the store rejects an ordered query; on staging this flag surfaces the
// missing index instead so it gets provisioned before launch.
//
// Set via env:
// - FF_STRICT_INDEXES=true
func StrictIndexes() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FF_STRICT_INDEXES")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
