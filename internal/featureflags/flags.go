package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	RateLimit = "rate_limit"
	Tracing   = "tracing"
)

// Enabled reports whether a flag is on. Flags are read from env as
// FLAG_<NAME>=true/1/yes/on or false/0/no/off (case-insensitive); anything
// else, including unset, yields def.
func Enabled(name string, def bool) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
