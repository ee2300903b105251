package moderation

import (
	"math"
	"strconv"
	"strings"
)

// DefaultDurationSeconds is used when a duration token cannot be parsed.
// A typo in a duration must never reject the whole moderation action.
const DefaultDurationSeconds int64 = 3600

var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
}

// ParseDuration converts a token like "30m", "2h" or "1w" into seconds.
// "permanent" and "perm" (case-insensitive) yield permanent == true.
// Anything malformed falls back to one hour.
func ParseDuration(text string) (seconds int64, permanent bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "permanent" || lowered == "perm" {
		return 0, true
	}
	if len(lowered) < 2 {
		return DefaultDurationSeconds, false
	}

	multiplier, ok := unitSeconds[lowered[len(lowered)-1]]
	if !ok {
		return DefaultDurationSeconds, false
	}
	magnitude, err := strconv.ParseInt(lowered[:len(lowered)-1], 10, 64)
	if err != nil || magnitude <= 0 {
		return DefaultDurationSeconds, false
	}
	// an absurd magnitude would overflow into a negative, instantly-expired
	// duration; treat it like any other malformed token
	if magnitude > math.MaxInt64/multiplier {
		return DefaultDurationSeconds, false
	}
	return magnitude * multiplier, false
}

// FormatDuration renders seconds in the coarsest unit that keeps the value
// at 1 or above, truncating any remainder.
func FormatDuration(seconds int64, permanent bool) string {
	if permanent {
		return "Permanent"
	}

	switch {
	case seconds < 60:
		return strconv.FormatInt(seconds, 10) + " seconds"
	case seconds < 3600:
		return strconv.FormatInt(seconds/60, 10) + " minutes"
	case seconds < 86400:
		return strconv.FormatInt(seconds/3600, 10) + " hours"
	case seconds < 604800:
		return strconv.FormatInt(seconds/86400, 10) + " days"
	default:
		return strconv.FormatInt(seconds/604800, 10) + " weeks"
	}
}
