package pipeline

import (
	"time"
)

const (
	// TimestampLayout renders the run timestamp as YYYYMMDD_HHMMSS.
	TimestampLayout = "20060102_150405"

	objectNamePrefix = "fuel_new_prices_raw_"
	objectNameSuffix = ".json"
)

// RunTimestamp renders the logical run time in UTC.
func RunTimestamp(logical time.Time) string {
	return logical.UTC().Format(TimestampLayout)
}

// ObjectKey builds the object key of a run's raw payload.
// The prefix is used verbatim, so it must carry its own trailing slash.
func ObjectKey(prefix, timestamp string) string {
	return prefix + objectNamePrefix + timestamp + objectNameSuffix
}
