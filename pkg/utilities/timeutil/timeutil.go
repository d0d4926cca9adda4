package timeutil

import (
	"time"
)

// TimeUTC is Unix time in seconds, always UTC.
type TimeUTC struct {
	T int64 `json:"t"`
}

func NowUTC() TimeUTC {
	return TimeUTC{T: time.Now().UTC().Unix()}
}

func (t TimeUTC) Time() time.Time {
	return time.Unix(t.T, 0).UTC()
}

// RFC3339 is the layout used for createdAt strings sent to the guest.
func (t TimeUTC) RFC3339() string {
	return t.Time().Format(time.RFC3339)
}
