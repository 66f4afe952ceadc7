package postgresadapter

import "time"

// SystemClock reads the host wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
