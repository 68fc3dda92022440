package stats

import (
	"fmt"
	"time"
)

// Calendar averages used to split an elapsed duration into display units.
const (
	daysPerYear  = 365.25
	daysPerMonth = 30.44
)

// FormatAge renders the span between a reference time and an earlier moment
// as "Y:MM:DD". A non-positive span renders as "0:00:00".
func FormatAge(now, when time.Time) string {
	days := now.Sub(when).Hours() / 24
	if days < 0 {
		days = 0
	}

	years := int(days / daysPerYear)
	days -= float64(years) * daysPerYear

	months := int(days / daysPerMonth)
	days -= float64(months) * daysPerMonth

	return fmt.Sprintf("%d:%02d:%02d", years, months, int(days))
}
