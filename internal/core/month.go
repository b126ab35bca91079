package core

import (
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month key in "YYYY-MM" form.
type Month string

// ParseMonth validates a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil || len(s) != len(monthLayout) {
		return "", ErrInvalidMonth
	}
	return Month(t.Format(monthLayout)), nil
}

// MonthOf returns the month key of t in t's own location.
func MonthOf(t time.Time) Month {
	return Month(t.Format(monthLayout))
}

func (m Month) String() string { return string(m) }

func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

// Start returns midnight of the first day of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(monthLayout, string(m), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddMonths shifts the key by n months (n may be negative).
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.Start(time.UTC).AddDate(0, n, 0))
}

// Contains reports whether t falls in the month when viewed from loc.
func (m Month) Contains(t time.Time, loc *time.Location) bool {
	return MonthOf(t.In(loc)) == m
}

// ShortName returns the three letter English month name, e.g. "Jan".
func (m Month) ShortName() string {
	return m.Start(time.UTC).Month().String()[:3]
}
