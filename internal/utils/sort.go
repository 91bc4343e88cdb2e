package utils

import (
	"slices"
	"time"
)

func SortDates(dates []time.Time, asc bool) []time.Time {
	slices.SortStableFunc(dates, func(a, b time.Time) int {
		if asc {
			return a.Compare(b)
		}
		return b.Compare(a)
	})
	return dates
}

// SortByTime orders items by the time returned from key, oldest first.
func SortByTime[T any](items []T, key func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return key(a).Compare(key(b))
	})
}
