// Package window decides which posts of an account are recent enough to
// analyze: everything inside a day window, topped up to a minimum count.
package window

import (
	"slices"
	"time"

	"github.com/steve-cardenas/snagent/internal/model"
)

// Cutoff returns the oldest instant still inside a window of days ending at now.
func Cutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// ShouldStop reports whether a scan over time-descending posts can end at a
// post published at date, given how many posts were already taken.
func ShouldStop(date, cutoff time.Time, taken, floor int) bool {
	return date.Before(cutoff) && taken >= floor
}

// Select returns every post published within windowDays of now and, when that
// is fewer than floor, the next most recent posts until floor is reached or
// the input runs out. The result is ordered newest first. Input that is not
// sorted newest first is sorted (on a copy) before scanning.
func Select(posts []model.Post, now time.Time, windowDays, floor int) []model.Post {
	if len(posts) == 0 {
		return []model.Post{}
	}
	if !sortedDescending(posts) {
		posts = slices.Clone(posts)
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return b.Date.Compare(a.Date)
		})
	}

	cutoff := Cutoff(now, windowDays)
	selected := make([]model.Post, 0, max(floor, 0))
	for _, p := range posts {
		if ShouldStop(p.Date, cutoff, len(selected), floor) {
			break
		}
		selected = append(selected, p)
	}
	return selected
}

func sortedDescending(posts []model.Post) bool {
	for i := 1; i < len(posts); i++ {
		if posts[i].Date.After(posts[i-1].Date) {
			return false
		}
	}
	return true
}
