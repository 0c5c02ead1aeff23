package recents

import (
	"math"
	"sort"
	"strconv"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders bytes in base 1024 with at most one decimal, e.g. "1.5 MB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

const thisMonth = "This Month"

type Group struct {
	Label string   `json:"label"`
	Files []Record `json:"files"`
}

// GroupByMonth buckets records by calendar month relative to now. The current month
// comes first as "This Month", older months follow newest first, and each bucket is
// sorted newest first.
func GroupByMonth(records []Record, now time.Time) []Group {
	type bucket struct {
		month time.Time
		group Group
	}
	loc := now.Location()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	byMonth := map[time.Time]*bucket{}
	for _, r := range records {
		t := r.ModifiedAt.In(loc)
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		b, ok := byMonth[month]
		if !ok {
			label := month.Format("January 2006")
			if month.Equal(current) {
				label = thisMonth
			}
			b = &bucket{month: month, group: Group{Label: label}}
			byMonth[month] = b
		}
		b.group.Files = append(b.group.Files, r)
	}

	buckets := make([]*bucket, 0, len(byMonth))
	for _, b := range byMonth {
		sort.SliceStable(b.group.Files, func(i, j int) bool {
			return b.group.Files[i].ModifiedAt.After(b.group.Files[j].ModifiedAt)
		})
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		iCur, jCur := buckets[i].month.Equal(current), buckets[j].month.Equal(current)
		if iCur != jCur {
			return iCur
		}
		return buckets[i].month.After(buckets[j].month)
	})

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		groups = append(groups, b.group)
	}
	return groups
}
