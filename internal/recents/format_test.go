package recents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:                    "0 B",
		-5:                   "0 B",
		1:                    "1 B",
		1023:                 "1023 B",
		1024:                 "1 KB",
		1536:                 "1.5 KB",
		1024 * 1024:          "1 MB",
		5*1024*1024 + 104858: "5.1 MB",
		3 << 30:              "3 GB",
		2048 << 30:           "2048 GB",
	}
	for bytes, want := range tests {
		assert.Equal(t, want, FormatSize(bytes), "%d bytes", bytes)
	}
}

func rec(id string, at time.Time) Record {
	return Record{ID: id, ModifiedAt: at}
}

func TestGroupByMonth(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	records := []Record{
		rec("jan-early", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
		rec("mar-early", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		rec("dec", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)),
		rec("mar-late", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)),
		rec("jan-late", time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)),
		rec("mar-last-year", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)),
	}

	groups := GroupByMonth(records, now)
	require.Len(t, groups, 4)

	var labels []string
	for _, g := range groups {
		labels = append(labels, g.Label)
	}
	assert.Equal(t, []string{"This Month", "January 2026", "December 2025", "March 2025"}, labels)

	assert.Equal(t, "mar-late", groups[0].Files[0].ID)
	assert.Equal(t, "mar-early", groups[0].Files[1].ID)
	assert.Equal(t, "jan-late", groups[1].Files[0].ID)
	assert.Equal(t, "jan-early", groups[1].Files[1].ID)
}

func TestGroupByMonth_Empty(t *testing.T) {
	assert.Empty(t, GroupByMonth(nil, time.Now()))
}
