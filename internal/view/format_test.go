package view

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestFormatPercent_ParsesBackToRoundedRatio(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for count := 0; count <= total; count++ {
			got := FormatPercent(float64(count), float64(total))
			require.True(t, strings.HasSuffix(got, "%"), got)

			parsed, err := strconv.ParseFloat(strings.TrimSuffix(got, "%"), 64)
			require.NoError(t, err)
			want := math.Round(float64(count)/float64(total)*100*10) / 10
			assert.InDelta(t, want, parsed, 1e-9, "count=%d total=%d", count, total)
		}
	}
}

func TestFormatPercent_ZeroOrUndefinedTotal(t *testing.T) {
	for _, total := range []float64{0, -3, math.NaN()} {
		got := FormatPercent(5, total)
		assert.Equal(t, Placeholder, got)
		assert.NotContains(t, got, "NaN")
		assert.NotContains(t, got, "Inf")
	}
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, Placeholder, FormatRate(nil))
	assert.Equal(t, "0.0%", FormatRate(f64(0)))
	assert.Equal(t, "87.5%", FormatRate(f64(0.875)))
	assert.Equal(t, "100.0%", FormatRate(f64(1)))
	assert.Equal(t, Placeholder, FormatRate(f64(math.NaN())))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, Placeholder, FormatSeconds(nil))
	assert.Equal(t, "1.23s", FormatSeconds(f64(1.234)))
	assert.Equal(t, "0.00s", FormatSeconds(f64(0)))
}

func TestFormatDate_DegradesToRaw(t *testing.T) {
	assert.Equal(t, "May 01", FormatDate("2024-05-01", ShortDate))
	assert.Equal(t, "May 01, 2024 10:30", FormatDate("2024-05-01T10:30:00.123456", DateTime))
	assert.Equal(t, "May 01, 2024", FormatDate("2024-05-01T10:30:00Z", LongDate))
	assert.Equal(t, "yesterday-ish", FormatDate("yesterday-ish", ShortDate))
	assert.Equal(t, "", FormatDate("", ShortDate))
}

func TestFormatSizeAndPlural(t *testing.T) {
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "time", Plural(1, "time", "times"))
	assert.Equal(t, "times", Plural(0, "time", "times"))
}
