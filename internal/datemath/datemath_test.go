package datemath_test

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/datemath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.March, 14, 15, 9, 26, 0, time.UTC) // Thursday

func TestParseAndResolve(t *testing.T) {
	tests := []struct {
		in       string
		solr     string
		es       string
		resolved time.Time
	}{
		{"NOW", "NOW", "now", now},
		{"NOW-7DAYS", "NOW-7DAYS", "now-7d", now.AddDate(0, 0, -7)},
		{"NOW-7DAYS/DAY", "NOW-7DAYS/DAY", "now-7d/d", time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)},
		{"NOW/MONTH+1MONTH", "NOW/MONTH+1MONTHS", "now/M+1M", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{"NOW/WEEK", "NOW/WEEK", "now/w", time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)},
		{"now+2hours/hour", "NOW+2HOURS/HOUR", "now+2h/h", time.Date(2024, time.March, 14, 17, 0, 0, 0, time.UTC)},
		{
			"2024-01-31T00:00:00Z+1MONTH",
			"2024-01-31T00:00:00Z+1MONTHS",
			"2024-01-31T00:00:00Z||+1M",
			time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := datemath.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.solr, e.String())

			es, err := e.ES()
			require.NoError(t, err)
			assert.Equal(t, tt.es, es)

			assert.Equal(t, tt.resolved, e.Resolve(now))
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "yesterday", "NOW-DAYS", "NOW+1FORTNIGHT", "NOW/", "2024-01-01"} {
		t.Run(in, func(t *testing.T) {
			_, err := datemath.Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestMillisecondsNotSupportedByES(t *testing.T) {
	e := datemath.Now(datemath.Add(-500, datemath.Millisecond))
	_, err := e.ES()
	assert.Error(t, err)
	assert.Equal(t, "NOW-500MILLIS", e.String())
}

func TestGap(t *testing.T) {
	tests := []struct {
		in     string
		millis int64
		es     string
	}{
		{"+1DAY", 86_400_000, "1d"},
		{"2HOURS", 7_200_000, "2h"},
		{"15m", 900_000, "15m"},
		{"250ms", 250, "250ms"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g, err := datemath.ParseGap(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.millis, g.Millis())
			assert.Equal(t, tt.es, g.ES())
			assert.Equal(t, g.Millis(), datemath.GapFromMillis(g.Millis()).Millis())
		})
	}

	_, err := datemath.ParseGap("0DAY")
	assert.Error(t, err)
	assert.Equal(t, datemath.Gap{Amount: 2, Unit: datemath.Week}, datemath.GapFromMillis(14*86_400_000))
}

func TestGapBounds(t *testing.T) {
	for _, in := range []string{"0DAY", "+99999999999YEARS", "+300YEARS", "99999999999999999999ms", "+1FORTNIGHT"} {
		t.Run(in, func(t *testing.T) {
			_, err := datemath.ParseGap(in)
			assert.Error(t, err)
		})
	}

	g, err := datemath.ParseGap("+290YEARS")
	require.NoError(t, err)
	assert.Positive(t, g.Millis())

	assert.Error(t, datemath.Gap{Amount: 1 << 40, Unit: datemath.Week}.Validate())
	assert.Error(t, datemath.Gap{Amount: 1}.Validate())
	assert.NoError(t, datemath.Gap{Amount: 1, Unit: datemath.Day}.Validate())
}
