package economy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAccruedDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal string
		apr       string
		elapsed   time.Duration
		want      string
	}{
		{
			// 31,536 seconds is 0.1% of a year.
			name:      "tenth of a percent of a year",
			principal: "2.0",
			apr:       "0.05",
			elapsed:   31536 * time.Second,
			want:      "0.0001",
		},
		{
			name:      "full year",
			principal: "100",
			apr:       "0.05",
			elapsed:   365 * 24 * time.Hour,
			want:      "5",
		},
		{
			name:      "zero elapsed",
			principal: "100",
			apr:       "0.05",
			elapsed:   0,
			want:      "0",
		},
		{
			name:      "negative elapsed",
			principal: "100",
			apr:       "0.05",
			elapsed:   -time.Minute,
			want:      "0",
		},
		{
			name:      "zero principal",
			principal: "0",
			apr:       "0.05",
			elapsed:   time.Hour,
			want:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AccruedDelta(dec(tt.principal), dec(tt.apr), tt.elapsed)
			assert.True(t, got.Equal(dec(tt.want)),
				"AccruedDelta = %s, want %s", got, tt.want)
		})
	}
}

func TestAccruedDeltaRepeatedCallsAreAdditive(t *testing.T) {
	t.Parallel()

	principal, apr := dec("50"), dec("0.05")
	whole := AccruedDelta(principal, apr, 2*time.Hour)
	split := AccruedDelta(principal, apr, time.Hour).
		Add(AccruedDelta(principal, apr, time.Hour))
	assert.True(t, whole.Equal(split), "split accrual %s != whole %s", split, whole)
}
