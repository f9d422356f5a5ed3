package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/common"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "ISO", input: "2023-01-31", want: day(2023, time.January, 31)},
		{name: "ISO with slashes", input: "2023/01/31", want: day(2023, time.January, 31)},
		{name: "US", input: "01/31/2023", want: day(2023, time.January, 31)},
		{name: "US with dashes", input: "01-31-2023", want: day(2023, time.January, 31)},
		{name: "US two-digit year", input: "01/31/23", want: day(2023, time.January, 31)},
		{name: "leap day", input: "02/29/2024", want: day(2024, time.February, 29)},
		{name: "European when US impossible", input: "31/01/2023", want: day(2023, time.January, 31)},
		{name: "European dashes when US impossible", input: "31-01-2023", want: day(2023, time.January, 31)},
		{name: "ambiguous input resolves US", input: "01/02/2023", want: day(2023, time.January, 2)},
		{name: "abbreviated month name", input: "Jan 31, 2023", want: day(2023, time.January, 31)},
		{name: "full month name", input: "January 31, 2023", want: day(2023, time.January, 31)},
		{name: "day first month name", input: "31 Jan 2023", want: day(2023, time.January, 31)},
		{name: "month year only", input: "Feb 2024", want: day(2024, time.February, 1)},
		{name: "numeric month year", input: "02/2024", want: day(2024, time.February, 1)},
		{name: "iso month year", input: "2024-02", want: day(2024, time.February, 1)},
		{name: "surrounding whitespace", input: "  2023-01-31  ", want: day(2023, time.January, 31)},
		{name: "flexible fallback", input: "2023-01-31T15:04:05Z", want: day(2023, time.January, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeString_Empty(t *testing.T) {
	_, err := NormalizeString("")
	assert.ErrorIs(t, err, ErrEmptyDate)

	_, err = NormalizeString("   ")
	assert.ErrorIs(t, err, ErrEmptyDate)
}

func TestNormalizeString_Unparseable(t *testing.T) {
	_, err := NormalizeString("not a date at all")
	require.Error(t, err)

	var parseErr *common.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not a date at all", parseErr.Input)
	assert.Contains(t, parseErr.Attempted, "2006-01-02")
	assert.Contains(t, parseErr.Attempted, "01/02/2006")
	assert.Contains(t, parseErr.Attempted, "flexible")
}

func TestNormalize_StructuredInput(t *testing.T) {
	ts := time.Date(2024, 2, 29, 18, 30, 0, 0, time.FixedZone("X", -7*3600))
	got, err := Normalize(ts)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), got)

	got, err = Normalize(&ts)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), got)

	_, err = Normalize((*time.Time)(nil))
	assert.ErrorIs(t, err, ErrEmptyDate)
}
