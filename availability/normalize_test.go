package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/availability-engine/availability"
)

func TestNormalizeDate_Accepted(t *testing.T) {
	cases := map[string]string{
		"2025-04-01":         "2025-04-01",
		"  2025-04-01 ":      "2025-04-01",
		"April 1, 2025":      "2025-04-01",
		"Apr 1 2025":         "2025-04-01",
		"april 01, 2025":     "2025-04-01",
		"SEPTEMBER 30, 2025": "2025-09-30",
		"Dec 25,2025":        "2025-12-25",
		"May 5 2026":         "2026-05-05",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := availability.NormalizeDate(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeDate_Rejected(t *testing.T) {
	for _, in := range []string{
		"13/2025",
		"garbage",
		"",
		"2025/04/01",
		"Smarch 1, 2025",
		"April 32, 2025",
		"April 0, 2025",
		"April 1, 25",
		"1 April 2025",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := availability.NormalizeDate(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, availability.ErrNormalization)
			assert.True(t, availability.IsClientError(err))

			var nerr *availability.NormalizationError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, in, nerr.Input)
		})
	}
}

func TestNormalizeMonth(t *testing.T) {
	for in, want := range map[string]string{"9": "09", "09": "09", "12": "12", " 1 ": "01"} {
		got, err := availability.NormalizeMonth(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"0", "13", "sep", ""} {
		_, err := availability.NormalizeMonth(in)
		assert.ErrorIs(t, err, availability.ErrValidation, in)
	}
}

func TestParseMonthYear(t *testing.T) {
	month, year, err := availability.ParseMonthYear("09", "2025")
	require.NoError(t, err)
	assert.Equal(t, time.September, month)
	assert.Equal(t, 2025, year)

	_, _, err = availability.ParseMonthYear("", "2025")
	var verr *availability.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "month/year", verr.Field)

	_, _, err = availability.ParseMonthYear("9", "twenty")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "year", verr.Field)
}

func TestCanonicalDate_ZeroPads(t *testing.T) {
	assert.Equal(t, "2025-08-01", availability.CanonicalDate(2025, time.August, 1))
	assert.Equal(t, "2025-12-31", availability.CanonicalDate(2025, time.December, 31))
	assert.Equal(t, "2025-08-", availability.MonthPrefix(time.August, 2025))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 30, availability.DaysIn(time.September, 2025))
	assert.Equal(t, 28, availability.DaysIn(time.February, 2025))
	assert.Equal(t, 29, availability.DaysIn(time.February, 2024))
	assert.Equal(t, 31, availability.DaysIn(time.December, 2025))
}

func TestParseStatus(t *testing.T) {
	for _, s := range availability.Statuses {
		got, err := availability.ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := availability.ParseStatus("reserved")
	assert.ErrorIs(t, err, availability.ErrValidation)
}
