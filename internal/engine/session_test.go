package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequency(t *testing.T) {
	cases := []struct {
		name    string
		units   int
		want    int
		wantErr bool
	}{
		{name: "four units once weekly", units: 4, want: 1},
		{name: "eight units twice weekly", units: 8, want: 2},
		{name: "twelve units thrice weekly", units: 12, want: 3},
		{name: "six units rejected", units: 6, wantErr: true},
		{name: "zero units rejected", units: 0, wantErr: true},
		{name: "negative units rejected", units: -4, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Frequency(tc.units)
			if tc.wantErr {
				require.Error(t, err)
				var invalid *InvalidCreditUnitsError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, tc.units, invalid.Units)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassFrequencyNamesClass(t *testing.T) {
	_, err := classFrequency(&ClassSection{ID: "ART-9", CreditUnits: 6})
	var invalid *InvalidCreditUnitsError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "ART-9", invalid.ClassID)
	assert.Contains(t, invalid.Error(), "ART-9")
}

func TestDayPatternPreferences(t *testing.T) {
	once := dayPatterns(1)
	require.Len(t, once, 5)
	assert.Equal(t, []Day{Monday}, once[0])
	assert.Equal(t, []Day{Friday}, once[4])

	twice := dayPatterns(2)
	require.Len(t, twice, 7)
	assert.Equal(t, []Day{Tuesday, Thursday}, twice[0])
	assert.Equal(t, []Day{Monday, Wednesday}, twice[1])

	thrice := dayPatterns(3)
	require.Len(t, thrice, 6)
	assert.Equal(t, []Day{Monday, Wednesday, Friday}, thrice[0])
	assert.Equal(t, []Day{Wednesday, Thursday, Friday}, thrice[5])
}

func TestPatternOptionsWithoutPins(t *testing.T) {
	options := patternOptions(2, nil)
	assert.Equal(t, dayPatterns(2), options)
}

func TestPatternOptionsCompletesPinnedDays(t *testing.T) {
	// A Wednesday pin on a three-a-week class completes toward the
	// recognized Mon/Wed/Fri shape first.
	options := patternOptions(2, []Day{Wednesday})
	require.NotEmpty(t, options)
	assert.Equal(t, []Day{Monday, Friday}, options[0])
	for _, option := range options {
		assert.Len(t, option, 2)
		assert.NotContains(t, option, Wednesday)
	}

	// A Tuesday pin on a twice-weekly class prefers the Thursday partner.
	options = patternOptions(1, []Day{Tuesday})
	require.NotEmpty(t, options)
	assert.Equal(t, []Day{Thursday}, options[0])
}

func TestPatternOptionsFallsBackWhenNoPatternFits(t *testing.T) {
	// Two pins on the same Monday leave one session with no recognized
	// triple to complete; the single-day list minus Monday applies.
	options := patternOptions(1, []Day{Monday, Monday})
	require.NotEmpty(t, options)
	for _, option := range options {
		require.Len(t, option, 1)
		assert.NotEqual(t, Monday, option[0])
	}
	assert.Equal(t, []Day{Tuesday}, options[0])
}

func TestPatternOptionsRejectedPinShrinksShape(t *testing.T) {
	// One placed pin and one dead session on a three-a-week class leave a
	// single remaining session: completions come from the two-day shapes.
	options := patternOptions(1, []Day{Tuesday})
	require.NotEmpty(t, options)
	for _, option := range options {
		require.Len(t, option, 1)
	}
	assert.Equal(t, []Day{Thursday}, options[0])
}

func TestPatternOptionsFullyPinned(t *testing.T) {
	assert.Nil(t, patternOptions(0, []Day{Tuesday, Thursday}))
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("wednesday")
	require.NoError(t, err)
	assert.Equal(t, Wednesday, day)

	day, err = ParseDay("Fri")
	require.NoError(t, err)
	assert.Equal(t, Friday, day)

	_, err = ParseDay("Sunday")
	assert.Error(t, err)
}
