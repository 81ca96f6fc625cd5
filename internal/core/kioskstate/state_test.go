package kioskstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = mustload("Asia/Seoul")

func mustload(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(offset int) *time.Time {
	t := time.Now().In(seoul).AddDate(0, 0, offset)
	return &t
}

func TestParse(t *testing.T) {
	s, err := Parse(" active ")
	require.NoError(t, err)
	assert.Equal(t, Active, s)

	_, err = Parse("broken")
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		current      State
		activation   *time.Time
		deactivation *time.Time
		want         State
		changed      bool
	}{
		{
			name:         "past deactivation wins over activation",
			current:      Active,
			activation:   day(-1),
			deactivation: day(-1),
			want:         Inactive,
			changed:      true,
		},
		{
			name:         "past deactivation deactivates preparing kiosk",
			current:      Preparing,
			activation:   day(-3),
			deactivation: day(-2),
			want:         Inactive,
			changed:      true,
		},
		{
			name:         "deactivation today is not yet past",
			current:      Active,
			deactivation: day(0),
			want:         Active,
		},
		{
			name:       "maintenance is sticky",
			current:    Maintenance,
			activation: day(-1),
			want:       Maintenance,
		},
		{
			name:         "deleted is sticky even with past deactivation",
			current:      Deleted,
			deactivation: day(-5),
			want:         Deleted,
		},
		{
			name:       "inactive is terminal for automation",
			current:    Inactive,
			activation: day(-1),
			want:       Inactive,
		},
		{
			name:    "no activation date, no transition",
			current: Preparing,
			want:    Preparing,
		},
		{
			name:       "future activation pulls active back to preparing",
			current:    Active,
			activation: day(2),
			want:       Preparing,
			changed:    true,
		},
		{
			name:       "activation today promotes preparing",
			current:    Preparing,
			activation: day(0),
			want:       Active,
			changed:    true,
		},
		{
			name:       "past activation promotes preparing",
			current:    Preparing,
			activation: day(-7),
			want:       Active,
			changed:    true,
		},
		{
			name:       "active with past activation stays put",
			current:    Active,
			activation: day(-7),
			want:       Active,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Next(tt.current, tt.activation, tt.deactivation, now, seoul)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

// Moving the activation date future->past->future must round-trip the
// state through PREPARING and ACTIVE.
func TestNextRoundTrip(t *testing.T) {
	now := time.Now()

	s, changed := Next(Preparing, day(-1), nil, now, seoul)
	require.True(t, changed)
	require.Equal(t, Active, s)

	s, changed = Next(s, day(3), nil, now, seoul)
	require.True(t, changed)
	require.Equal(t, Preparing, s)

	s, changed = Next(s, day(-1), nil, now, seoul)
	require.True(t, changed)
	assert.Equal(t, Active, s)
}

// The comparison must ignore time-of-day: a deactivation stamped late
// yesterday evening is past even if fewer than 24 hours ago.
func TestNextDateOnlyComparison(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, seoul)
	lateYesterday := time.Date(2026, 3, 9, 23, 50, 0, 0, seoul)

	s, changed := Next(Active, nil, &lateYesterday, now, seoul)
	require.True(t, changed)
	assert.Equal(t, Inactive, s)
}

func TestLabelCoversAllStates(t *testing.T) {
	for _, s := range All {
		assert.NotEqual(t, string(s), s.Label(), "state %s has no display label", s)
	}
}
