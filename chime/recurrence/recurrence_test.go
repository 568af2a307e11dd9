package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldai/herald/errors"
)

// America/New_York in 2026: clocks jump 02:00 EST -> 03:00 EDT on
// March 8 (07:00 UTC) and fall back 02:00 EDT -> 01:00 EST on
// November 1 (06:00 UTC).

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	t.Run("valid five field expression", func(t *testing.T) {
		s, err := Parse("30 2 * * *", "America/New_York")
		require.NoError(t, err)
		assert.Equal(t, "30 2 * * *", s.Expression())
		assert.Equal(t, "America/New_York", s.Timezone())
		assert.Equal(t, "America/New_York", s.Location().String())
	})

	t.Run("valid six field expression with seconds", func(t *testing.T) {
		_, err := Parse("15 30 2 * * *", "UTC")
		require.NoError(t, err)
	})

	t.Run("descriptor", func(t *testing.T) {
		_, err := Parse("@daily", "America/New_York")
		require.NoError(t, err)
	})

	t.Run("malformed expression", func(t *testing.T) {
		_, err := Parse("not a cron", "UTC")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("minute out of range", func(t *testing.T) {
		_, err := Parse("61 * * * *", "UTC")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("empty expression", func(t *testing.T) {
		_, err := Parse("", "UTC")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("unknown timezone", func(t *testing.T) {
		_, err := Parse("0 9 * * *", "Mars/Olympus")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("empty timezone", func(t *testing.T) {
		_, err := Parse("0 9 * * *", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})

	t.Run("embedded TZ prefix rejected", func(t *testing.T) {
		_, err := Parse("TZ=America/New_York 0 9 * * *", "UTC")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSchedule))
	})
}

func TestNext_PlainAdvancement(t *testing.T) {
	t.Run("utc quarter hours", func(t *testing.T) {
		s, err := Parse("*/15 * * * *", "UTC")
		require.NoError(t, err)

		next, err := s.Next(utc(2026, time.January, 1, 0, 7))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.January, 1, 0, 15), next)

		next, err = s.Next(next)
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.January, 1, 0, 30), next)
	})

	t.Run("weekly in fixed winter offset", func(t *testing.T) {
		// Monday 09:00 in Amsterdam, UTC+1 in January.
		s, err := Parse("0 9 * * 1", "Europe/Amsterdam")
		require.NoError(t, err)

		next, err := s.Next(utc(2026, time.January, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.January, 5, 8, 0), next)
	})

	t.Run("result is always utc", func(t *testing.T) {
		s, err := Parse("0 12 * * *", "America/New_York")
		require.NoError(t, err)

		next, err := s.Next(utc(2026, time.June, 15, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, time.UTC, next.Location())
	})
}

func TestNext_SpringForwardGap(t *testing.T) {
	s, err := Parse("30 2 * * *", "America/New_York")
	require.NoError(t, err)

	t.Run("skipped wall time fires at first valid instant", func(t *testing.T) {
		// Wall 02:30 does not exist on March 8; the occurrence fires at
		// the transition, 03:00 EDT.
		next, err := s.Next(utc(2026, time.March, 7, 12, 0))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.March, 8, 7, 0), next)

		loc, _ := time.LoadLocation("America/New_York")
		local := next.In(loc)
		assert.Equal(t, 3, local.Hour())
		assert.Equal(t, 0, local.Minute())
	})

	t.Run("schedule resumes normally the next day", func(t *testing.T) {
		next, err := s.Next(utc(2026, time.March, 8, 7, 0))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.March, 9, 6, 30), next)
	})

	t.Run("wall time at the gap boundary needs no correction", func(t *testing.T) {
		boundary, err := Parse("0 3 * * *", "America/New_York")
		require.NoError(t, err)

		next, err := boundary.Next(utc(2026, time.March, 8, 5, 0))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.March, 8, 7, 0), next)

		next, err = boundary.Next(next)
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.March, 9, 7, 0), next)
	})

	t.Run("hourly schedule fires 23 times on the short day", func(t *testing.T) {
		hourly, err := Parse("0 * * * *", "America/New_York")
		require.NoError(t, err)

		// Wall 00:00 EST through wall 23:00 EDT on March 8. The skipped
		// 02:00 leaves 23 firing wall times.
		start := utc(2026, time.March, 8, 5, 0)
		end := utc(2026, time.March, 9, 3, 0)

		count := 0
		cur := start.Add(-time.Minute)
		for {
			next, err := hourly.Next(cur)
			require.NoError(t, err)
			if next.After(end) {
				break
			}
			count++
			cur = next
		}
		assert.Equal(t, 23, count)
	})
}

func TestNext_FallBackRepeat(t *testing.T) {
	s, err := Parse("30 1 * * *", "America/New_York")
	require.NoError(t, err)

	t.Run("first pass of repeated wall time fires", func(t *testing.T) {
		next, err := s.Next(utc(2026, time.October, 31, 12, 0))
		require.NoError(t, err)
		// 01:30 EDT, before the clocks fall back.
		assert.Equal(t, utc(2026, time.November, 1, 5, 30), next)
	})

	t.Run("second pass is suppressed after firing", func(t *testing.T) {
		next, err := s.Next(utc(2026, time.November, 1, 5, 30))
		require.NoError(t, err)
		// Skips 01:30 EST (06:30 UTC) and lands on November 2.
		assert.Equal(t, utc(2026, time.November, 2, 6, 30), next)
	})

	t.Run("second pass stays suppressed for late anchors", func(t *testing.T) {
		// Anchor between the transition and the repeated wall time, as
		// when a dispatcher tick runs late.
		next, err := s.Next(utc(2026, time.November, 1, 6, 10))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.November, 2, 6, 30), next)
	})

	t.Run("anchor inside the repeated window", func(t *testing.T) {
		next, err := s.Next(utc(2026, time.November, 1, 6, 15))
		require.NoError(t, err)
		assert.Equal(t, utc(2026, time.November, 2, 6, 30), next)
	})

	t.Run("hourly schedule skips the repeated hour", func(t *testing.T) {
		hourly, err := Parse("0 * * * *", "America/New_York")
		require.NoError(t, err)

		got, err := hourly.NextN(utc(2026, time.November, 1, 4, 30), 4)
		require.NoError(t, err)
		want := []time.Time{
			utc(2026, time.November, 1, 5, 0), // 01:00 EDT
			utc(2026, time.November, 1, 7, 0), // 02:00 EST, 01:00 EST suppressed
			utc(2026, time.November, 1, 8, 0), // 03:00 EST
			utc(2026, time.November, 1, 9, 0), // 04:00 EST
		}
		assert.Equal(t, want, got)
	})
}

func TestNext_IntervalSchedule(t *testing.T) {
	s, err := Parse("@every 90m", "America/New_York")
	require.NoError(t, err)

	// Interval schedules are instant-based, so crossing the March 8
	// transition changes nothing.
	next, err := s.Next(utc(2026, time.March, 8, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(2026, time.March, 8, 7, 30), next)
}

func TestNext_Descriptor(t *testing.T) {
	s, err := Parse("@daily", "America/New_York")
	require.NoError(t, err)

	// Next local midnight, 00:00 EDT on June 16.
	next, err := s.Next(utc(2026, time.June, 15, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(2026, time.June, 16, 4, 0), next)
}

func TestNext_Unsatisfiable(t *testing.T) {
	s, err := Parse("0 0 30 2 *", "America/New_York")
	require.NoError(t, err)

	_, err = s.Next(utc(2026, time.January, 1, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsatisfiableSchedule))
}

func TestValidate(t *testing.T) {
	now := utc(2026, time.January, 1, 0, 0)

	require.NoError(t, Validate("0 9 * * 1-5", "Europe/Amsterdam", now))

	err := Validate("0 0 30 2 *", "UTC", now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsatisfiableSchedule))

	err = Validate("bogus", "UTC", now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchedule))
}

func TestNextRun(t *testing.T) {
	got, err := NextRun("0 12 * * *", "UTC", utc(2026, time.January, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, utc(2026, time.January, 1, 12, 0), got)

	_, err = NextRun("bogus", "UTC", utc(2026, time.January, 1, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchedule))
}

func TestNextN(t *testing.T) {
	s, err := Parse("0 12 * * *", "UTC")
	require.NoError(t, err)

	got, err := s.NextN(utc(2026, time.January, 1, 0, 0), 3)
	require.NoError(t, err)
	want := []time.Time{
		utc(2026, time.January, 1, 12, 0),
		utc(2026, time.January, 2, 12, 0),
		utc(2026, time.January, 3, 12, 0),
	}
	assert.Equal(t, want, got)
}
