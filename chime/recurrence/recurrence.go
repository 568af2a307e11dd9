// Package recurrence evaluates cron expressions in IANA timezones with
// deterministic behavior across DST transitions.
//
// The cron library walks wall-clock fields, so on its own it skips an
// occurrence whose wall time falls inside a spring-forward gap and fires
// twice for wall times repeated by a fall-back. Herald's rules are:
//
//   - a wall time skipped by a forward transition fires at the first
//     valid instant after the gap (the transition itself)
//   - a wall time repeated by a backward transition fires on its first
//     occurrence only
//
// Schedule.Next applies those rules on top of the cron evaluation and
// always returns instants in UTC.
package recurrence

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/heraldai/herald/errors"
)

var (
	// ErrInvalidSchedule indicates a cron expression or timezone that
	// cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrUnsatisfiableSchedule indicates a well-formed expression that
	// produces no occurrence within the evaluation horizon, such as
	// "0 0 30 2 *" (February 30th).
	ErrUnsatisfiableSchedule = errors.New("schedule has no future occurrence")
)

const (
	// horizonYears bounds how far ahead Next searches before declaring
	// a schedule unsatisfiable. Matches the cron library's own internal
	// five-year search limit.
	horizonYears = 5

	// transitionScanStep is the coarse sampling interval used to locate
	// UTC-offset transitions. Real zones never transition twice within
	// a single step.
	transitionScanStep = 6 * time.Hour

	// foldLookback extends the transition scan behind the anchor so a
	// fall-back that happened just before it still suppresses the
	// repeated wall times ahead of it. Larger than any real DST shift.
	foldLookback = 4 * time.Hour

	// maxCorrectionPasses bounds the suppress-and-recompute loop. A
	// zone has at most two transitions per year, so the horizon can
	// never need this many passes.
	maxCorrectionPasses = 64
)

// parser accepts standard five-field expressions, an optional leading
// seconds field, and @descriptors (@daily, @every 10m, ...).
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed cron expression bound to a timezone.
type Schedule struct {
	expr     string
	timezone string
	loc      *time.Location
	sched    cron.Schedule
}

// Parse compiles a cron expression against an IANA timezone name.
// The timezone is a separate field on Herald jobs, so expressions
// carrying their own TZ= prefix are rejected. Errors match
// ErrInvalidSchedule via errors.Is.
func Parse(expr, timezone string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.Wrap(ErrInvalidSchedule, "empty cron expression")
	}
	if strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		return nil, errors.Wrap(ErrInvalidSchedule, "timezone must be provided as a separate field, not embedded in the expression")
	}
	if timezone == "" {
		return nil, errors.Wrap(ErrInvalidSchedule, "timezone is required")
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchedule, "unknown timezone %q", timezone)
	}

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchedule, "parse %q: %v", expr, err)
	}

	return &Schedule{
		expr:     expr,
		timezone: timezone,
		loc:      loc,
		sched:    sched,
	}, nil
}

// Validate reports whether the expression and timezone form a usable
// schedule, including that at least one occurrence exists within the
// horizon.
func Validate(expr, timezone string, now time.Time) error {
	sched, err := Parse(expr, timezone)
	if err != nil {
		return err
	}
	_, err = sched.Next(now)
	return err
}

// NextRun is the one-call form of Parse plus Next for callers that
// evaluate an expression once and do not hold the Schedule.
func NextRun(expr, timezone string, after time.Time) (time.Time, error) {
	sched, err := Parse(expr, timezone)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after)
}

// Expression returns the cron expression the schedule was parsed from.
func (s *Schedule) Expression() string { return s.expr }

// Timezone returns the IANA zone name the schedule evaluates in.
func (s *Schedule) Timezone() string { return s.timezone }

// Location returns the loaded timezone.
func (s *Schedule) Location() *time.Location { return s.loc }

// Next returns the first occurrence strictly after the given instant,
// in UTC. Occurrences whose wall time was skipped by a forward
// transition fire at the transition instant; wall times repeated by a
// backward transition fire on their first occurrence only. Returns
// ErrUnsatisfiableSchedule when no occurrence exists within the
// horizon.
func (s *Schedule) Next(after time.Time) (time.Time, error) {
	horizon := after.AddDate(horizonYears, 0, 0)

	spec, ok := s.sched.(*cron.SpecSchedule)
	if !ok {
		// @every schedules are interval-based. Their occurrences are
		// fixed instants, so offset changes never skip or repeat them.
		next := s.sched.Next(after)
		if next.IsZero() || next.After(horizon) {
			return time.Time{}, errors.Wrapf(ErrUnsatisfiableSchedule, "%q has no occurrence within %d years", s.expr, horizonYears)
		}
		return next.In(time.UTC), nil
	}

	cur := after
	for pass := 0; pass < maxCorrectionPasses; pass++ {
		next := spec.Next(cur.In(s.loc))
		if next.IsZero() || next.After(horizon) {
			return time.Time{}, errors.Wrapf(ErrUnsatisfiableSchedule, "%q in %s has no occurrence within %d years", s.expr, s.timezone, horizonYears)
		}

		suppressed := false
		scanFrom := cur.Add(-foldLookback)
		for {
			tr, delta, found := nextTransition(scanFrom, next, s.loc)
			if !found {
				break
			}
			if delta < 0 {
				// Fall back: wall times in [tr+delta, tr) occur twice,
				// first on the old offset, again on the new one.
				repeatEnd := tr.Add(-delta)
				if !next.Before(tr) && next.Before(repeatEnd) {
					if first := next.Add(delta); !first.After(cur) {
						// Second occurrence of a wall time whose first
						// pass is already behind the anchor. Skip the
						// repeated window and evaluate from its end.
						cur = repeatEnd.Add(-time.Second)
						suppressed = true
						break
					}
				}
			} else if tr.After(cur) {
				// Spring forward: wall times in the gap do not exist on
				// the real timeline. Re-evaluate on a fixed clock at the
				// old offset, where the gap wall times map to instants
				// in [tr, tr+delta). Landing there means the occurrence
				// was skipped, and it fires at the transition instead.
				_, postOff := tr.In(s.loc).Zone()
				preZone := time.FixedZone("", postOff-int(delta/time.Second))
				if c := spec.Next(cur.In(preZone)); !c.Before(tr) && c.Before(tr.Add(delta)) {
					return tr.In(time.UTC), nil
				}
			}
			scanFrom = tr
		}
		if suppressed {
			continue
		}
		return next.In(time.UTC), nil
	}

	return time.Time{}, errors.Wrapf(ErrUnsatisfiableSchedule, "%q in %s exceeded correction passes", s.expr, s.timezone)
}

// NextN returns up to n occurrences strictly after the given instant,
// ascending, in UTC. Stops early without error when the schedule runs
// out of occurrences before the horizon.
func (s *Schedule) NextN(after time.Time, n int) ([]time.Time, error) {
	occurrences := make([]time.Time, 0, n)
	cur := after
	for len(occurrences) < n {
		next, err := s.Next(cur)
		if err != nil {
			if errors.Is(err, ErrUnsatisfiableSchedule) && len(occurrences) > 0 {
				break
			}
			return nil, err
		}
		occurrences = append(occurrences, next)
		cur = next
	}
	return occurrences, nil
}

// nextTransition locates the earliest UTC-offset change in (from, to].
// It returns the first instant on the new offset and the offset delta.
func nextTransition(from, to time.Time, loc *time.Location) (time.Time, time.Duration, bool) {
	if !to.After(from) {
		return time.Time{}, 0, false
	}
	_, prevOff := from.In(loc).Zone()
	prev := from
	for {
		probe := prev.Add(transitionScanStep)
		last := false
		if !probe.Before(to) {
			probe = to
			last = true
		}
		_, off := probe.In(loc).Zone()
		if off != prevOff {
			tr := refineTransition(prev, probe, prevOff, loc)
			_, trOff := tr.In(loc).Zone()
			return tr, time.Duration(trOff-prevOff) * time.Second, true
		}
		if last {
			return time.Time{}, 0, false
		}
		prev = probe
	}
}

// refineTransition binary-searches (lo, hi] for the first instant whose
// offset differs from loOff, to one-second precision. Zone transitions
// land on whole seconds, so this is exact in practice.
func refineTransition(lo, hi time.Time, loOff int, loc *time.Location) time.Time {
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if !mid.After(lo) {
			mid = lo.Add(time.Second)
		}
		if _, off := mid.In(loc).Zone(); off == loOff {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}
