package scheduling

import "sort"

// Interval is a minute-of-day range, half-open [Start, End).
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// intervalsForDay collects the active intervals for one weekday.
func intervalsForDay(rows []*WorkingHours, day int) []Interval {
	var out []Interval
	for _, w := range rows {
		if !w.IsActive || w.DayOfWeek != day || w.EndMinute <= w.StartMinute {
			continue
		}
		out = append(out, Interval{Start: w.StartMinute, End: w.EndMinute})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// intersect returns the overlap of two sorted interval sets.
func intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := max(a[i].Start, b[j].Start)
		end := min(a[i].End, b[j].End)
		if start < end {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// EffectiveHours computes the bookable intervals for one weekday.
// Business-wide rows define the outer bound; when staff rows exist for the
// day they are intersected with it. A staff member with no rows for the day
// falls back to the business defaults.
func EffectiveHours(business, staff []*WorkingHours, day int) []Interval {
	base := intervalsForDay(business, day)
	own := intervalsForDay(staff, day)
	if len(own) == 0 {
		return base
	}
	return intersect(base, own)
}
