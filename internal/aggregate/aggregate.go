// Package aggregate derives per-day and per-month hour tables from
// periods. Raw period bounds are never mutated; every computation clips
// a local copy to the reporting window and to "now" for open periods.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/peter-marien/grindsync/internal/model"
	"github.com/peter-marien/grindsync/internal/store"
	"github.com/peter-marien/grindsync/internal/timecalc"
)

// Segment is one calendar-day slice of a period's effective interval.
type Segment struct {
	Day   time.Time // start of the calendar day
	Start time.Time
	End   time.Time
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SplitByDay splits [start, end) into calendar-day segments. The sum of
// segment durations equals end−start exactly; reports depend on that.
func SplitByDay(start, end time.Time) []Segment {
	var segs []Segment
	current := start
	for current.Before(end) {
		nextDay := timecalc.Midnight(current)
		segEnd := nextDay
		if end.Before(nextDay) {
			segEnd = end
		}
		segs = append(segs, Segment{
			Day:   timecalc.StartOfDay(current),
			Start: current,
			End:   segEnd,
		})
		current = segEnd
	}
	return segs
}

// clip intersects p's effective interval with [winStart, winEnd).
// Returns ok=false when nothing overlaps.
func clip(p model.Period, winStart, winEnd, now time.Time) (time.Time, time.Time, bool) {
	start := p.Start
	if start.Before(winStart) {
		start = winStart
	}
	end := p.EffectiveEnd(now)
	if end.After(winEnd) {
		end = winEnd
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Row is one work item's time in a monthly overview: hours per day of
// month plus a row total, rounded to two decimals.
type Row struct {
	IssueKey string
	ItemName string
	Hours    map[int]float64
	Total    float64
}

// Overview is the monthly aggregation table.
type Overview struct {
	Year        int
	Month       time.Month
	DaysInMonth int
	Rows        []Row // sorted by item name
	TotalRow    Row   // synthetic per-day totals, ItemName "TOTAL"
	Workdays    int
	GrandTotal  float64
	Average     float64 // daily average over weekdays with logged time
	Overtime    float64 // signed: negative = under, positive = over
}

// Monthly builds the per-item × per-day hour table for one person and
// month, with day boundaries taken in loc. hoursPerDay feeds the
// overtime baseline (workdays × hoursPerDay).
func Monthly(snap *store.Snapshot, roles store.Roles, personID uuid.UUID, year int, month time.Month, loc *time.Location, now time.Time, hoursPerDay float64) Overview {
	monthStart, monthEnd := timecalc.MonthRange(year, month, loc)

	ov := Overview{
		Year:        year,
		Month:       month,
		DaysInMonth: timecalc.DaysInMonth(year, month),
		Workdays:    timecalc.Workdays(year, month),
	}

	itemHours := map[uuid.UUID]map[int]float64{}
	dailyTotals := map[int]float64{}

	for _, p := range snap.Periods {
		if p.PersonID != personID {
			continue
		}
		start, end, ok := clip(p, monthStart, monthEnd, now)
		if !ok {
			continue
		}
		// Split on day boundaries in the reporting location, whatever
		// location the period was stored in.
		for _, seg := range SplitByDay(start.In(loc), end.In(loc)) {
			day := seg.Day.Day()
			hours := seg.Duration().Hours()
			if itemHours[p.ItemID] == nil {
				itemHours[p.ItemID] = map[int]float64{}
			}
			itemHours[p.ItemID][day] += hours
			dailyTotals[day] += hours
			ov.GrandTotal += hours
		}
	}

	for itemID, hoursByDay := range itemHours {
		name := "Unknown"
		if item, ok := snap.Items[itemID]; ok {
			name = item.Name
		}
		row := Row{
			IssueKey: snap.ItemAttribute(roles.IssueKey(), itemID),
			ItemName: name,
			Hours:    map[int]float64{},
		}
		rowTotal := 0.0
		for day, hours := range hoursByDay {
			row.Hours[day] = round2(hours)
			rowTotal += hours
		}
		row.Total = round2(rowTotal)
		ov.Rows = append(ov.Rows, row)
	}
	sort.Slice(ov.Rows, func(i, j int) bool { return ov.Rows[i].ItemName < ov.Rows[j].ItemName })

	ov.TotalRow = Row{ItemName: "TOTAL", Hours: map[int]float64{}}
	for day, hours := range dailyTotals {
		ov.TotalRow.Hours[day] = round2(hours)
	}
	ov.TotalRow.Total = round2(ov.GrandTotal)

	loggedWeekdays := 0
	for day, hours := range dailyTotals {
		if hours > 0 && timecalc.IsWeekday(time.Date(year, month, day, 0, 0, 0, 0, loc)) {
			loggedWeekdays++
		}
	}
	if loggedWeekdays > 0 {
		ov.Average = round2(ov.GrandTotal / float64(loggedWeekdays))
	}
	ov.Overtime = round2(ov.GrandTotal - float64(ov.Workdays)*hoursPerDay)

	return ov
}

// Entry is one period rendered in a daily view.
type Entry struct {
	ItemName   string
	IssueKey   string
	Start      time.Time
	End        time.Time // raw end; meaningless when InProgress
	InProgress bool
	Seconds    int64 // clipped to the day window
	Notes      string
}

// ItemTotal is one work item's total within a day.
type ItemTotal struct {
	ItemName string
	Seconds  int64
}

// DayView is the single-day dashboard: entries sorted by start plus
// per-item and grand totals.
type DayView struct {
	Date         time.Time
	Entries      []Entry
	ItemTotals   []ItemTotal // sorted by item name
	TotalSeconds int64
}

// Daily builds the dashboard for one person and calendar day. Open
// periods count up to now and are flagged InProgress.
func Daily(snap *store.Snapshot, roles store.Roles, personID uuid.UUID, day, now time.Time) DayView {
	dayStart := timecalc.StartOfDay(day)
	dayEnd := timecalc.Midnight(day)

	view := DayView{Date: dayStart}
	perItem := map[uuid.UUID]int64{}

	for _, p := range snap.Periods {
		if p.PersonID != personID {
			continue
		}
		start, end, ok := clip(p, dayStart, dayEnd, now)
		if !ok {
			continue
		}
		seconds := int64(end.Sub(start).Seconds())

		name := "Unknown"
		if item, ok := snap.Items[p.ItemID]; ok {
			name = item.Name
		}
		view.Entries = append(view.Entries, Entry{
			ItemName:   name,
			IssueKey:   snap.ItemAttribute(roles.IssueKey(), p.ItemID),
			Start:      p.Start,
			End:        p.End,
			InProgress: p.Open(now),
			Seconds:    seconds,
			Notes:      p.Notes,
		})
		perItem[p.ItemID] += seconds
		view.TotalSeconds += seconds
	}

	sort.Slice(view.Entries, func(i, j int) bool { return view.Entries[i].Start.Before(view.Entries[j].Start) })

	for itemID, seconds := range perItem {
		name := "Unknown"
		if item, ok := snap.Items[itemID]; ok {
			name = item.Name
		}
		view.ItemTotals = append(view.ItemTotals, ItemTotal{ItemName: name, Seconds: seconds})
	}
	sort.Slice(view.ItemTotals, func(i, j int) bool { return view.ItemTotals[i].ItemName < view.ItemTotals[j].ItemName })

	return view
}

// WeekTotal sums one person's clipped time in the ISO week containing t.
func WeekTotal(snap *store.Snapshot, personID uuid.UUID, t, now time.Time) int64 {
	weekStart, weekSunday := timecalc.WeekRange(t)
	weekEnd := timecalc.Midnight(weekSunday)

	var total int64
	for _, p := range snap.Periods {
		if p.PersonID != personID {
			continue
		}
		if start, end, ok := clip(p, weekStart, weekEnd, now); ok {
			total += int64(end.Sub(start).Seconds())
		}
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
