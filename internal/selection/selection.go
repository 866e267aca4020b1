// Package selection decides which calendar slots are worth booking.
package selection

import "github.com/example/glovo-scheduler/internal/glovo"

// Schedule maps zone name -> weekday name (e.g. "Monday") -> start time labels
// (e.g. "14:00"). Zones and weekdays are matched by exact name; there is no
// default entry.
type Schedule map[string]map[string][]string

// Wants reports whether the slot starting at startTime on weekday in zone is listed.
func (s Schedule) Wants(zone, weekday, startTime string) bool {
	days, ok := s[zone]
	if !ok {
		return false
	}
	for _, t := range days[weekday] {
		if t == startTime {
			return true
		}
	}
	return false
}

// Candidate is a bookable slot together with where it was found.
type Candidate struct {
	Day  glovo.Day
	Zone string
	Slot glovo.Slot
}

type Result struct {
	Eligible []Candidate
	// Target counts every slot the schedule lists, whatever its status.
	Target int
	// Secured counts the listed slots already BOOKED.
	Secured int
}

// Select walks the calendar day -> zone -> slot and keeps the calendar order.
// Slots the schedule does not list are ignored. Listed slots count towards
// Target; BOOKED ones also count towards Secured; only AVAILABLE ones can be
// eligible, and unless allowNonRush is set they must carry the RUSH tag.
func Select(cal glovo.Calendar, schedule Schedule, allowNonRush bool) Result {
	var res Result
	for _, day := range cal.Days {
		for _, zone := range day.Zones {
			if _, ok := schedule[zone.Name]; !ok {
				continue
			}
			for _, slot := range zone.Slots {
				if !schedule.Wants(zone.Name, day.Name, slot.StartTime) {
					continue
				}
				res.Target++

				switch slot.Status {
				case glovo.StatusBooked:
					res.Secured++
					continue
				case glovo.StatusAvailable:
				default:
					continue
				}

				if !allowNonRush && !slot.HasTag(glovo.TagRush) {
					continue
				}
				res.Eligible = append(res.Eligible, Candidate{Day: day, Zone: zone.Name, Slot: slot})
			}
		}
	}
	return res
}
