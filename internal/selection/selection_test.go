package selection

import (
	"testing"

	"github.com/example/glovo-scheduler/internal/glovo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(id int64, start, status string, tags ...string) glovo.Slot {
	return glovo.Slot{ID: id, StartTime: start, Status: status, Tags: glovo.Tags{Types: tags}}
}

func day(name string, zones ...glovo.Zone) glovo.Day {
	return glovo.Day{Date: 1704672000, Name: name, Zones: zones}
}

func zone(name string, slots ...glovo.Slot) glovo.Zone {
	return glovo.Zone{Name: name, Slots: slots}
}

func ids(cs []Candidate) []int64 {
	var out []int64
	for _, c := range cs {
		out = append(out, c.Slot.ID)
	}
	return out
}

func TestRushSlotIsEligible(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX", slot(1, "10:00", glovo.StatusAvailable, "RUSH"))),
	}}

	res := Select(cal, schedule, false)
	require.Len(t, res.Eligible, 1)
	assert.Equal(t, int64(1), res.Eligible[0].Slot.ID)
	assert.Equal(t, "ZoneX", res.Eligible[0].Zone)
	assert.Equal(t, "Monday", res.Eligible[0].Day.Name)
	assert.Equal(t, 1, res.Target)
	assert.Equal(t, 0, res.Secured)
}

func TestNonRushFilteredUnlessAllowed(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX", slot(1, "10:00", glovo.StatusAvailable))),
	}}

	res := Select(cal, schedule, false)
	assert.Empty(t, res.Eligible)
	assert.Equal(t, 1, res.Target)
	assert.Equal(t, 0, res.Secured)

	res = Select(cal, schedule, true)
	assert.Equal(t, []int64{1}, ids(res.Eligible))
}

func TestUnknownZoneContributesNothing(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneY",
			slot(1, "10:00", glovo.StatusAvailable, "RUSH"),
			slot(2, "10:00", glovo.StatusBooked),
		)),
	}}

	res := Select(cal, schedule, true)
	assert.Empty(t, res.Eligible)
	assert.Zero(t, res.Target)
	assert.Zero(t, res.Secured)
}

func TestWeekdayWithoutEntryContributesNothing(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Tuesday", zone("ZoneX", slot(1, "10:00", glovo.StatusAvailable, "RUSH"))),
	}}

	res := Select(cal, schedule, true)
	assert.Empty(t, res.Eligible)
	assert.Zero(t, res.Target)
}

func TestBookedCountsSecuredNeverEligible(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00", "11:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX",
			slot(1, "10:00", glovo.StatusBooked, "RUSH"),
			slot(2, "11:00", glovo.StatusAvailable, "RUSH"),
		)),
	}}

	res := Select(cal, schedule, true)
	assert.Equal(t, []int64{2}, ids(res.Eligible))
	assert.Equal(t, 2, res.Target)
	assert.Equal(t, 1, res.Secured)
}

func TestOtherStatusCountsTargetOnly(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX", slot(1, "10:00", "FULL", "RUSH"))),
	}}

	res := Select(cal, schedule, true)
	assert.Empty(t, res.Eligible)
	assert.Equal(t, 1, res.Target)
	assert.Zero(t, res.Secured)
}

func TestUnlistedTimeIgnoredRegardlessOfStatus(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX",
			slot(1, "09:00", glovo.StatusBooked),
			slot(2, "12:00", glovo.StatusAvailable, "RUSH"),
		)),
	}}

	res := Select(cal, schedule, true)
	assert.Empty(t, res.Eligible)
	assert.Zero(t, res.Target)
	assert.Zero(t, res.Secured)
}

func TestOrderFollowsCalendar(t *testing.T) {
	schedule := Schedule{
		"A": {"Monday": {"10:00", "09:00"}, "Tuesday": {"08:00"}},
		"B": {"Monday": {"10:00"}},
	}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday",
			zone("B", slot(5, "10:00", glovo.StatusAvailable)),
			zone("A",
				slot(3, "10:00", glovo.StatusAvailable),
				slot(4, "09:00", glovo.StatusAvailable),
			),
		),
		day("Tuesday", zone("A", slot(1, "08:00", glovo.StatusAvailable))),
	}}

	res := Select(cal, schedule, true)
	assert.Equal(t, []int64{5, 3, 4, 1}, ids(res.Eligible))
	assert.Equal(t, 4, res.Target)
}

func TestSelectIsIdempotent(t *testing.T) {
	schedule := Schedule{"ZoneX": {"Monday": {"10:00", "11:00", "12:00"}}}
	cal := glovo.Calendar{Days: []glovo.Day{
		day("Monday", zone("ZoneX",
			slot(1, "10:00", glovo.StatusAvailable, "RUSH"),
			slot(2, "11:00", glovo.StatusBooked),
			slot(3, "12:00", "LOCKED"),
		)),
	}}

	first := Select(cal, schedule, false)
	second := Select(cal, schedule, false)
	assert.Equal(t, first, second)
	assert.Equal(t, Result{
		Eligible: []Candidate{{Day: cal.Days[0], Zone: "ZoneX", Slot: cal.Days[0].Zones[0].Slots[0]}},
		Target:   3,
		Secured:  1,
	}, first)
}

func TestEmptyInputs(t *testing.T) {
	res := Select(glovo.Calendar{}, nil, true)
	assert.Equal(t, Result{}, res)

	res = Select(glovo.Calendar{Days: []glovo.Day{day("Monday", zone("ZoneX", slot(1, "10:00", glovo.StatusAvailable)))}}, Schedule{}, true)
	assert.Equal(t, Result{}, res)
}
