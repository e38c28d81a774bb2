package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{
		"Mon":       Monday,
		"monday":    Monday,
		"TUE":       Tuesday,
		"Thurs":     Thursday,
		" saturday": Saturday,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWeekday("Mo")
	assert.Error(t, err)
	_, err = ParseWeekday("Funday")
	assert.Error(t, err)
}

func TestWeekdayOrderStartsOnMonday(t *testing.T) {
	assert.Equal(t, 0, Monday.Order())
	assert.Equal(t, 5, Saturday.Order())
	assert.Equal(t, 6, Sunday.Order())
	assert.Equal(t, "Wed", Wednesday.String())
}

func TestParseClock(t *testing.T) {
	cases := map[string]Clock{
		"08:00":    NewClock(8, 0),
		"8:30":     NewClock(8, 30),
		"13:05:00": NewClock(13, 5),
		"1:30 pm":  NewClock(13, 30),
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseClock("noon")
	assert.Error(t, err)
	assert.Equal(t, "09:05", NewClock(9, 5).String())
}

func TestEntryJSONUsesReadableDayAndTime(t *testing.T) {
	e := Entry{Group: "IT-2201", Day: Tuesday, Start: NewClock(9, 0), End: NewClock(9, 50), Category: CategoryLab}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"day":"Tue"`)
	assert.Contains(t, string(data), `"start":"09:00"`)
	assert.Contains(t, string(data), `"type":"lab"`)

	var back Entry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e.Day, back.Day)
	assert.Equal(t, e.Start, back.Start)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Lecture")
	require.NoError(t, err)
	assert.Equal(t, CategoryLecture, c)

	c, err = ParseCategory("laboratory")
	require.NoError(t, err)
	assert.Equal(t, CategoryLab, c)

	_, err = ParseCategory("tutorial")
	assert.Error(t, err)
}

func TestNewCatalogFiltersAndOrders(t *testing.T) {
	rooms := []Room{
		{Code: "A1", Capacity: 30, Available: true},
		{Code: "B2", Capacity: 60, Available: false},
		{Code: "C3", Capacity: 90, Available: true},
	}
	slots := []TimeSlot{
		{ID: "tue-1", Day: Tuesday, Start: NewClock(8, 0), End: NewClock(8, 50)},
		{ID: "mon-2", Day: Monday, Start: NewClock(9, 0), End: NewClock(9, 50)},
		{ID: "mon-1", Day: Monday, Start: NewClock(8, 0), End: NewClock(8, 50)},
	}

	c, err := NewCatalog(rooms, slots, []string{"c3"})
	require.NoError(t, err)

	require.Equal(t, 1, c.NumRooms())
	assert.Equal(t, "A1", c.Room(0).Code)
	assert.Equal(t, 0, c.RoomIndex(" a1 "))
	assert.Equal(t, -1, c.RoomIndex("C3"))
	assert.Equal(t, -1, c.RoomIndex("B2"))

	require.Equal(t, 3, c.NumSlots())
	assert.Equal(t, "mon-1", c.Slot(0).ID)
	assert.Equal(t, "mon-2", c.Slot(1).ID)
	assert.Equal(t, "tue-1", c.Slot(2).ID)
	assert.Equal(t, []int{0, 1, 0}, []int{c.Position(0), c.Position(1), c.Position(2)})
	assert.Equal(t, []Weekday{Monday, Tuesday}, c.Days())
	assert.Equal(t, []int{0, 1}, c.SlotsOn(Monday))
}

func TestNewCatalogRejectsBadTables(t *testing.T) {
	slot := TimeSlot{ID: "s1", Day: Monday, Start: NewClock(8, 0), End: NewClock(9, 0)}

	_, err := NewCatalog([]Room{{Code: "A", Available: false}}, []TimeSlot{slot}, nil)
	var inErr *InputError
	require.True(t, errors.As(err, &inErr))
	assert.Equal(t, "Rooms", inErr.Table)

	_, err = NewCatalog([]Room{{Code: "A", Available: true}, {Code: "A", Available: true}}, []TimeSlot{slot}, nil)
	require.True(t, errors.As(err, &inErr))
	assert.Equal(t, "room_code", inErr.Column)

	_, err = NewCatalog([]Room{{Code: "A", Available: true}}, []TimeSlot{slot, slot}, nil)
	require.True(t, errors.As(err, &inErr))
	assert.Equal(t, "Timeslots", inErr.Table)

	_, err = NewCatalog([]Room{{Code: "A", Available: true}}, nil, nil)
	assert.Error(t, err)
}

func TestEligibility(t *testing.T) {
	e := NewEligibility([]YearRule{
		{Year: 1, LatestStart: NewClock(13, 0)},
		{Year: 3, ExcludedDays: []Weekday{Thursday}},
	})

	assert.True(t, e.DayAllowed(1, Thursday))
	assert.False(t, e.DayAllowed(3, Thursday))
	assert.True(t, e.TimeAllowed(1, NewClock(13, 0)))
	assert.False(t, e.TimeAllowed(1, NewClock(14, 0)))
	assert.True(t, e.TimeAllowed(3, NewClock(18, 0)))
	assert.True(t, e.Allows(2, TimeSlot{Day: Saturday, Start: NewClock(18, 0)}))
}

func TestVenueOverrideMatches(t *testing.T) {
	gym := VenueOverride{Room: "Gym", CourseContains: []string{"physical education"}, CourseEquals: []string{"pe"}}

	assert.True(t, gym.Matches("Physical Education I", "PE101"))
	assert.True(t, gym.Matches("PE", ""))
	assert.True(t, gym.Matches("Sport", "pe"))
	assert.False(t, gym.Matches("Physics", "PHY101"))
	assert.Equal(t, "Gym", FixedVenue([]VenueOverride{gym}, "physical education", ""))
	assert.Equal(t, "", FixedVenue([]VenueOverride{gym}, "Databases", "DB"))
}

func TestInputErrorMessage(t *testing.T) {
	err := NewInputError("Groups", "headcount", 4, "invalid value %q", "x")
	assert.Equal(t, `invalid input Groups.headcount (row 4): invalid value "x"`, err.Error())

	empty := &EmptyCurriculumError{Term: 2}
	assert.Equal(t, "no sessions to schedule in term 2", empty.Error())
}
