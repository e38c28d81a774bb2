package model

import (
	"sort"
	"strings"
)

// Catalog is the read-only set of rooms and time slots a search may assign.
// Room and slot indexes used by candidates refer to the slices held here.
type Catalog struct {
	rooms    []Room
	roomIdx  map[string]int
	slots    []TimeSlot
	position []int
	byDay    map[Weekday][]int
	days     []Weekday
}

// NewCatalog builds a catalog from the loaded room and slot tables. Rooms that
// are unavailable or listed in excluded are left out. Slots are ordered by day
// then start time.
func NewCatalog(rooms []Room, slots []TimeSlot, excluded []string) (*Catalog, error) {
	skip := make(map[string]bool, len(excluded))
	for _, code := range excluded {
		skip[strings.ToLower(strings.TrimSpace(code))] = true
	}

	c := &Catalog{byDay: make(map[Weekday][]int), roomIdx: make(map[string]int)}
	seenRooms := make(map[string]bool)
	for i, r := range rooms {
		if seenRooms[r.Code] {
			return nil, NewInputError("Rooms", "room_code", i+2, "duplicate room %q", r.Code)
		}
		seenRooms[r.Code] = true
		if !r.Available || skip[strings.ToLower(r.Code)] {
			continue
		}
		c.roomIdx[strings.ToLower(r.Code)] = len(c.rooms)
		c.rooms = append(c.rooms, r)
	}
	if len(c.rooms) == 0 {
		return nil, NewInputError("Rooms", "available", 0, "no available rooms")
	}

	seenSlots := make(map[string]bool)
	for i, s := range slots {
		if seenSlots[s.ID] {
			return nil, NewInputError("Timeslots", "slot_id", i+2, "duplicate slot %q", s.ID)
		}
		if s.End <= s.Start {
			return nil, NewInputError("Timeslots", "end", i+2, "slot %q ends before it starts", s.ID)
		}
		seenSlots[s.ID] = true
	}
	if len(slots) == 0 {
		return nil, NewInputError("Timeslots", "slot_id", 0, "no time slots")
	}

	c.slots = append([]TimeSlot(nil), slots...)
	sort.SliceStable(c.slots, func(i, j int) bool {
		return c.slots[i].Before(c.slots[j])
	})

	c.position = make([]int, len(c.slots))
	for i, s := range c.slots {
		if _, ok := c.byDay[s.Day]; !ok {
			c.days = append(c.days, s.Day)
		}
		c.position[i] = len(c.byDay[s.Day])
		c.byDay[s.Day] = append(c.byDay[s.Day], i)
	}

	return c, nil
}

// Rooms returns the assignable rooms. The slice must not be modified.
func (c *Catalog) Rooms() []Room { return c.rooms }

// Slots returns the time slots ordered by day and start. The slice must not be modified.
func (c *Catalog) Slots() []TimeSlot { return c.slots }

// Room returns the room at index i.
func (c *Catalog) Room(i int) Room { return c.rooms[i] }

// RoomIndex returns the index of the room with the given code, compared
// case-insensitively, or -1 when the catalog does not offer it.
func (c *Catalog) RoomIndex(code string) int {
	if i, ok := c.roomIdx[strings.ToLower(strings.TrimSpace(code))]; ok {
		return i
	}
	return -1
}

// Slot returns the slot at index i.
func (c *Catalog) Slot(i int) TimeSlot { return c.slots[i] }

// NumRooms returns the number of assignable rooms.
func (c *Catalog) NumRooms() int { return len(c.rooms) }

// NumSlots returns the number of time slots.
func (c *Catalog) NumSlots() int { return len(c.slots) }

// Position returns the ordinal of slot i among the slots of its day.
func (c *Catalog) Position(i int) int { return c.position[i] }

// Days returns the teaching days in week order.
func (c *Catalog) Days() []Weekday { return c.days }

// SlotsOn returns the indexes of the slots on day d in start order.
func (c *Catalog) SlotsOn(d Weekday) []int { return c.byDay[d] }
