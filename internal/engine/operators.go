package engine

import (
	"math/rand"
	"sort"

	"github.com/piwi3910/timetabler/internal/model"
)

// Initializer creates the first population.
type Initializer interface {
	Initialize(rng *rand.Rand, size int) []*Candidate
}

// Selector picks n parents from pop. Returned candidates are independent
// copies that keep their cached scores.
type Selector interface {
	Select(rng *rand.Rand, pop []*Candidate, n int) []*Candidate
}

// Crossover recombines two candidates in place and reports whether it ran.
type Crossover interface {
	Cross(rng *rand.Rand, a, b *Candidate) bool
}

// Mutator perturbs a candidate in place and reports whether it changed.
type Mutator interface {
	Mutate(rng *rand.Rand, c *Candidate) bool
}

// RandomInitializer assigns every session a uniformly random room and slot.
type RandomInitializer struct {
	Sessions int
	Rooms    int
	Slots    int
}

func (r RandomInitializer) Initialize(rng *rand.Rand, size int) []*Candidate {
	pop := make([]*Candidate, size)
	for i := range pop {
		genes := make([]Assignment, r.Sessions)
		for j := range genes {
			genes[j] = Assignment{Room: rng.Intn(r.Rooms), Slot: rng.Intn(r.Slots)}
		}
		pop[i] = NewCandidate(genes)
	}
	return pop
}

// GreedyInitializer builds each candidate session by session, trying days,
// slots and rooms in a shuffled order and taking the first combination that
// neither double-books a room nor a group. Only days and start times allowed
// for the session's year are tried, and rooms large enough for the session are
// tried first. When nothing fits a random pair is used.
type GreedyInitializer struct {
	Sessions    []model.Session
	Catalog     *model.Catalog
	Eligibility model.Eligibility
}

func (g GreedyInitializer) Initialize(rng *rand.Rand, size int) []*Candidate {
	pop := make([]*Candidate, size)
	for i := range pop {
		pop[i] = g.build(rng)
	}
	return pop
}

func (g GreedyInitializer) build(rng *rand.Rand) *Candidate {
	cat := g.Catalog
	nRooms := cat.NumRooms()
	roomBusy := make([]bool, cat.NumSlots()*nRooms)
	groupBusy := make(map[string][]bool)
	busy := func(group string) []bool {
		b, ok := groupBusy[group]
		if !ok {
			b = make([]bool, cat.NumSlots())
			groupBusy[group] = b
		}
		return b
	}

	genes := make([]Assignment, len(g.Sessions))
	for i, s := range g.Sessions {
		rooms := rng.Perm(nRooms)
		sort.SliceStable(rooms, func(a, b int) bool {
			return cat.Room(rooms[a]).Capacity >= s.Headcount && cat.Room(rooms[b]).Capacity < s.Headcount
		})

		placed := false
		for _, day := range g.shuffledDays(rng, s.Year) {
			daySlots := append([]int(nil), cat.SlotsOn(day)...)
			rng.Shuffle(len(daySlots), func(a, b int) { daySlots[a], daySlots[b] = daySlots[b], daySlots[a] })
			for _, slot := range daySlots {
				if !g.Eligibility.TimeAllowed(s.Year, cat.Slot(slot).Start) || g.groupsBusy(busy, s.Groups, slot) {
					continue
				}
				for _, room := range rooms {
					if !s.HasFixedRoom() && roomBusy[slot*nRooms+room] {
						continue
					}
					genes[i] = Assignment{Room: room, Slot: slot}
					placed = true
					break
				}
				if placed {
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			genes[i] = Assignment{Room: rng.Intn(nRooms), Slot: rng.Intn(cat.NumSlots())}
		}

		a := genes[i]
		if !s.HasFixedRoom() {
			roomBusy[a.Slot*nRooms+a.Room] = true
		}
		for _, grp := range s.Groups {
			busy(grp)[a.Slot] = true
		}
	}
	return NewCandidate(genes)
}

func (g GreedyInitializer) groupsBusy(busy func(string) []bool, groups []string, slot int) bool {
	for _, grp := range groups {
		if busy(grp)[slot] {
			return true
		}
	}
	return false
}

// shuffledDays returns the days open to year in random order. When the rules
// exclude every day, all days are returned.
func (g GreedyInitializer) shuffledDays(rng *rand.Rand, year int) []model.Weekday {
	var days []model.Weekday
	for _, d := range g.Catalog.Days() {
		if g.Eligibility.DayAllowed(year, d) {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = append(days, g.Catalog.Days()...)
	}
	rng.Shuffle(len(days), func(a, b int) { days[a], days[b] = days[b], days[a] })
	return days
}

// TournamentSelector draws Size candidates with replacement and keeps the
// fittest, once per parent.
type TournamentSelector struct {
	Size int
}

func (t TournamentSelector) Select(rng *rand.Rand, pop []*Candidate, n int) []*Candidate {
	out := make([]*Candidate, n)
	for i := range out {
		winner := pop[rng.Intn(len(pop))]
		for k := 1; k < t.Size; k++ {
			c := pop[rng.Intn(len(pop))]
			if c.Fitness() < winner.Fitness() {
				winner = c
			}
		}
		out[i] = winner.Clone()
	}
	return out
}

// PointCrossover exchanges a contiguous run of assignments between two
// candidates. Points selects one-point (tail swap) or two-point crossover.
type PointCrossover struct {
	Points int
}

func (p PointCrossover) Cross(rng *rand.Rand, a, b *Candidate) bool {
	n := len(a.Genes)
	if n < 2 || len(b.Genes) != n {
		return false
	}

	var lo, hi int
	if p.Points == 1 {
		lo, hi = 1+rng.Intn(n-1), n
	} else {
		lo = 1 + rng.Intn(n)
		hi = 1 + rng.Intn(n-1)
		if hi >= lo {
			hi++
		} else {
			lo, hi = hi, lo
		}
	}

	for i := lo; i < hi; i++ {
		a.Genes[i], b.Genes[i] = b.Genes[i], a.Genes[i]
	}
	a.Invalidate()
	b.Invalidate()
	return true
}

// MutationMode chooses how the mutation rate is applied.
type MutationMode string

const (
	// MutatePerCandidate mutates one position of a candidate with probability Rate.
	MutatePerCandidate MutationMode = "candidate"
	// MutatePerGene mutates each position independently with probability Rate.
	MutatePerGene MutationMode = "gene"
)

// RoomOrSlotMutator replaces either the room or the slot of a position with a
// new uniformly random value, each with even odds.
type RoomOrSlotMutator struct {
	Rate  float64
	Mode  MutationMode
	Rooms int
	Slots int
}

func (m RoomOrSlotMutator) Mutate(rng *rand.Rand, c *Candidate) bool {
	n := len(c.Genes)
	if n == 0 {
		return false
	}

	changed := false
	if m.Mode == MutatePerGene {
		for i := range c.Genes {
			if rng.Float64() < m.Rate {
				m.flip(rng, &c.Genes[i])
				changed = true
			}
		}
	} else if rng.Float64() < m.Rate {
		m.flip(rng, &c.Genes[rng.Intn(n)])
		changed = true
	}

	if changed {
		c.Invalidate()
	}
	return changed
}

func (m RoomOrSlotMutator) flip(rng *rand.Rand, a *Assignment) {
	if rng.Float64() < 0.5 {
		a.Room = rng.Intn(m.Rooms)
	} else {
		a.Slot = rng.Intn(m.Slots)
	}
}
