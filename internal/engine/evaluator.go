package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/timetabler/internal/model"
)

// Weights are the penalty magnitudes of each constraint. All values are
// positive and the search minimises their sum.
type Weights struct {
	RoomClash      float64 `yaml:"roomClash" validate:"gt=0"`
	GroupClash     float64 `yaml:"groupClash" validate:"gt=0"`
	Capacity       float64 `yaml:"capacity" validate:"gt=0"`
	CapacityStep   int     `yaml:"capacityStep" validate:"min=1"`
	CapacitySeat   float64 `yaml:"capacitySeat" validate:"gte=0"`
	IneligibleDay  float64 `yaml:"ineligibleDay" validate:"gte=0"`
	IneligibleTime float64 `yaml:"ineligibleTime" validate:"gte=0"`
	IdleGap        float64 `yaml:"idleGap" validate:"gte=0"`
	Precedence     float64 `yaml:"precedence" validate:"gte=0"`
}

// DefaultWeights returns weights under which any hard violation outweighs the
// soft penalties of a realistic timetable.
func DefaultWeights() Weights {
	return Weights{
		RoomClash:      1000,
		GroupClash:     1000,
		Capacity:       500,
		CapacityStep:   5,
		CapacitySeat:   1,
		IneligibleDay:  500,
		IneligibleTime: 500,
		IdleGap:        8,
		Precedence:     10,
	}
}

// CapacityPenalty returns the penalty for seating headcount students in a room
// of the given capacity. It is zero when the room is large enough and strictly
// increasing in the overage otherwise.
func (w Weights) CapacityPenalty(headcount, capacity int) float64 {
	over := headcount - capacity
	if over <= 0 {
		return 0
	}
	step := w.CapacityStep
	if step < 1 {
		step = 1
	}
	steps := math.Ceil(float64(over) / float64(step))
	return w.Capacity*steps + w.CapacitySeat*float64(over)
}

// Evaluator scores candidates against a fixed session list and catalog.
// It holds no mutable state, so one evaluator may score candidates from
// several goroutines at once.
type Evaluator struct {
	sessions    []model.Session
	catalog     *model.Catalog
	eligibility model.Eligibility
	weights     Weights

	groupIDs [][]int // per session, dense ids of its groups
	nGroups  int
	anchors  [][]int // per practice/lab session, the lectures of its course its group attends

	// per session, catalog index of its fixed venue when the venue is also a
	// searchable room, else -1
	fixedRoom []int
}

// NewEvaluator precomputes the group and lecture lookups used by Score.
func NewEvaluator(sessions []model.Session, catalog *model.Catalog, eligibility model.Eligibility, weights Weights) (*Evaluator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	for i, s := range sessions {
		if s.Index != i {
			return nil, fmt.Errorf("session at position %d has index %d", i, s.Index)
		}
	}

	e := &Evaluator{
		sessions:    sessions,
		catalog:     catalog,
		eligibility: eligibility,
		weights:     weights,
		groupIDs:    make([][]int, len(sessions)),
		anchors:     make([][]int, len(sessions)),
		fixedRoom:   make([]int, len(sessions)),
	}

	for i, s := range sessions {
		e.fixedRoom[i] = -1
		if s.HasFixedRoom() {
			e.fixedRoom[i] = catalog.RoomIndex(s.FixedRoom)
		}
	}

	ids := make(map[string]int)
	for i, s := range sessions {
		for _, g := range s.Groups {
			id, ok := ids[g]
			if !ok {
				id = len(ids)
				ids[g] = id
			}
			e.groupIDs[i] = append(e.groupIDs[i], id)
		}
	}
	e.nGroups = len(ids)

	type lectureKey struct {
		group, programme, course string
	}
	lectures := make(map[lectureKey][]int)
	for i, s := range sessions {
		if s.Category != model.CategoryLecture {
			continue
		}
		for _, g := range s.Groups {
			k := lectureKey{g, s.Programme, s.CourseCode}
			lectures[k] = append(lectures[k], i)
		}
	}
	for i, s := range sessions {
		if s.Category == model.CategoryLecture || len(s.Groups) == 0 {
			continue
		}
		e.anchors[i] = lectures[lectureKey{s.Groups[0], s.Programme, s.CourseCode}]
	}

	return e, nil
}

// Sessions returns the session list the evaluator scores against.
func (e *Evaluator) Sessions() []model.Session { return e.sessions }

// Catalog returns the evaluator's catalog.
func (e *Evaluator) Catalog() *model.Catalog { return e.catalog }

// Eligibility returns the year placement rules.
func (e *Evaluator) Eligibility() model.Eligibility { return e.eligibility }

// Weights returns the penalty weights.
func (e *Evaluator) Weights() Weights { return e.weights }

// Score computes the hard and soft penalties of genes. It never fails and
// depends only on the genes, so repeated calls return identical results.
func (e *Evaluator) Score(genes []Assignment) model.Score {
	var score model.Score
	w := e.weights
	nRooms := e.catalog.NumRooms()
	nSlots := e.catalog.NumSlots()

	roomUse := make([]int32, nSlots*nRooms)
	groupUse := make([]int32, nSlots*e.nGroups)

	// fixed venues may be shared among their own sessions but not with others
	var venueUse []int32
	for i, a := range genes {
		if r := e.fixedRoom[i]; r >= 0 {
			if venueUse == nil {
				venueUse = make([]int32, nSlots*nRooms)
			}
			venueUse[a.Slot*nRooms+r]++
		}
	}

	for i, a := range genes {
		s := e.sessions[i]
		slot := e.catalog.Slot(a.Slot)

		if !s.HasFixedRoom() {
			k := a.Slot*nRooms + a.Room
			if roomUse[k] > 0 || (venueUse != nil && venueUse[k] > 0) {
				score.Hard += w.RoomClash
			}
			roomUse[k]++
			score.Hard += w.CapacityPenalty(s.Headcount, e.catalog.Room(a.Room).Capacity)
		}

		for _, g := range e.groupIDs[i] {
			k := a.Slot*e.nGroups + g
			if groupUse[k] > 0 {
				score.Hard += w.GroupClash
			}
			groupUse[k]++
		}

		if !e.eligibility.DayAllowed(s.Year, slot.Day) {
			score.Hard += w.IneligibleDay
		}
		if !e.eligibility.TimeAllowed(s.Year, slot.Start) {
			score.Hard += w.IneligibleTime
		}

		if anchors := e.anchors[i]; len(anchors) > 0 {
			first := e.catalog.Slot(genes[anchors[0]].Slot)
			for _, l := range anchors[1:] {
				if ls := e.catalog.Slot(genes[l].Slot); ls.Before(first) {
					first = ls
				}
			}
			if slot.Before(first) {
				score.Soft += w.Precedence
			}
		}
	}

	score.Soft += w.IdleGap * float64(e.idleGaps(groupUse))
	return score
}

// idleGaps counts, over every group and day, the unoccupied slot positions
// lying between the group's first and last session of that day.
func (e *Evaluator) idleGaps(groupUse []int32) int {
	gaps := 0
	for g := 0; g < e.nGroups; g++ {
		for _, day := range e.catalog.Days() {
			lo, hi, distinct := -1, -1, 0
			for _, slot := range e.catalog.SlotsOn(day) {
				if groupUse[slot*e.nGroups+g] == 0 {
					continue
				}
				pos := e.catalog.Position(slot)
				if lo < 0 {
					lo = pos
				}
				hi = pos
				distinct++
			}
			if distinct >= 2 {
				gaps += (hi - lo + 1) - distinct
			}
		}
	}
	return gaps
}
