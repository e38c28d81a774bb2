package engine

import (
	"testing"

	"github.com/piwi3910/timetabler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestCatalog builds rooms of the given capacities and, for each day,
// four consecutive morning slots starting at 08:00.
func makeTestCatalog(t *testing.T, capacities []int, days ...model.Weekday) *model.Catalog {
	t.Helper()
	var rooms []model.Room
	for i, c := range capacities {
		rooms = append(rooms, model.Room{Code: string(rune('A' + i)), Capacity: c, Available: true})
	}
	var slots []model.TimeSlot
	for _, d := range days {
		for h := 8; h < 12; h++ {
			slots = append(slots, model.TimeSlot{
				ID:    d.String() + string(rune('0'+h-8)),
				Day:   d,
				Start: model.NewClock(h, 0),
				End:   model.NewClock(h, 50),
			})
		}
	}
	cat, err := model.NewCatalog(rooms, slots, nil)
	require.NoError(t, err)
	return cat
}

func session(i int, cat model.Category, headcount int, groups ...string) model.Session {
	return model.Session{
		Index:      i,
		Groups:     groups,
		Programme:  "IT",
		Year:       1,
		CourseCode: "IT101",
		CourseName: "Programming",
		Category:   cat,
		Headcount:  headcount,
	}
}

func newTestEvaluator(t *testing.T, sessions []model.Session, cat *model.Catalog) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(sessions, cat, model.Eligibility{}, DefaultWeights())
	require.NoError(t, err)
	return ev
}

func TestScore_ScenarioA_DistinctPlacementsAreFeasible(t *testing.T) {
	cat := makeTestCatalog(t, []int{40, 40}, model.Monday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 20, "G1"),
		session(1, model.CategoryLecture, 20, "G2"),
		session(2, model.CategoryLecture, 20, "G3"),
	}
	ev := newTestEvaluator(t, sessions, cat)

	score := ev.Score([]Assignment{{Room: 0, Slot: 0}, {Room: 1, Slot: 0}, {Room: 0, Slot: 3}})
	assert.Equal(t, 0.0, score.Hard)
	assert.True(t, score.Feasible())
}

func TestScore_ScenarioB_GroupClash(t *testing.T) {
	cat := makeTestCatalog(t, []int{40, 40}, model.Monday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 20, "G1"),
		{Index: 1, Groups: []string{"G1"}, Programme: "IT", Year: 1, CourseCode: "IT102", Category: model.CategoryLecture, Headcount: 20},
	}
	ev := newTestEvaluator(t, sessions, cat)

	score := ev.Score([]Assignment{{Room: 0, Slot: 1}, {Room: 1, Slot: 1}})
	assert.Equal(t, DefaultWeights().GroupClash, score.Hard)
}

func TestScore_ScenarioC_CapacityGrowsWithOverage(t *testing.T) {
	cat := makeTestCatalog(t, []int{30, 35}, model.Monday)
	sessions := []model.Session{session(0, model.CategoryLecture, 40, "G1")}
	ev := newTestEvaluator(t, sessions, cat)

	small := ev.Score([]Assignment{{Room: 0, Slot: 0}})
	larger := ev.Score([]Assignment{{Room: 1, Slot: 0}})
	assert.Greater(t, small.Hard, larger.Hard)
	assert.Greater(t, larger.Hard, 0.0)
}

func TestCapacityPenaltyStrictlyIncreasing(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.0, w.CapacityPenalty(30, 30))
	assert.Equal(t, 0.0, w.CapacityPenalty(10, 30))

	prev := 0.0
	for over := 1; over <= 25; over++ {
		p := w.CapacityPenalty(30+over, 30)
		assert.Greater(t, p, prev, "overage %d", over)
		prev = p
	}
}

func TestScore_RoomClashScalesWithK(t *testing.T) {
	cat := makeTestCatalog(t, []int{100}, model.Monday)
	var sessions []model.Session
	for i := 0; i < 4; i++ {
		sessions = append(sessions, session(i, model.CategoryPractice, 10, string(rune('A'+i))))
	}
	ev := newTestEvaluator(t, sessions, cat)
	w := DefaultWeights()

	for k := 1; k <= 4; k++ {
		genes := make([]Assignment, 4)
		for i := range genes {
			if i < k {
				genes[i] = Assignment{Room: 0, Slot: 0}
			} else {
				genes[i] = Assignment{Room: 0, Slot: i}
			}
		}
		assert.Equal(t, float64(k-1)*w.RoomClash, ev.Score(genes).Hard, "k=%d", k)
	}
}

func TestScore_MergedLectureCountsEveryGroup(t *testing.T) {
	cat := makeTestCatalog(t, []int{100, 100}, model.Monday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 50, "G1", "G2"),
		{Index: 1, Groups: []string{"G2"}, Programme: "IT", Year: 1, CourseCode: "IT101", Category: model.CategoryPractice, Headcount: 25},
	}
	ev := newTestEvaluator(t, sessions, cat)

	score := ev.Score([]Assignment{{Room: 0, Slot: 0}, {Room: 1, Slot: 0}})
	assert.Equal(t, DefaultWeights().GroupClash, score.Hard)
}

func TestScore_FixedVenueExemptFromRoomClash(t *testing.T) {
	cat := makeTestCatalog(t, []int{10}, model.Monday)
	pe := func(i int, group string) model.Session {
		s := session(i, model.CategoryPractice, 30, group)
		s.FixedRoom = "Gym"
		return s
	}
	sessions := []model.Session{pe(0, "G1"), pe(1, "G2")}
	ev := newTestEvaluator(t, sessions, cat)

	score := ev.Score([]Assignment{{Room: 0, Slot: 0}, {Room: 0, Slot: 0}})
	assert.Equal(t, 0.0, score.Hard)
}

func TestScore_FixedVenueBlocksOtherSessions(t *testing.T) {
	rooms := []model.Room{
		{Code: "Gym", Capacity: 200, Available: true},
		{Code: "R1", Capacity: 50, Available: true},
	}
	slots := []model.TimeSlot{
		{ID: "s1", Day: model.Monday, Start: model.NewClock(9, 0), End: model.NewClock(9, 50)},
		{ID: "s2", Day: model.Monday, Start: model.NewClock(10, 0), End: model.NewClock(10, 50)},
	}
	cat, err := model.NewCatalog(rooms, slots, nil)
	require.NoError(t, err)
	require.Equal(t, 0, cat.RoomIndex("GYM"))

	pe := session(0, model.CategoryPractice, 30, "G1")
	pe.FixedRoom = "gym"
	other := session(1, model.CategoryLecture, 30, "G2")
	other.CourseName = "Algorithms"
	third := session(2, model.CategoryLecture, 30, "G3")
	ev := newTestEvaluator(t, []model.Session{pe, other, third}, cat)

	// PE keeps the gym to itself at 09:00
	score := ev.Score([]Assignment{{Room: 1, Slot: 0}, {Room: 0, Slot: 0}, {Room: 1, Slot: 1}})
	assert.Equal(t, 1000.0, score.Hard)

	// a second session in the gym adds an ordinary room clash
	score = ev.Score([]Assignment{{Room: 1, Slot: 0}, {Room: 0, Slot: 0}, {Room: 0, Slot: 0}})
	assert.Equal(t, 2000.0, score.Hard)

	// the gym is free once PE is elsewhere in time
	score = ev.Score([]Assignment{{Room: 1, Slot: 1}, {Room: 0, Slot: 0}, {Room: 1, Slot: 1}})
	assert.Equal(t, 0.0, score.Hard)
}

func TestScore_YearEligibility(t *testing.T) {
	cat := makeTestCatalog(t, []int{40}, model.Monday, model.Thursday)
	s := session(0, model.CategoryLecture, 20, "G1")
	s.Year = 3
	rules := model.NewEligibility([]model.YearRule{
		{Year: 3, ExcludedDays: []model.Weekday{model.Thursday}, LatestStart: model.NewClock(10, 0)},
	})
	ev, err := NewEvaluator([]model.Session{s}, cat, rules, DefaultWeights())
	require.NoError(t, err)
	w := DefaultWeights()

	thursday := cat.SlotsOn(model.Thursday)
	monday := cat.SlotsOn(model.Monday)

	assert.Equal(t, 0.0, ev.Score([]Assignment{{Slot: monday[0]}}).Hard)
	assert.Equal(t, w.IneligibleDay, ev.Score([]Assignment{{Slot: thursday[0]}}).Hard)
	assert.Equal(t, w.IneligibleTime, ev.Score([]Assignment{{Slot: monday[3]}}).Hard)
	assert.Equal(t, w.IneligibleDay+w.IneligibleTime, ev.Score([]Assignment{{Slot: thursday[3]}}).Hard)
}

func TestScore_IdleGaps(t *testing.T) {
	cat := makeTestCatalog(t, []int{40, 40}, model.Monday, model.Tuesday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 20, "G1"),
		{Index: 1, Groups: []string{"G1"}, Programme: "IT", Year: 1, CourseCode: "IT102", Category: model.CategoryLecture, Headcount: 20},
	}
	ev := newTestEvaluator(t, sessions, cat)
	w := DefaultWeights()
	mon := cat.SlotsOn(model.Monday)
	tue := cat.SlotsOn(model.Tuesday)

	contiguous := ev.Score([]Assignment{{Slot: mon[0]}, {Room: 1, Slot: mon[1]}})
	assert.Equal(t, 0.0, contiguous.Soft)

	oneGap := ev.Score([]Assignment{{Slot: mon[0]}, {Room: 1, Slot: mon[2]}})
	twoGaps := ev.Score([]Assignment{{Slot: mon[0]}, {Room: 1, Slot: mon[3]}})
	assert.Equal(t, w.IdleGap, oneGap.Soft)
	assert.Equal(t, 2*w.IdleGap, twoGaps.Soft)

	split := ev.Score([]Assignment{{Slot: mon[0]}, {Room: 1, Slot: tue[3]}})
	assert.Equal(t, 0.0, split.Soft)
}

func TestScore_PracticeBeforeLecture(t *testing.T) {
	cat := makeTestCatalog(t, []int{40, 40}, model.Monday, model.Tuesday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 20, "G1"),
		session(1, model.CategoryLab, 20, "G1"),
	}
	ev := newTestEvaluator(t, sessions, cat)
	mon := cat.SlotsOn(model.Monday)
	tue := cat.SlotsOn(model.Tuesday)

	after := ev.Score([]Assignment{{Slot: mon[0]}, {Room: 1, Slot: tue[0]}})
	before := ev.Score([]Assignment{{Slot: tue[0]}, {Room: 1, Slot: mon[0]}})
	assert.Equal(t, 0.0, after.Soft)
	assert.Equal(t, DefaultWeights().Precedence, before.Soft)
}

func TestScore_IsDeterministic(t *testing.T) {
	cat := makeTestCatalog(t, []int{20, 40}, model.Monday, model.Tuesday)
	sessions := []model.Session{
		session(0, model.CategoryLecture, 35, "G1", "G2"),
		session(1, model.CategoryPractice, 20, "G1"),
		session(2, model.CategoryLab, 20, "G2"),
	}
	ev := newTestEvaluator(t, sessions, cat)
	genes := []Assignment{{Room: 0, Slot: 5}, {Room: 0, Slot: 5}, {Room: 1, Slot: 0}}

	first := ev.Score(genes)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ev.Score(genes))
	}
}

func TestNewEvaluator_RejectsMisalignedSessions(t *testing.T) {
	cat := makeTestCatalog(t, []int{20}, model.Monday)
	_, err := NewEvaluator([]model.Session{session(1, model.CategoryLab, 1, "G")}, cat, nil, DefaultWeights())
	assert.Error(t, err)
}
