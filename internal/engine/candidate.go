package engine

import "github.com/piwi3910/timetabler/internal/model"

// Assignment places one session in a room and a time slot. Both values are
// indexes into the catalog.
type Assignment struct {
	Room int `json:"room"`
	Slot int `json:"slot"`
}

// Candidate is one complete timetable: Genes[i] is the assignment of session i.
// The score is cached and must be invalidated whenever Genes changes.
type Candidate struct {
	Genes     []Assignment
	score     model.Score
	evaluated bool
}

// NewCandidate wraps genes in an unevaluated candidate.
func NewCandidate(genes []Assignment) *Candidate {
	return &Candidate{Genes: genes}
}

// Score returns the cached score and whether it is valid.
func (c *Candidate) Score() (model.Score, bool) {
	return c.score, c.evaluated
}

// Fitness returns the cached total penalty. It is only meaningful once the
// candidate has been evaluated.
func (c *Candidate) Fitness() float64 {
	return c.score.Total()
}

// Invalidate drops the cached score after the genes were modified.
func (c *Candidate) Invalidate() {
	c.evaluated = false
	c.score = model.Score{}
}

func (c *Candidate) setScore(s model.Score) {
	c.score = s
	c.evaluated = true
}

// Clone creates a deep copy of the candidate, keeping its cached score.
func (c *Candidate) Clone() *Candidate {
	genes := make([]Assignment, len(c.Genes))
	copy(genes, c.Genes)
	return &Candidate{Genes: genes, score: c.score, evaluated: c.evaluated}
}

// best returns the first candidate with the lowest total penalty.
func best(pop []*Candidate) *Candidate {
	var out *Candidate
	for _, c := range pop {
		if out == nil || c.Fitness() < out.Fitness() {
			out = c
		}
	}
	return out
}
