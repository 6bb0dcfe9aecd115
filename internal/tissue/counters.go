package tissue

import "sort"

type counterKey struct {
	class string
	state State
}

// Counters tracks population by class and state, plus lifecycle events.
// They replace the process-wide cellularity table and belong to one run.
type Counters struct {
	counts    map[counterKey]int
	admitted  map[string]int
	divisions map[string]int
}

// NewCounters returns empty counters.
func NewCounters() *Counters {
	return &Counters{
		counts:    make(map[counterKey]int),
		admitted:  make(map[string]int),
		divisions: make(map[string]int),
	}
}

// Add changes the count of class cells in state by n.
func (c *Counters) Add(class string, state State, n int) {
	c.counts[counterKey{class, state}] += n
}

// Move records a state transition.
func (c *Counters) Move(class string, from, to State) {
	if from == to {
		return
	}
	c.Add(class, from, -1)
	c.Add(class, to, 1)
}

// Count returns the number of class cells in state.
func (c *Counters) Count(class string, state State) int {
	return c.counts[counterKey{class, state}]
}

// Live returns the number of class cells that have not been removed.
func (c *Counters) Live(class string) int {
	n := 0
	for k, v := range c.counts {
		if k.class == class && k.state != StateRemoved {
			n += v
		}
	}
	return n
}

// Admitted returns the number of cells of class added by input control.
func (c *Counters) Admitted(class string) int { return c.admitted[class] }

// Divisions returns the number of divisions by cells of class.
func (c *Counters) Divisions(class string) int { return c.divisions[class] }

// PopulationCount is one row of a population snapshot.
type PopulationCount struct {
	Class string
	State State
	Count int
}

// Snapshot returns every non-zero count ordered by class then state.
func (c *Counters) Snapshot() []PopulationCount {
	out := make([]PopulationCount, 0, len(c.counts))
	for k, v := range c.counts {
		if v != 0 {
			out = append(out, PopulationCount{Class: k.class, State: k.state, Count: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].State < out[j].State
	})
	return out
}
