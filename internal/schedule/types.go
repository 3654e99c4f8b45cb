// Package schedule implements the Schedule Optimization Engine (C7): a
// mixed-integer program over (talk, day, session, slot, room) decision
// variables, built in-process, solved by an out-of-process solver binary,
// and reconstructed into a timetable (spec.md §4.6). It is grounded on
// the constraint-based pipeline shape of
// internal/service/schedule_generator_service.go in the teacher repo
// (validated request -> state -> proposal -> stats), generalized from a
// greedy heuristic to an actual MIP builder/solver/reconstructor because
// spec.md §4.6 specifies decision variables, linearized auxiliaries, and
// a lexicographic weighted-sum objective that a greedy fill cannot honor.
package schedule

// Slot is one (day, session, position, room) quadruple with a declared
// duration (spec.md §3's Timetable slot). A slot with LengthMinutes == 0
// does not exist and is never instantiated as a decision variable.
type Slot struct {
	Day           int
	Session       string
	Position      int
	Room          int
	LengthMinutes int
}

// Talk is one accepted proposal competing for a slot.
type Talk struct {
	Code            string
	DurationMinutes int
	MainTrack       string
	SubTrack        string
	Sponsored       bool
}

// RoomSpec is one schedulable venue. NormalizedCapacity is derived by
// [NormalizeCapacities] from Capacity and is what the objective actually
// consults (spec.md §4.6's fit[t,r] parameter).
type RoomSpec struct {
	ID                 int
	Capacity           int
	NormalizedCapacity float64
}

// PrefKey addresses one entry of pref[t,d,s,l,r] (spec.md §4.6).
type PrefKey struct {
	Talk     string
	Day      int
	Session  string
	Position int
	Room     int
}

// FitKey addresses one entry of fit[t,r].
type FitKey struct {
	Talk string
	Room int
}

// CoocKey addresses one entry of cooc[t1,t2]; callers should supply both
// orderings or rely on CoocValue, which normalizes the pair.
type CoocKey struct {
	TalkA string
	TalkB string
}

// PairedGroup names a set of talk codes that a disjunction constraint
// forces into consecutive slots of a common room (spec.md §4.6
// constraint 4 — multi-part tutorials and similar paired sessions).
type PairedGroup struct {
	Talks []string
}

// Params bundles every set and parameter the MIP builder needs
// (spec.md §4.6 "Sets" and "Parameters").
type Params struct {
	Talks  []Talk
	Slots  []Slot
	Rooms  []RoomSpec
	Pref   map[PrefKey]int
	Fit    map[FitKey]float64
	Cooc   map[CoocKey]float64
	Paired []PairedGroup
}

// CoocValue looks up cooc[t1,t2], trying both orderings since the
// parameter is symmetric and the diagonal is zeroed by construction.
func (p *Params) CoocValue(t1, t2 string) float64 {
	if t1 == t2 {
		return 0
	}
	if v, ok := p.Cooc[CoocKey{t1, t2}]; ok {
		return v
	}
	return p.Cooc[CoocKey{t2, t1}]
}

// Placement is one talk's resolved (day, session, position, room).
type Placement struct {
	Talk     string
	Day      int
	Session  string
	Position int
	Room     int
}

// Timetable is C7's terminal output: the full set of placements for an
// accepted-talk set, plus the slots that remained empty.
type Timetable struct {
	Placements []Placement
	EmptySlots []Slot
}

// Diagnostic is a non-fatal note surfaced alongside a completed run; C7
// currently has none that aren't fatal, but the field exists so A7's job
// runner can render a uniform envelope across C6 and C7 results.
type Diagnostic struct {
	Kind    string
	Message string
}
