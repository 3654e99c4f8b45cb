package schedule

import (
	"fmt"
	"sort"
)

// VarKind distinguishes the decision-variable domains the builder emits.
type VarKind int

const (
	// Binary variables are the x, co, mt, st families of spec.md §4.6.
	Binary VarKind = iota
	// Continuous variables back the linear auxiliaries x_room, x_par,
	// x_sess, which are sums of binaries and so take integer values in
	// any feasible solution but need no explicit integrality constraint.
	Continuous
)

// Variable is one column of the MIP.
type Variable struct {
	Name string
	Kind VarKind
	LB   float64
	UB   float64
}

// Term is one coefficient*variable pair in a constraint row or the
// objective.
type Term struct {
	Coef float64
	Var  string
}

// Sense is a constraint's relational operator.
type Sense string

const (
	LE Sense = "<="
	EQ Sense = "="
	GE Sense = ">="
)

// Constraint is one row of the MIP.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is the solver-agnostic MIP the builder produces; [WriteLP] turns
// it into an exchange-format file (spec.md §4.6 "Solve contract": "emit
// a standard MIP description to a file").
type Model struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   []Term
	Maximize    bool
}

// bigM returns len(Slots)+1, which exceeds the largest count of slots
// any session can offer. No constraint builder in this file calls it.
func bigM(p *Params) float64 {
	return float64(len(p.Slots) + 1)
}

func xVarName(talk string, s Slot) string {
	return fmt.Sprintf("x_%s_d%d_%s_l%d_r%d", sanitize(talk), s.Day, sanitize(s.Session), s.Position, s.Room)
}

func xRoomVarName(talk string, room int) string {
	return fmt.Sprintf("xroom_%s_r%d", sanitize(talk), room)
}

func xParVarName(talk string, s Slot) string {
	return fmt.Sprintf("xpar_%s_d%d_%s_l%d", sanitize(talk), s.Day, sanitize(s.Session), s.Position)
}

func xSessVarName(talk string, day int, session string, room int) string {
	return fmt.Sprintf("xsess_%s_d%d_%s_r%d", sanitize(talk), day, sanitize(session), room)
}

func coVarName(t1, t2 string) string {
	a, b := t1, t2
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("co_%s_%s", sanitize(a), sanitize(b))
}

func mtVarName(day int, session string, room int, mainTrack string) string {
	return fmt.Sprintf("mt_d%d_%s_r%d_%s", day, sanitize(session), room, sanitize(mainTrack))
}

func stVarName(day int, session string, room int, subTrack string) string {
	return fmt.Sprintf("st_d%d_%s_r%d_%s", day, sanitize(session), room, sanitize(subTrack))
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "v"
	}
	return string(out)
}

// sessionKey groups slots sharing a (day, session, room) for the
// x_sess/mt/st aggregations.
type sessionKey struct {
	Day     int
	Session string
	Room    int
}

// parKey groups slots sharing a (day, session, position) across rooms
// for the co/x_par aggregations.
type parKey struct {
	Day      int
	Session  string
	Position int
}

// BuildModel translates Params into the MIP of spec.md §4.6: one binary
// x per (talk, existing slot), the x_room/x_par/co/x_sess/mt/st
// auxiliaries and their linearizations, the four named constraint
// families, and the lexicographic weighted-sum objective.
func BuildModel(p *Params) *Model {
	m := &Model{Maximize: true}

	existingSlots := make([]Slot, 0, len(p.Slots))
	for _, s := range p.Slots {
		if s.LengthMinutes > 0 {
			existingSlots = append(existingSlots, s)
		}
	}

	addXVars(m, p, existingSlots)
	addDurationAndUniquenessConstraints(m, p, existingSlots)
	addRoomAggregate(m, p, existingSlots)
	addParAndCoAggregates(m, p, existingSlots)
	addSessionAndTrackAggregates(m, p, existingSlots)
	addPairedSessionConstraints(m, p, existingSlots)
	addObjective(m, p, existingSlots)

	return m
}

func addXVars(m *Model, p *Params, slots []Slot) {
	for _, t := range p.Talks {
		for _, s := range slots {
			m.Variables = append(m.Variables, Variable{Name: xVarName(t.Code, s), Kind: Binary, LB: 0, UB: 1})
		}
	}
}

// addDurationAndUniquenessConstraints encodes constraints 1-3 of
// spec.md §4.6: each talk occupies exactly one slot whose length equals
// its duration (length fit, folded into "scheduled once" by only giving
// nonzero objective/feasibility to matching-length slots via the RHS
// trick below), and no slot holds more than one talk.
func addDurationAndUniquenessConstraints(m *Model, p *Params, slots []Slot) {
	for _, t := range p.Talks {
		var terms []Term
		var lengthTerms []Term
		for _, s := range slots {
			v := xVarName(t.Code, s)
			terms = append(terms, Term{Coef: 1, Var: v})
			lengthTerms = append(lengthTerms, Term{Coef: float64(s.LengthMinutes), Var: v})
		}
		// Constraint 3: scheduled exactly once.
		m.Constraints = append(m.Constraints, Constraint{
			Name: fmt.Sprintf("once_%s", sanitize(t.Code)), Terms: terms, Sense: EQ, RHS: 1,
		})
		// Constraint 1: the one slot picked has matching length. Since
		// exactly one x is 1, sum(length*x) equals that slot's length;
		// constraining it to DurationMinutes forces the match.
		m.Constraints = append(m.Constraints, Constraint{
			Name: fmt.Sprintf("fit_%s", sanitize(t.Code)), Terms: lengthTerms, Sense: EQ, RHS: float64(t.DurationMinutes),
		})
	}

	bySlot := make(map[string][]string)
	slotOrder := make([]string, 0)
	for _, s := range slots {
		key := fmt.Sprintf("d%d_%s_l%d_r%d", s.Day, sanitize(s.Session), s.Position, s.Room)
		if _, seen := bySlot[key]; !seen {
			slotOrder = append(slotOrder, key)
		}
		for _, t := range p.Talks {
			bySlot[key] = append(bySlot[key], xVarName(t.Code, s))
		}
	}
	sort.Strings(slotOrder)
	// Constraint 2: each slot hosts at most one talk.
	for _, key := range slotOrder {
		var terms []Term
		for _, v := range bySlot[key] {
			terms = append(terms, Term{Coef: 1, Var: v})
		}
		m.Constraints = append(m.Constraints, Constraint{
			Name: fmt.Sprintf("capacity_%s", key), Terms: terms, Sense: LE, RHS: 1,
		})
	}
}

// addRoomAggregate defines x_room[t,r] = sum_{d,s,l} x[t,d,s,l,r].
func addRoomAggregate(m *Model, p *Params, slots []Slot) {
	for _, t := range p.Talks {
		byRoom := make(map[int][]Slot)
		for _, s := range slots {
			byRoom[s.Room] = append(byRoom[s.Room], s)
		}
		rooms := make([]int, 0, len(byRoom))
		for r := range byRoom {
			rooms = append(rooms, r)
		}
		sort.Ints(rooms)
		for _, r := range rooms {
			name := xRoomVarName(t.Code, r)
			m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, LB: 0, UB: 1})
			terms := []Term{{Coef: -1, Var: name}}
			for _, s := range byRoom[r] {
				terms = append(terms, Term{Coef: 1, Var: xVarName(t.Code, s)})
			}
			m.Constraints = append(m.Constraints, Constraint{
				Name: fmt.Sprintf("xroom_def_%s_r%d", sanitize(t.Code), r), Terms: terms, Sense: EQ, RHS: 0,
			})
		}
	}
}

// addParAndCoAggregates defines x_par[t,d,s,l] = sum_r x[t,d,s,l,r] and
// linearizes co[t1,t2] with co+1 >= x_par[t1]+x_par[t2] for every
// (d,s,l) the pair could collide on (spec.md §4.6's co linearization).
func addParAndCoAggregates(m *Model, p *Params, slots []Slot) {
	byPar := make(map[parKey][]Slot)
	for _, s := range slots {
		byPar[parKey{s.Day, s.Session, s.Position}] = append(byPar[parKey{s.Day, s.Session, s.Position}], s)
	}
	parKeys := sortedParKeys(byPar)

	xParNames := make(map[string]map[parKey]string)
	for _, t := range p.Talks {
		xParNames[t.Code] = make(map[parKey]string)
		for _, pk := range parKeys {
			name := xParVarName(t.Code, byPar[pk][0])
			xParNames[t.Code][pk] = name
			m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, LB: 0, UB: 1})
			terms := []Term{{Coef: -1, Var: name}}
			for _, s := range byPar[pk] {
				terms = append(terms, Term{Coef: 1, Var: xVarName(t.Code, s)})
			}
			m.Constraints = append(m.Constraints, Constraint{
				Name: fmt.Sprintf("xpar_def_%s_d%d_%s_l%d", sanitize(t.Code), pk.Day, sanitize(pk.Session), pk.Position),
				Terms: terms, Sense: EQ, RHS: 0,
			})
		}
	}

	for i := 0; i < len(p.Talks); i++ {
		for j := i + 1; j < len(p.Talks); j++ {
			t1, t2 := p.Talks[i].Code, p.Talks[j].Code
			coName := coVarName(t1, t2)
			m.Variables = append(m.Variables, Variable{Name: coName, Kind: Binary, LB: 0, UB: 1})
			for _, pk := range parKeys {
				terms := []Term{
					{Coef: 1, Var: coName},
					{Coef: -1, Var: xParNames[t1][pk]},
					{Coef: -1, Var: xParNames[t2][pk]},
				}
				m.Constraints = append(m.Constraints, Constraint{
					Name:  fmt.Sprintf("co_link_%s_%s_d%d_%s_l%d", sanitize(t1), sanitize(t2), pk.Day, sanitize(pk.Session), pk.Position),
					Terms: terms, Sense: GE, RHS: -1,
				})
			}
		}
	}
}

func sortedParKeys(byPar map[parKey][]Slot) []parKey {
	keys := make([]parKey, 0, len(byPar))
	for k := range byPar {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		if keys[i].Session != keys[j].Session {
			return keys[i].Session < keys[j].Session
		}
		return keys[i].Position < keys[j].Position
	})
	return keys
}

// addSessionAndTrackAggregates defines x_sess[t,d,s,r] = sum_l x[...]
// and the mt/st homogeneity indicators with their big-M linearization:
// |L|*mt >= sum_t x_sess[t,d,s,r]*talk_to_main[t,m].
func addSessionAndTrackAggregates(m *Model, p *Params, slots []Slot) {
	bySession := make(map[sessionKey][]Slot)
	for _, s := range slots {
		bySession[sessionKey{s.Day, s.Session, s.Room}] = append(bySession[sessionKey{s.Day, s.Session, s.Room}], s)
	}
	sessionKeys := sortedSessionKeys(bySession)

	xSessNames := make(map[string]map[sessionKey]string)
	for _, t := range p.Talks {
		xSessNames[t.Code] = make(map[sessionKey]string)
		for _, sk := range sessionKeys {
			name := xSessVarName(t.Code, sk.Day, sk.Session, sk.Room)
			xSessNames[t.Code][sk] = name
			m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, LB: 0, UB: 1})
			terms := []Term{{Coef: -1, Var: name}}
			for _, s := range bySession[sk] {
				terms = append(terms, Term{Coef: 1, Var: xVarName(t.Code, s)})
			}
			m.Constraints = append(m.Constraints, Constraint{
				Name:  fmt.Sprintf("xsess_def_%s_d%d_%s_r%d", sanitize(t.Code), sk.Day, sanitize(sk.Session), sk.Room),
				Terms: terms, Sense: EQ, RHS: 0,
			})
		}
	}

	mainTracks := distinctTracks(p.Talks, func(t Talk) string { return t.MainTrack })
	subTracks := distinctTracks(p.Talks, func(t Talk) string { return t.SubTrack })

	for _, sk := range sessionKeys {
		slotCount := float64(len(bySession[sk]))
		for _, mtTrack := range mainTracks {
			mtName := mtVarName(sk.Day, sk.Session, sk.Room, mtTrack)
			m.Variables = append(m.Variables, Variable{Name: mtName, Kind: Binary, LB: 0, UB: 1})
			terms := []Term{{Coef: slotCount, Var: mtName}}
			for _, t := range p.Talks {
				if t.MainTrack != mtTrack {
					continue
				}
				terms = append(terms, Term{Coef: -1, Var: xSessNames[t.Code][sk]})
			}
			m.Constraints = append(m.Constraints, Constraint{
				Name: fmt.Sprintf("mt_link_%s_d%d_%s_r%d", sanitize(mtTrack), sk.Day, sanitize(sk.Session), sk.Room),
				Terms: terms, Sense: GE, RHS: 0,
			})
		}
		for _, subTrack := range subTracks {
			stName := stVarName(sk.Day, sk.Session, sk.Room, subTrack)
			m.Variables = append(m.Variables, Variable{Name: stName, Kind: Binary, LB: 0, UB: 1})
			terms := []Term{{Coef: slotCount, Var: stName}}
			for _, t := range p.Talks {
				if t.SubTrack != subTrack {
					continue
				}
				terms = append(terms, Term{Coef: -1, Var: xSessNames[t.Code][sk]})
			}
			m.Constraints = append(m.Constraints, Constraint{
				Name: fmt.Sprintf("st_link_%s_d%d_%s_r%d", sanitize(subTrack), sk.Day, sanitize(sk.Session), sk.Room),
				Terms: terms, Sense: GE, RHS: 0,
			})
		}
	}
}

func sortedSessionKeys(bySession map[sessionKey][]Slot) []sessionKey {
	keys := make([]sessionKey, 0, len(bySession))
	for k := range bySession {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		if keys[i].Session != keys[j].Session {
			return keys[i].Session < keys[j].Session
		}
		return keys[i].Room < keys[j].Room
	})
	return keys
}

func distinctTracks(talks []Talk, pick func(Talk) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range talks {
		v := pick(t)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// addPairedSessionConstraints forces every talk in a PairedGroup into
// consecutive slots of a shared room via a big-M disjunction: for each
// candidate anchor slot, a binary z selects that run. x[talk,run[idx]]
// - z >= 0 forces every talk in the group onto the run's slots whenever
// its z is chosen, and Σ z over every candidate anchor == 1 forces
// exactly one anchor to be chosen (spec.md §4.6 constraint 4) — without
// that sum-to-one constraint every z can stay 0 and the group scatters
// freely, satisfying x - z >= 0 vacuously.
func addPairedSessionConstraints(m *Model, p *Params, slots []Slot) {
	for gi, group := range p.Paired {
		if len(group.Talks) < 2 {
			continue
		}
		byRoomDaySession := make(map[sessionKey][]Slot)
		for _, s := range slots {
			byRoomDaySession[sessionKey{s.Day, s.Session, s.Room}] = append(byRoomDaySession[sessionKey{s.Day, s.Session, s.Room}], s)
		}

		sessionKeys := make([]sessionKey, 0, len(byRoomDaySession))
		for sk := range byRoomDaySession {
			sessionKeys = append(sessionKeys, sk)
		}
		sort.Slice(sessionKeys, func(i, j int) bool {
			if sessionKeys[i].Day != sessionKeys[j].Day {
				return sessionKeys[i].Day < sessionKeys[j].Day
			}
			if sessionKeys[i].Session != sessionKeys[j].Session {
				return sessionKeys[i].Session < sessionKeys[j].Session
			}
			return sessionKeys[i].Room < sessionKeys[j].Room
		})

		var groupZVars []string
		for _, sk := range sessionKeys {
			sessionSlots := byRoomDaySession[sk]
			sort.Slice(sessionSlots, func(i, j int) bool { return sessionSlots[i].Position < sessionSlots[j].Position })
			for anchor := 0; anchor+len(group.Talks) <= len(sessionSlots); anchor++ {
				run := sessionSlots[anchor : anchor+len(group.Talks)]
				consecutive := true
				for k := 1; k < len(run); k++ {
					if run[k].Position != run[k-1].Position+1 {
						consecutive = false
						break
					}
				}
				if !consecutive {
					continue
				}
				z := fmt.Sprintf("pair_%d_d%d_%s_r%d_a%d", gi, sk.Day, sanitize(sk.Session), sk.Room, anchor)
				m.Variables = append(m.Variables, Variable{Name: z, Kind: Binary, LB: 0, UB: 1})
				groupZVars = append(groupZVars, z)
				for idx, talkCode := range group.Talks {
					terms := []Term{
						{Coef: 1, Var: xVarName(talkCode, run[idx])},
						{Coef: -1, Var: z},
					}
					m.Constraints = append(m.Constraints, Constraint{
						Name:  fmt.Sprintf("pair_%d_%s_a%d_t%d", gi, sanitize(talkCode), anchor, idx),
						Terms: terms, Sense: GE, RHS: 0,
					})
				}
			}
		}

		quorum := make([]Term, len(groupZVars))
		for i, z := range groupZVars {
			quorum[i] = Term{Coef: 1, Var: z}
		}
		m.Constraints = append(m.Constraints, Constraint{
			Name:  fmt.Sprintf("pair_%d_choice", gi),
			Terms: quorum, Sense: EQ, RHS: 1,
		})
	}
}

// addObjective assembles the lexicographic weighted sum of spec.md
// §4.6: 10^8*pref + 10^6*fit (room-weighted) - 10^4*cooc (dispersion,
// so co is penalized) - 10^2*mt - st. The sign convention here keeps
// the model a single "maximize" direction: preference and fit terms
// are added, co/mt/st terms are subtracted because spec.md's own
// objective already carries their minus sign.
func addObjective(m *Model, p *Params, slots []Slot) {
	const (
		wPref = 1e8
		wFit  = 1e6
		wCooc = 1e4
		wMT   = 1e2
		wST   = 1
	)

	for _, t := range p.Talks {
		for _, s := range slots {
			key := PrefKey{Talk: t.Code, Day: s.Day, Session: s.Session, Position: s.Position, Room: s.Room}
			if pv, ok := p.Pref[key]; ok && pv != 0 {
				m.Objective = append(m.Objective, Term{Coef: wPref * float64(pv), Var: xVarName(t.Code, s)})
			}
		}
		for _, room := range sortedRoomNumbers(distinctRooms(slots)) {
			fv := p.Fit[FitKey{Talk: t.Code, Room: room}]
			if fv != 0 {
				m.Objective = append(m.Objective, Term{Coef: wFit * fv, Var: xRoomVarName(t.Code, room)})
			}
		}
	}

	for i := 0; i < len(p.Talks); i++ {
		for j := i + 1; j < len(p.Talks); j++ {
			t1, t2 := p.Talks[i].Code, p.Talks[j].Code
			cv := p.CoocValue(t1, t2)
			if cv != 0 {
				m.Objective = append(m.Objective, Term{Coef: -wCooc * cv, Var: coVarName(t1, t2)})
			}
		}
	}

	bySession := make(map[sessionKey]bool)
	for _, s := range slots {
		bySession[sessionKey{s.Day, s.Session, s.Room}] = true
	}
	mainTracks := distinctTracks(p.Talks, func(t Talk) string { return t.MainTrack })
	subTracks := distinctTracks(p.Talks, func(t Talk) string { return t.SubTrack })
	for _, sk := range sortedSessionKeySet(bySession) {
		for _, mtTrack := range mainTracks {
			m.Objective = append(m.Objective, Term{Coef: -wMT, Var: mtVarName(sk.Day, sk.Session, sk.Room, mtTrack)})
		}
		for _, subTrack := range subTracks {
			m.Objective = append(m.Objective, Term{Coef: -wST, Var: stVarName(sk.Day, sk.Session, sk.Room, subTrack)})
		}
	}
}

// sortedRoomNumbers and sortedSessionKeySet impose a stable iteration
// order over the room/session sets the objective walks, so repeated
// builds from identical Params emit byte-identical term orderings
// (spec.md §8's determinism property) regardless of Go's randomized
// map iteration order.
func sortedRoomNumbers(rooms map[int]bool) []int {
	out := make([]int, 0, len(rooms))
	for r := range rooms {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

func sortedSessionKeySet(sessions map[sessionKey]bool) []sessionKey {
	out := make([]sessionKey, 0, len(sessions))
	for sk := range sessions {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].Session != out[j].Session {
			return out[i].Session < out[j].Session
		}
		return out[i].Room < out[j].Room
	})
	return out
}

func distinctRooms(slots []Slot) map[int]bool {
	out := make(map[int]bool)
	for _, s := range slots {
		out[s.Room] = true
	}
	return out
}
