package schedule

import (
	"sort"
	"strconv"
	"strings"
)

// Reconstruct turns a solved variable assignment back into a Timetable
// (spec.md §4.6's "ingests a solution file, sets variable values, and
// reconstructs the timetable"). Only the x[t,d,s,l,r] family is
// consulted; the aggregate/linearization variables exist purely to
// shape the objective and constraints.
func Reconstruct(p *Params, sol Solution) *Timetable {
	existingSlots := make(map[string]Slot)
	for _, s := range p.Slots {
		if s.LengthMinutes <= 0 {
			continue
		}
		existingSlots[xSlotKey(s)] = s
	}

	placed := make(map[string]bool, len(p.Talks))
	var placements []Placement
	for _, t := range p.Talks {
		for key, s := range existingSlots {
			name := xVarName(t.Code, s)
			if sol[name] >= 0.5 {
				placements = append(placements, Placement{
					Talk: t.Code, Day: s.Day, Session: s.Session, Position: s.Position, Room: s.Room,
				})
				placed[key] = true
			}
		}
	}

	var empty []Slot
	for key, s := range existingSlots {
		if !placed[key] {
			empty = append(empty, s)
		}
	}

	sort.Slice(placements, func(i, j int) bool { return placements[i].Talk < placements[j].Talk })
	sort.Slice(empty, func(i, j int) bool {
		if empty[i].Day != empty[j].Day {
			return empty[i].Day < empty[j].Day
		}
		if empty[i].Session != empty[j].Session {
			return empty[i].Session < empty[j].Session
		}
		if empty[i].Position != empty[j].Position {
			return empty[i].Position < empty[j].Position
		}
		return empty[i].Room < empty[j].Room
	})

	return &Timetable{Placements: placements, EmptySlots: empty}
}

func xSlotKey(s Slot) string {
	return strings.Join([]string{
		strconv.Itoa(s.Day), s.Session, strconv.Itoa(s.Position), strconv.Itoa(s.Room),
	}, "|")
}
