// Package assignment implements the greedy Reviewer Assignment Engine
// (C6), grounded on assign_proposals and add_all_proposals_reviewers in
// original_source/notebooks/pyconde-pydata-darmstadt-2026/
// reviewer_assignment/helpers.py. The specification selects the
// buffer-subtracting variant of the two assignment-loop shapes that
// appear in the source (spec.md §9's Open Question).
package assignment

import (
	"fmt"
	"sort"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// Proposal is one assignment-engine input row (spec.md §4.5).
type Proposal struct {
	Code             string
	Track            string
	TargetReviews    int
	CompletedReviews int
}

// Reviewer is one assignment-engine input row.
type Reviewer struct {
	ID              string
	Email           string
	TrackPrefs      []string
	AlreadyAssigned []string
	WantsAll        bool
}

// Diagnostic is a non-fatal event recorded during assignment: today
// only NoReviewer, raised when no preference-matching reviewer exists
// for a proposal (spec.md §7).
type Diagnostic struct {
	Kind         string
	ProposalCode string
	Message      string
}

const DiagnosticNoReviewer = "no_reviewer"

// Result is the reviewer -> ordered proposal-code mapping (spec.md §3's
// Assignment type), plus any diagnostics collected along the way.
type Result struct {
	ByEmail     map[string][]string
	Diagnostics []Diagnostic
}

// Assign runs the greedy allocation algorithm of spec.md §4.5. aliases
// is the optional caller-supplied track-aliasing table (submission
// track name -> reviewer-preference track name); pass nil when no
// aliasing is needed.
func Assign(proposals []Proposal, reviewers []Reviewer, buffer int, aliases map[string]string) (*Result, error) {
	trackOf := make(map[string]string, len(proposals))
	for _, p := range proposals {
		t := p.Track
		if alias, ok := aliases[t]; ok {
			t = alias
		}
		trackOf[p.Code] = t
	}

	if err := checkTrackCoverage(proposals, reviewers, trackOf); err != nil {
		return nil, err
	}

	revs := newReviewerStates(reviewers)
	assignedCount := countAlreadyAssigned(revs)

	props := newProposalStates(proposals, trackOf, buffer, assignedCount)
	sort.SliceStable(props, func(i, j int) bool { return props[i].remaining > props[j].remaining })

	var diagnostics []Diagnostic
	runMainPass(props, revs, &diagnostics)
	applyWantsAll(proposals, revs)

	result := &Result{ByEmail: make(map[string][]string, len(revs)), Diagnostics: diagnostics}
	for _, rs := range revs {
		result.ByEmail[rs.email] = rs.current
	}
	return result, nil
}

func checkTrackCoverage(proposals []Proposal, reviewers []Reviewer, trackOf map[string]string) error {
	subTracks := make(map[string]bool)
	for _, p := range proposals {
		if t := trackOf[p.Code]; t != "" {
			subTracks[t] = true
		}
	}
	reviewerPrefs := make(map[string]bool)
	for _, r := range reviewers {
		for _, t := range r.TrackPrefs {
			reviewerPrefs[t] = true
		}
	}

	onlyInSubs := setDifference(subTracks, reviewerPrefs)
	onlyInRevs := setDifference(reviewerPrefs, subTracks)
	if len(onlyInSubs) > 0 || len(onlyInRevs) > 0 {
		return &apperrors.TrackMismatch{OnlyInSubmissions: onlyInSubs, OnlyInReviewers: onlyInRevs}
	}
	return nil
}

func setDifference(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type reviewerState struct {
	email      string
	prefs      map[string]bool
	current    []string
	currentSet map[string]bool
	wantsAll   bool
}

func newReviewerStates(reviewers []Reviewer) []*reviewerState {
	out := make([]*reviewerState, len(reviewers))
	for i, r := range reviewers {
		cur := append([]string(nil), r.AlreadyAssigned...)
		set := make(map[string]bool, len(cur))
		for _, c := range cur {
			set[c] = true
		}
		prefs := make(map[string]bool, len(r.TrackPrefs))
		for _, t := range r.TrackPrefs {
			prefs[t] = true
		}
		out[i] = &reviewerState{email: r.Email, prefs: prefs, current: cur, currentSet: set, wantsAll: r.WantsAll}
	}
	return out
}

func countAlreadyAssigned(revs []*reviewerState) map[string]int {
	counts := make(map[string]int)
	for _, rs := range revs {
		for _, code := range rs.current {
			counts[code]++
		}
	}
	return counts
}

type proposalState struct {
	code      string
	track     string
	remaining int
}

func newProposalStates(proposals []Proposal, trackOf map[string]string, buffer int, assignedCount map[string]int) []*proposalState {
	out := make([]*proposalState, len(proposals))
	for i, p := range proposals {
		target := p.TargetReviews - p.CompletedReviews
		if target < 0 {
			target = 0
		}

		rem := 0
		if target != 0 {
			rem = target + buffer - assignedCount[p.Code]
			if rem < 0 {
				rem = 0
			}
		}

		out[i] = &proposalState{code: p.Code, track: trackOf[p.Code], remaining: rem}
	}
	return out
}

// runMainPass repeatedly sweeps props in sorted order, assigning one
// reviewer per remaining proposal per sweep, until none have remaining
// work left (spec.md §4.5's "Iterate until all remaining reach 0").
func runMainPass(props []*proposalState, revs []*reviewerState, diagnostics *[]Diagnostic) {
	for {
		progressed := false
		for _, ps := range props {
			if ps.remaining <= 0 {
				continue
			}
			progressed = true

			idx := pickReviewer(revs, ps.code, ps.track, diagnostics)
			if idx == -1 {
				// Reviewer pool exhausted for this proposal: every
				// reviewer is already assigned it. No further progress
				// is possible, so stop trying rather than loop forever.
				ps.remaining = 0
				continue
			}

			rs := revs[idx]
			rs.current = append(rs.current, ps.code)
			rs.currentSet[ps.code] = true
			ps.remaining--
		}
		if !progressed {
			return
		}
	}
}

// pickReviewer selects the least-loaded reviewer who prefers track and
// is not already assigned code, ties broken by stable order of
// appearance. If no preference-matching reviewer exists, it falls back
// to the least-loaded non-excluded reviewer and records a diagnostic.
func pickReviewer(revs []*reviewerState, code, track string, diagnostics *[]Diagnostic) int {
	if idx := leastLoaded(revs, func(rs *reviewerState) bool {
		return rs.prefs[track] && !rs.currentSet[code]
	}); idx != -1 {
		return idx
	}

	*diagnostics = append(*diagnostics, Diagnostic{
		Kind:         DiagnosticNoReviewer,
		ProposalCode: code,
		Message:      fmt.Sprintf("no preferred reviewer for %s in track %q", code, track),
	})

	return leastLoaded(revs, func(rs *reviewerState) bool {
		return !rs.currentSet[code]
	})
}

func leastLoaded(revs []*reviewerState, eligible func(*reviewerState) bool) int {
	best := -1
	bestLoad := -1
	for i, rs := range revs {
		if !eligible(rs) {
			continue
		}
		load := len(rs.current)
		if best == -1 || load < bestLoad {
			best = i
			bestLoad = load
		}
	}
	return best
}

// applyWantsAll appends the full proposal-code set, in input order, to
// every wants-all reviewer's assignments (spec.md §4.5's final step).
func applyWantsAll(proposals []Proposal, revs []*reviewerState) {
	var allCodes []string
	for _, p := range proposals {
		allCodes = append(allCodes, p.Code)
	}

	for _, rs := range revs {
		if rs.wantsAll {
			rs.current = append(rs.current, allCodes...)
		}
	}
}
