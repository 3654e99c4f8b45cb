package schedule

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// fakeInvoker writes a canned solution file instead of shelling out,
// since this module never runs the real solver during its own tests.
type fakeInvoker struct {
	solution string
	err      error
}

func (f *fakeInvoker) Invoke(_ context.Context, _, solutionPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(solutionPath, []byte(f.solution), 0o644)
}

func fortyFiveAndThirty() *Params {
	return &Params{
		Talks: []Talk{{Code: "T1", DurationMinutes: 45, MainTrack: "PyData"}},
		Slots: []Slot{
			{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 45},
			{Day: 1, Session: "morning", Position: 2, Room: 1, LengthMinutes: 30},
		},
		Rooms: []RoomSpec{{ID: 1, NormalizedCapacity: 1}},
	}
}

// Scenario 5 (spec.md §8): a 45-minute talk with one 45-minute slot and
// one 30-minute slot available places in the 45-minute slot.
func TestBuildModel_DurationFitHonoured(t *testing.T) {
	p := fortyFiveAndThirty()
	m := BuildModel(p)

	fitName := fmt.Sprintf("fit_%s", sanitize("T1"))
	var fitConstraint *Constraint
	for i := range m.Constraints {
		if m.Constraints[i].Name == fitName {
			fitConstraint = &m.Constraints[i]
		}
	}
	require.NotNil(t, fitConstraint, "fit constraint must exist")
	assert.Equal(t, EQ, fitConstraint.Sense)
	assert.Equal(t, float64(45), fitConstraint.RHS)

	// The 45-minute slot's x variable must carry coefficient 45 in the
	// fit constraint; the 30-minute slot's must carry 30.
	coeffs := make(map[string]float64)
	for _, term := range fitConstraint.Terms {
		coeffs[term.Var] = term.Coef
	}
	assert.Equal(t, float64(45), coeffs[xVarName("T1", p.Slots[0])])
	assert.Equal(t, float64(30), coeffs[xVarName("T1", p.Slots[1])])
}

func TestReconstruct_PlacesTalkInMatchingSlot(t *testing.T) {
	p := fortyFiveAndThirty()
	sol := Solution{
		xVarName("T1", p.Slots[0]): 1,
		xVarName("T1", p.Slots[1]): 0,
	}
	tt := Reconstruct(p, sol)
	require.Len(t, tt.Placements, 1)
	assert.Equal(t, "T1", tt.Placements[0].Talk)
	assert.Equal(t, 1, tt.Placements[0].Position)
	require.Len(t, tt.EmptySlots, 1)
	assert.Equal(t, 2, tt.EmptySlots[0].Position)
}

// Scenario 6 (spec.md §8): a talk should avoid a pref=-1 slot when a
// pref=0 alternative exists; the objective must make that slot strictly
// worse.
func TestBuildModel_PreferenceAvoidsPenalizedSlot(t *testing.T) {
	slotBad := Slot{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 30}
	slotGood := Slot{Day: 1, Session: "morning", Position: 2, Room: 1, LengthMinutes: 30}
	p := &Params{
		Talks: []Talk{{Code: "T1", DurationMinutes: 30}},
		Slots: []Slot{slotBad, slotGood},
		Rooms: []RoomSpec{{ID: 1, NormalizedCapacity: 1}},
		Pref: map[PrefKey]int{
			{Talk: "T1", Day: 1, Session: "morning", Position: 1, Room: 1}: -1,
		},
	}
	m := BuildModel(p)

	coeffs := make(map[string]float64)
	for _, term := range m.Objective {
		coeffs[term.Var] = term.Coef
	}
	assert.Less(t, coeffs[xVarName("T1", slotBad)], coeffs[xVarName("T1", slotGood)])
}

func TestLP_WriteParseRoundTrip(t *testing.T) {
	p := fortyFiveAndThirty()
	m := BuildModel(p)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))

	reparsed, err := ParseLP(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, m.Maximize, reparsed.Maximize)
	assert.Equal(t, len(m.Constraints), len(reparsed.Constraints))
	assert.Equal(t, len(m.Variables), len(reparsed.Variables))

	origObjCoefs := sumCoefsByVar(m.Objective)
	reparsedObjCoefs := sumCoefsByVar(reparsed.Objective)
	assert.Equal(t, origObjCoefs, reparsedObjCoefs)
}

func sumCoefsByVar(terms []Term) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range terms {
		out[t.Var] += t.Coef
	}
	return out
}

func TestParseSolution(t *testing.T) {
	input := "# comment\nx_T1_d1_morning_l1_r1 1\nx_T1_d1_morning_l2_r1 0.0\n\n"
	sol, err := ParseSolution(bytes.NewReader([]byte(input)))
	require.NoError(t, err)
	assert.Equal(t, float64(1), sol["x_T1_d1_morning_l1_r1"])
	assert.Equal(t, float64(0), sol["x_T1_d1_morning_l2_r1"])
}

func TestRun_EmptyTalkSetProducesEmptyTimetableNoError(t *testing.T) {
	dir := t.TempDir()
	tt, err := Run(context.Background(), &Params{}, RunConfig{RunID: "r1", WorkDir: dir})
	require.NoError(t, err)
	assert.Empty(t, tt.Placements)
}

func TestRun_InfeasibleSolverYieldsNoSchedule(t *testing.T) {
	dir := t.TempDir()
	p := fortyFiveAndThirty()
	_, err := Run(context.Background(), p, RunConfig{
		RunID:   "r2",
		WorkDir: dir,
		Invoker: &fakeInvoker{err: fmt.Errorf("exit status 1")},
	})
	require.Error(t, err)
	var noSchedule *apperrors.NoSchedule
	assert.ErrorAs(t, err, &noSchedule)
}

func TestRun_SuccessfulSolveReconstructsTimetable(t *testing.T) {
	dir := t.TempDir()
	p := fortyFiveAndThirty()
	solution := fmt.Sprintf("%s 1\n%s 0\n", xVarName("T1", p.Slots[0]), xVarName("T1", p.Slots[1]))
	tt, err := Run(context.Background(), p, RunConfig{
		RunID:   "r3",
		WorkDir: dir,
		Invoker: &fakeInvoker{solution: solution},
	})
	require.NoError(t, err)
	require.Len(t, tt.Placements, 1)
	assert.Equal(t, "T1", tt.Placements[0].Talk)
	assert.Equal(t, 1, tt.Placements[0].Position)

	// Success cleans up the run directory (spec.md §5).
	_, statErr := os.Stat(dir + "/r3")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ObserverSeesStateMachineTransitions(t *testing.T) {
	dir := t.TempDir()
	p := fortyFiveAndThirty()
	solution := fmt.Sprintf("%s 1\n", xVarName("T1", p.Slots[0]))

	var seen []State
	_, err := Run(context.Background(), p, RunConfig{
		RunID:    "r4",
		WorkDir:  dir,
		Invoker:  &fakeInvoker{solution: solution},
		Observer: func(tr Transition) { seen = append(seen, tr.State) },
	})
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateCollecting, StateBuilding, StateWriting, StateSolving, StateLoading, StateEmitting, StateEmitted,
	}, seen)
}

// TestBuildModel_ObjectiveOrderDeterministicAcrossRuns covers testable
// property 6 for the objective-term ordering specifically: multiple
// rooms and tracks force addObjective to walk map-keyed sets
// (distinctRooms, session keys), which must be sorted before emission
// or repeated builds from identical Params would serialize to
// different LP text depending on Go's randomized map iteration order.
func TestBuildModel_ObjectiveOrderDeterministicAcrossRuns(t *testing.T) {
	p := &Params{
		Talks: []Talk{
			{Code: "T1", DurationMinutes: 30, MainTrack: "PyData", SubTrack: "ML"},
			{Code: "T2", DurationMinutes: 30, MainTrack: "General", SubTrack: "Web"},
		},
		Slots: []Slot{
			{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 30},
			{Day: 1, Session: "morning", Position: 1, Room: 2, LengthMinutes: 30},
			{Day: 1, Session: "morning", Position: 1, Room: 3, LengthMinutes: 30},
		},
		Rooms: []RoomSpec{
			{ID: 1, NormalizedCapacity: 0.2},
			{ID: 2, NormalizedCapacity: 0.6},
			{ID: 3, NormalizedCapacity: 0.9},
		},
		Fit: map[FitKey]float64{
			{Talk: "T1", Room: 1}: 0.1, {Talk: "T1", Room: 2}: 0.4, {Talk: "T1", Room: 3}: 0.7,
			{Talk: "T2", Room: 1}: 0.3, {Talk: "T2", Room: 2}: 0.5, {Talk: "T2", Room: 3}: 0.2,
		},
	}

	var bufs []string
	for i := 0; i < 5; i++ {
		m := BuildModel(p)
		var buf bytes.Buffer
		require.NoError(t, WriteLP(&buf, m))
		bufs = append(bufs, buf.String())
	}
	for i := 1; i < len(bufs); i++ {
		assert.Equal(t, bufs[0], bufs[i], "BuildModel+WriteLP must be byte-identical across repeated runs")
	}
}

// TestBuildModel_PairedSessionRequiresExactlyOneAnchorChosen covers
// spec.md §4.6 constraint 4: two talks paired into consecutive slots
// must actually be forced together, not merely allowed together. The
// quorum constraint (Σ z == 1) is what does the forcing; without it
// every z can sit at 0 and the group scatters freely.
func TestBuildModel_PairedSessionRequiresExactlyOneAnchorChosen(t *testing.T) {
	p := &Params{
		Talks: []Talk{
			{Code: "T1", DurationMinutes: 30},
			{Code: "T2", DurationMinutes: 30},
		},
		Slots: []Slot{
			{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 30},
			{Day: 1, Session: "morning", Position: 2, Room: 1, LengthMinutes: 30},
		},
		Rooms:  []RoomSpec{{ID: 1, NormalizedCapacity: 1}},
		Paired: []PairedGroup{{Talks: []string{"T1", "T2"}}},
	}
	m := BuildModel(p)

	var quorum *Constraint
	for i := range m.Constraints {
		if m.Constraints[i].Name == "pair_0_choice" {
			quorum = &m.Constraints[i]
		}
	}
	require.NotNil(t, quorum, "paired group must emit a quorum constraint forcing exactly one anchor")
	assert.Equal(t, EQ, quorum.Sense)
	assert.Equal(t, float64(1), quorum.RHS)
	assert.Len(t, quorum.Terms, 1, "only one consecutive 2-slot run exists in this room/session")

	zVar := quorum.Terms[0].Var
	var disjunctionCount int
	for _, c := range m.Constraints {
		for _, term := range c.Terms {
			if term.Var == zVar && term.Coef == -1 {
				disjunctionCount++
			}
		}
	}
	assert.Equal(t, 2, disjunctionCount, "the chosen anchor's z must appear in one x>=z constraint per talk in the group")
}

func TestParams_CoocValueSymmetric(t *testing.T) {
	p := &Params{Cooc: map[CoocKey]float64{{TalkA: "A", TalkB: "B"}: 0.5}}
	assert.Equal(t, 0.5, p.CoocValue("A", "B"))
	assert.Equal(t, 0.5, p.CoocValue("B", "A"))
	assert.Equal(t, float64(0), p.CoocValue("A", "A"))
}
