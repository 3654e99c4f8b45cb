package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCapacities(t *testing.T) {
	rooms := NormalizeCapacities([]RoomSpec{{ID: 1, Capacity: 50}, {ID: 2, Capacity: 150}, {ID: 3, Capacity: 100}})
	byID := map[int]float64{}
	for _, r := range rooms {
		byID[r.ID] = r.NormalizedCapacity
	}
	assert.Equal(t, float64(0), byID[1])
	assert.Equal(t, float64(1), byID[2])
	assert.Equal(t, 0.5, byID[3])
}

func TestNormalizeCapacities_AllEqual(t *testing.T) {
	rooms := NormalizeCapacities([]RoomSpec{{ID: 1, Capacity: 80}, {ID: 2, Capacity: 80}})
	for _, r := range rooms {
		assert.Equal(t, float64(1), r.NormalizedCapacity)
	}
}

func TestQuantize(t *testing.T) {
	assert.InDelta(t, 0.01, Quantize(0, 50), 1e-9)
	assert.InDelta(t, 0.99, Quantize(1, 50), 1e-9)
	assert.Equal(t, Quantize(0.5, 1), 0.5) // single level passes through
}

func TestBuildFitParams_PopularTalkPrefersLargerRoom(t *testing.T) {
	talks := []Talk{{Code: "A"}, {Code: "B"}}
	rooms := []RoomSpec{{ID: 1, Capacity: 50}, {ID: 2, Capacity: 500}}
	votes := map[string]int{"A": 0, "B": 100}

	fit := BuildFitParams(talks, rooms, votes)
	assert.Greater(t, fit[FitKey{Talk: "B", Room: 2}], fit[FitKey{Talk: "B", Room: 1}])
	assert.Greater(t, fit[FitKey{Talk: "B", Room: 2}], fit[FitKey{Talk: "A", Room: 2}])
}

func TestBuildCoocParams_DiagonalZeroedAndSymmetric(t *testing.T) {
	talks := []Talk{{Code: "A"}, {Code: "B"}, {Code: "C"}}
	voters := map[string]map[string]bool{
		"v1": {"A": true, "B": true},
		"v2": {"A": true, "B": true},
		"v3": {"C": true},
	}
	cooc := BuildCoocParams(talks, voters, 0)
	p := &Params{Cooc: cooc}
	assert.Greater(t, p.CoocValue("A", "B"), float64(0))
	assert.Equal(t, float64(0), p.CoocValue("A", "A"))
	assert.Equal(t, p.CoocValue("A", "B"), p.CoocValue("B", "A"))
	assert.Equal(t, float64(0), p.CoocValue("B", "C"))
}

func TestBuildCoocParams_SponsoredFloor(t *testing.T) {
	talks := []Talk{{Code: "S1", Sponsored: true}, {Code: "S2", Sponsored: true}}
	cooc := BuildCoocParams(talks, map[string]map[string]bool{}, 0.3)
	assert.Equal(t, 0.3, cooc[CoocKey{TalkA: "S1", TalkB: "S2"}])
}
