package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytanis-go/pretalx-core/internal/schedule"
)

// TestScheduleRequest_DerivesFitFromVoteCounts covers wiring schedule's
// BuildFitParams into the admin trigger surface: a request that omits
// an explicit Fit table but supplies raw vote counts gets Fit derived
// instead of left empty.
func TestScheduleRequest_DerivesFitFromVoteCounts(t *testing.T) {
	req := ScheduleRequest{
		Talks: []TalkDTO{{Code: "T1", DurationMinutes: 30}},
		Rooms: []RoomDTO{{ID: 1, Capacity: 100}, {ID: 2, Capacity: 50}},
		Slots: []SlotDTO{{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 30}},
		VoteCounts: map[string]int{
			"T1": 10,
		},
	}
	params := req.toParams()
	require.NotEmpty(t, params.Fit, "fit must be derived when VoteCounts is supplied and Fit is empty")
}

// TestScheduleRequest_ExplicitFitTakesPrecedence covers the case where
// a caller supplies both VoteCounts and an explicit Fit table: the
// explicit table wins and BuildFitParams is not consulted.
func TestScheduleRequest_ExplicitFitTakesPrecedence(t *testing.T) {
	req := ScheduleRequest{
		Talks:      []TalkDTO{{Code: "T1", DurationMinutes: 30}},
		Rooms:      []RoomDTO{{ID: 1, Capacity: 100}},
		Slots:      []SlotDTO{{Day: 1, Session: "morning", Position: 1, Room: 1, LengthMinutes: 30}},
		Fit:        []FitDTO{{Talk: "T1", Room: 1, Value: 0.42}},
		VoteCounts: map[string]int{"T1": 10},
	}
	params := req.toParams()
	assert.Equal(t, 0.42, params.Fit[schedule.FitKey{Talk: "T1", Room: 1}])
}
