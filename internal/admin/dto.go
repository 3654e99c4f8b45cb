package admin

import (
	"github.com/pytanis-go/pretalx-core/internal/assignment"
	"github.com/pytanis-go/pretalx-core/internal/schedule"
)

// FetchRequest triggers a C2-C5 pull for one event (SPEC_FULL.md §A5).
type FetchRequest struct {
	Event string `json:"event" binding:"required"`
}

// JobType satisfies jobs.Payload.
func (FetchRequest) JobType() string { return string(RunKindFetch) }

// FetchResult is POST /runs/fetch's terminal payload.
type FetchResult struct {
	Event           string `json:"event"`
	SubmissionCount int    `json:"submission_count"`
	ArtifactPath    string `json:"artifact_path,omitempty"`
	DownloadToken   string `json:"download_token,omitempty"`
}

// AssignRequest carries C6's inputs inline — the admin surface does not
// itself derive reviewer preferences or completed-review counts from
// the upstream, those are a notebook-side concern (SPEC_FULL.md §A5).
type AssignRequest struct {
	Proposals []ProposalDTO     `json:"proposals" binding:"required"`
	Reviewers []ReviewerDTO     `json:"reviewers" binding:"required"`
	Buffer    int               `json:"buffer"`
	Aliases   map[string]string `json:"aliases,omitempty"`
}

// ProposalDTO mirrors assignment.Proposal with JSON tags.
type ProposalDTO struct {
	Code             string `json:"code"`
	Track            string `json:"track"`
	TargetReviews    int    `json:"target_reviews"`
	CompletedReviews int    `json:"completed_reviews"`
}

// ReviewerDTO mirrors assignment.Reviewer with JSON tags.
type ReviewerDTO struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	TrackPrefs      []string `json:"track_prefs,omitempty"`
	AlreadyAssigned []string `json:"already_assigned,omitempty"`
	WantsAll        bool     `json:"wants_all"`
}

// JobType satisfies jobs.Payload.
func (AssignRequest) JobType() string { return string(RunKindAssign) }

func (r AssignRequest) toEngineInputs() ([]assignment.Proposal, []assignment.Reviewer) {
	proposals := make([]assignment.Proposal, len(r.Proposals))
	for i, p := range r.Proposals {
		proposals[i] = assignment.Proposal{
			Code: p.Code, Track: p.Track,
			TargetReviews: p.TargetReviews, CompletedReviews: p.CompletedReviews,
		}
	}
	reviewers := make([]assignment.Reviewer, len(r.Reviewers))
	for i, rv := range r.Reviewers {
		reviewers[i] = assignment.Reviewer{
			ID: rv.ID, Email: rv.Email,
			TrackPrefs: rv.TrackPrefs, AlreadyAssigned: rv.AlreadyAssigned, WantsAll: rv.WantsAll,
		}
	}
	return proposals, reviewers
}

// ScheduleRequest carries C7's MIP parameters inline.
type ScheduleRequest struct {
	Talks  []TalkDTO   `json:"talks" binding:"required"`
	Slots  []SlotDTO   `json:"slots" binding:"required"`
	Rooms  []RoomDTO   `json:"rooms" binding:"required"`
	Pref   []PrefDTO   `json:"pref,omitempty"`
	Fit    []FitDTO    `json:"fit,omitempty"`
	Cooc   []CoocDTO   `json:"cooc,omitempty"`
	Paired []PairedDTO `json:"paired,omitempty"`

	// VoteCounts/VotersInterests/SponsoredFloor let a caller hand in raw
	// popularity signals instead of a precomputed Fit/Cooc, so the
	// schedule package's BuildFitParams/BuildCoocParams (spec.md §4.6)
	// run as part of this request instead of only in package tests.
	// Derivation happens only when Fit (respectively Cooc) is empty; a
	// non-empty explicit table is used as given.
	VoteCounts      map[string]int             `json:"vote_counts,omitempty"`
	VotersInterests map[string]map[string]bool `json:"voters_interests,omitempty"`
	SponsoredFloor  float64                    `json:"sponsored_floor,omitempty"`
}

type TalkDTO struct {
	Code            string `json:"code"`
	DurationMinutes int    `json:"duration_minutes"`
	MainTrack       string `json:"main_track,omitempty"`
	SubTrack        string `json:"sub_track,omitempty"`
	Sponsored       bool   `json:"sponsored"`
}

type SlotDTO struct {
	Day           int    `json:"day"`
	Session       string `json:"session"`
	Position      int    `json:"position"`
	Room          int    `json:"room"`
	LengthMinutes int    `json:"length_minutes"`
}

type RoomDTO struct {
	ID       int `json:"id"`
	Capacity int `json:"capacity"`
}

type PrefDTO struct {
	Talk     string `json:"talk"`
	Day      int    `json:"day"`
	Session  string `json:"session"`
	Position int    `json:"position"`
	Room     int    `json:"room"`
	Value    int    `json:"value"`
}

type FitDTO struct {
	Talk  string  `json:"talk"`
	Room  int     `json:"room"`
	Value float64 `json:"value"`
}

type CoocDTO struct {
	TalkA string  `json:"talk_a"`
	TalkB string  `json:"talk_b"`
	Value float64 `json:"value"`
}

type PairedDTO struct {
	Talks []string `json:"talks"`
}

// JobType satisfies jobs.Payload.
func (ScheduleRequest) JobType() string { return string(RunKindSchedule) }

func (r ScheduleRequest) toParams() *schedule.Params {
	talks := make([]schedule.Talk, len(r.Talks))
	for i, t := range r.Talks {
		talks[i] = schedule.Talk{
			Code: t.Code, DurationMinutes: t.DurationMinutes,
			MainTrack: t.MainTrack, SubTrack: t.SubTrack, Sponsored: t.Sponsored,
		}
	}
	slots := make([]schedule.Slot, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = schedule.Slot{
			Day: s.Day, Session: s.Session, Position: s.Position,
			Room: s.Room, LengthMinutes: s.LengthMinutes,
		}
	}
	rooms := schedule.NormalizeCapacities(roomSpecs(r.Rooms))

	pref := make(map[schedule.PrefKey]int, len(r.Pref))
	for _, p := range r.Pref {
		pref[schedule.PrefKey{Talk: p.Talk, Day: p.Day, Session: p.Session, Position: p.Position, Room: p.Room}] = p.Value
	}
	fit := make(map[schedule.FitKey]float64, len(r.Fit))
	if len(r.Fit) == 0 && len(r.VoteCounts) > 0 {
		fit = schedule.BuildFitParams(talks, roomSpecs(r.Rooms), r.VoteCounts)
	}
	for _, f := range r.Fit {
		fit[schedule.FitKey{Talk: f.Talk, Room: f.Room}] = f.Value
	}
	cooc := make(map[schedule.CoocKey]float64, len(r.Cooc))
	if len(r.Cooc) == 0 && len(r.VotersInterests) > 0 {
		cooc = schedule.BuildCoocParams(talks, r.VotersInterests, r.SponsoredFloor)
	}
	for _, c := range r.Cooc {
		cooc[schedule.CoocKey{TalkA: c.TalkA, TalkB: c.TalkB}] = c.Value
	}
	paired := make([]schedule.PairedGroup, len(r.Paired))
	for i, p := range r.Paired {
		paired[i] = schedule.PairedGroup{Talks: p.Talks}
	}

	return &schedule.Params{Talks: talks, Slots: slots, Rooms: rooms, Pref: pref, Fit: fit, Cooc: cooc, Paired: paired}
}

func roomSpecs(rooms []RoomDTO) []schedule.RoomSpec {
	out := make([]schedule.RoomSpec, len(rooms))
	for i, r := range rooms {
		out[i] = schedule.RoomSpec{ID: r.ID, Capacity: r.Capacity}
	}
	return out
}

// ScheduleResult is POST /runs/schedule's terminal payload.
type ScheduleResult struct {
	Placements    []schedule.Placement `json:"placements"`
	EmptySlots    []schedule.Slot      `json:"empty_slots"`
	ArtifactPath  string               `json:"artifact_path,omitempty"`
	DownloadToken string               `json:"download_token,omitempty"`
}
