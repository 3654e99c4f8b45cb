// Package projection implements C5's tabular transforms: wire records
// flattened into row/column tables for the assignment and scheduling
// inputs, grounded on the review-aggregation logic in
// original_source/notebooks/pyconde-pydata-darmstadt-2026/
// reviewer_assignment/helpers.py (build_reviews_df, prepare_submissions,
// prepare_reviewers) and pytanis's review.Col constant set it references.
package projection

import (
	"strings"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// Col names the canonical column identifiers used across the
// assignment input builder, mirroring pytanis.review.Col so call sites
// never hand-roll string literals (SPEC_FULL.md §4's C5 supplement).
const (
	ColSubmissionCode = "submission_code"
	ColTitle          = "title"
	ColTrack          = "track"
	ColMainTrack      = "main_track"
	ColSubTrack       = "sub_track"
	ColSpeakerCode    = "speaker_code"
	ColReviewerID     = "reviewer_id"
	ColScore          = "score"
	ColDebiasedScore  = "debiased_score"
	ColAggregateScore = "aggregate_score"
	ColVoteScore      = "vote_score"
)

// ProposalRow is one speaker's view of one proposal: prepare_submissions'
// "one speaker per row" flattening, re-imploded by ReimplodeSpeakers for
// callers that need the proposal-level grouping back.
type ProposalRow struct {
	Code        string
	Title       string
	Track       string
	MainTrack   string
	SubTrack    string
	SpeakerCode string
	Duration    int
	State       wire.SubmissionState
}

// SpeakerRow is one flattened row of a speaker's proposal list.
type SpeakerRow struct {
	Code           string
	Name           string
	ProposalCode   string
}

// ReviewRow is one flattened review, annotated with the bias-corrected
// score described in spec.md §4.4.
type ReviewRow struct {
	ProposalCode  string
	ReviewerUser  string
	Score         *float64
	DebiasedScore *float64
}

// SplitTrack splits a track name on the first colon into (main, sub),
// per spec.md §4.4 and the GLOSSARY's track/main-track/sub-track
// definitions. A track without a colon has an empty sub-track.
func SplitTrack(name string) (main, sub string) {
	if idx := strings.Index(name, ":"); idx >= 0 {
		return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+1:])
	}
	return strings.TrimSpace(name), ""
}

// ProposalRows flattens each proposal into one row per speaker (the
// "one speaker per row plus a re-implode step" transform of spec.md
// §4.4). A proposal with no speakers yields one row with an empty
// SpeakerCode.
func ProposalRows(proposals []wire.Proposal) []ProposalRow {
	var rows []ProposalRow
	for _, p := range proposals {
		trackName := ""
		if p.Track != nil {
			trackName = p.Track.Name.En()
		}
		main, sub := SplitTrack(trackName)

		if len(p.Speakers) == 0 {
			rows = append(rows, ProposalRow{
				Code: p.Code, Title: p.Title, Track: trackName,
				MainTrack: main, SubTrack: sub,
				Duration: p.DurationMinutes, State: p.State,
			})
			continue
		}
		for _, sp := range p.Speakers {
			rows = append(rows, ProposalRow{
				Code: p.Code, Title: p.Title, Track: trackName,
				MainTrack: main, SubTrack: sub,
				SpeakerCode: sp.Code,
				Duration:    p.DurationMinutes, State: p.State,
			})
		}
	}
	return rows
}

// ReimplodeSpeakers groups ProposalRows back into one row per proposal
// with the full speaker-code list, undoing ProposalRows' flattening.
func ReimplodeSpeakers(rows []ProposalRow) map[string][]string {
	out := make(map[string][]string)
	for _, r := range rows {
		if r.SpeakerCode == "" {
			continue
		}
		out[r.Code] = append(out[r.Code], r.SpeakerCode)
	}
	return out
}

// SpeakerRows flattens each speaker into one row per proposal they are
// attached to.
func SpeakerRows(speakers []wire.Speaker) []SpeakerRow {
	var rows []SpeakerRow
	for _, s := range speakers {
		if len(s.Proposals) == 0 {
			rows = append(rows, SpeakerRow{Code: s.Code, Name: s.Name})
			continue
		}
		for _, code := range s.Proposals {
			rows = append(rows, SpeakerRow{Code: s.Code, Name: s.Name, ProposalCode: code})
		}
	}
	return rows
}

// ReviewRows flattens reviews and attaches each reviewer's bias-
// corrected (debiased) score: raw score minus that reviewer's personal
// mean across all their reviews (spec.md §4.4).
func ReviewRows(reviews []wire.Review) []ReviewRow {
	means := reviewerMeans(reviews)

	rows := make([]ReviewRow, 0, len(reviews))
	for _, r := range reviews {
		row := ReviewRow{ProposalCode: r.ProposalCode, ReviewerUser: r.ReviewerUser, Score: r.Score}
		if r.Score != nil {
			if mean, ok := means[r.ReviewerUser]; ok {
				debiased := *r.Score - mean
				row.DebiasedScore = &debiased
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func reviewerMeans(reviews []wire.Review) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range reviews {
		if r.Score == nil {
			continue
		}
		sums[r.ReviewerUser] += *r.Score
		counts[r.ReviewerUser]++
	}
	means := make(map[string]float64, len(sums))
	for user, sum := range sums {
		means[user] = sum / float64(counts[user])
	}
	return means
}

// AggregateScore is the mean of a proposal's debiased review scores
// (spec.md §4.4). Returns (0, false) when the proposal has no scored
// reviews.
func AggregateScore(rows []ReviewRow, proposalCode string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range rows {
		if r.ProposalCode != proposalCode || r.DebiasedScore == nil {
			continue
		}
		sum += *r.DebiasedScore
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// VoteScore computes the public-vote signal for one proposal's raw vote
// values, per spec.md §4.4's rule: a value of 1 ("indifferent") is
// discarded; a value of 2 is normalized to 1; higher categories are
// retained as-is; the result is their sum.
func VoteScore(votes []int) int {
	var total int
	for _, v := range votes {
		switch {
		case v <= 1:
			continue
		case v == 2:
			total += 1
		default:
			total += v
		}
	}
	return total
}
