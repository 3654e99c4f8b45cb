package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

func TestSplitTrack(t *testing.T) {
	main, sub := SplitTrack("PyData: Machine Learning")
	assert.Equal(t, "PyData", main)
	assert.Equal(t, "Machine Learning", sub)

	main, sub = SplitTrack("General")
	assert.Equal(t, "General", main)
	assert.Equal(t, "", sub)
}

func score(v float64) *float64 { return &v }

func TestReviewRows_DebiasesByReviewerMean(t *testing.T) {
	reviews := []wire.Review{
		{ProposalCode: "P1", ReviewerUser: "alice", Score: score(8)},
		{ProposalCode: "P2", ReviewerUser: "alice", Score: score(4)},
		{ProposalCode: "P1", ReviewerUser: "bob", Score: score(6)},
	}
	rows := ReviewRows(reviews)

	byProposalReviewer := make(map[string]*ReviewRow)
	for i := range rows {
		byProposalReviewer[rows[i].ProposalCode+"/"+rows[i].ReviewerUser] = &rows[i]
	}

	// alice's mean is (8+4)/2 = 6, so her P1 review debiases to 8-6=2.
	assert.InDelta(t, 2.0, *byProposalReviewer["P1/alice"].DebiasedScore, 1e-9)
	assert.InDelta(t, -2.0, *byProposalReviewer["P2/alice"].DebiasedScore, 1e-9)
	// bob has a single review, so his mean equals his own score: debiased 0.
	assert.InDelta(t, 0.0, *byProposalReviewer["P1/bob"].DebiasedScore, 1e-9)
}

func TestAggregateScore_MeanOfDebiasedScores(t *testing.T) {
	rows := []ReviewRow{
		{ProposalCode: "P1", DebiasedScore: score(2)},
		{ProposalCode: "P1", DebiasedScore: score(0)},
		{ProposalCode: "P2", DebiasedScore: score(9)},
	}
	agg, ok := AggregateScore(rows, "P1")
	assert.True(t, ok)
	assert.InDelta(t, 1.0, agg, 1e-9)

	_, ok = AggregateScore(rows, "P3")
	assert.False(t, ok)
}

func TestVoteScore_DiscardsIndifferentAndNormalizesTwo(t *testing.T) {
	// 1s are discarded, a 2 normalizes to 1, a 3 is retained as-is.
	assert.Equal(t, 0, VoteScore([]int{1, 1}))
	assert.Equal(t, 1, VoteScore([]int{1, 2}))
	assert.Equal(t, 4, VoteScore([]int{2, 3}))
	assert.Equal(t, 0, VoteScore(nil))
}

func TestProposalRows_OneRowPerSpeaker(t *testing.T) {
	track := &wire.Ref{ID: 1, Name: wire.MultiLingualString{"en": "PyData: ML"}}
	proposals := []wire.Proposal{
		{
			Code: "P1", Title: "Talk", Track: track, DurationMinutes: 30,
			Speakers: []wire.SpeakerRef{{Code: "S1"}, {Code: "S2"}},
		},
		{Code: "P2", Title: "Solo talk", DurationMinutes: 20},
	}

	rows := ProposalRows(proposals)
	assert.Len(t, rows, 3)
	assert.Equal(t, "PyData", rows[0].MainTrack)
	assert.Equal(t, "ML", rows[0].SubTrack)

	grouped := ReimplodeSpeakers(rows)
	assert.ElementsMatch(t, []string{"S1", "S2"}, grouped["P1"])
	assert.Empty(t, grouped["P2"])
}
