package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

func TestAssign_BasicBufferDistribution(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 2},
		{Code: "P2", Track: "go", TargetReviews: 2},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}},
		{Email: "r2@example.com", TrackPrefs: []string{"go"}},
	}

	res, err := Assign(proposals, reviewers, 0, nil)
	require.NoError(t, err)

	total := 0
	for _, codes := range res.ByEmail {
		total += len(codes)
	}
	assert.Equal(t, 4, total)
	assert.Empty(t, res.Diagnostics)
}

func TestAssign_AlreadyCompletedProposalGetsNoBuffer(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 1, CompletedReviews: 1},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}},
	}

	res, err := Assign(proposals, reviewers, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, res.ByEmail["r1@example.com"])
}

func TestAssign_NoPreferredReviewerFallsBackAndRecordsDiagnostic(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 2},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}, AlreadyAssigned: []string{"P1"}},
		{Email: "r2@example.com"},
	}

	res, err := Assign(proposals, reviewers, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, res.ByEmail["r2@example.com"])
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, DiagnosticNoReviewer, res.Diagnostics[0].Kind)
	assert.Equal(t, "P1", res.Diagnostics[0].ProposalCode)
}

func TestAssign_TrackMismatchWhenSubmissionTrackUncovered(t *testing.T) {
	proposals := []Proposal{{Code: "P1", Track: "rust", TargetReviews: 1}}
	reviewers := []Reviewer{{Email: "r1@example.com", TrackPrefs: []string{"go"}}}

	_, err := Assign(proposals, reviewers, 0, nil)
	require.Error(t, err)
	var mismatch *apperrors.TrackMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"rust"}, mismatch.OnlyInSubmissions)
	assert.Equal(t, []string{"go"}, mismatch.OnlyInReviewers)
}

func TestAssign_WantsAllReviewerGetsEveryProposal(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 1},
		{Code: "P2", Track: "go", TargetReviews: 1},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}},
		{Email: "r2@example.com", TrackPrefs: []string{"go"}},
		{Email: "r3@example.com", WantsAll: true},
	}

	res, err := Assign(proposals, reviewers, 0, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P1", "P2"}, res.ByEmail["r3@example.com"])
}

func TestAssign_NeverAssignsAlreadyReviewedProposalTwice(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 2},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}, AlreadyAssigned: []string{"P1"}},
		{Email: "r2@example.com", TrackPrefs: []string{"go"}},
	}

	res, err := Assign(proposals, reviewers, 0, nil)
	require.NoError(t, err)

	count := 0
	for _, code := range res.ByEmail["r1@example.com"] {
		if code == "P1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAssign_DeterministicAcrossRepeatedRuns(t *testing.T) {
	proposals := []Proposal{
		{Code: "P1", Track: "go", TargetReviews: 2},
		{Code: "P2", Track: "go", TargetReviews: 1},
		{Code: "P3", Track: "go", TargetReviews: 3},
	}
	reviewers := []Reviewer{
		{Email: "r1@example.com", TrackPrefs: []string{"go"}},
		{Email: "r2@example.com", TrackPrefs: []string{"go"}},
		{Email: "r3@example.com", TrackPrefs: []string{"go"}},
	}

	first, err := Assign(proposals, reviewers, 1, nil)
	require.NoError(t, err)
	second, err := Assign(proposals, reviewers, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ByEmail, second.ByEmail)
}
