package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("run-1", ArtifactFetch, "reports/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	runID, kind, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)
	require.Equal(t, ArtifactFetch, kind)
	require.Equal(t, "reports/file.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("run-1", ArtifactSchedule, "reports/file.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	runID, kind, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)
	require.Equal(t, ArtifactSchedule, kind)
	require.Equal(t, "reports/file.csv", path)
}

// TestSignedURLSignerRejectsKindSwap covers the reason the artifact
// kind travels inside the signed payload: a token minted for one kind
// must not validate after its kind segment is swapped for another.
func TestSignedURLSignerRejectsKindSwap(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("run-1", ArtifactFetch, "reports/file.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 5)
	parts[1] = string(ArtifactSchedule)
	tampered := strings.Join(parts, ".")

	_, _, _, _, err = signer.Parse(tampered, false)
	require.Error(t, err)
}
