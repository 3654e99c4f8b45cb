package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ArtifactKind names which pipeline produced the artifact a signed
// token points at (SPEC_FULL.md §A6/§A5): a run saves at most one
// artifact, and the kind travels inside the token so a fetch run's
// token can never be replayed against a schedule run's path and
// vice versa, even if an operator reuses a run id across kinds.
type ArtifactKind string

const (
	ArtifactFetch    ArtifactKind = "fetch"
	ArtifactSchedule ArtifactKind = "schedule"
)

// SignedURLSigner creates and validates signed, expiring tokens that
// address one run's saved artifact.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token binding runID, kind and relPath together.
func (s *SignedURLSigner) Generate(runID string, kind ArtifactKind, relPath string) (string, time.Time, error) {
	if runID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("runID and relPath required")
	}
	if kind == "" {
		return "", time.Time{}, fmt.Errorf("artifact kind required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	payload := s.signingPayload(runID, kind, expiresAt.Unix(), encodedPath)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{runID, string(kind), fmt.Sprintf("%d", expiresAt.Unix()), encodedPath, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the run id, artifact kind and
// relative path it was signed for.
// When allowExpired is true, the timestamp check is skipped (used by cleanup routines).
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (runID string, kind ArtifactKind, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return "", "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	runID = parts[0]
	kind = ArtifactKind(parts[1])
	ts := parts[2]
	encodedPath := parts[3]
	signature := parts[4]

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", "", time.Time{}, fmt.Errorf("decode path: %w", err)
	}

	expUnix, err := parseUnix(ts)
	if err != nil {
		return "", "", "", time.Time{}, err
	}
	expiresAt = time.Unix(expUnix, 0)

	payload := s.signingPayload(runID, kind, expUnix, encodedPath)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", "", time.Time{}, fmt.Errorf("token expired")
	}
	return runID, kind, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) signingPayload(runID string, kind ArtifactKind, expUnix int64, encodedPath string) string {
	return fmt.Sprintf("%s|%s|%d|%s", runID, kind, expUnix, encodedPath)
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}
