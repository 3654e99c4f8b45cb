package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_SaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalProvider(dir)
	require.NoError(t, err)

	name, err := s.Save("assignments/run-1.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "assignments/run-1.json", name)

	f, err := s.Open(name)
	require.NoError(t, err)
	defer f.Close()
	data, err := os.ReadFile(s.Path(name))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	require.NoError(t, s.Delete(name))
	_, err = s.Open(name)
	assert.Error(t, err)
}

func TestLocalProvider_DeleteMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalProvider(dir)
	require.NoError(t, err)
	assert.NoError(t, s.Delete("never-existed.json"))
}

func TestLocalProvider_SaveStream(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalProvider(dir)
	require.NoError(t, err)

	_, err = s.SaveStream("timetable.json", strings.NewReader(`{"placements":[]}`))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "timetable.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"placements":[]}`, string(data))
}

func TestLocalProvider_CleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalProvider(dir)
	require.NoError(t, err)

	_, err = s.Save("old.json", []byte(`{}`))
	require.NoError(t, err)
	oldPath := filepath.Join(dir, "old.json")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	_, err = s.Save("fresh.json", []byte(`{}`))
	require.NoError(t, err)

	deleted, err := s.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.json"}, deleted)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh.json"))
	assert.NoError(t, err)
}
