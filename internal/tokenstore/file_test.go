package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	return NewFileStore(path, zap.NewNop())
}

func TestFileStore_EmptyReadsAsAbsent(t *testing.T) {
	s := newTestFileStore(t)

	creds, ok := s.Get()
	require.False(t, ok)
	require.Empty(t, creds.AccessToken)
	require.Empty(t, creds.RefreshToken)
}

func TestFileStore_SetGetClear(t *testing.T) {
	s := newTestFileStore(t)

	s.Set(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	creds, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, "access-1", creds.AccessToken)
	require.Equal(t, "refresh-1", creds.RefreshToken)

	s.Clear()
	_, ok = s.Get()
	require.False(t, ok)

	// Clearing an already empty store stays silent.
	s.Clear()
}

func TestFileStore_SetAccessTokenKeepsRefreshSlot(t *testing.T) {
	s := newTestFileStore(t)

	s.Set(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
	s.SetAccessToken("access-2")

	creds, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, "access-2", creds.AccessToken)
	require.Equal(t, "refresh-1", creds.RefreshToken)
}

func TestFileStore_CorruptFileReadsAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path, zap.NewNop())
	_, ok := s.Get()
	require.False(t, ok)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	NewFileStore(path, zap.NewNop()).Set(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	creds, ok := NewFileStore(path, zap.NewNop()).Get()
	require.True(t, ok)
	require.Equal(t, "access-1", creds.AccessToken)
}
