package session_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headlamp-run/headlamp/internal/session"
)

func TestNew_CreatesRootDirectory(t *testing.T) {
	t.Parallel()

	s, err := session.New(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	info, statErr := os.Stat(s.Root())
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	assert.True(t, strings.Contains(s.Root(), "headlamp"))
}

func TestSubdir_CreatesAndMemoizes(t *testing.T) {
	t.Parallel()

	s, err := session.New(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	dir1, err := s.Subdir("coverage")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "coverage"), dir1)

	info, statErr := os.Stat(dir1)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())

	dir2, err := s.Subdir("coverage")
	require.NoError(t, err)
	assert.Equal(t, dir1, dir2)
}

func TestClose_RemovesDirectoryByDefault(t *testing.T) {
	t.Parallel()

	s, err := session.New(false)
	require.NoError(t, err)

	root := s.Root()
	require.NoError(t, s.Close())

	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClose_PreservesDirectoryWhenKeepArtifacts(t *testing.T) {
	t.Parallel()

	s, err := session.New(true)
	require.NoError(t, err)

	root := s.Root()
	t.Cleanup(func() { _ = os.RemoveAll(root) })

	require.NoError(t, s.Close())

	info, statErr := os.Stat(root)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestClose_NilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var s *session.RunSession
	assert.NoError(t, s.Close())
}
