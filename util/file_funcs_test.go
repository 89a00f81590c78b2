package util

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagingPath(t *testing.T) {
	staging := StagingPath(filepath.Join("some", "dir", "prog.o"))

	require.Equal(t, filepath.Join("some", "dir"), filepath.Dir(staging))
	require.Equal(t, fmt.Sprintf(".prog.o.tmp.%d", os.Getpid()), filepath.Base(staging))
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.o")

	require.NoError(t, AtomicWriteFile(path, []byte("artifact")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "artifact", string(data))

	_, err = os.Stat(StagingPath(path))
	require.True(t, os.IsNotExist(err))
}

func TestPromoteStaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.o")
	require.NoError(t, os.WriteFile(StagingPath(path), []byte("artifact"), 0644))

	require.NoError(t, PromoteStaging(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "artifact", string(data))
}

func TestDiscardStaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.o")
	require.NoError(t, os.WriteFile(StagingPath(path), []byte("partial"), 0644))

	DiscardStaging(path)

	_, err := os.Stat(StagingPath(path))
	require.True(t, os.IsNotExist(err))

	// Discarding when nothing is staged is not an error.
	DiscardStaging(path)
}
