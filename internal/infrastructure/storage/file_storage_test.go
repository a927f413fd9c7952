package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "digests/2026-03-01.xlsx", []byte("first")))
	require.NoError(t, s.Save(ctx, "digests/2026-03-01.xlsx", []byte("second")))

	assert.True(t, s.Exists(ctx, "digests/2026-03-01.xlsx"))
	assert.False(t, s.Exists(ctx, "digests"), "directories are not files")
	assert.False(t, s.Exists(ctx, "digests/missing.xlsx"))

	content, err := s.Read(ctx, "digests/2026-03-01.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(filepath.Join(base, "digests"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "a/../../outside.txt", "", "."} {
		t.Run(path, func(t *testing.T) {
			assert.Error(t, s.Save(ctx, path, []byte("x")))
			_, err := s.Read(ctx, path)
			assert.Error(t, err)
			assert.False(t, s.Exists(ctx, path))
		})
	}
}
