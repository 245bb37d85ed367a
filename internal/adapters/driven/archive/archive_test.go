package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

func TestArchive_SaveLoad(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	output := bytes.Repeat([]byte("Searching query batch...\n"), 2000)
	require.NoError(t, a.Save(ctx, "trial-1", driven.StreamStdout, output))

	got, err := a.Load(ctx, "trial-1", driven.StreamStdout)
	require.NoError(t, err)
	assert.Equal(t, output, got)

	info, err := os.Stat(filepath.Join(a.Dir(), "trial-1.stdout.log.zst"))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(output)/10), "repetitive output compresses")
}

func TestArchive_SaveReplaces(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "t", driven.StreamBuild, []byte("first")))
	require.NoError(t, a.Save(ctx, "t", driven.StreamBuild, []byte("second")))

	got, err := a.Load(ctx, "t", driven.StreamBuild)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestArchive_LoadMissing(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = a.Load(context.Background(), "nope", driven.StreamStderr)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchive_Streams(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, s := range []string{"zzz", driven.StreamStderr, driven.StreamBuild, "notes", driven.StreamStdout} {
		require.NoError(t, a.Save(ctx, "t1", s, []byte(s)))
	}
	require.NoError(t, a.Save(ctx, "t2", driven.StreamStdout, []byte("other trial")))

	streams, err := a.Streams(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{driven.StreamBuild, driven.StreamStdout, driven.StreamStderr, "notes", "zzz"}, streams)

	none, err := a.Streams(ctx, "t3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchive_RejectsPathNames(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		trialID string
		stream  string
	}{
		{"traversal", "../evil", driven.StreamStdout},
		{"separator", "a/b", driven.StreamStdout},
		{"empty id", "", driven.StreamStdout},
		{"dotted stream", "t1", "std.out"},
		{"glob", "t*", driven.StreamStdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Save(ctx, tt.trialID, tt.stream, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
