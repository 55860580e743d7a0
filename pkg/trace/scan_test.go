package trace_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

func scanAll(t *testing.T, r io.Reader, chunkSize int) (collected, int64) {
	t.Helper()

	var out collected

	n, err := trace.Scan(context.Background(), r, trace.NewParser(), trace.ScanOptions{
		ChunkSize: chunkSize,
		OnResult: func(res trace.Result) error {
			out.add(res)

			return nil
		},
	})
	require.NoError(t, err)

	return out, n
}

func TestScan_MatchesDirectFeed(t *testing.T) {
	t.Parallel()

	want := parseChunks(t, trace.NewParser(), []string{sampleTrace})

	for _, size := range []int{0, 1, 3, 64} {
		got, n := scanAll(t, strings.NewReader(sampleTrace), size)
		assert.Equal(t, want, got, "chunk size %d", size)
		assert.Equal(t, int64(len(sampleTrace)), n)
	}

	got, _ := scanAll(t, iotest.OneByteReader(strings.NewReader(sampleTrace)), 0)
	assert.Equal(t, want, got)
}

func TestScan_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := trace.Scan(ctx, strings.NewReader(sampleTrace), trace.NewParser(), trace.ScanOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestScan_PropagatesReadErrors(t *testing.T) {
	t.Parallel()

	_, err := trace.Scan(context.Background(), iotest.ErrReader(io.ErrUnexpectedEOF), trace.NewParser(), trace.ScanOptions{})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpenInput_PlainAndLZ4(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	plainPath := filepath.Join(dir, "trace.txt")
	require.NoError(t, os.WriteFile(plainPath, []byte(sampleTrace), 0o600))

	compressedPath := filepath.Join(dir, "trace.txt.lz4")

	file, err := os.Create(compressedPath)
	require.NoError(t, err)

	zw := lz4.NewWriter(file)
	_, err = zw.Write([]byte(sampleTrace))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())

	for _, path := range []string{plainPath, compressedPath} {
		rc, openErr := trace.OpenInput(path)
		require.NoError(t, openErr)

		data, readErr := io.ReadAll(rc)
		require.NoError(t, readErr)
		require.NoError(t, rc.Close())

		assert.Equal(t, sampleTrace, string(data), path)
	}
}

func TestOpenInput_Missing(t *testing.T) {
	t.Parallel()

	_, err := trace.OpenInput(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
