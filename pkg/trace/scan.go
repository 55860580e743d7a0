package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// DefaultChunkSize is the read size used by Scan when none is configured.
const DefaultChunkSize = 32 << 10

// stdinPath selects standard input in OpenInput.
const stdinPath = "-"

// lz4Suffix marks trace files written through an LZ4 frame compressor.
const lz4Suffix = ".lz4"

// ScanOptions configures Scan.
type ScanOptions struct {
	// ChunkSize is the maximum number of bytes handed to Feed at once.
	ChunkSize int

	// OnResult receives the output of every Feed and of the final Close.
	OnResult func(Result) error
}

// Scan drives p from r until EOF, then closes it. The context is checked
// between chunks; the parser itself never blocks.
func Scan(ctx context.Context, r io.Reader, p *Parser, opts ScanOptions) (int64, error) {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	buf := make([]byte, size)

	var total int64

	for {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return total, fmt.Errorf("scan trace: %w", ctxErr)
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			total += int64(n)

			res, err := p.Feed(buf[:n])
			if err != nil {
				return total, err
			}

			err = deliver(opts.OnResult, res)
			if err != nil {
				return total, err
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return total, fmt.Errorf("read trace: %w", readErr)
		}
	}

	res, err := p.Close()
	if err != nil {
		return total, err
	}

	return total, deliver(opts.OnResult, res)
}

func deliver(fn func(Result) error, res Result) error {
	if fn == nil {
		return nil
	}

	return fn(res)
}

type lz4ReadCloser struct {
	*lz4.Reader

	file *os.File
}

func (rc lz4ReadCloser) Close() error {
	return rc.file.Close()
}

// OpenInput opens a trace source. "-" selects standard input and paths
// ending in .lz4 are decompressed on the fly.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == stdinPath || path == "" {
		return io.NopCloser(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	if strings.HasSuffix(path, lz4Suffix) {
		return lz4ReadCloser{Reader: lz4.NewReader(file), file: file}, nil
	}

	return file, nil
}
