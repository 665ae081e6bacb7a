// Package hasher computes streaming content digests for files.
package hasher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ChunkSize is the read size per iteration. Large enough to amortize
// syscall overhead, small enough to keep memory bounded per worker.
const ChunkSize = 256 * 1024

// bufferPool reuses read buffers across files
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// digestPool reuses digest state across files
var digestPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// FileHasher computes xxhash-64 digests of file contents, reading in fixed
// chunks so memory stays constant regardless of file size. The digest is
// hex-encoded and opaque to callers; only equality matters.
type FileHasher struct{}

// New creates a new FileHasher
func New() *FileHasher {
	return &FileHasher{}
}

// HashFile hashes the file at path. Cancellation is checked between chunks
// so a large file does not delay shutdown.
func (h *FileHasher) HashFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	digest := digestPool.Get().(*xxhash.Digest)
	digest.Reset()
	defer digestPool.Put(digest)

	bufPtr := bufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer bufferPool.Put(bufPtr)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := file.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}
