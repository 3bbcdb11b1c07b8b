// Package hash computes content fingerprints for duplicate detection.
//
// Two tiers keep disk reads proportional to how much evidence is needed.
// Partial hashes the first few kilobytes with xxHash to cheaply split
// same-size files; Full streams the whole content through BLAKE3 and is
// only worth paying for once a partial collision exists.
package hash

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

const (
	// PartialSize is how much of the file head Partial reads.
	PartialSize = 4 * 1024

	chunkSmallSize      = 32 * 1024
	chunkLargeSize      = 128 * 1024
	largeChunkThreshold = 256 * 1024

	fullHashSize = 32
)

var xxPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

var chunkSmallPool = sync.Pool{
	New: func() any {
		buf := make([]byte, chunkSmallSize)
		return &buf
	},
}

var chunkLargePool = sync.Pool{
	New: func() any {
		buf := make([]byte, chunkLargeSize)
		return &buf
	},
}

// Partial returns a 64-bit hash of the file's first PartialSize bytes.
// Files shorter than that hash whatever is present. Failures come back
// as ItemError with the open or read failure mapped onto the error
// taxonomy.
func Partial(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, types.NewItemError(path, err)
	}
	defer file.Close()

	h := xxPool.Get().(*xxhash.Digest)
	h.Reset()
	defer xxPool.Put(h)

	buf := make([]byte, PartialSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, types.NewItemError(path, err)
	}

	_, _ = h.Write(buf[:n])
	return h.Sum64(), nil
}

// Full returns the hex encoded BLAKE3 digest of the entire file content.
// Reads happen in pooled chunks sized by file length, and cancellation is
// checked before each chunk so an aborted session never finishes a large
// read it no longer needs. A cancelled call returns ErrCancelled; read
// failures return an ItemError and leave no partial result behind.
func Full(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", types.NewItemError(path, err)
	}
	defer file.Close()

	pool := &chunkSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= largeChunkThreshold {
		pool = &chunkLargePool
	}
	bufPtr := pool.Get().(*[]byte)
	defer pool.Put(bufPtr)
	buf := *bufPtr

	h := blake3.New(fullHashSize, nil)
	for {
		select {
		case <-ctx.Done():
			return "", types.ErrCancelled
		default:
		}

		n, readErr := file.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", types.NewItemError(path, readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
