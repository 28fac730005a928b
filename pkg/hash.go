package xxhverify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/sys/unix"
)

// Digest is the 128-bit XXH3 value of a file's full byte stream
type Digest struct {
	Hi uint64
	Lo uint64
}

// String returns the digest as lowercase hex without leading zeros
func (d Digest) String() string {
	if d.Hi == 0 {
		return strconv.FormatUint(d.Lo, 16)
	}
	return strconv.FormatUint(d.Hi, 16) + fmt.Sprintf("%016x", d.Lo)
}

// IsZero reports whether every bit of the digest is zero
func (d Digest) IsZero() bool {
	return d.Hi == 0 && d.Lo == 0
}

// ParseDigest parses a hex string of up to 128 bits. Redundant leading zeros
// and upper case letters are accepted.
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return Digest{}, fmt.Errorf("%w: empty string", ErrInvalidDigest)
	}
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return Digest{}, nil
	}
	if len(t) > 32 {
		return Digest{}, fmt.Errorf("%w: %d significant hex digits exceed 128 bits", ErrInvalidDigest, len(t))
	}

	var d Digest
	var err error
	if len(t) <= 16 {
		d.Lo, err = strconv.ParseUint(t, 16, 64)
	} else {
		split := len(t) - 16
		if d.Hi, err = strconv.ParseUint(t[:split], 16, 64); err == nil {
			d.Lo, err = strconv.ParseUint(t[split:], 16, 64)
		}
	}
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return d, nil
}

// HashBytes returns the digest of an in-memory byte slice
func HashBytes(data []byte) Digest {
	return Digest(xxh3.Hash128(data))
}

// Hasher streams files through XXH3-128 with a fixed-size read buffer.
// It is safe for concurrent use; each call borrows its own buffer.
type Hasher struct {
	bufferSize int
	buffers    sync.Pool
}

// NewHasher creates a hasher reading bufferSize bytes per chunk
func NewHasher(bufferSize int) *Hasher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	h := &Hasher{bufferSize: bufferSize}
	h.buffers.New = func() any {
		buf := make([]byte, bufferSize)
		return &buf
	}
	return h
}

// BufferSize returns the chunk size used for reads
func (h *Hasher) BufferSize() int {
	return h.bufferSize
}

// HashFile opens filePath and hashes its contents. A file that no longer
// exists yields an error matching ErrNotFound; any other failure is a
// *FileError. The context is checked between chunk reads.
func (h *Hasher) HashFile(ctx context.Context, filePath string) (Digest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Digest{}, &FileError{Op: "open", Path: filePath, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Digest{}, &FileError{Op: "stat", Path: filePath, Err: err}
	}
	if info.IsDir() {
		return Digest{}, &FileError{Op: "hash", Path: filePath, Err: ErrExpectedFile}
	}

	// Advisory only
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)

	d, err := h.hashStream(ctx, file)
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return Digest{}, err
		}
		return Digest{}, &FileError{Op: "read", Path: filePath, Err: err}
	}
	if IsDebugEnabled(DebugHash) {
		VerboseLog(3, "HashFile: %s -> %s (%d bytes)", filePath, d, info.Size())
	}
	return d, nil
}

// HashReader hashes everything readable from r
func (h *Hasher) HashReader(ctx context.Context, r io.Reader) (Digest, error) {
	return h.hashStream(ctx, r)
}

func (h *Hasher) hashStream(ctx context.Context, r io.Reader) (Digest, error) {
	bufp := h.buffers.Get().(*[]byte)
	defer h.buffers.Put(bufp)
	buffer := *bufp

	hasher := xxh3.New()
	for {
		// Check for cancellation before each read
		if err := ctx.Err(); err != nil {
			return Digest{}, err
		}

		n, err := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, err
		}
	}

	return Digest(hasher.Sum128()), nil
}
