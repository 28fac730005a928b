package xxhverify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/google/vectorio"
	"golang.org/x/sys/unix"
)

// maxIovecs bounds the iovec count per writev call. Linux IOV_MAX is 1024.
const maxIovecs = 1024

// TempManifestName returns a unique temporary file name for a manifest named base
func TempManifestName(base string) string {
	return TempManifestPrefix + base + "." + uuid.NewString() + TempManifestSuffix
}

// IsTempManifestName reports whether name is a temporary file for manifest base
func IsTempManifestName(name, base string) bool {
	prefix := TempManifestPrefix + base + "."
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, TempManifestSuffix) {
		return false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), TempManifestSuffix)
	_, err := uuid.Parse(id)
	return err == nil
}

// WriteManifestFile writes m to manifestPath atomically. Lines go to a
// temporary file in the same directory with vectored writes, the file is
// synced and renamed over manifestPath, then the directory is synced. On any
// failure the temporary file is removed and manifestPath is left untouched.
func WriteManifestFile(manifestPath string, m *Manifest) error {
	defer VerboseEnter()()
	dir := filepath.Dir(manifestPath)
	tempPath := filepath.Join(dir, TempManifestName(filepath.Base(manifestPath)))

	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}

	committed := false
	closed := false
	defer func() {
		if !closed {
			file.Close()
		}
		if !committed {
			os.Remove(tempPath)
		}
	}()

	lines := m.Lines()
	nw, err := writevAll(file, lines)
	if err != nil {
		return fmt.Errorf("failed to write manifest with vectorio: %w", err)
	}
	if IsDebugEnabled(DebugManifest) {
		VerboseLog(3, "WriteManifestFile: wrote %d bytes in %d lines to %s", nw, len(lines), tempPath)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary manifest: %w", err)
	}
	closed = true
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temporary manifest: %w", err)
	}

	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	committed = true

	if err := syncDir(dir); err != nil {
		return fmt.Errorf("failed to sync manifest directory: %w", err)
	}

	VerboseLog(1, "Wrote %d manifest entries to %s", m.Len(), manifestPath)
	return nil
}

// writevAll writes every buffer to file, chunking to maxIovecs and resuming
// after short writes
func writevAll(file *os.File, bufs [][]byte) (int64, error) {
	var total int64
	bufs = dropEmpty(bufs)
	for len(bufs) > 0 {
		n := min(len(bufs), maxIovecs)
		iovecs := make([]syscall.Iovec, 0, n)
		for _, b := range bufs[:n] {
			if len(b) == 0 {
				continue
			}
			iov := syscall.Iovec{Base: &b[0]}
			iov.SetLen(len(b))
			iovecs = append(iovecs, iov)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return total, err
		}
		if nw == 0 {
			return total, io.ErrShortWrite
		}
		total += int64(nw)
		bufs = consume(bufs, nw)
	}
	return total, nil
}

// consume drops the first n written bytes from bufs
func consume(bufs [][]byte, n int) [][]byte {
	for n > 0 && len(bufs) > 0 {
		if n >= len(bufs[0]) {
			n -= len(bufs[0])
			bufs = bufs[1:]
			continue
		}
		bufs[0] = bufs[0][n:]
		n = 0
	}
	return dropEmpty(bufs)
}

func dropEmpty(bufs [][]byte) [][]byte {
	for len(bufs) > 0 && len(bufs[0]) == 0 {
		bufs = bufs[1:]
	}
	return bufs
}

// syncDir flushes directory metadata so a completed rename survives a crash
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
