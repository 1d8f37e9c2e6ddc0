package sink

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/morikuni/failure/v2"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
	bufSize  = 64 * 1024
)

type ErrorCode string

const (
	// ErrSinkIO is returned when the destination could not be written.
	// The previous destination content, if any, is left untouched.
	ErrSinkIO ErrorCode = "SinkIO"
)

// countingWriter counts bytes passed through to w
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeAtomic streams fill into a temp file next to dest, fsyncs it and
// renames it over dest. On any failure the temp file is removed.
func writeAtomic(ctx context.Context, dest string, fill func(w io.Writer) error) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, ioError(err, dest, "Write canceled")
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, ioError(err, dest, "Failed to create output directory")
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, ioError(err, dest, "Failed to create temporary file")
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, filePerm)

	abort := func(err error, msg string) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, ioError(err, dest, msg)
	}

	bw := bufio.NewWriterSize(tmp, bufSize)
	cw := &countingWriter{w: bw}
	if err := fill(cw); err != nil {
		return abort(err, "Failed to write records")
	}
	if err := bw.Flush(); err != nil {
		return abort(err, "Failed to flush records")
	}
	if err := tmp.Sync(); err != nil {
		return abort(err, "Failed to sync output file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, ioError(err, dest, "Failed to close output file")
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, ioError(err, dest, "Write canceled")
	}
	if err := replace(tmpPath, dest); err != nil {
		return 0, err
	}
	return cw.n, nil
}

// replace renames tmpPath over dest and syncs the parent directory
func replace(tmpPath, dest string) error {
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return ioError(err, dest, "Failed to move output into place")
	}
	_ = syncDir(filepath.Dir(dest))
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func ioError(err error, dest, msg string) error {
	return failure.Wrap(err, failure.WithCode(ErrSinkIO),
		failure.Message(msg+": "+dest),
		failure.Context{"dest": dest},
	)
}
