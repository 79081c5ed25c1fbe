package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks a capture spool as zstd-compressed.
const CompressedExt = ".zst"

// Capture spools raw push frames to disk, one JSON frame per line, for
// offline replay and debugging. Paths ending in .zst are compressed
// with zstd; anything else is written plain.
type Capture struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *zstd.Encoder
	out    io.Writer
	frames uint64
	closed bool
}

// NewCapture creates (truncating) a spool file at path.
func NewCapture(path string) (*Capture, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}

	c := &Capture{file: file, buf: bufio.NewWriterSize(file, 1024*1024)}
	c.out = c.buf
	if strings.HasSuffix(path, CompressedExt) {
		enc, err := zstd.NewWriter(c.buf,
			zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		c.enc = enc
		c.out = enc
	}
	return c, nil
}

// Write appends one frame to the spool.
func (c *Capture) Write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return os.ErrClosed
	}
	if _, err := c.out.Write(frame); err != nil {
		return err
	}
	if _, err := c.out.Write([]byte{'\n'}); err != nil {
		return err
	}
	c.frames++
	return nil
}

// Frames returns how many frames have been spooled.
func (c *Capture) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Close flushes and closes the spool.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.enc != nil {
		if err := c.enc.Close(); err != nil {
			c.file.Close()
			return err
		}
	}
	if err := c.buf.Flush(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// ReadFrames streams every spooled frame to fn in write order, stopping
// at the first error fn returns. The reader must already be decompressed
// for .zst spools.
func ReadFrames(r io.Reader, fn func(frame []byte) error) error {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scan.Scan() {
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scan.Err()
}
