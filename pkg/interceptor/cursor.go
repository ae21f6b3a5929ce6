package interceptor

import (
	"errors"
	"io"
	"io/fs"
	"os"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"github.com/spf13/afero"
)

const readChunkSize = 64 * 1024

// readResult is what one cursor pass produced.
type readResult struct {
	Lines        []string
	DecodeErrors int
	Rotated      bool
	Truncated    bool
	Opened       bool
}

// fileCursor owns the read position into the source file. It is only touched
// by the watch goroutine.
//
// Invariants:
//   - offset counts bytes of complete lines already returned; pending holds the
//     bytes of a trailing partial line that starts at offset.
//   - offset never decreases while identity is unchanged.
type fileCursor struct {
	fs              afero.Fs
	path            string
	decoder         lineDecoder
	followRotations bool
	maxFileSize     int64

	file     afero.File
	identity os.FileInfo
	offset   int64
	pending  []byte
	buf      []byte
}

func newFileCursor(fsys afero.Fs, path string, dec lineDecoder, followRotations bool, maxFileSize int64) *fileCursor {
	return &fileCursor{
		fs:              fsys,
		path:            path,
		decoder:         dec,
		followRotations: followRotations,
		maxFileSize:     maxFileSize,
		buf:             make([]byte, readChunkSize),
	}
}

// Open opens the source. With atEnd the cursor starts at the file's current
// size so existing content is never replayed.
// Open 打开源文件，atEnd 为 true 时从当前文件末尾开始，不回放已有内容。
func (c *fileCursor) Open(atEnd bool) error {
	f, err := c.fs.Open(c.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	c.file = f
	c.identity = info
	c.pending = nil
	c.offset = 0
	if atEnd {
		c.offset = info.Size()
	}
	return nil
}

func (c *fileCursor) IsOpen() bool {
	return c.file != nil
}

// Position returns the consumed offset and the number of held-back bytes.
func (c *fileCursor) Position() (offset int64, pending int) {
	return c.offset, len(c.pending)
}

// Close releases the handle and discards any partial line.
func (c *fileCursor) Close() error {
	c.pending = nil
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.identity = nil
	return err
}

// Next checks for rotation or truncation and then reads every complete line
// appended since the previous call. Lines read before an error are returned
// together with it; the position only covers returned lines.
func (c *fileCursor) Next() (readResult, error) {
	var res readResult

	if !c.IsOpen() {
		if err := c.Open(false); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return res, nil
			}
			return res, lterrors.NewTransientError(c.path, err)
		}
		res.Opened = true
	}

	current, err := c.fs.Stat(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Renamed away or deleted: drain what is left, then wait for a new file.
		if err := c.readAvailable(&res); err != nil {
			return res, err
		}
		if c.followRotations {
			res.Rotated = true
			c.Close()
		}
		return res, nil
	case err != nil:
		return res, lterrors.NewTransientError(c.path, err)
	}

	if !os.SameFile(c.identity, current) && c.followRotations {
		if err := c.readAvailable(&res); err != nil {
			return res, err
		}
		c.Close()
		res.Rotated = true
		if err := c.Open(false); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return res, nil
			}
			return res, lterrors.NewTransientError(c.path, err)
		}
		current, err = c.file.Stat()
		if err != nil {
			return res, lterrors.NewTransientError(c.path, err)
		}
	}

	if os.SameFile(c.identity, current) {
		if current.Size() < c.offset+int64(len(c.pending)) {
			c.offset = 0
			c.pending = nil
			res.Truncated = true
		}
		if c.maxFileSize > 0 && current.Size() > c.maxFileSize {
			return res, lterrors.NewFileTooLargeError(c.path, current.Size(), c.maxFileSize)
		}
	}

	return res, c.readAvailable(&res)
}

// readAvailable reads from the current handle until EOF.
func (c *fileCursor) readAvailable(res *readResult) error {
	if c.file == nil {
		return nil
	}
	for {
		n, err := c.file.ReadAt(c.buf, c.offset+int64(len(c.pending)))
		if n > 0 {
			c.pending = append(c.pending, c.buf[:n]...)
			c.splitLines(res)
		}
		if err == io.EOF || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return lterrors.NewTransientError(c.path, err)
		}
	}
}

// splitLines moves complete lines out of pending and advances offset past them.
func (c *fileCursor) splitLines(res *readResult) {
	start := 0
	for i := 0; i < len(c.pending); i++ {
		if c.pending[i] != '\n' {
			continue
		}
		raw := c.pending[start:i]
		if len(raw) > 0 && raw[len(raw)-1] == '\r' {
			raw = raw[:len(raw)-1]
		}
		line, bad := c.decoder.decode(raw)
		if bad {
			res.DecodeErrors++
		}
		res.Lines = append(res.Lines, line)
		c.offset += int64(i - start + 1)
		start = i + 1
	}
	if start == 0 {
		return
	}
	rest := len(c.pending) - start
	copy(c.pending, c.pending[start:])
	c.pending = c.pending[:rest]
}
