package interceptor

import (
	"os"

	"github.com/spf13/afero"
)

// TimestampLayout is the capture-time prefix format: ISO-8601 with
// microseconds and a numeric UTC offset, e.g. 2024-05-01T12:00:00.123456+00:00.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

const (
	timestampPrefix = "[CAPTURED_AT: "
	timestampSuffix = "] "
)

// mirrorWriter appends accepted lines to the mirror file. Only the watch
// goroutine writes to it.
type mirrorWriter struct {
	path       string
	file       afero.File
	timestamps bool
	buf        []byte
}

func openMirror(fsys afero.Fs, path string, timestamps bool) (*mirrorWriter, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return &mirrorWriter{path: path, file: f, timestamps: timestamps}, nil
}

// Write appends one line with a single terminator. The whole record goes out
// in one write call so a concurrent reader never sees a torn prefix.
func (m *mirrorWriter) Write(line CapturedLine) error {
	m.buf = m.buf[:0]
	if m.timestamps {
		m.buf = append(m.buf, timestampPrefix...)
		m.buf = line.Timestamp.UTC().AppendFormat(m.buf, TimestampLayout)
		m.buf = append(m.buf, timestampSuffix...)
	}
	m.buf = append(m.buf, line.Content...)
	m.buf = append(m.buf, '\n')

	data := m.buf
	for len(data) > 0 {
		n, err := m.file.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *mirrorWriter) Close() error {
	if m == nil || m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// FormatMirrorLine renders line exactly as the mirror file stores it, without
// the terminator.
func FormatMirrorLine(line CapturedLine, timestamps bool) string {
	if !timestamps {
		return line.Content
	}
	return timestampPrefix + line.Timestamp.UTC().Format(TimestampLayout) + timestampSuffix + line.Content
}
