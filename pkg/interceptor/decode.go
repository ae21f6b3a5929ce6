package interceptor

import (
	"strings"
	"unicode/utf8"

	lterrors "github.com/livp123/logtap/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const replacementChar = "\uFFFD"

// lineDecoder turns raw line bytes into text. Malformed sequences are replaced
// with U+FFFD and reported through the second return value.
type lineDecoder interface {
	decode(raw []byte) (string, bool)
	name() string
}

type utf8Decoder struct{}

func (utf8Decoder) decode(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), false
	}
	return strings.ToValidUTF8(string(raw), replacementChar), true
}

func (utf8Decoder) name() string { return "utf-8" }

type textDecoder struct {
	enc   encoding.Encoding
	label string
}

func (d textDecoder) decode(raw []byte) (string, bool) {
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), replacementChar), true
	}
	s := string(out)
	return s, strings.Contains(s, replacementChar)
}

func (d textDecoder) name() string { return d.label }

// newLineDecoder resolves an encoding label (WHATWG names, e.g. "latin1",
// "windows-1251", "shift_jis"). Encodings whose newline is not the single byte
// 0x0A cannot be split line by line and are rejected.
func newLineDecoder(label string) (lineDecoder, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return utf8Decoder{}, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, lterrors.NewConfigError("encoding", label)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = label
	}
	switch {
	case canonical == "utf-8":
		return utf8Decoder{}, nil
	case strings.HasPrefix(canonical, "utf-16"), canonical == "replacement":
		return nil, lterrors.NewConfigError("encoding", label)
	}
	return textDecoder{enc: enc, label: canonical}, nil
}
