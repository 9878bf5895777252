package scanner

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// binarySniffLen is how many leading bytes are checked for NUL bytes.
const binarySniffLen = 8 * 1024

// ErrBinaryFile marks files that look binary and are not scanned.
var ErrBinaryFile = errors.New("file appears to be binary")

//nolint:gochecknoglobals // Immutable byte-order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText turns file contents into a string. Valid UTF-8 is used as is;
// anything containing NUL bytes near the start is treated as binary; other
// content is decoded as ISO-8859-1, which accepts every byte sequence.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", ErrBinaryFile
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
