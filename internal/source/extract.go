package source

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrOutOfRange is returned for offsets outside the buffer or an empty range
	ErrOutOfRange = errors.New("byte range out of bounds")
	// ErrInvalidBoundary is returned when the start offset splits a character
	ErrInvalidBoundary = errors.New("start offset is not a character boundary")
)

// SafeSlice returns buf[start:end] as text. An end offset inside a
// multi-byte character moves back to the character's first byte. A start
// offset inside one fails rather than shifting.
func SafeSlice(buf []byte, start, end int) (string, error) {
	if start < 0 || end > len(buf) || start >= end {
		return "", fmt.Errorf("%w: [%d, %d) of %d bytes", ErrOutOfRange, start, end, len(buf))
	}
	if !utf8.RuneStart(buf[start]) {
		return "", fmt.Errorf("%w: %d", ErrInvalidBoundary, start)
	}
	for end < len(buf) && end > start && !utf8.RuneStart(buf[end]) {
		end--
	}
	if end <= start {
		return "", fmt.Errorf("%w: [%d, %d) holds no whole character", ErrOutOfRange, start, end)
	}
	return string(buf[start:end]), nil
}
