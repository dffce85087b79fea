package types

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SpanID returns a stable identifier for a byte range of a file.
// It depends only on its inputs, never on storage row identity.
func SpanID(path string, byteStart, byteEnd int) string {
	d := xxhash.New()
	writeIDParts(d, path, strconv.Itoa(byteStart), strconv.Itoa(byteEnd))
	return fmt.Sprintf("%016x", d.Sum64())
}

// MatchID returns a stable identifier for a named match at a byte range
func MatchID(path string, byteStart, byteEnd int, name string) string {
	d := xxhash.New()
	writeIDParts(d, path, strconv.Itoa(byteStart), strconv.Itoa(byteEnd), name)
	return fmt.Sprintf("%016x", d.Sum64())
}

func writeIDParts(d *xxhash.Digest, parts ...string) {
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.WriteString(p)
	}
}
