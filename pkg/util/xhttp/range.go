package xhttp

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ByteRange is a half-open [Start, End) byte interval, matching Go slice
// convention, whereas the wire format is inclusive on both ends.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 { return r.End - r.Start }

// ContentRange formats the range as a Content-Range header value,
// "bytes start-end/total" with an inclusive end.
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End-1, total)
}

// ParseRangeHeader parses a Range request header like "bytes=0-1023",
// "bytes=1024-" or "bytes=-500" against the given size. It returns false for
// unsupported units, malformed specs, multi-range specs and empty or
// out-of-bounds ranges; callers then serve the full content.
func ParseRangeHeader(header string, size int64) (ByteRange, bool) {
	var zero ByteRange
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return zero, false
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok || strings.Contains(last, ",") {
		return zero, false
	}

	if first == "" {
		// suffix range: "-500" means the last 500 bytes
		suffix, err := cast.ToInt64E(last)
		if err != nil || suffix < 0 {
			return zero, false
		}
		if suffix == 0 || suffix >= size {
			if size == 0 {
				return zero, false
			}
			return ByteRange{Start: 0, End: size}, true
		}
		return ByteRange{Start: size - suffix, End: size}, true
	}

	start, err := cast.ToInt64E(first)
	if err != nil || start < 0 {
		return zero, false
	}
	end := size
	if last != "" {
		// bounded range: "0-1023" has an inclusive end
		endInclusive, err := cast.ToInt64E(last)
		if err != nil {
			return zero, false
		}
		end = min(endInclusive+1, size)
	}
	if start >= size || start >= end {
		return zero, false
	}
	return ByteRange{Start: start, End: end}, true
}
