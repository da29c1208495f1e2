package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ChunkSize caps how far past the requested start one response reaches.
const ChunkSize int64 = 1 << 20

var ErrUnsatisfiable = errors.New("range not satisfiable")

// ByteRange is an inclusive [Start, End] slice of a file.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange resolves a Range header against a file of the given size.
//
// Only the first range of a multi-range header is served. A header that
// cannot be parsed is treated as a request from byte 0. The returned window
// never extends more than ChunkSize bytes past Start, nor past the client's
// own end when one is given.
func ParseRange(header string, size int64) (ByteRange, error) {
	start, clientEnd := firstRange(header, size)
	if size <= 0 || start >= size {
		return ByteRange{}, ErrUnsatisfiable
	}

	end := start + ChunkSize
	if end > size-1 {
		end = size - 1
	}
	if clientEnd >= start && clientEnd < end {
		end = clientEnd
	}
	return ByteRange{Start: start, End: end}, nil
}

// firstRange returns the start offset and the client's end offset (-1 when
// open ended).
func firstRange(header string, size int64) (int64, int64) {
	const unit = "bytes="
	header = strings.TrimSpace(header)
	if len(header) < len(unit) || !strings.EqualFold(header[:len(unit)], unit) {
		return 0, -1
	}
	rangeSet := header[len(unit):]
	if i := strings.IndexByte(rangeSet, ','); i >= 0 {
		rangeSet = rangeSet[:i]
	}
	first, last, ok := strings.Cut(strings.TrimSpace(rangeSet), "-")
	if !ok {
		return 0, -1
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		suffix, err := strconv.ParseInt(last, 10, 64)
		if err != nil || suffix < 0 {
			return 0, -1
		}
		start := size - suffix
		if start < 0 {
			start = 0
		}
		return start, -1
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, -1
	}
	if last == "" {
		return start, -1
	}
	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return 0, -1
	}
	return start, end
}
