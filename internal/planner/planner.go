// Package planner is the Segment Planner of spec.md §4.C: it decides
// segment count and byte boundaries from a discovered total size.
package planner

import "rangedl/internal/config"

// Segment is one contiguous, non-overlapping byte range of a plan.
type Segment struct {
	Index int
	Start int64
	End   int64 // inclusive
}

// Plan computes the segment layout for a download. It returns a single
// segment covering [0, totalSize) whenever range support is absent, size
// is unknown (totalSize < 0), or the formula below yields N == 1.
//
// N = max(1, min(MaxSegments, floor(totalSize / MinSegmentSize)))
// segment i gets start = i*floor(totalSize/N), end = (i+1)*floor(totalSize/N)-1,
// and segment N-1's end is clamped to totalSize-1.
func Plan(totalSize int64, rangeSupported bool) []Segment {
	if !rangeSupported || totalSize < 0 {
		return []Segment{{Index: 0, Start: 0, End: totalSize - 1}}
	}

	n := totalSize / config.MinSegmentSize
	if n > config.MaxSegments {
		n = config.MaxSegments
	}
	if n < 1 {
		n = 1
	}

	if n == 1 {
		return []Segment{{Index: 0, Start: 0, End: totalSize - 1}}
	}

	segSize := totalSize / n
	segments := make([]Segment, n)
	for i := int64(0); i < n; i++ {
		start := i * segSize
		end := (i+1)*segSize - 1
		if i == n-1 {
			end = totalSize - 1
		}
		segments[i] = Segment{Index: int(i), Start: start, End: end}
	}
	return segments
}
