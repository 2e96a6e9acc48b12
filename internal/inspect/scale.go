package inspect

import (
	"errors"
	"maps"
	"slices"
	"sort"
)

var errFactor = errors.New("scaling factor must be positive")

// Range restricts scaling to the rows [Begin, End).
type Range struct {
	Begin uint64
	End   uint64
}

// ScaledMap is the line map projected onto a fixed number of bins.
type ScaledMap struct {
	// Bins holds per-pattern counts; Bins[0] is bin 1.
	Bins []map[string]uint64
	// Stats are the unscaled per-pattern totals.
	Stats map[string]uint64
}

// Bin returns the counts of the 1-based bin i, or nil when out of range.
func (m ScaledMap) Bin(i int) map[string]uint64 {
	if i < 1 || i > len(m.Bins) {
		return nil
	}
	return m.Bins[i-1]
}

// Empty reports whether no bin holds a count.
func (m ScaledMap) Empty() bool {
	for _, bin := range m.Bins {
		if len(bin) > 0 {
			return false
		}
	}
	return true
}

// Max returns the largest count of key in any bin.
func (m ScaledMap) Max(key string) uint64 {
	var peak uint64
	for _, bin := range m.Bins {
		peak = max(peak, bin[key])
	}
	return peak
}

func emptyBins(factor int) []map[string]uint64 {
	if factor <= 0 {
		return nil
	}
	bins := make([]map[string]uint64, factor)
	for i := range bins {
		bins[i] = map[string]uint64{}
	}
	return bins
}

// scale projects the line map onto factor bins. Bin i covers the rows
// [start+(i-1)*rate, start+i*rate], inclusive at both ends, so a row on a
// boundary is counted in both neighbouring bins. Without details only the
// first matching row of a bin contributes.
//
// A non-nil error means the request was malformed; the returned map is still
// usable and all bins are empty.
func (s *store) scale(streamLength uint64, factor int, details bool, rng *Range) (ScaledMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := ScaledMap{Stats: maps.Clone(s.stats), Bins: emptyBins(factor)}
	if factor <= 0 {
		return out, errFactor
	}

	start, length := uint64(0), streamLength
	limit := ^uint64(0)
	if rng != nil {
		if rng.End < rng.Begin {
			return out, &RangeError{From: rng.Begin, To: rng.End}
		}
		start, length, limit = rng.Begin, rng.End-rng.Begin, rng.End
	}

	rate := length / uint64(factor)
	if rate <= 1 {
		return out, nil
	}

	last := min(start+uint64(factor)*rate, limit)
	rows := make([]uint64, 0, len(s.lines))
	for row := range s.lines {
		if row >= start && row <= last {
			rows = append(rows, row)
		}
	}
	slices.Sort(rows)

	for i := 1; i <= factor; i++ {
		lo := start + uint64(i-1)*rate
		hi := min(start+uint64(i)*rate, limit)
		if lo > hi {
			continue
		}
		bin := out.Bins[i-1]
		k := sort.Search(len(rows), func(n int) bool { return rows[n] >= lo })
		for ; k < len(rows) && rows[k] <= hi; k++ {
			for key := range s.lines[rows[k]] {
				bin[key]++
			}
			if !details {
				break
			}
		}
	}
	return out, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}
