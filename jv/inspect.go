package jv

import "regexp"

// Layout discovery works by guessing a fixed slice and measuring how
// often its content looks like a known pattern across a large sample.
// A slice that hits (near) 100% with a plausible value range is accepted
// as the true field position.

// Permissive on purpose: only century and width are checked here. The
// caller judges plausibility from the reported min/max range.
var yyyymmddRe = regexp.MustCompile(`^(19|20)\d{6}$`)

// SliceReport is the hit-rate summary for one candidate slice.
type SliceReport struct {
	Offset  int
	Length  int
	Samples int
	Hits    int
	Min     string
	Max     string
}

// HitRate returns hits as a percentage of samples.
func (r SliceReport) HitRate() float64 {
	if r.Samples == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Samples) * 100
}

// DateSlice tests whether the slice at offset/length holds a YYYYMMDD
// date across the sampled payloads.
func DateSlice(payloads []string, offset, length int) SliceReport {
	rep := SliceReport{Offset: offset, Length: length, Samples: len(payloads)}
	for _, p := range payloads {
		if offset+length > len(p) {
			continue
		}
		candidate := p[offset : offset+length]
		if !yyyymmddRe.MatchString(candidate) {
			continue
		}
		rep.Hits++
		if rep.Min == "" || candidate < rep.Min {
			rep.Min = candidate
		}
		if candidate > rep.Max {
			rep.Max = candidate
		}
	}
	return rep
}

// DefaultDateSlices are the candidate positions tried first; the date
// block sits at one of these in every record type decoded so far.
func DefaultDateSlices() [][2]int {
	return [][2]int{{3, 8}, {8, 8}, {10, 8}, {11, 8}}
}
