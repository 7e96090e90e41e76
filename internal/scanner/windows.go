package scanner

import "github.com/AlexZinkM/record-agent/internal/errs"

const (
	// unspentStep is the window size of the descending unspent scan.
	unspentStep = 49
	// alignedStep is the window size, and alignment, of the ascending scans.
	alignedStep = 50
)

// Range is a half-open block height range [Start, End).
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) validate() error {
	if r.Start >= r.End {
		return errs.Validation("start height %d must be less than end height %d", r.Start, r.End)
	}
	return nil
}

type window struct {
	start, end uint32
}

// descendingWindows walks back from r.End in windows of step blocks; every window
// is clamped at r.Start. For 0..100 and step 49 that is (51,100), (2,51), (0,2).
func descendingWindows(r Range, step uint32) []window {
	var out []window
	for end := r.End; end > r.Start; {
		start := r.Start
		if end-r.Start > step {
			start = end - step
		}
		out = append(out, window{start: start, end: end})
		end = start
	}
	return out
}

// alignedWindows walks forward from r.Start rounded down to a multiple of step.
// Window ends are clamped at r.End.
func alignedWindows(r Range, step uint32) []window {
	var out []window
	for start := r.Start - r.Start%step; start < r.End; start += step {
		end := start + step
		if end > r.End || end < start {
			end = r.End
		}
		out = append(out, window{start: start, end: end})
	}
	return out
}
