package model

// RunDiff describes how the broken links of a site changed between two runs.
type RunDiff struct {
	// NewlyBroken are broken in the current run but were not before.
	NewlyBroken []BrokenLink `json:"newly_broken"`

	// StillBroken are broken in both runs. The entries come from the
	// current run, so referrers and codes are up to date.
	StillBroken []BrokenLink `json:"still_broken"`

	// Fixed are URLs that were broken in the previous run but are not
	// broken now. A URL that is no longer referenced also counts as fixed.
	Fixed []string `json:"fixed"`
}

// Diff compares the failures of two runs. previous may be nil, in which
// case every current failure is newly broken.
func Diff(previous, current *Result) RunDiff {
	diff := RunDiff{
		NewlyBroken: []BrokenLink{},
		StillBroken: []BrokenLink{},
		Fixed:       []string{},
	}

	before := make(map[string]struct{})
	if previous != nil {
		for _, f := range previous.Failures {
			before[f.URL] = struct{}{}
		}
	}

	now := make(map[string]struct{})
	if current != nil {
		for _, f := range current.Failures {
			now[f.URL] = struct{}{}
			if _, ok := before[f.URL]; ok {
				diff.StillBroken = append(diff.StillBroken, f)
			} else {
				diff.NewlyBroken = append(diff.NewlyBroken, f)
			}
		}
	}

	if previous != nil {
		for _, f := range previous.Failures {
			if _, ok := now[f.URL]; !ok {
				diff.Fixed = append(diff.Fixed, f.URL)
			}
		}
	}
	return diff
}

// Changed reports whether anything was fixed or newly broken.
func (d RunDiff) Changed() bool {
	return len(d.NewlyBroken) > 0 || len(d.Fixed) > 0
}
