package schedule

// Policy reduces a resolved schedule to the step names a caller wants.
// The resolver performs no interactive I/O; a caller needing interactive
// disambiguation implements Policy itself and prompts outside this package.
type Policy interface {
	// Select returns the chosen step names from a resolved schedule.
	Select(res *Result) ([]string, error)
}

// SelectAll returns the entire order, for phases whose steps are composed
// together.
var SelectAll Policy = selectAll{}

// SelectFirst returns the first entry of the topological order, for callers
// that need exactly one designated step. It refuses to guess: if the phase
// has more than one root (mutually unconstrained candidates), it fails with
// MULTIPLE_CANDIDATES naming all of them.
var SelectFirst Policy = selectFirst{}

type selectAll struct{}

func (selectAll) Select(res *Result) ([]string, error) {
	return res.Order, nil
}

type selectFirst struct{}

func (selectFirst) Select(res *Result) ([]string, error) {
	if len(res.Roots) > 1 {
		return nil, newMultipleCandidatesError(res.Phase, res.Roots)
	}
	if len(res.Order) == 0 {
		return nil, newNoStepsError(res.Phase)
	}
	return res.Order[:1], nil
}
