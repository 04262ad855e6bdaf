package sweep

import "fmt"

// ParseError reports a malformed parameter string. Header parse failures at
// load time never surface as errors; the column pair is dropped and counted
// in the LoadReport instead.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Input, e.Reason)
}

// InvalidArgumentError reports a malformed request, such as supplying both or
// neither of an index and a parameter assignment.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string { return e.Reason }

// NotFoundError reports a lookup that matched no series: an out-of-range
// enumeration index or an unknown parameter assignment.
type NotFoundError struct {
	ByIndex bool
	Index   int
	Params  Params
}

func (e *NotFoundError) Error() string {
	if e.ByIndex {
		return fmt.Sprintf("series index %d out of range", e.Index)
	}
	return fmt.Sprintf("parameters not found: %s", e.Params)
}

// EmptySeriesError reports a series that exists but holds no points. Distinct
// from NotFoundError: the assignment is a valid key.
type EmptySeriesError struct {
	Params Params
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("series %s has no data", e.Params)
}
