package analysis

import "fmt"

// InsufficientDataError reports a table without usable numeric data.
type InsufficientDataError struct {
	Table  string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("table %q: insufficient data for analysis: %s", e.Table, e.Reason)
}

// DegenerateFeatureError marks a zero-variance feature. It is recoverable:
// Analyze records it in Result.Degenerate and substitutes a neutral scale
// instead of failing.
type DegenerateFeatureError struct {
	Column string
	Value  float64 // the constant value over the rows used
}

func (e *DegenerateFeatureError) Error() string {
	return fmt.Sprintf("column %q has zero variance (constant %.4g); standardized to 0", e.Column, e.Value)
}
