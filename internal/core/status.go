package core

// Status is the verdict of comparing a measured value against a target.
type Status uint8

const (
	StatusNoData Status = iota
	StatusPass
	StatusFail
)

// String returns the label used in reports.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	default:
		return "NO DATA"
	}
}

// Merge combines two verdicts. A failure wins; missing data only stands
// when neither side has a result.
func Merge(a, b Status) Status {
	if a == StatusFail || b == StatusFail {
		return StatusFail
	}
	if a == StatusPass || b == StatusPass {
		return StatusPass
	}
	return StatusNoData
}
