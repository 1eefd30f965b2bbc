package domain

// ErrorPolicy decides what the offline pipeline does with a failure after
// logging it.
type ErrorPolicy int

const (
	// PolicyLogAndContinue logs the failure and reports success to the caller.
	PolicyLogAndContinue ErrorPolicy = iota
	// PolicyFail logs the failure and returns it.
	PolicyFail
)

func (p ErrorPolicy) String() string {
	if p == PolicyFail {
		return "fail"
	}
	return "log-and-continue"
}
