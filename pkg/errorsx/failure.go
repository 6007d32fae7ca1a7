package errorsx

import "time"

// Failure is the user-facing record of a terminal error for one operation.
type Failure struct {
	Kind   ReasonCode
	Detail string
	Time   time.Time
}

// NewFailure builds a Failure from err. A nil or unreasoned err falls back to kind.
func NewFailure(kind ReasonCode, err error) Failure {
	f := Failure{Kind: kind, Time: time.Now()}
	if err != nil {
		if r := Reason(err); r != ReasonUnknown {
			f.Kind = r
		}
		f.Detail = err.Error()
	}
	return f
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}
