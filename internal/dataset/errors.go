package dataset

import "fmt"

type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
	StageSchema Stage = "schema"
)

// LoadError reports which step of getting a dataset failed.
type LoadError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
