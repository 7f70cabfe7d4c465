package harvest

import (
	"fmt"

	"ewintr.nl/vidharvest/model"
)

type State int

const (
	StateIdle State = iota
	StateGeneralPass
	StateChannelPass
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGeneralPass:
		return "general_pass"
	case StateChannelPass:
		return "channel_pass"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ChannelFailurePolicy decides what happens to the remaining channel passes
// when one fails to fetch.
type ChannelFailurePolicy string

const (
	PolicyAbort    ChannelFailurePolicy = "abort"
	PolicyContinue ChannelFailurePolicy = "continue"
)

func ParsePolicy(s string) (ChannelFailurePolicy, error) {
	switch ChannelFailurePolicy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyContinue:
		return PolicyContinue, nil
	default:
		return "", fmt.Errorf("unknown channel failure policy %q", s)
	}
}

// PassResult describes one fetch, filter and sink cycle. ChannelID is empty
// for the general pass.
type PassResult struct {
	ChannelID       model.YoutubeChannelID
	Retained        int
	Dropped         int
	PersistFailures int
	Err             error
}

// Accumulator collects pass results for a run.
type Accumulator struct {
	Total  int
	Passes []PassResult
}

func (a Accumulator) Add(res PassResult) Accumulator {
	passes := make([]PassResult, len(a.Passes), len(a.Passes)+1)
	copy(passes, a.Passes)
	return Accumulator{
		Total:  a.Total + res.Retained,
		Passes: append(passes, res),
	}
}

// Failed returns the passes that ended with an error.
func (a Accumulator) Failed() []PassResult {
	var failed []PassResult
	for _, pass := range a.Passes {
		if pass.Err != nil {
			failed = append(failed, pass)
		}
	}
	return failed
}
