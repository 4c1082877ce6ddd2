package pullrequest

import "fmt"

// Outcome is the result of opening a pull request.
type Outcome uint8

const (
	OutcomeUndefined Outcome = iota
	Created
	Reused
	SkippedNoCommits
	Failed
)

var outcomeStrings = [...]string{
	OutcomeUndefined: "undefined",
	Created:          "created",
	Reused:           "reused",
	SkippedNoCommits: "skipped_no_commits",
	Failed:           "failed",
}

func (o Outcome) String() string {
	// it can not be <0 because it's type is uint8
	if int(o) > len(outcomeStrings)-1 {
		return fmt.Sprintf("unsupported Outcome value: %d", o)
	}

	return outcomeStrings[o]
}
