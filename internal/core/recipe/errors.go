package recipe

import "fmt"

// 候選食譜被拒絕的原因
const (
	ReasonParse          = "parse"
	ReasonNotObject      = "not_object"
	ReasonEmptyCandidate = "empty_candidate"
)

// NormalizationError 回應無法解析，或候選食譜在整理後為空
type NormalizationError struct {
	Reason string
	Title  string
	Index  int
	Err    error
}

func (e *NormalizationError) Error() string {
	switch e.Reason {
	case ReasonEmptyCandidate:
		return fmt.Sprintf("candidate %d (%q) has no ingredients and no steps", e.Index, e.Title)
	case ReasonNotObject:
		return fmt.Sprintf("candidate %d is not a JSON object", e.Index)
	default:
		if e.Err != nil {
			return "failed to parse extraction response: " + e.Err.Error()
		}
		return "failed to parse extraction response"
	}
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}
