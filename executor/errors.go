package executor

import (
	"fmt"

	"github.com/casualjim/omnichat/provider"
)

// OrchestrationError reports a conversation that cannot make progress: an
// unexpected finish reason, a failing tool or too many turns.
type OrchestrationError struct {
	Provider     string
	Turn         int
	FinishReason provider.FinishReason
	Reason       string
	Err          error
}

func (e *OrchestrationError) Error() string {
	msg := fmt.Sprintf("%s: orchestration failed at turn %d: %s", e.Provider, e.Turn, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}
