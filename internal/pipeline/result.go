package pipeline

import "fmt"

// Outcome classifies how a stage invocation ended. Stages never raise an
// unhandled fault; every failure is converted into a Result so the worker
// can branch on kind without string parsing.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeNotFound           Outcome = "not_found"
	OutcomeUpstreamFetchError Outcome = "upstream_fetch_error"
	OutcomePersistenceError   Outcome = "persistence_error"
	OutcomeDeliveryError      Outcome = "delivery_error"
)

// Result is the typed outcome of one stage invocation.
type Result struct {
	Outcome Outcome
	Detail  string
}

// Success reports whether the chain is considered intact. Delivery errors
// fall back to the log and do not halt the pipeline, but are still surfaced
// as failures for metrics.
func (r Result) Success() bool {
	return r.Outcome == OutcomeOK
}

func okf(format string, args ...any) Result {
	return Result{Outcome: OutcomeOK, Detail: fmt.Sprintf(format, args...)}
}

func failf(outcome Outcome, format string, args ...any) Result {
	return Result{Outcome: outcome, Detail: fmt.Sprintf(format, args...)}
}
