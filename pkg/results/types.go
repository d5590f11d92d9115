// Package results normalizes an engine run result into fully-owned Go
// values. The input is polymorphic: either a plain nested structure the
// gateway already materialized, or a graph of engine-side handles. Either
// way the output is a canonical EngineResult the caller owns outright.
package results

// EngineResult is the canonical, fully materialized form of one engine run.
// A fresh value is built per conversion; results are never shared between
// calls.
type EngineResult struct {
	// OutputEvents maps exit name to the ordered records that left the
	// flow there.
	OutputEvents map[string][]any `json:"output_events"`

	// OutputByStep maps step name to source name to the ordered records
	// that step produced.
	OutputByStep map[string]map[string][]any `json:"output_by_step"`

	// ErrorByStep maps step name to source name to the ordered failures
	// raised there. Elements may be nil when the engine reported a null
	// entry; nulls pass through unchanged.
	ErrorByStep map[string]map[string][]*ErrorOutput `json:"error_by_step"`

	// SinkResultMap maps sink name to its write summary, nil when the
	// engine reported none for that sink.
	SinkResultMap map[string]*SinkResult `json:"sink_result_map"`
}

// ErrorOutput is one failed event with its diagnostic message.
type ErrorOutput struct {
	InputEvent   any    `json:"input_event"`
	ErrorMessage string `json:"error_message"`
}

// SinkResult summarizes one sink's writes.
type SinkResult struct {
	InputCount    int64          `json:"input_count"`
	SuccessCount  int64          `json:"success_count"`
	ErrorCount    int64          `json:"error_count"`
	FailureEvents []*ErrorOutput `json:"failure_events"`
}

func newEngineResult() *EngineResult {
	return &EngineResult{
		OutputEvents:  map[string][]any{},
		OutputByStep:  map[string]map[string][]any{},
		ErrorByStep:   map[string]map[string][]*ErrorOutput{},
		SinkResultMap: map[string]*SinkResult{},
	}
}
