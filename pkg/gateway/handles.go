// Package gateway owns the connection to the ZephFlow engine process and
// the handle contract consumed by result normalization.
//
// A handle is an opaque reference to a value living in the engine's memory
// space. The interfaces below are the binding boundary contract: any change
// to the engine's result shape is a breaking change here.
package gateway

// RecordHandle is an engine-side event payload that can be materialized
// into a fully-owned native value.
type RecordHandle interface {
	Unwrap() (any, error)
}

// MapHandle is an engine-side map. Keys returns keys in the engine's
// enumeration order; traversal consumes them in that order.
type MapHandle interface {
	Keys() ([]string, error)
	Get(key string) (any, error)
}

// ListHandle is an engine-side ordered sequence, visited 0..Size-1.
type ListHandle interface {
	Size() (int, error)
	Get(i int) (any, error)
}

// ErrorOutputHandle is an engine-side failed-event record.
type ErrorOutputHandle interface {
	InputEvent() (any, error)
	ErrorMessage() (string, error)
}

// SinkResultHandle summarizes one sink's write outcome.
//
// The engine's JVM surface names the error-count accessor errorCount(),
// unlike its get-prefixed siblings. The connection adapter maps that
// method, so Go callers see a uniform accessor set.
type SinkResultHandle interface {
	GetInputCount() (int64, error)
	GetSuccessCount() (int64, error)
	GetErrorCount() (int64, error)
	GetFailureEvents() (any, error)
}

// Single-accessor views of an engine run result. Result normalization
// checks each independently so a missing accessor can be named.
type (
	OutputEventsGetter interface {
		GetOutputEvents() (any, error)
	}
	OutputByStepGetter interface {
		GetOutputByStep() (any, error)
	}
	ErrorByStepGetter interface {
		GetErrorByStep() (any, error)
	}
	SinkResultMapGetter interface {
		GetSinkResultMap() (any, error)
	}
)

// ResultHandle is the full boundary contract for an engine run result.
type ResultHandle interface {
	OutputEventsGetter
	OutputByStepGetter
	ErrorByStepGetter
	SinkResultMapGetter
}
