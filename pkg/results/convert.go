package results

import (
	"encoding/json"
	"fmt"

	"github.com/fleak-ai/zephflow-go/pkg/gateway"
)

// Wire field names on the plain (already materialized) result shape.
const (
	fieldOutputEvents  = "outputEvents"
	fieldOutputByStep  = "outputByStep"
	fieldErrorByStep   = "errorByStep"
	fieldSinkResultMap = "sinkResultMap"
)

// Convert normalizes a raw engine result into a canonical EngineResult.
//
// raw is polymorphic: a plain map using the wire field names, or a handle
// satisfying the four result accessors. Validation runs before any
// conversion work; a mid-traversal fault fails the whole call, so callers
// never observe a partially converted result. Convert is pure and stateless:
// it never mutates raw and is safe to run concurrently on independent
// inputs.
func Convert(raw any) (*EngineResult, error) {
	if raw == nil {
		return nil, ErrInvalidInput
	}

	if m, ok := raw.(map[string]any); ok {
		return convertFields(m[fieldOutputEvents], m[fieldOutputByStep], m[fieldErrorByStep], m[fieldSinkResultMap])
	}

	// Handle path: the full accessor set must be present before any
	// accessor is invoked.
	if _, ok := raw.(gateway.OutputEventsGetter); !ok {
		return nil, &ShapeMismatchError{Missing: "getOutputEvents"}
	}
	if _, ok := raw.(gateway.OutputByStepGetter); !ok {
		return nil, &ShapeMismatchError{Missing: "getOutputByStep"}
	}
	if _, ok := raw.(gateway.ErrorByStepGetter); !ok {
		return nil, &ShapeMismatchError{Missing: "getErrorByStep"}
	}
	if _, ok := raw.(gateway.SinkResultMapGetter); !ok {
		return nil, &ShapeMismatchError{Missing: "getSinkResultMap"}
	}

	h := raw.(gateway.ResultHandle)
	outputEvents, err := h.GetOutputEvents()
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}
	outputByStep, err := h.GetOutputByStep()
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}
	errorByStep, err := h.GetErrorByStep()
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}
	sinkResultMap, err := h.GetSinkResultMap()
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}

	return convertFields(outputEvents, outputByStep, errorByStep, sinkResultMap)
}

func convertFields(outputEvents, outputByStep, errorByStep, sinkResultMap any) (*EngineResult, error) {
	res := newEngineResult()

	err := forEachEntry(outputEvents, func(exit string, v any) error {
		list, err := convertRecordList(v)
		if err != nil {
			return err
		}
		res.OutputEvents[exit] = list
		return nil
	})
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}

	err = forEachEntry(outputByStep, func(step string, v any) error {
		inner := map[string][]any{}
		if err := forEachEntry(v, func(source string, lv any) error {
			list, err := convertRecordList(lv)
			if err != nil {
				return err
			}
			inner[source] = list
			return nil
		}); err != nil {
			return err
		}
		res.OutputByStep[step] = inner
		return nil
	})
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}

	err = forEachEntry(errorByStep, func(step string, v any) error {
		inner := map[string][]*ErrorOutput{}
		if err := forEachEntry(v, func(source string, lv any) error {
			list := []*ErrorOutput{}
			if err := forEachElem(lv, func(el any) error {
				eo, err := convertErrorOutput(el)
				if err != nil {
					return err
				}
				list = append(list, eo)
				return nil
			}); err != nil {
				return err
			}
			inner[source] = list
			return nil
		}); err != nil {
			return err
		}
		res.ErrorByStep[step] = inner
		return nil
	})
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}

	err = forEachEntry(sinkResultMap, func(sink string, v any) error {
		sr, err := convertSinkResult(v)
		if err != nil {
			return err
		}
		res.SinkResultMap[sink] = sr
		return nil
	})
	if err != nil {
		return nil, wrapConversion("DagResult", err)
	}

	return res, nil
}

// convertRecord materializes one record. Values exposing Unwrap are
// unwrapped; anything else, handle-shaped or not, is used as-is. Nulls pass
// through unchanged.
func convertRecord(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if h, ok := v.(gateway.RecordHandle); ok {
		u, err := h.Unwrap()
		if err != nil {
			return nil, &ConversionError{Entity: "record", Err: fmt.Errorf("unwrap failed: %w", err)}
		}
		return u, nil
	}
	return v, nil
}

func convertRecordList(v any) ([]any, error) {
	out := []any{}
	err := forEachElem(v, func(el any) error {
		rec, err := convertRecord(el)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// convertErrorOutput accepts a plain {input_event, error_message} map or an
// ErrorOutputHandle. A nil element passes through as nil.
func convertErrorOutput(v any) (*ErrorOutput, error) {
	switch e := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := &ErrorOutput{InputEvent: e["input_event"]}
		if msg := e["error_message"]; msg != nil {
			s, ok := msg.(string)
			if !ok {
				return nil, &ConversionError{Entity: "ErrorOutput",
					Err: fmt.Errorf("error_message has type %T, want string", msg)}
			}
			out.ErrorMessage = s
		}
		return out, nil
	case gateway.ErrorOutputHandle:
		ev, err := e.InputEvent()
		if err != nil {
			return nil, wrapConversion("ErrorOutput", err)
		}
		rec, err := convertRecord(ev)
		if err != nil {
			return nil, wrapConversion("ErrorOutput", err)
		}
		msg, err := e.ErrorMessage()
		if err != nil {
			return nil, wrapConversion("ErrorOutput", err)
		}
		return &ErrorOutput{InputEvent: rec, ErrorMessage: msg}, nil
	default:
		return nil, &ConversionError{Entity: "ErrorOutput", Err: fmt.Errorf("unexpected type %T", v)}
	}
}

// convertSinkResult accepts a plain four-field map or a SinkResultHandle.
// A nil value passes through as nil.
func convertSinkResult(v any) (*SinkResult, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		sr := &SinkResult{FailureEvents: []*ErrorOutput{}}
		var err error
		if sr.InputCount, err = intField(s, "input_count"); err != nil {
			return nil, err
		}
		if sr.SuccessCount, err = intField(s, "success_count"); err != nil {
			return nil, err
		}
		if sr.ErrorCount, err = intField(s, "error_count"); err != nil {
			return nil, err
		}
		if err := forEachElem(s["failure_events"], func(el any) error {
			eo, cerr := convertErrorOutput(el)
			if cerr != nil {
				return cerr
			}
			sr.FailureEvents = append(sr.FailureEvents, eo)
			return nil
		}); err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		return sr, nil
	case gateway.SinkResultHandle:
		sr := &SinkResult{FailureEvents: []*ErrorOutput{}}
		var err error
		if sr.InputCount, err = s.GetInputCount(); err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		if sr.SuccessCount, err = s.GetSuccessCount(); err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		failures, err := s.GetFailureEvents()
		if err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		if err := forEachElem(failures, func(el any) error {
			eo, cerr := convertErrorOutput(el)
			if cerr != nil {
				return cerr
			}
			sr.FailureEvents = append(sr.FailureEvents, eo)
			return nil
		}); err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		if sr.ErrorCount, err = s.GetErrorCount(); err != nil {
			return nil, wrapConversion("SinkResult", err)
		}
		return sr, nil
	default:
		return nil, &ConversionError{Entity: "SinkResult", Err: fmt.Errorf("unexpected type %T", v)}
	}
}

// forEachEntry visits the entries of a plain map or a MapHandle. Handle
// keys are consumed in the order the engine enumerates them. A nil map is
// empty.
func forEachEntry(v any, fn func(key string, val any) error) error {
	switch m := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, val := range m {
			if err := fn(k, val); err != nil {
				return err
			}
		}
		return nil
	case gateway.MapHandle:
		keys, err := m.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			val, err := m.Get(k)
			if err != nil {
				return err
			}
			if err := fn(k, val); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected map type %T", v)
	}
}

// forEachElem visits the elements of a plain slice or a ListHandle in
// index order. A nil sequence is empty.
func forEachElem(v any, fn func(el any) error) error {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		for _, el := range s {
			if err := fn(el); err != nil {
				return err
			}
		}
		return nil
	case gateway.ListHandle:
		n, err := s.Size()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			el, err := s.Get(i)
			if err != nil {
				return err
			}
			if err := fn(el); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected sequence type %T", v)
	}
}

func intField(m map[string]any, key string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &ConversionError{Entity: "SinkResult", Err: fmt.Errorf("%s: %w", key, err)}
		}
		return i, nil
	default:
		return 0, &ConversionError{Entity: "SinkResult", Err: fmt.Errorf("%s has type %T, want integer", key, v)}
	}
}
