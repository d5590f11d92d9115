package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fakes for the engine handle surface.

type fakeRecord struct {
	value any
	err   error
}

func (r *fakeRecord) Unwrap() (any, error) { return r.value, r.err }

type fakeList struct {
	elems   []any
	sizeErr error
	getErr  error
}

func (l *fakeList) Size() (int, error) {
	if l.sizeErr != nil {
		return 0, l.sizeErr
	}
	return len(l.elems), nil
}

func (l *fakeList) Get(i int) (any, error) {
	if l.getErr != nil {
		return nil, l.getErr
	}
	return l.elems[i], nil
}

type fakeMap struct {
	keys    []string
	vals    map[string]any
	keysErr error
	getErr  error
}

func (m *fakeMap) Keys() ([]string, error) {
	if m.keysErr != nil {
		return nil, m.keysErr
	}
	return m.keys, nil
}

func (m *fakeMap) Get(key string) (any, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.vals[key], nil
}

type fakeErrorOutput struct {
	event  any
	msg    string
	evErr  error
	msgErr error
}

func (e *fakeErrorOutput) InputEvent() (any, error) {
	if e.evErr != nil {
		return nil, e.evErr
	}
	return e.event, nil
}

func (e *fakeErrorOutput) ErrorMessage() (string, error) {
	if e.msgErr != nil {
		return "", e.msgErr
	}
	return e.msg, nil
}

type fakeSink struct {
	input, success, errs          int64
	failures                      any
	inputErr, successErr, errsErr error
	failuresErr                   error
}

func (s *fakeSink) GetInputCount() (int64, error)   { return s.input, s.inputErr }
func (s *fakeSink) GetSuccessCount() (int64, error) { return s.success, s.successErr }
func (s *fakeSink) GetErrorCount() (int64, error)   { return s.errs, s.errsErr }
func (s *fakeSink) GetFailureEvents() (any, error) {
	if s.failuresErr != nil {
		return nil, s.failuresErr
	}
	return s.failures, nil
}

type fakeResult struct {
	outputEvents, outputByStep, errorByStep, sinkResultMap any
	oeErr                                                  error
}

func (r *fakeResult) GetOutputEvents() (any, error) {
	if r.oeErr != nil {
		return nil, r.oeErr
	}
	return r.outputEvents, nil
}
func (r *fakeResult) GetOutputByStep() (any, error)  { return r.outputByStep, nil }
func (r *fakeResult) GetErrorByStep() (any, error)   { return r.errorByStep, nil }
func (r *fakeResult) GetSinkResultMap() (any, error) { return r.sinkResultMap, nil }

// partialResult lacks getSinkResultMap.
type partialResult struct{}

func (partialResult) GetOutputEvents() (any, error) { return nil, nil }
func (partialResult) GetOutputByStep() (any, error) { return nil, nil }
func (partialResult) GetErrorByStep() (any, error)  { return nil, nil }

func emptyHandleMap() *fakeMap { return &fakeMap{} }

func TestConvertNilInput(t *testing.T) {
	res, err := Convert(nil)
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestConvertEmptyPlainMap(t *testing.T) {
	res, err := Convert(map[string]any{})
	require.NoError(t, err)

	require.Empty(t, res.OutputEvents)
	require.Empty(t, res.OutputByStep)
	require.Empty(t, res.ErrorByStep)
	require.Empty(t, res.SinkResultMap)
	require.NotNil(t, res.OutputEvents)
	require.NotNil(t, res.SinkResultMap)
}

func TestConvertPlainMapWithRecords(t *testing.T) {
	sample := map[string]any{"field1": "value1", "field2": 42, "field3": true}
	raw := map[string]any{
		"outputEvents": map[string]any{
			"exit1": []any{&fakeRecord{value: sample}, map[string]any{"already": "plain"}},
		},
		"outputByStep": map[string]any{
			"step1": map[string]any{"source1": []any{&fakeRecord{value: sample}}},
		},
		"errorByStep":   map[string]any{},
		"sinkResultMap": map[string]any{},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Equal(t, sample, res.OutputEvents["exit1"][0])
	require.Equal(t, map[string]any{"already": "plain"}, res.OutputEvents["exit1"][1])
	require.Equal(t, sample, res.OutputByStep["step1"]["source1"][0])
}

func TestConvertHandleGraph(t *testing.T) {
	sample := map[string]any{"field1": "value1", "field2": 42}
	records := &fakeList{elems: []any{&fakeRecord{value: sample}}}

	raw := &fakeResult{
		outputEvents: &fakeMap{keys: []string{"exit1"}, vals: map[string]any{"exit1": records}},
		outputByStep: &fakeMap{
			keys: []string{"step1"},
			vals: map[string]any{
				"step1": &fakeMap{keys: []string{"source1"}, vals: map[string]any{"source1": records}},
			},
		},
		errorByStep:   emptyHandleMap(),
		sinkResultMap: emptyHandleMap(),
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Equal(t, sample, res.OutputEvents["exit1"][0])
	require.Equal(t, sample, res.OutputByStep["step1"]["source1"][0])
	require.Empty(t, res.ErrorByStep)
	require.Empty(t, res.SinkResultMap)
}

func TestConvertPlainErrorOutput(t *testing.T) {
	raw := map[string]any{
		"errorByStep": map[string]any{
			"s1": map[string]any{
				"src1": []any{map[string]any{
					"input_event":   map[string]any{"x": 1},
					"error_message": "boom",
				}},
			},
		},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	got := res.ErrorByStep["s1"]["src1"][0]
	require.Equal(t, map[string]any{"x": 1}, got.InputEvent)
	require.Equal(t, "boom", got.ErrorMessage)
}

func TestConvertErrorOutputHandle(t *testing.T) {
	eo := &fakeErrorOutput{
		event: &fakeRecord{value: map[string]any{"event": "data"}},
		msg:   "engine error",
	}
	raw := &fakeResult{
		outputEvents: emptyHandleMap(),
		outputByStep: emptyHandleMap(),
		errorByStep: &fakeMap{
			keys: []string{"step1"},
			vals: map[string]any{
				"step1": &fakeMap{
					keys: []string{"source1"},
					vals: map[string]any{"source1": &fakeList{elems: []any{eo}}},
				},
			},
		},
		sinkResultMap: emptyHandleMap(),
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	got := res.ErrorByStep["step1"]["source1"][0]
	require.Equal(t, map[string]any{"event": "data"}, got.InputEvent)
	require.Equal(t, "engine error", got.ErrorMessage)
}

func TestConvertPlainSinkResult(t *testing.T) {
	raw := map[string]any{
		"sinkResultMap": map[string]any{
			"sink1": map[string]any{
				"input_count":   10,
				"success_count": 8,
				"error_count":   2,
				"failure_events": []any{map[string]any{
					"input_event":   map[string]any{"failed": "event"},
					"error_message": "sink failure",
				}},
			},
		},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	sr := res.SinkResultMap["sink1"]
	require.EqualValues(t, 10, sr.InputCount)
	require.EqualValues(t, 8, sr.SuccessCount)
	require.EqualValues(t, 2, sr.ErrorCount)
	require.Len(t, sr.FailureEvents, 1)
	require.Equal(t, "sink failure", sr.FailureEvents[0].ErrorMessage)
}

func TestConvertSinkResultHandle(t *testing.T) {
	sink := &fakeSink{
		input:   15,
		success: 12,
		errs:    3,
		failures: &fakeList{elems: []any{&fakeErrorOutput{
			event: &fakeRecord{value: map[string]any{"failed": "event"}},
			msg:   "sink failure",
		}}},
	}
	raw := &fakeResult{
		outputEvents:  emptyHandleMap(),
		outputByStep:  emptyHandleMap(),
		errorByStep:   emptyHandleMap(),
		sinkResultMap: &fakeMap{keys: []string{"sink1"}, vals: map[string]any{"sink1": sink}},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	sr := res.SinkResultMap["sink1"]
	require.EqualValues(t, 15, sr.InputCount)
	require.EqualValues(t, 12, sr.SuccessCount)
	require.EqualValues(t, 3, sr.ErrorCount)
	require.Len(t, sr.FailureEvents, 1)
	require.Equal(t, map[string]any{"failed": "event"}, sr.FailureEvents[0].InputEvent)
}

func TestConvertShapeMismatch(t *testing.T) {
	res, err := Convert(partialResult{})
	require.Nil(t, res)

	var sm *ShapeMismatchError
	require.ErrorAs(t, err, &sm)
	require.Equal(t, "getSinkResultMap", sm.Missing)

	// A missing accessor is a shape problem, never a conversion failure.
	var ce *ConversionError
	require.False(t, errors.As(err, &ce))
}

func TestConvertShapeMismatchPlainScalar(t *testing.T) {
	_, err := Convert("not a result")
	var sm *ShapeMismatchError
	require.ErrorAs(t, err, &sm)
	require.Equal(t, "getOutputEvents", sm.Missing)
}

func TestConvertTopLevelAccessorFault(t *testing.T) {
	raw := &fakeResult{
		oeErr:         errors.New("gateway call failed"),
		outputByStep:  emptyHandleMap(),
		errorByStep:   emptyHandleMap(),
		sinkResultMap: emptyHandleMap(),
	}

	res, err := Convert(raw)
	require.Nil(t, res)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "DagResult", ce.Entity)
	require.Contains(t, err.Error(), "gateway call failed")
}

func TestConvertUnwrapFault(t *testing.T) {
	raw := map[string]any{
		"outputEvents": map[string]any{
			"exit1": []any{&fakeRecord{err: errors.New("unwrap failed upstream")}},
		},
	}

	res, err := Convert(raw)
	require.Nil(t, res, "no partial result on mid-traversal fault")

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "record", ce.Entity)
	require.Contains(t, err.Error(), "unwrap failed upstream")
}

func TestConvertErrorOutputFault(t *testing.T) {
	raw := map[string]any{
		"errorByStep": map[string]any{
			"step1": map[string]any{
				"source1": []any{&fakeErrorOutput{evErr: errors.New("input event failed")}},
			},
		},
	}

	_, err := Convert(raw)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "ErrorOutput", ce.Entity)
}

func TestConvertSinkResultFault(t *testing.T) {
	raw := map[string]any{
		"sinkResultMap": map[string]any{
			"sink1": &fakeSink{inputErr: errors.New("input count failed")},
		},
	}

	_, err := Convert(raw)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "SinkResult", ce.Entity)
}

func TestConvertNullPassthrough(t *testing.T) {
	raw := map[string]any{
		"outputEvents": map[string]any{
			"exit1": []any{nil, map[string]any{"valid": "data"}},
		},
		"errorByStep": map[string]any{
			"step1": map[string]any{"source1": []any{nil}},
		},
		"sinkResultMap": map[string]any{"sink1": nil},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Nil(t, res.OutputEvents["exit1"][0])
	require.Equal(t, map[string]any{"valid": "data"}, res.OutputEvents["exit1"][1])
	require.Len(t, res.ErrorByStep["step1"]["source1"], 1)
	require.Nil(t, res.ErrorByStep["step1"]["source1"][0])
	require.Contains(t, res.SinkResultMap, "sink1")
	require.Nil(t, res.SinkResultMap["sink1"])
}

func TestConvertIdempotentOnPlainInput(t *testing.T) {
	raw := map[string]any{
		"outputEvents": map[string]any{
			"exit1": []any{map[string]any{"a": 1}, map[string]any{"b": 2}},
			"exit2": []any{nil},
		},
		"errorByStep": map[string]any{
			"s1": map[string]any{"src1": []any{map[string]any{
				"input_event":   map[string]any{"x": 1},
				"error_message": "boom",
			}}},
		},
	}

	first, err := Convert(raw)
	require.NoError(t, err)
	second, err := Convert(raw)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestConvertIsStructuralCopy(t *testing.T) {
	raw := map[string]any{
		"outputEvents": map[string]any{
			"exit1": []any{map[string]any{"step": "1"}},
			"exit2": []any{map[string]any{"step": "2"}},
		},
		"outputByStep": map[string]any{
			"step1": map[string]any{
				"source1": []any{map[string]any{"r": 1}},
				"source2": []any{map[string]any{"r": 2}},
			},
			"step2": map[string]any{
				"source1": []any{map[string]any{"r": 1}, map[string]any{"r": 2}},
			},
		},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Len(t, res.OutputEvents, 2)
	require.Len(t, res.OutputByStep, 2)
	require.Len(t, res.OutputByStep["step1"], 2)
	require.Len(t, res.OutputByStep["step2"]["source1"], 2)
}

func TestConvertMapHandleKeyOrder(t *testing.T) {
	raw := &fakeResult{
		outputEvents: &fakeMap{
			keys: []string{"key1", "key2"},
			vals: map[string]any{"key1": &fakeList{}, "key2": &fakeList{}},
		},
		outputByStep:  emptyHandleMap(),
		errorByStep:   emptyHandleMap(),
		sinkResultMap: emptyHandleMap(),
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Contains(t, res.OutputEvents, "key1")
	require.Contains(t, res.OutputEvents, "key2")
}

func TestConvertLargeSequencePreservesOrder(t *testing.T) {
	records := make([]any, 100)
	for i := range records {
		records[i] = &fakeRecord{value: map[string]any{"id": i}}
	}
	raw := map[string]any{
		"outputEvents": map[string]any{"bulk_exit": records},
	}

	res, err := Convert(raw)
	require.NoError(t, err)

	require.Len(t, res.OutputEvents["bulk_exit"], 100)
	require.Equal(t, map[string]any{"id": 0}, res.OutputEvents["bulk_exit"][0])
	require.Equal(t, map[string]any{"id": 99}, res.OutputEvents["bulk_exit"][99])
}

func TestConvertDoesNotMutateInput(t *testing.T) {
	inner := []any{map[string]any{"a": 1}}
	raw := map[string]any{
		"outputEvents": map[string]any{"exit1": inner},
	}

	_, err := Convert(raw)
	require.NoError(t, err)

	require.Len(t, inner, 1)
	require.Equal(t, map[string]any{"a": 1}, inner[0])
}
