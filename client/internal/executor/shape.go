package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
)

var errEmptyBody = errors.New("empty response body")

// Kind selects how a response body is interpreted.
type Kind int

const (
	KindEmpty Kind = iota
	KindSingle
	KindList
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	case KindRaw:
		return "raw"
	default:
		return "empty"
	}
}

// Mockable values supply their own placeholder for mock mode.
type Mockable interface {
	Mock() any
}

// Shape is the result shape a caller asks for. Build one with Single,
// List, Raw or Empty.
type Shape struct {
	kind   Kind
	typ    reflect.Type // element type for Single and List
	decode func([]byte) (any, error)
	mock   func() any
}

func (s Shape) Kind() Kind { return s.kind }

// Same reports whether s and o decode a body into the same payload type.
func (s Shape) Same(o Shape) bool {
	return s.kind == o.kind && s.typ == o.typ
}

// WithMock returns a copy of s that resolves to v in mock mode.
func (s Shape) WithMock(v any) Shape {
	s.mock = func() any { return v }
	return s
}

// Single decodes the body into a *T.
func Single[T any]() Shape {
	return Shape{
		kind: KindSingle,
		typ:  reflect.TypeOf((*T)(nil)).Elem(),
		decode: func(body []byte) (any, error) {
			out := new(T)
			if err := json.Unmarshal(body, out); err != nil {
				return nil, err
			}
			return out, nil
		},
		mock: func() any { return mockOf[T]() },
	}
}

// List decodes the body into a []T.
func List[T any]() Shape {
	return Shape{
		kind: KindList,
		typ:  reflect.TypeOf((*T)(nil)).Elem(),
		decode: func(body []byte) (any, error) {
			var out []T
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, err
			}
			if out == nil {
				return nil, fmt.Errorf("expected a JSON array")
			}
			return out, nil
		},
		mock: func() any {
			if p, ok := mockOf[T]().(*T); ok {
				return []T{*p}
			}
			return []T{}
		},
	}
}

// Raw decodes the body into a JSON object.
func Raw() Shape {
	return Shape{
		kind: KindRaw,
		decode: func(body []byte) (any, error) {
			var out map[string]any
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, err
			}
			if out == nil {
				return nil, fmt.Errorf("expected a JSON object")
			}
			return out, nil
		},
		mock: func() any { return map[string]any{} },
	}
}

// Empty ignores the body.
func Empty() Shape {
	return Shape{kind: KindEmpty}
}

// Reshape reinterprets res, produced for another shape, as shape would
// have. Failures are shared as is. A response body is decoded again; a
// result that never reached the network takes shape's mock payload.
func Reshape(res Result, shape Shape) Result {
	out := res
	out.Kind = shape.kind
	out.Object, out.List, out.Raw = nil, nil, nil
	if res.Err != nil {
		return out
	}
	if res.StatusCode == 0 && res.Body == nil {
		return shape.fillMock(out)
	}
	return shape.fill(out)
}

// fill decodes res.Body into the payload field matching s.
func (s Shape) fill(res Result) Result {
	switch s.kind {
	case KindEmpty:
		return res
	case KindRaw:
		if len(res.Body) == 0 {
			res.Raw = map[string]any{}
			return res
		}
	}

	if len(res.Body) == 0 {
		res.Err = &apierrors.DecodingError{Shape: s.kind.String(), Err: errEmptyBody}
		return res
	}
	v, err := s.decode(res.Body)
	if err != nil {
		res.Err = &apierrors.DecodingError{Shape: s.kind.String(), Err: err}
		return res
	}
	switch s.kind {
	case KindSingle:
		res.Object = v
	case KindList:
		res.List = v
	case KindRaw:
		res.Raw = v.(map[string]any)
	}
	return res
}

func (s Shape) fillMock(res Result) Result {
	if s.mock == nil {
		return res
	}
	v := s.mock()
	switch s.kind {
	case KindSingle:
		res.Object = v
	case KindList:
		res.List = v
	case KindRaw:
		if m, ok := v.(map[string]any); ok {
			res.Raw = m
		} else {
			res.Raw = map[string]any{}
		}
	}
	return res
}

func mockOf[T any]() any {
	v := new(T)
	if m, ok := any(v).(Mockable); ok {
		if mv, ok := m.Mock().(*T); ok {
			return mv
		}
	}
	return v
}

// Result is the outcome of one call. On success exactly the field matching
// the requested Kind is set: Object, List or Raw (none for KindEmpty).
type Result struct {
	Kind       Kind
	Object     any
	List       any
	Raw        map[string]any
	Header     http.Header
	StatusCode int // 0 when no response was received
	Body       []byte
	Err        error
}

// OK reports whether the call produced a usable payload.
func (r Result) OK() bool { return r.Err == nil }

// ObjectAs returns the single-object payload as *T.
func ObjectAs[T any](r Result) (*T, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	v, ok := r.Object.(*T)
	if !ok {
		return nil, fmt.Errorf("result holds %T, not *%T", r.Object, *new(T))
	}
	return v, nil
}

// ListAs returns the list payload as []T.
func ListAs[T any](r Result) ([]T, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	v, ok := r.List.([]T)
	if !ok {
		return nil, fmt.Errorf("result holds %T, not []%T", r.List, *new(T))
	}
	return v, nil
}
