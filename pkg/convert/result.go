package convert

import (
	"bytes"
	"encoding/json"
)

// Result is an ordered list of decoded values that can also be read by parameter name.
// Unnamed parameters are reachable by position only.
type Result struct {
	values []any
	names  []string
	index  map[string]int
}

// NewResult builds a Result. names may be shorter than values or contain empty entries.
func NewResult(values []any, names []string) *Result {
	r := &Result{
		values: values,
		names:  make([]string, len(values)),
		index:  make(map[string]int),
	}
	copy(r.names, names)
	for i, n := range r.names {
		if n != "" {
			r.index[n] = i
		}
	}
	return r
}

func (r *Result) Len() int {
	return len(r.values)
}

// At returns the i-th value, or nil when i is out of range.
func (r *Result) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Get returns the value of the named parameter.
func (r *Result) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Name returns the parameter name at position i, empty when anonymous.
func (r *Result) Name(i int) string {
	if i < 0 || i >= len(r.names) {
		return ""
	}
	return r.names[i]
}

// Values returns a copy of the positional values.
func (r *Result) Values() []any {
	return append([]any(nil), r.values...)
}

// Map returns the named values only.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.index))
	for n, i := range r.index {
		out[n] = r.values[i]
	}
	return out
}

// MarshalJSON writes an object when every value is named and an array otherwise.
// Byte buffers are written as 0x-prefixed hex.
func (r *Result) MarshalJSON() ([]byte, error) {
	named := len(r.values) > 0 && len(r.index) == len(r.values)
	if !named {
		out := make([]any, len(r.values))
		for i, v := range r.values {
			out[i] = jsonValue(v)
		}
		return json.Marshal(out)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.names[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(jsonValue(v))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return PrefixedHexString(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	}
	return v
}
