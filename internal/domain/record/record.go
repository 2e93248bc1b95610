package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultContainer is the container key used when a nested field names none.
const DefaultContainer = "attributes"

// DefaultIDField is the identifying field used when a schema names none.
const DefaultIDField = "id"

// Record is a schemaless document: field name to JSON-compatible value.
type Record = map[string]any

// NestedField places a logical top-level field inside a container object in
// the stored shape.
type NestedField struct {
	Field     string `json:"field" yaml:"field"`
	Container string `json:"container,omitempty" yaml:"container"`
}

// ContainerKey returns the container, falling back to DefaultContainer.
func (n NestedField) ContainerKey() string {
	if n.Container == "" {
		return DefaultContainer
	}
	return n.Container
}

// Nesting is an ordered nesting configuration.
type Nesting []NestedField

// Containers returns the distinct container keys in declaration order.
func (n Nesting) Containers() []string {
	seen := make(map[string]bool, len(n))
	var out []string
	for _, f := range n {
		k := f.ContainerKey()
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Unpack returns a deep copy of r with every nested field promoted to the top
// level and the decoded containers removed. A container stored as a JSON
// string is decoded first. Absent or undecodable containers are left as-is.
func Unpack(n Nesting, r Record) Record {
	out := Clone(r)
	if len(n) == 0 {
		return out
	}

	decoded := make(map[string]map[string]any, len(n))
	for _, f := range n {
		key := f.ContainerKey()
		container, ok := decoded[key]
		if !ok {
			container, ok = asObject(out[key])
			if !ok {
				continue
			}
			decoded[key] = container
		}
		if v, present := container[f.Field]; present {
			out[f.Field] = v
		}
	}
	for key := range decoded {
		delete(out, key)
	}
	return out
}

// Pack moves every nested field present in r into a fresh container object.
// Fields sharing a container overwrite each other: the last one wins.
func Pack(n Nesting, r Record) Record {
	out := Clone(r)
	for _, f := range n {
		v, ok := out[f.Field]
		if !ok {
			continue
		}
		out[f.ContainerKey()] = map[string]any{f.Field: v}
		delete(out, f.Field)
	}
	return out
}

// Flatten merges the object stored under each container key into the top
// level of a copy of r and drops the container key. Container values win over
// top-level values with the same name.
func Flatten(r Record, containers ...string) Record {
	out := Clone(r)
	for _, key := range containers {
		container, ok := asObject(out[key])
		if !ok {
			continue
		}
		delete(out, key)
		for k, v := range container {
			out[k] = v
		}
	}
	return out
}

// ID returns the identifier stored under field, formatted as a string.
func ID(r Record, field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	var id string
	switch t := v.(type) {
	case string:
		id = t
	case json.Number:
		id = t.String()
	case float64:
		id = strconv.FormatFloat(t, 'f', -1, 64)
	case int, int32, int64, uint, uint32, uint64:
		id = fmt.Sprint(t)
	default:
		return "", false
	}
	return id, id != ""
}

// Clone deep-copies maps and slices; scalar values are shared.
func Clone(r Record) Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t), true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}
