// Package channel describes how writes to a state key are folded into the
// value already held for that key. A key without a reducer is overwritten,
// which is what most workflow fields want. List-valued keys such as a chat
// transcript register Append so nodes only return what they add.
package channel

import (
	"fmt"
	"reflect"
)

// Reducer combines the current value of a key with a node's update.
// current is nil when the key has not been written yet.
type Reducer func(current, update interface{}) interface{}

// ReducerType names a built-in reducer in configuration.
type ReducerType string

const (
	// ReducerTypeAppend appends values to lists
	ReducerTypeAppend ReducerType = "append"
	// ReducerTypeMerge merges map values
	ReducerTypeMerge ReducerType = "merge"
	// ReducerTypeReplace replaces values completely
	ReducerTypeReplace ReducerType = "replace"
	// ReducerTypeMax keeps the larger value
	ReducerTypeMax ReducerType = "max"
)

// Replace returns the update unchanged.
func Replace(_, update interface{}) interface{} {
	return update
}

// Append concatenates slices. A scalar on either side is treated as a
// one-element list. The result never aliases current's backing array.
func Append(current, update interface{}) interface{} {
	if current == nil {
		return update
	}
	if update == nil {
		return current
	}
	currentV := reflect.ValueOf(current)
	updateV := reflect.ValueOf(update)

	switch {
	case currentV.Kind() == reflect.Slice && updateV.Kind() == reflect.Slice:
		if currentV.Type() != updateV.Type() {
			return append(toInterfaces(currentV), toInterfaces(updateV)...)
		}
		out := reflect.MakeSlice(currentV.Type(), 0, currentV.Len()+updateV.Len())
		out = reflect.AppendSlice(out, currentV)
		return reflect.AppendSlice(out, updateV).Interface()
	case currentV.Kind() == reflect.Slice:
		if updateV.Type().AssignableTo(currentV.Type().Elem()) {
			out := reflect.MakeSlice(currentV.Type(), 0, currentV.Len()+1)
			out = reflect.AppendSlice(out, currentV)
			return reflect.Append(out, updateV).Interface()
		}
		return append(toInterfaces(currentV), update)
	case updateV.Kind() == reflect.Slice:
		return append([]interface{}{current}, toInterfaces(updateV)...)
	default:
		return []interface{}{current, update}
	}
}

// Merge merges maps recursively; anything else is replaced.
func Merge(current, update interface{}) interface{} {
	currentMap, ok := current.(map[string]interface{})
	if !ok {
		return update
	}
	updateMap, ok := update.(map[string]interface{})
	if !ok {
		return update
	}
	merged := make(map[string]interface{}, len(currentMap)+len(updateMap))
	for k, v := range currentMap {
		merged[k] = v
	}
	for k, v := range updateMap {
		if existing, exists := merged[k]; exists {
			merged[k] = Merge(existing, v)
		} else {
			merged[k] = v
		}
	}
	return merged
}

// Max keeps the larger of two numbers or strings of the same type.
func Max(current, update interface{}) interface{} {
	switch c := current.(type) {
	case int:
		if u, ok := update.(int); ok && u < c {
			return c
		}
	case int64:
		if u, ok := update.(int64); ok && u < c {
			return c
		}
	case float64:
		if u, ok := update.(float64); ok && u < c {
			return c
		}
	case string:
		if u, ok := update.(string); ok && u < c {
			return c
		}
	}
	return update
}

// ReducerByType resolves a configured reducer name.
func ReducerByType(t ReducerType) (Reducer, error) {
	switch t {
	case ReducerTypeAppend:
		return Append, nil
	case ReducerTypeMerge:
		return Merge, nil
	case "", ReducerTypeReplace:
		return Replace, nil
	case ReducerTypeMax:
		return Max, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownReducer, t)
	}
}

// Spec maps state keys to their reducers.
type Spec map[string]Reducer

// Register sets the reducer for key.
func (s Spec) Register(key string, r Reducer) error {
	if key == "" {
		return ErrEmptyKey
	}
	if r == nil {
		r = Replace
	}
	s[key] = r
	return nil
}

// Reduce folds update into current for key.
func (s Spec) Reduce(key string, current, update interface{}) interface{} {
	if r, ok := s[key]; ok {
		return r(current, update)
	}
	return update
}

func toInterfaces(v reflect.Value) []interface{} {
	out := make([]interface{}, 0, v.Len()+1)
	for i := 0; i < v.Len(); i++ {
		out = append(out, v.Index(i).Interface())
	}
	return out
}
